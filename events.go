// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package crosec

import (
	"errors"

	"github.com/chipflow/crosec/protocol"
)

// ErrInvalidEvents means the controller reported the all-ones invalid
// marker instead of a real host event mask.
var ErrInvalidEvents = errors.New("controller reported invalid host events")

// KeyScan is one snapshot of the keyboard matrix, one byte per column.
type KeyScan struct {
	Data [protocol.KeyscanCols]byte
}

// ScanKeyboard reads the current keyboard matrix state.
func (d *Device) ScanKeyboard() (*KeyScan, error) {
	resp, err := d.command(protocol.CmdMkbpState, 0, nil, protocol.KeyscanCols)
	if err != nil {
		return nil, err
	}
	var scan KeyScan
	copy(scan.Data[:], resp)
	return &scan, nil
}

// MkbpInfo reads the keyboard matrix geometry.
func (d *Device) MkbpInfo() (*protocol.MkbpInfoResponse, error) {
	resp, err := d.command(protocol.CmdMkbpInfo, 0, nil, 9)
	if err != nil {
		return nil, err
	}
	return protocol.ParseMkbpInfoResponse(resp)
}

// GetNextEvent pops the next pending MKBP event. An empty queue is
// reported as ErrNoPendingEvent.
func (d *Device) GetNextEvent() (*protocol.GetNextEventResponse, error) {
	resp, err := d.command(protocol.CmdGetNextEvent, 0, nil, 1)
	if err != nil {
		if protocol.IsResult(err, protocol.ResUnavailable) {
			return nil, ErrNoPendingEvent
		}
		return nil, err
	}
	ev, err := protocol.ParseGetNextEventResponse(resp)
	if err != nil {
		return nil, err
	}
	// The payload aliases the exchange buffer; detach it.
	ev.Data = append([]byte(nil), ev.Data...)
	return ev, nil
}

// GetHostEvents reads the pending host event mask. The controller's
// all-ones invalid marker is rejected.
func (d *Device) GetHostEvents() (uint32, error) {
	resp, err := d.command(protocol.CmdHostEventGetB, 0, nil, 4)
	if err != nil {
		return 0, err
	}
	r, err := protocol.ParseHostEventMaskResponse(resp)
	if err != nil {
		return 0, err
	}
	if r.Mask&protocol.HostEventMask(protocol.HostEventInvalid) != 0 {
		return 0, ErrInvalidEvents
	}
	return r.Mask, nil
}

// ClearHostEvents clears the given bits from the pending host event
// mask.
func (d *Device) ClearHostEvents(mask uint32) error {
	p := protocol.HostEventMaskParams{Mask: mask}
	_, err := d.command(protocol.CmdHostEventClear, 0, p.Marshal(), 0)
	return err
}

// hostEvent64 drives the 64-bit host event interface.
func (d *Device) hostEvent64(action, maskType uint8, value uint64) (uint64, error) {
	p := protocol.HostEventParams{Action: action, MaskType: maskType, Value: value}
	want := 0
	if action == protocol.HostEventActionGet {
		want = 8
	}
	resp, err := d.command(protocol.CmdHostEvent, 0, p.Marshal(), want)
	if err != nil {
		return 0, err
	}
	if action != protocol.HostEventActionGet {
		return 0, nil
	}
	r, err := protocol.ParseHostEventResponse(resp)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// GetEventsB reads the copy-B host event bank through the 64-bit
// interface.
func (d *Device) GetEventsB() (uint64, error) {
	return d.hostEvent64(protocol.HostEventActionGet, protocol.HostEventMaskTypeB, 0)
}

// ClearEventsB clears bits from the copy-B host event bank.
func (d *Device) ClearEventsB(mask uint64) error {
	_, err := d.hostEvent64(protocol.HostEventActionClear, protocol.HostEventMaskTypeB, mask)
	return err
}

// GetSmiMask reads the mask of host events that raise an SMI.
func (d *Device) GetSmiMask() (uint32, error) {
	resp, err := d.command(protocol.CmdHostEventGetSmiMask, 0, nil, 4)
	if err != nil {
		return 0, err
	}
	r, err := protocol.ParseHostEventMaskResponse(resp)
	if err != nil {
		return 0, err
	}
	return r.Mask, nil
}

// SetSmiMask replaces the mask of host events that raise an SMI.
func (d *Device) SetSmiMask(mask uint32) error {
	p := protocol.HostEventMaskParams{Mask: mask}
	_, err := d.command(protocol.CmdHostEventSetSmiMask, 0, p.Marshal(), 0)
	return err
}

// GetLidShutdownMask reports whether lid-closed shuts the system down.
func (d *Device) GetLidShutdownMask() (bool, error) {
	mask, err := d.GetSmiMask()
	if err != nil {
		return false, err
	}
	return mask&protocol.HostEventMask(protocol.HostEventLidClosed) != 0, nil
}

// SetLidShutdownMask enables or disables shutdown on lid close. The SMI
// mask is read, the lid bit modified, and the mask written back; other
// bits are preserved.
func (d *Device) SetLidShutdownMask(enable bool) error {
	mask, err := d.GetSmiMask()
	if err != nil {
		return err
	}
	bit := protocol.HostEventMask(protocol.HostEventLidClosed)
	if enable {
		mask |= bit
	} else {
		mask &^= bit
	}
	return d.SetSmiMask(mask)
}
