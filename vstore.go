// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package crosec

import (
	"errors"
	"fmt"

	"github.com/chipflow/crosec/protocol"
)

var (
	// ErrVstoreSize rejects writes larger than one slot before any
	// exchange is issued.
	ErrVstoreSize = errors.New("data exceeds vstore slot size")

	// ErrVstoreSlot rejects an out-of-range slot index.
	ErrVstoreSlot = errors.New("vstore slot out of range")
)

// VstoreSupported reports whether the controller advertises verified
// boot storage.
func (d *Device) VstoreSupported() (bool, error) {
	return d.CheckFeature(protocol.FeatureVstore)
}

// VstoreInfo reads the slot count and the bitmask of locked slots.
func (d *Device) VstoreInfo() (slotCount int, locked uint32, err error) {
	resp, err := d.command(protocol.CmdVstoreInfo, 0, nil, 5)
	if err != nil {
		return 0, 0, err
	}
	r, err := protocol.ParseVstoreInfoResponse(resp)
	if err != nil {
		return 0, 0, err
	}
	return int(r.SlotCount), r.SlotLocked, nil
}

// VstoreRead reads one full slot.
func (d *Device) VstoreRead(slot int) ([]byte, error) {
	if slot < 0 {
		return nil, fmt.Errorf("%w: %d", ErrVstoreSlot, slot)
	}
	p := protocol.VstoreReadParams{Slot: uint32(slot)}
	resp, err := d.command(protocol.CmdVstoreRead, 0, p.Marshal(), protocol.VstoreSlotSize)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp[:protocol.VstoreSlotSize]...), nil
}

// VstoreWrite writes one slot. Data shorter than the slot is
// zero-padded; data longer than the slot is rejected without touching
// the controller. Writing a locked slot fails with an access-denied
// result.
func (d *Device) VstoreWrite(slot int, data []byte) error {
	if slot < 0 {
		return fmt.Errorf("%w: %d", ErrVstoreSlot, slot)
	}
	if len(data) > protocol.VstoreSlotSize {
		return fmt.Errorf("%w: %d bytes", ErrVstoreSize, len(data))
	}
	p := protocol.VstoreWriteParams{Slot: uint32(slot)}
	copy(p.Data[:], data)
	_, err := d.command(protocol.CmdVstoreWrite, 0, p.Marshal(), 0)
	return err
}
