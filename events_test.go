// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package crosec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipflow/crosec/emulator"
	"github.com/chipflow/crosec/protocol"
)

func TestScanKeyboard(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	var cols [protocol.KeyscanCols]byte
	cols[0] = 0x01
	cols[12] = 0x80
	ec.SetMatrix(cols)

	scan, err := dev.ScanKeyboard()
	require.NoError(t, err)
	assert.Equal(t, cols, scan.Data)
}

func TestMkbpInfo(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{})
	info, err := dev.MkbpInfo()
	require.NoError(t, err)
	assert.Equal(t, uint32(protocol.KeyscanCols), info.Cols)
	assert.Equal(t, uint32(8), info.Rows)
}

func TestGetNextEventQueue(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	ec.QueueEvent(protocol.MkbpEventKeyMatrix, []byte{1, 2, 3})
	ec.QueueEvent(protocol.MkbpEventButton, []byte{4})

	ev, err := dev.GetNextEvent()
	require.NoError(t, err)
	assert.Equal(t, protocol.MkbpEventKeyMatrix, ev.EventType)
	assert.Equal(t, []byte{1, 2, 3}, ev.Data)

	ev, err = dev.GetNextEvent()
	require.NoError(t, err)
	assert.Equal(t, protocol.MkbpEventButton, ev.EventType)

	_, err = dev.GetNextEvent()
	assert.ErrorIs(t, err, ErrNoPendingEvent)
}

func TestHostEvents(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	lid := protocol.HostEventMask(protocol.HostEventLidClosed)
	ac := protocol.HostEventMask(protocol.HostEventACConnect)
	ec.SetHostEvents(lid | ac)

	mask, err := dev.GetHostEvents()
	require.NoError(t, err)
	assert.Equal(t, lid|ac, mask)

	require.NoError(t, dev.ClearHostEvents(lid))
	mask, err = dev.GetHostEvents()
	require.NoError(t, err)
	assert.Equal(t, ac, mask)
}

func TestHostEventsInvalidMarker(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})
	ec.SetHostEvents(protocol.HostEventMask(protocol.HostEventInvalid))
	_, err := dev.GetHostEvents()
	assert.ErrorIs(t, err, ErrInvalidEvents)
}

func TestEventsB(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	ec.SetEventsB(0x0000000500000003)
	mask, err := dev.GetEventsB()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0000000500000003), mask)

	require.NoError(t, dev.ClearEventsB(0x0000000400000001))
	mask, err = dev.GetEventsB()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0000000100000002), mask)
}

func TestSmiMask(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{})

	require.NoError(t, dev.SetSmiMask(0xf0))
	mask, err := dev.GetSmiMask()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xf0), mask)
}

func TestLidShutdownMaskPreservesBits(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})
	ec.SetSmiMask(0xf0)

	on, err := dev.GetLidShutdownMask()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, dev.SetLidShutdownMask(true))
	on, err = dev.GetLidShutdownMask()
	require.NoError(t, err)
	assert.True(t, on)
	lid := protocol.HostEventMask(protocol.HostEventLidClosed)
	assert.Equal(t, 0xf0|lid, ec.SmiMask())

	require.NoError(t, dev.SetLidShutdownMask(false))
	assert.Equal(t, uint32(0xf0), ec.SmiMask())
}
