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

func TestVstoreInfo(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{VstoreSlots: 4, VstoreLocked: 0b0010})

	ok, err := dev.VstoreSupported()
	require.NoError(t, err)
	assert.True(t, ok)

	count, locked, err := dev.VstoreInfo()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, uint32(0b0010), locked)
}

func TestVstoreRoundtrip(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{})

	data := []byte("vstore slot contents")
	require.NoError(t, dev.VstoreWrite(0, data))

	got, err := dev.VstoreRead(0)
	require.NoError(t, err)
	require.Len(t, got, protocol.VstoreSlotSize)
	// Short writes are zero-padded to the full slot.
	assert.Equal(t, data, got[:len(data)])
	for _, b := range got[len(data):] {
		require.Zero(t, b)
	}
}

func TestVstoreWriteOversized(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	err := dev.VstoreWrite(0, make([]byte, protocol.VstoreSlotSize+1))
	assert.ErrorIs(t, err, ErrVstoreSize)
	// Rejected before any exchange reached the controller.
	assert.Zero(t, ec.CommandCount(protocol.CmdVstoreWrite))
}

func TestVstoreWriteLockedSlot(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{VstoreLocked: 0b01})

	err := dev.VstoreWrite(0, []byte("x"))
	assert.True(t, protocol.IsResult(err, protocol.ResAccessDenied))

	assert.NoError(t, dev.VstoreWrite(1, []byte("x")))
}

func TestVstoreSlotRange(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	_, err := dev.VstoreRead(-1)
	assert.ErrorIs(t, err, ErrVstoreSlot)
	assert.ErrorIs(t, dev.VstoreWrite(-1, nil), ErrVstoreSlot)
	assert.Zero(t, ec.CommandCount(protocol.CmdVstoreRead))

	err = dev.VstoreWrite(9, []byte("x"))
	assert.True(t, protocol.IsResult(err, protocol.ResInvalidParam))
}
