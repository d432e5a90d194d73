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

// A register-file peripheral at address 0x50: writes set the register
// pointer and contents, reads return data derived from the pointer.
func regFileHandler(t *testing.T) func(uint8, []protocol.I2CMsg) ([]byte, uint8) {
	return func(port uint8, msgs []protocol.I2CMsg) ([]byte, uint8) {
		assert.Equal(t, uint8(2), port)
		var reg byte
		var out []byte
		for _, m := range msgs {
			if !m.Read {
				require.NotEmpty(t, m.Data)
				reg = m.Data[0]
				continue
			}
			for i := 0; i < int(m.Len); i++ {
				out = append(out, reg+byte(i))
			}
		}
		return out, 0
	}
}

func TestI2CTunnelMixedTransfer(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{I2CHandler: regFileHandler(t)})

	reads, err := dev.I2CTunnel(2, []protocol.I2CMsg{
		{Addr: 0x50, Len: 1, Data: []byte{0x10}},
		{Addr: 0x50, Read: true, Len: 4},
		{Addr: 0x50, Read: true, Len: 2},
	})
	require.NoError(t, err)
	require.Len(t, reads, 2, "one slice per read message")
	assert.Equal(t, []byte{0x10, 0x11, 0x12, 0x13}, reads[0])
	assert.Equal(t, []byte{0x10, 0x11}, reads[1])
	assert.Equal(t, 1, ec.CommandCount(protocol.CmdI2CPassthru))
}

func TestI2CTunnelReadsWithoutHandler(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{})

	reads, err := dev.I2CTunnel(0, []protocol.I2CMsg{
		{Addr: 0x20, Read: true, Len: 3},
	})
	require.NoError(t, err)
	require.Len(t, reads, 1)
	assert.Equal(t, []byte{0, 0, 0}, reads[0])
}

func TestI2CTunnelBusFailure(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{
		I2CHandler: func(port uint8, msgs []protocol.I2CMsg) ([]byte, uint8) {
			// Peripheral NAKed the transfer.
			return nil, 1
		},
	})

	_, err := dev.I2CTunnel(0, []protocol.I2CMsg{
		{Addr: 0x50, Read: true, Len: 2},
	})
	assert.ErrorIs(t, err, ErrI2CStatus)
}
