// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package emulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipflow/crosec/protocol"
)

func TestPacketRejectsCorruptFrame(t *testing.T) {
	ec := New(Config{})

	req := make([]byte, protocol.MaxMessageBytes)
	n, err := protocol.EncodeRequest(req, protocol.CmdHello, 0, make([]byte, 4))
	require.NoError(t, err)
	req[protocol.RequestHeaderSize] ^= 0xff

	resp := make([]byte, protocol.MaxMessageBytes)
	_, err = ec.Packet(req[:n], resp)
	assert.ErrorIs(t, err, protocol.ErrChecksum)
}

func TestCommandReportsResultError(t *testing.T) {
	ec := New(Config{})
	resp := make([]byte, protocol.MaxMessageBytes)
	_, err := ec.Command(0xee, 0, nil, resp)
	assert.True(t, protocol.IsResult(err, protocol.ResInvalidCommand))
}

func TestHookShortCircuits(t *testing.T) {
	ec := New(Config{
		Hook: func(cmd protocol.Command, version uint8, data []byte) ([]byte, protocol.Result, bool) {
			if cmd == protocol.CmdGetSkuID {
				return []byte{0x2a, 0, 0, 0}, protocol.ResSuccess, true
			}
			return nil, 0, false
		},
	})

	resp := make([]byte, protocol.MaxMessageBytes)
	n, err := ec.Command(uint8(protocol.CmdGetSkuID), 0, nil, resp)
	require.NoError(t, err)
	r, err := protocol.ParseSkuIDResponse(resp[:n])
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2a), r.SkuID)

	// Other commands still reach the regular dispatcher.
	_, err = ec.Command(uint8(protocol.CmdHello), 0, []byte{0, 0, 0, 0}, resp)
	assert.NoError(t, err)
}

func TestExchangeCounters(t *testing.T) {
	ec := New(Config{})
	resp := make([]byte, protocol.MaxMessageBytes)
	_, err := ec.Command(uint8(protocol.CmdHello), 0, make([]byte, 4), resp)
	require.NoError(t, err)

	assert.Equal(t, 1, ec.Exchanges())
	assert.Equal(t, 1, ec.CommandCount(protocol.CmdHello))
	assert.Zero(t, ec.CommandCount(protocol.CmdGetVersion))
}
