// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipflow/crosec/emulator"
	"github.com/chipflow/crosec/protocol"
	"github.com/chipflow/crosec/transport"
)

// wire fakes a serial port in front of an emulated controller: writes
// are dispatched, reads drain the queued response in dribs to exercise
// the reassembly loop.
type wire struct {
	ec       *emulator.EC
	pending  []byte
	readSize int
	zeroes   int
	drop     bool
	closed   bool
}

func newWire(cfg emulator.Config) *wire {
	return &wire{ec: emulator.New(cfg), readSize: 3}
}

func (w *wire) Write(p []byte) (int, error) {
	buf := make([]byte, protocol.MaxMessageBytes)
	n, err := w.ec.Packet(p, buf)
	if err != nil {
		return 0, err
	}
	if !w.drop {
		w.pending = append(w.pending, buf[:n]...)
	}
	return len(p), nil
}

func (w *wire) Read(p []byte) (int, error) {
	if w.zeroes > 0 {
		w.zeroes--
		return 0, nil
	}
	if len(w.pending) == 0 {
		return 0, nil
	}
	n := w.readSize
	if n > len(w.pending) {
		n = len(w.pending)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, w.pending[:n])
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wire) Close() error {
	w.closed = true
	return nil
}

func helloFrame(t *testing.T) []byte {
	t.Helper()
	p := protocol.HelloParams{InData: protocol.HelloSend}
	buf := make([]byte, protocol.MaxMessageBytes)
	n, err := protocol.EncodeRequest(buf, protocol.CmdHello, 0, p.Marshal())
	require.NoError(t, err)
	return buf[:n]
}

func TestPacketReassemblesFragmentedResponse(t *testing.T) {
	w := newWire(emulator.Config{})
	port := New(w, "fake")

	resp := make([]byte, protocol.MaxMessageBytes)
	n, err := port.Packet(helloFrame(t), resp)
	require.NoError(t, err)

	result, payload, err := protocol.DecodeResponse(resp[:n])
	require.NoError(t, err)
	assert.Equal(t, protocol.ResSuccess, result)

	r, err := protocol.ParseHelloResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.HelloExpect, r.OutData)
}

func TestPacketToleratesBoundedTimeouts(t *testing.T) {
	w := newWire(emulator.Config{})
	w.zeroes = readAttempts
	port := New(w, "fake")

	resp := make([]byte, protocol.MaxMessageBytes)
	_, err := port.Packet(helloFrame(t), resp)
	assert.NoError(t, err)
}

func TestPacketTimesOut(t *testing.T) {
	w := newWire(emulator.Config{})
	port := New(w, "fake")

	resp := make([]byte, protocol.MaxMessageBytes)
	_, err := port.Packet(helloFrame(t), resp)
	require.NoError(t, err)

	// The controller goes quiet: the response never arrives.
	w.drop = true
	_, err = port.Packet(helloFrame(t), resp)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPacketResponseBufferTooSmall(t *testing.T) {
	w := newWire(emulator.Config{})
	port := New(w, "fake")

	_, err := port.Packet(helloFrame(t), make([]byte, 4))
	assert.ErrorIs(t, err, ErrSerial)
}

func TestSerialCapabilities(t *testing.T) {
	w := newWire(emulator.Config{})
	port := New(w, "fake")

	// A serial port only carries the packet interface.
	_, err := port.Command(uint8(protocol.CmdHello), 0, nil, nil)
	assert.ErrorIs(t, err, transport.ErrUnsupported)
	_, err = port.CheckVersion()
	assert.ErrorIs(t, err, transport.ErrUnsupported)
	_, err = port.Switches()
	assert.ErrorIs(t, err, transport.ErrUnsupported)

	assert.Equal(t, "fake", port.Name())
	require.NoError(t, port.Close())
	assert.True(t, w.closed)
}
