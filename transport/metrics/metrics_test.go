// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipflow/crosec/emulator"
	"github.com/chipflow/crosec/protocol"
	"github.com/chipflow/crosec/transport"
)

func helloFrame(t *testing.T) []byte {
	t.Helper()
	p := protocol.HelloParams{InData: protocol.HelloSend}
	buf := make([]byte, protocol.MaxMessageBytes)
	n, err := protocol.EncodeRequest(buf, protocol.CmdHello, 0, p.Marshal())
	require.NoError(t, err)
	return buf[:n]
}

func TestCountsPacketExchanges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "ec0", emulator.New(emulator.Config{}))

	resp := make([]byte, protocol.MaxMessageBytes)
	_, err := m.Packet(helloFrame(t), resp)
	require.NoError(t, err)
	_, err = m.Packet(helloFrame(t), resp)
	require.NoError(t, err)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.exchanges.WithLabelValues(modePacket)))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.failures.WithLabelValues(modePacket)))
	assert.Greater(t, testutil.ToFloat64(m.bytesOut), float64(0))
	assert.Greater(t, testutil.ToFloat64(m.bytesIn), float64(0))
}

func TestCountsCommandFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "ec0", emulator.New(emulator.Config{}))

	resp := make([]byte, protocol.MaxMessageBytes)
	// Unknown legacy opcode: the controller reports a failure.
	_, err := m.Command(0xee, 0, nil, resp)
	require.Error(t, err)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.failures.WithLabelValues(modeCommand)))
}

func TestUnsupportedNotCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "ec0", emulator.New(emulator.Config{DisablePacket: true}))

	resp := make([]byte, protocol.MaxMessageBytes)
	_, err := m.Packet(helloFrame(t), resp)
	require.ErrorIs(t, err, transport.ErrUnsupported)

	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.exchanges.WithLabelValues(modePacket)))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.failures.WithLabelValues(modePacket)))
}

func TestPassthroughCapabilities(t *testing.T) {
	reg := prometheus.NewRegistry()
	ec := emulator.New(emulator.Config{ReportVersion: 3})
	m := New(reg, "ec0", ec)

	assert.Equal(t, "emulator", m.Name())
	v, err := m.CheckVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = m.Switches()
	assert.ErrorIs(t, err, transport.ErrUnsupported)
	require.NoError(t, m.Close())
}
