// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersionStrings(t *testing.T) {
	r := GetVersionResponse{
		VersionRO:    "ro_v1.2.3",
		VersionRW:    "rw_v4.5.6",
		CurrentImage: ImageRW,
	}
	parsed, err := ParseGetVersionResponse(r.Marshal())
	require.NoError(t, err)
	assert.Equal(t, "ro_v1.2.3", parsed.VersionRO)
	assert.Equal(t, "rw_v4.5.6", parsed.VersionRW)
	assert.Equal(t, ImageRW, parsed.CurrentImage)

	_, err = ParseGetVersionResponse(make([]byte, 10))
	assert.ErrorIs(t, err, ErrResponseShort)
}

func TestGetFeaturesSplitWords(t *testing.T) {
	r := GetFeaturesResponse{Flags: 1<<FeatureVstore | 1<<FeatureEvent64}
	b := r.Marshal()
	require.Len(t, b, 8)

	parsed, err := ParseGetFeaturesResponse(b)
	require.NoError(t, err)
	assert.Equal(t, r.Flags, parsed.Flags)
	// FeatureEvent64 lives in the high word.
	assert.NotZero(t, b[4])
}

func TestHostEventParamsLayout(t *testing.T) {
	p := HostEventParams{
		Action:   HostEventActionClear,
		MaskType: HostEventMaskTypeB,
		Value:    0x1122334455667788,
	}
	b := p.Marshal()
	require.Len(t, b, 12)
	assert.Equal(t, HostEventActionClear, b[0])
	assert.Equal(t, HostEventMaskTypeB, b[1])
	// The 64-bit value sits after two reserved bytes.
	assert.Equal(t, uint8(0x88), b[4])
	assert.Equal(t, uint8(0x11), b[11])

	parsed, err := ParseHostEventParams(b)
	require.NoError(t, err)
	assert.Equal(t, p, *parsed)
}

func TestVbnvContextMarshal(t *testing.T) {
	read := VbnvContextParams{Op: VbnvContextOpRead}
	assert.Len(t, read.Marshal(), 4)

	write := VbnvContextParams{Op: VbnvContextOpWrite}
	copy(write.Block[:], "nvcontext")
	b := write.Marshal()
	require.Len(t, b, 4+VbnvBlockSize)

	parsed, err := ParseVbnvContextParams(b)
	require.NoError(t, err)
	assert.Equal(t, write.Block, parsed.Block)
}

func TestChargeStateParamsVariableLength(t *testing.T) {
	get := ChargeStateParams{Cmd: ChargeStateCmdGetState}
	assert.Len(t, get.Marshal(), 4)

	param := ChargeStateParams{Cmd: ChargeStateCmdGetParam, Param: CsParamLimitPower}
	b := param.Marshal()
	require.Len(t, b, 8)
	parsed, err := ParseChargeStateParams(b)
	require.NoError(t, err)
	assert.Equal(t, CsParamLimitPower, parsed.Param)

	set := ChargeStateParams{Cmd: ChargeStateCmdSetParam, Param: 7, Value: 42}
	parsed, err = ParseChargeStateParams(set.Marshal())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), parsed.Value)
}

func TestI2CPassthruMarshal(t *testing.T) {
	p := I2CPassthruParams{
		Port: 2,
		Msgs: []I2CMsg{
			{Addr: 0x50, Read: false, Len: 2, Data: []byte{0xaa, 0xbb}},
			{Addr: 0x50, Read: true, Len: 4},
		},
	}
	b := p.Marshal()
	// port + count + two descriptors + write data
	require.Len(t, b, 2+2*4+2)
	assert.Equal(t, uint8(2), b[0])
	assert.Equal(t, uint8(2), b[1])
	// Read flag set on the second descriptor's address word.
	assert.Equal(t, uint8(0x80), b[2+4+1])
	// Write data trails the descriptors.
	assert.Equal(t, []byte{0xaa, 0xbb}, b[10:])
}

func TestHostEventMaskBit(t *testing.T) {
	assert.Equal(t, uint32(1), HostEventMask(HostEventLidClosed))
	assert.Equal(t, uint32(1<<31), HostEventMask(HostEventInvalid))
}
