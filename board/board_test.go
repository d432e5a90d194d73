// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipflow/crosec/protocol"
)

const sampleConfig = `
ec "main" {
  transport   = "emulator"
  erase_value = "0xff"

  region "ro" {
    offset = "0"
    size   = "64k"
  }
  region "active" {
    offset = "64k"
    size   = "64k"
  }
}
`

func TestDecodeSchema(t *testing.T) {
	s := new(Schema)
	require.NoError(t, s.Decode([]byte(sampleConfig)))
	require.Len(t, s.EC, 1)

	es := s.EC[0]
	assert.Equal(t, "main", es.Name)
	assert.Equal(t, "emulator", es.Transport)
	require.Len(t, es.Regions, 2)
	assert.Equal(t, "active", es.Regions[1].Name)
}

func TestDecodeSchemaBadSyntax(t *testing.T) {
	s := new(Schema)
	assert.Error(t, s.Decode([]byte(`ec "x" {`)))
}

func TestFlashLayout(t *testing.T) {
	s := new(Schema)
	require.NoError(t, s.Decode([]byte(sampleConfig)))

	layout, err := s.EC[0].FlashLayout()
	require.NoError(t, err)
	assert.Equal(t, 0xff, layout.EraseValue)

	active, ok := layout.Regions[protocol.RegionActive]
	require.True(t, ok)
	assert.Equal(t, uint32(64*1024), active.Offset)
	assert.Equal(t, uint32(64*1024), active.Size)
}

func TestFlashLayoutDefaults(t *testing.T) {
	es := &ECSchema{Name: "x", Transport: "emulator"}
	layout, err := es.FlashLayout()
	require.NoError(t, err)
	assert.Equal(t, -1, layout.EraseValue, "unknown erase value disables write skipping")
	assert.Empty(t, layout.Regions)
}

func TestFlashLayoutBadRegion(t *testing.T) {
	es := &ECSchema{
		Regions: []*RegionSchema{{Name: "bogus", Offset: "0", Size: "1k"}},
	}
	_, err := es.FlashLayout()
	assert.ErrorContains(t, err, "bogus")
}

func TestParseByteValue(t *testing.T) {
	for in, want := range map[string]int64{
		"0":      0,
		"512":    512,
		"512b":   512,
		"4k":     4096,
		"2m":     2 * 1024 * 1024,
		"1g":     1024 * 1024 * 1024,
		"0x1000": 4096,
		" 8K ":   8192,
	} {
		got, err := parseByteValue(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseByteValue("lots")
	assert.Error(t, err)
}

func TestSetupEmulatedBoard(t *testing.T) {
	s := new(Schema)
	require.NoError(t, s.Decode([]byte(sampleConfig)))

	b, err := Setup(s, Options{})
	require.NoError(t, err)
	defer b.Close()

	dev := b.Device("main")
	require.NotNil(t, dev)
	assert.Equal(t, 3, dev.ProtocolVersion())
	require.NoError(t, dev.Hello())

	assert.Nil(t, b.Device("other"))
	assert.Len(t, b.Devices(), 1)
}

func TestSetupUnknownTransport(t *testing.T) {
	s := &Schema{EC: []*ECSchema{{Name: "x", Transport: "carrier-pigeon"}}}
	_, err := Setup(s, Options{})
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestSetupSerialNeedsPort(t *testing.T) {
	s := &Schema{EC: []*ECSchema{{Name: "x", Transport: "serial"}}}
	_, err := Setup(s, Options{})
	assert.ErrorContains(t, err, "port")
}
