// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package board

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/chipflow/crosec"
	"github.com/chipflow/crosec/protocol"
)

// Schema is the top-level board configuration: one or more ec blocks.
type Schema struct {
	EC []*ECSchema `hcl:"ec,block"`
}

// ECSchema describes one controller: how to reach it and what its
// flash looks like.
type ECSchema struct {
	Name      string `hcl:"name,label"`
	Transport string `hcl:"transport,attr"`
	Port      string `hcl:"port,optional"`
	Baud      uint   `hcl:"baud,optional"`

	// EraseValue is the byte value of erased flash, e.g. "0xff". Leaving
	// it empty disables the erased-chunk write optimization.
	EraseValue string `hcl:"erase_value,optional"`

	Regions []*RegionSchema `hcl:"region,block"`
}

// RegionSchema pins a named flash region to a fixed extent, overriding
// what the controller would report. Sizes take k/m/g suffixes.
type RegionSchema struct {
	Name   string `hcl:"name,label"`
	Offset string `hcl:"offset,attr"`
	Size   string `hcl:"size,attr"`
}

func parseByteValue(val string) (int64, error) {
	multiplier := int64(1)
	s := strings.Trim(strings.ToLower(val), " \t\r\n")
	if s == "" {
		return 0, nil
	}

	switch s[len(s)-1:] {
	case "b":
		s = s[:len(s)-1]
	case "k":
		multiplier = 1024
		s = s[:len(s)-1]
	case "m":
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case "g":
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad byte value %q: %w", val, err)
	}
	return i * multiplier, nil
}

// ReadSchema loads and decodes a board configuration file.
func ReadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s := new(Schema)
	return s, s.Decode(data)
}

// Decode parses HCL configuration text into the schema.
func (s *Schema) Decode(data []byte) error {
	file, diag := hclsyntax.ParseConfig(data, "", hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	diag = gohcl.DecodeBody(file.Body, nil, s)
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	return nil
}

var regionsByName = map[string]protocol.FlashRegion{
	"ro":     protocol.RegionRO,
	"active": protocol.RegionActive,
	"wp-ro":  protocol.RegionWPRO,
	"update": protocol.RegionUpdate,
}

// FlashLayout resolves the schema's erase value and region blocks into
// a driver flash layout.
func (es *ECSchema) FlashLayout() (crosec.FlashLayout, error) {
	layout := crosec.FlashLayout{
		EraseValue: -1,
		Regions:    make(map[protocol.FlashRegion]crosec.Extent),
	}
	if es.EraseValue != "" {
		v, err := strconv.ParseUint(es.EraseValue, 0, 8)
		if err != nil {
			return layout, fmt.Errorf("bad erase_value %q: %w", es.EraseValue, err)
		}
		layout.EraseValue = int(v)
	}
	for _, rs := range es.Regions {
		region, ok := regionsByName[rs.Name]
		if !ok {
			return layout, fmt.Errorf("unknown flash region %q", rs.Name)
		}
		offset, err := parseByteValue(rs.Offset)
		if err != nil {
			return layout, err
		}
		size, err := parseByteValue(rs.Size)
		if err != nil {
			return layout, err
		}
		layout.Regions[region] = crosec.Extent{
			Offset: uint32(offset),
			Size:   uint32(size),
		}
	}
	return layout, nil
}
