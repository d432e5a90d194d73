// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"encoding/binary"
)

// All payloads are little-endian, matching the controller's wire format.

// HelloParams is the request body of CmdHello.
type HelloParams struct {
	InData uint32
}

func (p *HelloParams) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, p.InData)
	return b
}

// HelloResponse is the response body of CmdHello.
type HelloResponse struct {
	OutData uint32
}

func ParseHelloResponse(b []byte) (*HelloResponse, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &HelloResponse{OutData: binary.LittleEndian.Uint32(b)}, nil
}

// GetVersionResponse carries the RO and RW version strings and the
// identity of the image currently running.
type GetVersionResponse struct {
	VersionRO    string
	VersionRW    string
	CurrentImage Image
}

const versionStringLen = 32

// getVersionResponseSize is two version strings, a reserved string slot
// and the current-image word.
const getVersionResponseSize = 3*versionStringLen + 4

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func putCString(b []byte, s string) {
	n := copy(b, s)
	for ; n < len(b); n++ {
		b[n] = 0
	}
}

func ParseGetVersionResponse(b []byte) (*GetVersionResponse, error) {
	if len(b) < getVersionResponseSize {
		return nil, ErrResponseShort
	}
	return &GetVersionResponse{
		VersionRO:    cString(b[0:versionStringLen]),
		VersionRW:    cString(b[versionStringLen : 2*versionStringLen]),
		CurrentImage: Image(binary.LittleEndian.Uint32(b[3*versionStringLen:])),
	}, nil
}

func (r *GetVersionResponse) Marshal() []byte {
	b := make([]byte, getVersionResponseSize)
	putCString(b[0:versionStringLen], r.VersionRO)
	putCString(b[versionStringLen:2*versionStringLen], r.VersionRW)
	binary.LittleEndian.PutUint32(b[3*versionStringLen:], uint32(r.CurrentImage))
	return b
}

// FlashInfoResponse is the flash geometry reported by CmdFlashInfo.
type FlashInfoResponse struct {
	FlashSize        uint32
	WriteBlockSize   uint32
	EraseBlockSize   uint32
	ProtectBlockSize uint32
}

func ParseFlashInfoResponse(b []byte) (*FlashInfoResponse, error) {
	if len(b) < 16 {
		return nil, ErrResponseShort
	}
	return &FlashInfoResponse{
		FlashSize:        binary.LittleEndian.Uint32(b[0:]),
		WriteBlockSize:   binary.LittleEndian.Uint32(b[4:]),
		EraseBlockSize:   binary.LittleEndian.Uint32(b[8:]),
		ProtectBlockSize: binary.LittleEndian.Uint32(b[12:]),
	}, nil
}

func (r *FlashInfoResponse) Marshal() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], r.FlashSize)
	binary.LittleEndian.PutUint32(b[4:], r.WriteBlockSize)
	binary.LittleEndian.PutUint32(b[8:], r.EraseBlockSize)
	binary.LittleEndian.PutUint32(b[12:], r.ProtectBlockSize)
	return b
}

// FlashReadParams is the request body of CmdFlashRead.
type FlashReadParams struct {
	Offset uint32
	Size   uint32
}

func (p *FlashReadParams) Marshal() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], p.Offset)
	binary.LittleEndian.PutUint32(b[4:], p.Size)
	return b
}

func ParseFlashReadParams(b []byte) (*FlashReadParams, error) {
	if len(b) < 8 {
		return nil, ErrResponseShort
	}
	return &FlashReadParams{
		Offset: binary.LittleEndian.Uint32(b[0:]),
		Size:   binary.LittleEndian.Uint32(b[4:]),
	}, nil
}

// FlashWriteHeaderSize is the fixed prefix of a CmdFlashWrite body; the
// data to program follows it.
const FlashWriteHeaderSize = 8

// FlashWriteParams is the request body of CmdFlashWrite. Data follows
// the offset/size header in the same payload.
type FlashWriteParams struct {
	Offset uint32
	Size   uint32
	Data   []byte
}

func (p *FlashWriteParams) Marshal() []byte {
	b := make([]byte, FlashWriteHeaderSize+len(p.Data))
	binary.LittleEndian.PutUint32(b[0:], p.Offset)
	binary.LittleEndian.PutUint32(b[4:], p.Size)
	copy(b[FlashWriteHeaderSize:], p.Data)
	return b
}

func ParseFlashWriteParams(b []byte) (*FlashWriteParams, error) {
	if len(b) < FlashWriteHeaderSize {
		return nil, ErrResponseShort
	}
	p := &FlashWriteParams{
		Offset: binary.LittleEndian.Uint32(b[0:]),
		Size:   binary.LittleEndian.Uint32(b[4:]),
	}
	p.Data = b[FlashWriteHeaderSize:]
	if uint32(len(p.Data)) < p.Size {
		return nil, ErrResponseShort
	}
	return p, nil
}

// FlashEraseParams is the request body of CmdFlashErase.
type FlashEraseParams struct {
	Offset uint32
	Size   uint32
}

func (p *FlashEraseParams) Marshal() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], p.Offset)
	binary.LittleEndian.PutUint32(b[4:], p.Size)
	return b
}

func ParseFlashEraseParams(b []byte) (*FlashEraseParams, error) {
	if len(b) < 8 {
		return nil, ErrResponseShort
	}
	return &FlashEraseParams{
		Offset: binary.LittleEndian.Uint32(b[0:]),
		Size:   binary.LittleEndian.Uint32(b[4:]),
	}, nil
}

// FlashProtectParams is the request body of CmdFlashProtect (v1). Only
// bits present in Mask are applied; a zero mask is a pure query.
type FlashProtectParams struct {
	Mask  uint32
	Flags uint32
}

func (p *FlashProtectParams) Marshal() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], p.Mask)
	binary.LittleEndian.PutUint32(b[4:], p.Flags)
	return b
}

func ParseFlashProtectParams(b []byte) (*FlashProtectParams, error) {
	if len(b) < 8 {
		return nil, ErrResponseShort
	}
	return &FlashProtectParams{
		Mask:  binary.LittleEndian.Uint32(b[0:]),
		Flags: binary.LittleEndian.Uint32(b[4:]),
	}, nil
}

// FlashProtectResponse is the resulting protection state.
type FlashProtectResponse struct {
	Flags         uint32
	ValidFlags    uint32
	WritableFlags uint32
}

func ParseFlashProtectResponse(b []byte) (*FlashProtectResponse, error) {
	if len(b) < 12 {
		return nil, ErrResponseShort
	}
	return &FlashProtectResponse{
		Flags:         binary.LittleEndian.Uint32(b[0:]),
		ValidFlags:    binary.LittleEndian.Uint32(b[4:]),
		WritableFlags: binary.LittleEndian.Uint32(b[8:]),
	}, nil
}

func (r *FlashProtectResponse) Marshal() []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], r.Flags)
	binary.LittleEndian.PutUint32(b[4:], r.ValidFlags)
	binary.LittleEndian.PutUint32(b[8:], r.WritableFlags)
	return b
}

// FlashRegionInfoParams is the request body of CmdFlashRegionInfo (v1).
type FlashRegionInfoParams struct {
	Region FlashRegion
}

func (p *FlashRegionInfoParams) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(p.Region))
	return b
}

func ParseFlashRegionInfoParams(b []byte) (*FlashRegionInfoParams, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &FlashRegionInfoParams{Region: FlashRegion(binary.LittleEndian.Uint32(b))}, nil
}

// FlashRegionInfoResponse maps a named region to its extent.
type FlashRegionInfoResponse struct {
	Offset uint32
	Size   uint32
}

func ParseFlashRegionInfoResponse(b []byte) (*FlashRegionInfoResponse, error) {
	if len(b) < 8 {
		return nil, ErrResponseShort
	}
	return &FlashRegionInfoResponse{
		Offset: binary.LittleEndian.Uint32(b[0:]),
		Size:   binary.LittleEndian.Uint32(b[4:]),
	}, nil
}

func (r *FlashRegionInfoResponse) Marshal() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], r.Offset)
	binary.LittleEndian.PutUint32(b[4:], r.Size)
	return b
}

// VbnvContextParams is the request body of CmdVbnvContext. The block is
// only transmitted for write operations.
type VbnvContextParams struct {
	Op    uint32
	Block [VbnvBlockSize]byte
}

func (p *VbnvContextParams) Marshal() []byte {
	if p.Op == VbnvContextOpRead {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, p.Op)
		return b
	}
	b := make([]byte, 4+VbnvBlockSize)
	binary.LittleEndian.PutUint32(b, p.Op)
	copy(b[4:], p.Block[:])
	return b
}

func ParseVbnvContextParams(b []byte) (*VbnvContextParams, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	p := &VbnvContextParams{Op: binary.LittleEndian.Uint32(b)}
	if p.Op == VbnvContextOpWrite {
		if len(b) < 4+VbnvBlockSize {
			return nil, ErrResponseShort
		}
		copy(p.Block[:], b[4:])
	}
	return p, nil
}

// VstoreInfoResponse reports slot geometry and the locked-slot mask.
type VstoreInfoResponse struct {
	SlotLocked uint32
	SlotCount  uint8
}

func ParseVstoreInfoResponse(b []byte) (*VstoreInfoResponse, error) {
	if len(b) < 5 {
		return nil, ErrResponseShort
	}
	return &VstoreInfoResponse{
		SlotLocked: binary.LittleEndian.Uint32(b[0:]),
		SlotCount:  b[4],
	}, nil
}

func (r *VstoreInfoResponse) Marshal() []byte {
	b := make([]byte, 5)
	binary.LittleEndian.PutUint32(b[0:], r.SlotLocked)
	b[4] = r.SlotCount
	return b
}

// VstoreReadParams selects the slot to read.
type VstoreReadParams struct {
	Slot uint32
}

func (p *VstoreReadParams) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, p.Slot)
	return b
}

func ParseVstoreReadParams(b []byte) (*VstoreReadParams, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &VstoreReadParams{Slot: binary.LittleEndian.Uint32(b)}, nil
}

// VstoreWriteParams carries a full slot image. Short writes are padded
// by the caller; the wire format always carries the whole slot.
type VstoreWriteParams struct {
	Slot uint32
	Data [VstoreSlotSize]byte
}

func (p *VstoreWriteParams) Marshal() []byte {
	b := make([]byte, 4+VstoreSlotSize)
	binary.LittleEndian.PutUint32(b, p.Slot)
	copy(b[4:], p.Data[:])
	return b
}

func ParseVstoreWriteParams(b []byte) (*VstoreWriteParams, error) {
	if len(b) < 4+VstoreSlotSize {
		return nil, ErrResponseShort
	}
	p := &VstoreWriteParams{Slot: binary.LittleEndian.Uint32(b)}
	copy(p.Data[:], b[4:])
	return p, nil
}

// HostEventMaskParams carries a 32-bit event mask for the clear and
// set-mask commands.
type HostEventMaskParams struct {
	Mask uint32
}

func (p *HostEventMaskParams) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, p.Mask)
	return b
}

func ParseHostEventMaskParams(b []byte) (*HostEventMaskParams, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &HostEventMaskParams{Mask: binary.LittleEndian.Uint32(b)}, nil
}

// HostEventMaskResponse is the 32-bit mask returned by the get
// commands.
type HostEventMaskResponse struct {
	Mask uint32
}

func ParseHostEventMaskResponse(b []byte) (*HostEventMaskResponse, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &HostEventMaskResponse{Mask: binary.LittleEndian.Uint32(b)}, nil
}

func (r *HostEventMaskResponse) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, r.Mask)
	return b
}

// HostEventParams is the request body of CmdHostEvent, the 64-bit mask
// interface.
type HostEventParams struct {
	Action   uint8
	MaskType uint8
	Value    uint64
}

func (p *HostEventParams) Marshal() []byte {
	b := make([]byte, 12)
	b[0] = p.Action
	b[1] = p.MaskType
	binary.LittleEndian.PutUint64(b[4:], p.Value)
	return b
}

func ParseHostEventParams(b []byte) (*HostEventParams, error) {
	if len(b) < 12 {
		return nil, ErrResponseShort
	}
	return &HostEventParams{
		Action:   b[0],
		MaskType: b[1],
		Value:    binary.LittleEndian.Uint64(b[4:]),
	}, nil
}

// HostEventResponse is the 64-bit mask value returned for get actions.
type HostEventResponse struct {
	Value uint64
}

func ParseHostEventResponse(b []byte) (*HostEventResponse, error) {
	if len(b) < 8 {
		return nil, ErrResponseShort
	}
	return &HostEventResponse{Value: binary.LittleEndian.Uint64(b)}, nil
}

func (r *HostEventResponse) Marshal() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, r.Value)
	return b
}

// MkbpInfoResponse reports the keyboard matrix geometry.
type MkbpInfoResponse struct {
	Rows     uint32
	Cols     uint32
	Switches uint8
}

func ParseMkbpInfoResponse(b []byte) (*MkbpInfoResponse, error) {
	if len(b) < 9 {
		return nil, ErrResponseShort
	}
	return &MkbpInfoResponse{
		Rows:     binary.LittleEndian.Uint32(b[0:]),
		Cols:     binary.LittleEndian.Uint32(b[4:]),
		Switches: b[8],
	}, nil
}

func (r *MkbpInfoResponse) Marshal() []byte {
	b := make([]byte, 9)
	binary.LittleEndian.PutUint32(b[0:], r.Rows)
	binary.LittleEndian.PutUint32(b[4:], r.Cols)
	b[8] = r.Switches
	return b
}

// LdoSetParams switches an LDO/FET.
type LdoSetParams struct {
	Index uint8
	State uint8
}

func (p *LdoSetParams) Marshal() []byte {
	return []byte{p.Index, p.State}
}

func ParseLdoSetParams(b []byte) (*LdoSetParams, error) {
	if len(b) < 2 {
		return nil, ErrResponseShort
	}
	return &LdoSetParams{Index: b[0], State: b[1]}, nil
}

// LdoGetParams selects the LDO/FET to query.
type LdoGetParams struct {
	Index uint8
}

func (p *LdoGetParams) Marshal() []byte {
	return []byte{p.Index}
}

// PwmSetDutyParams sets the duty cycle of a generic PWM channel.
type PwmSetDutyParams struct {
	Duty    uint16
	PwmType uint8
	Index   uint8
}

func (p *PwmSetDutyParams) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b, p.Duty)
	b[2] = p.PwmType
	b[3] = p.Index
	return b
}

func ParsePwmSetDutyParams(b []byte) (*PwmSetDutyParams, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &PwmSetDutyParams{
		Duty:    binary.LittleEndian.Uint16(b),
		PwmType: b[2],
		Index:   b[3],
	}, nil
}

// RebootParams is the request body of CmdRebootEC.
type RebootParams struct {
	Cmd   RebootCmd
	Flags uint8
}

func (p *RebootParams) Marshal() []byte {
	return []byte{byte(p.Cmd), p.Flags}
}

func ParseRebootParams(b []byte) (*RebootParams, error) {
	if len(b) < 2 {
		return nil, ErrResponseShort
	}
	return &RebootParams{Cmd: RebootCmd(b[0]), Flags: b[1]}, nil
}

// ChargeStateParams is the request body of CmdChargeState. Param and
// Value are only transmitted for the sub-commands that use them.
type ChargeStateParams struct {
	Cmd   uint8
	Param uint32
	Value uint32
}

func (p *ChargeStateParams) Marshal() []byte {
	switch p.Cmd {
	case ChargeStateCmdGetParam:
		b := make([]byte, 8)
		b[0] = p.Cmd
		binary.LittleEndian.PutUint32(b[4:], p.Param)
		return b
	case ChargeStateCmdSetParam:
		b := make([]byte, 12)
		b[0] = p.Cmd
		binary.LittleEndian.PutUint32(b[4:], p.Param)
		binary.LittleEndian.PutUint32(b[8:], p.Value)
		return b
	default:
		return []byte{p.Cmd, 0, 0, 0}
	}
}

func ParseChargeStateParams(b []byte) (*ChargeStateParams, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	p := &ChargeStateParams{Cmd: b[0]}
	if p.Cmd == ChargeStateCmdGetParam || p.Cmd == ChargeStateCmdSetParam {
		if len(b) < 8 {
			return nil, ErrResponseShort
		}
		p.Param = binary.LittleEndian.Uint32(b[4:])
	}
	if p.Cmd == ChargeStateCmdSetParam {
		if len(b) < 12 {
			return nil, ErrResponseShort
		}
		p.Value = binary.LittleEndian.Uint32(b[8:])
	}
	return p, nil
}

// ChargeStateResponse is the response body of CmdChargeState for the
// get-state sub-command.
type ChargeStateResponse struct {
	AC                uint32
	ChgVoltage        uint32
	ChgCurrent        uint32
	ChgInputCurrent   uint32
	BattStateOfCharge uint32
}

func ParseChargeStateResponse(b []byte) (*ChargeStateResponse, error) {
	if len(b) < 20 {
		return nil, ErrResponseShort
	}
	return &ChargeStateResponse{
		AC:                binary.LittleEndian.Uint32(b[0:]),
		ChgVoltage:        binary.LittleEndian.Uint32(b[4:]),
		ChgCurrent:        binary.LittleEndian.Uint32(b[8:]),
		ChgInputCurrent:   binary.LittleEndian.Uint32(b[12:]),
		BattStateOfCharge: binary.LittleEndian.Uint32(b[16:]),
	}, nil
}

func (r *ChargeStateResponse) Marshal() []byte {
	b := make([]byte, 20)
	binary.LittleEndian.PutUint32(b[0:], r.AC)
	binary.LittleEndian.PutUint32(b[4:], r.ChgVoltage)
	binary.LittleEndian.PutUint32(b[8:], r.ChgCurrent)
	binary.LittleEndian.PutUint32(b[12:], r.ChgInputCurrent)
	binary.LittleEndian.PutUint32(b[16:], r.BattStateOfCharge)
	return b
}

// ChargeStateParamResponse is the response body for the get-param
// sub-command.
type ChargeStateParamResponse struct {
	Value uint32
}

func ParseChargeStateParamResponse(b []byte) (*ChargeStateParamResponse, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &ChargeStateParamResponse{Value: binary.LittleEndian.Uint32(b)}, nil
}

// GetFeaturesResponse is the 64-bit feature bitmap, transmitted as two
// little-endian words.
type GetFeaturesResponse struct {
	Flags uint64
}

func ParseGetFeaturesResponse(b []byte) (*GetFeaturesResponse, error) {
	if len(b) < 8 {
		return nil, ErrResponseShort
	}
	lo := binary.LittleEndian.Uint32(b[0:])
	hi := binary.LittleEndian.Uint32(b[4:])
	return &GetFeaturesResponse{Flags: uint64(hi)<<32 | uint64(lo)}, nil
}

func (r *GetFeaturesResponse) Marshal() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], uint32(r.Flags))
	binary.LittleEndian.PutUint32(b[4:], uint32(r.Flags>>32))
	return b
}

// SkuIDResponse is the board SKU identifier.
type SkuIDResponse struct {
	SkuID uint32
}

func ParseSkuIDResponse(b []byte) (*SkuIDResponse, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &SkuIDResponse{SkuID: binary.LittleEndian.Uint32(b)}, nil
}

func (r *SkuIDResponse) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, r.SkuID)
	return b
}

// GetNextEventResponse is one pending MKBP event: a type byte followed
// by type-specific data.
type GetNextEventResponse struct {
	EventType uint8
	Data      []byte
}

func ParseGetNextEventResponse(b []byte) (*GetNextEventResponse, error) {
	if len(b) < 1 {
		return nil, ErrResponseShort
	}
	return &GetNextEventResponse{EventType: b[0], Data: b[1:]}, nil
}

func (r *GetNextEventResponse) Marshal() []byte {
	b := make([]byte, 1+len(r.Data))
	b[0] = r.EventType
	copy(b[1:], r.Data)
	return b
}

// VbootHash operations for CmdVbootHash.
const (
	VbootHashGet   uint8 = 0
	VbootHashStart uint8 = 2

	VbootHashTypeSHA256 uint8 = 1

	VbootHashStatusNone  uint8 = 0
	VbootHashStatusDone  uint8 = 1
	VbootHashStatusBusy  uint8 = 2
	VbootHashDigestSize        = 32
)

// VbootHashParams is the request body of CmdVbootHash.
type VbootHashParams struct {
	Cmd      uint8
	HashType uint8
	Nonce    uint32
	Offset   uint32
	Size     uint32
}

func (p *VbootHashParams) Marshal() []byte {
	b := make([]byte, 16)
	b[0] = p.Cmd
	b[1] = p.HashType
	binary.LittleEndian.PutUint32(b[4:], p.Nonce)
	binary.LittleEndian.PutUint32(b[8:], p.Offset)
	binary.LittleEndian.PutUint32(b[12:], p.Size)
	return b
}

func ParseVbootHashParams(b []byte) (*VbootHashParams, error) {
	if len(b) < 16 {
		return nil, ErrResponseShort
	}
	return &VbootHashParams{
		Cmd:      b[0],
		HashType: b[1],
		Nonce:    binary.LittleEndian.Uint32(b[4:]),
		Offset:   binary.LittleEndian.Uint32(b[8:]),
		Size:     binary.LittleEndian.Uint32(b[12:]),
	}, nil
}

// VbootHashResponse is the hash status and digest.
type VbootHashResponse struct {
	Status   uint8
	HashType uint8
	Offset   uint32
	Size     uint32
	Digest   [VbootHashDigestSize]byte
}

func ParseVbootHashResponse(b []byte) (*VbootHashResponse, error) {
	if len(b) < 12+VbootHashDigestSize {
		return nil, ErrResponseShort
	}
	r := &VbootHashResponse{
		Status:   b[0],
		HashType: b[1],
		Offset:   binary.LittleEndian.Uint32(b[4:]),
		Size:     binary.LittleEndian.Uint32(b[8:]),
	}
	copy(r.Digest[:], b[12:])
	return r, nil
}

func (r *VbootHashResponse) Marshal() []byte {
	b := make([]byte, 12+VbootHashDigestSize)
	b[0] = r.Status
	b[1] = r.HashType
	binary.LittleEndian.PutUint32(b[4:], r.Offset)
	binary.LittleEndian.PutUint32(b[8:], r.Size)
	copy(b[12:], r.Digest[:])
	return b
}

// EfsVerifyParams selects the region the controller should verify.
type EfsVerifyParams struct {
	Region FlashRegion
}

func (p *EfsVerifyParams) Marshal() []byte {
	return []byte{byte(p.Region), 0, 0, 0}
}

// I2C passthrough. Flags on the address word select direction.
const (
	I2CFlagRead uint16 = 1 << 15

	i2cPassthruMsgSize = 4
)

// I2CMsg is one message of an I2C passthrough transfer. For reads, Len
// is the number of bytes to read and Data is ignored on the wire.
type I2CMsg struct {
	Addr uint16
	Read bool
	Len  uint16
	Data []byte
}

// I2CPassthruParams is the request body of CmdI2CPassthru: a port, the
// message descriptors, then the concatenated write data.
type I2CPassthruParams struct {
	Port uint8
	Msgs []I2CMsg
}

func (p *I2CPassthruParams) Marshal() []byte {
	size := 2 + i2cPassthruMsgSize*len(p.Msgs)
	for _, m := range p.Msgs {
		if !m.Read {
			size += len(m.Data)
		}
	}
	b := make([]byte, 2, size)
	b[0] = p.Port
	b[1] = uint8(len(p.Msgs))
	for _, m := range p.Msgs {
		addr := m.Addr
		if m.Read {
			addr |= I2CFlagRead
		}
		var desc [i2cPassthruMsgSize]byte
		binary.LittleEndian.PutUint16(desc[0:], addr)
		binary.LittleEndian.PutUint16(desc[2:], m.Len)
		b = append(b, desc[:]...)
	}
	for _, m := range p.Msgs {
		if !m.Read {
			b = append(b, m.Data...)
		}
	}
	return b
}

// I2CPassthruResponse carries the I2C status byte and the concatenated
// read data.
type I2CPassthruResponse struct {
	I2CStatus uint8
	NumMsgs   uint8
	Data      []byte
}

func ParseI2CPassthruResponse(b []byte) (*I2CPassthruResponse, error) {
	if len(b) < 2 {
		return nil, ErrResponseShort
	}
	return &I2CPassthruResponse{I2CStatus: b[0], NumMsgs: b[1], Data: b[2:]}, nil
}

func (r *I2CPassthruResponse) Marshal() []byte {
	b := make([]byte, 2+len(r.Data))
	b[0] = r.I2CStatus
	b[1] = r.NumMsgs
	copy(b[2:], r.Data)
	return b
}

// BatteryCutoffParams is the request body of CmdBatteryCutoff (v1).
type BatteryCutoffParams struct {
	Flags uint8
}

func (p *BatteryCutoffParams) Marshal() []byte {
	return []byte{p.Flags}
}

// PowerButtonParams configures power button behaviour.
type PowerButtonParams struct {
	Flags uint32
}

func (p *PowerButtonParams) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, p.Flags)
	return b
}

func ParsePowerButtonParams(b []byte) (*PowerButtonParams, error) {
	if len(b) < 4 {
		return nil, ErrResponseShort
	}
	return &PowerButtonParams{Flags: binary.LittleEndian.Uint32(b)}, nil
}
