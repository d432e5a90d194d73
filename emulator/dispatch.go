// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package emulator

import (
	"encoding/binary"

	"github.com/chipflow/crosec/protocol"
)

// dispatch services one decoded command against the emulated state and
// returns the result code plus response payload.
func (e *EC) dispatch(cmd protocol.Command, version uint8, data []byte) (protocol.Result, []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.exchanges++
	e.counts[cmd]++

	if e.cfg.Hook != nil {
		if resp, result, handled := e.cfg.Hook(cmd, version, data); handled {
			return result, resp
		}
	}

	switch cmd {
	case protocol.CmdProtoVersion:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, protocol.RequestVersion)
		return protocol.ResSuccess, b

	case protocol.CmdHello:
		if len(data) < 4 {
			return protocol.ResInvalidParam, nil
		}
		in := binary.LittleEndian.Uint32(data)
		r := protocol.HelloResponse{OutData: in + e.cfg.HelloDelta}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, r.OutData)
		return protocol.ResSuccess, b

	case protocol.CmdGetVersion:
		r := protocol.GetVersionResponse{
			VersionRO:    e.cfg.VersionRO,
			VersionRW:    e.cfg.VersionRW,
			CurrentImage: e.cfg.CurrentImage,
		}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdGetBuildInfo:
		return protocol.ResSuccess, append([]byte(e.cfg.BuildInfo), 0)

	case protocol.CmdGetFeatures:
		r := protocol.GetFeaturesResponse{Flags: e.cfg.Features}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdGetSkuID:
		r := protocol.SkuIDResponse{SkuID: e.cfg.SkuID}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdFlashInfo:
		r := protocol.FlashInfoResponse{
			FlashSize:        e.cfg.FlashSize,
			WriteBlockSize:   e.cfg.WriteBlockSize,
			EraseBlockSize:   e.cfg.EraseBlockSize,
			ProtectBlockSize: e.cfg.ProtectBlockSize,
		}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdFlashRead:
		return e.flashRead(data)

	case protocol.CmdFlashWrite:
		return e.flashWrite(data)

	case protocol.CmdFlashErase:
		return e.flashErase(data)

	case protocol.CmdFlashProtect:
		return e.flashProtect(data)

	case protocol.CmdFlashRegionInfo:
		p, err := protocol.ParseFlashRegionInfoParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		ext, ok := e.regionExtent(p.Region)
		if !ok {
			return protocol.ResInvalidParam, nil
		}
		r := protocol.FlashRegionInfoResponse{Offset: ext.Offset, Size: ext.Size}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdVbnvContext:
		p, err := protocol.ParseVbnvContextParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		if p.Op == protocol.VbnvContextOpWrite {
			e.nvdata = p.Block
			return protocol.ResSuccess, nil
		}
		return protocol.ResSuccess, append([]byte(nil), e.nvdata[:]...)

	case protocol.CmdVstoreInfo:
		r := protocol.VstoreInfoResponse{
			SlotLocked: e.cfg.VstoreLocked,
			SlotCount:  uint8(len(e.vstore)),
		}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdVstoreRead:
		p, err := protocol.ParseVstoreReadParams(data)
		if err != nil || int(p.Slot) >= len(e.vstore) {
			return protocol.ResInvalidParam, nil
		}
		return protocol.ResSuccess, append([]byte(nil), e.vstore[p.Slot]...)

	case protocol.CmdVstoreWrite:
		p, err := protocol.ParseVstoreWriteParams(data)
		if err != nil || int(p.Slot) >= len(e.vstore) {
			return protocol.ResInvalidParam, nil
		}
		if e.cfg.VstoreLocked&(1<<p.Slot) != 0 {
			return protocol.ResAccessDenied, nil
		}
		copy(e.vstore[p.Slot], p.Data[:])
		return protocol.ResSuccess, nil

	case protocol.CmdMkbpState:
		return protocol.ResSuccess, append([]byte(nil), e.matrix[:]...)

	case protocol.CmdMkbpInfo:
		r := protocol.MkbpInfoResponse{Rows: 8, Cols: protocol.KeyscanCols}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdGetNextEvent:
		if len(e.pending) == 0 {
			return protocol.ResUnavailable, nil
		}
		ev := e.pending[0]
		e.pending = e.pending[1:]
		return protocol.ResSuccess, ev.Marshal()

	case protocol.CmdHostEventGetB:
		r := protocol.HostEventMaskResponse{Mask: e.eventsA}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdHostEventClear:
		p, err := protocol.ParseHostEventMaskParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		e.eventsA &^= p.Mask
		return protocol.ResSuccess, nil

	case protocol.CmdHostEventGetSmiMask:
		r := protocol.HostEventMaskResponse{Mask: e.smiMask}
		return protocol.ResSuccess, r.Marshal()

	case protocol.CmdHostEventSetSmiMask:
		p, err := protocol.ParseHostEventMaskParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		e.smiMask = p.Mask
		return protocol.ResSuccess, nil

	case protocol.CmdHostEvent:
		return e.hostEvent(data)

	case protocol.CmdLdoSet:
		p, err := protocol.ParseLdoSetParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		e.ldo[p.Index] = p.State
		return protocol.ResSuccess, nil

	case protocol.CmdLdoGet:
		if len(data) < 1 {
			return protocol.ResInvalidParam, nil
		}
		return protocol.ResSuccess, []byte{e.ldo[data[0]]}

	case protocol.CmdPwmSetDuty:
		p, err := protocol.ParsePwmSetDutyParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		e.pwm[p.Index] = p.Duty
		return protocol.ResSuccess, nil

	case protocol.CmdRebootEC:
		p, err := protocol.ParseRebootParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		e.reboots++
		e.lastReboot = *p
		return protocol.ResSuccess, nil

	case protocol.CmdBatteryCutoff:
		e.battCutoff = true
		return protocol.ResSuccess, nil

	case protocol.CmdChargeState:
		return e.chargeState(data)

	case protocol.CmdConfigPowerButton:
		p, err := protocol.ParsePowerButtonParams(data)
		if err != nil {
			return protocol.ResInvalidParam, nil
		}
		e.powerBtnFlags = p.Flags
		return protocol.ResSuccess, nil

	case protocol.CmdEfsVerify:
		if len(data) < 1 {
			return protocol.ResInvalidParam, nil
		}
		if _, ok := e.regionExtent(protocol.FlashRegion(data[0])); !ok {
			return protocol.ResInvalidParam, nil
		}
		return protocol.ResSuccess, nil

	case protocol.CmdVbootHash:
		return e.vbootHash(data)

	case protocol.CmdI2CPassthru:
		return e.i2cPassthru(data)

	default:
		return protocol.ResInvalidCommand, nil
	}
}

func (e *EC) flashRead(data []byte) (protocol.Result, []byte) {
	p, err := protocol.ParseFlashReadParams(data)
	if err != nil {
		return protocol.ResInvalidParam, nil
	}
	if p.Size > protocol.MaxPayloadSize {
		return protocol.ResResponseTooBig, nil
	}
	end := uint64(p.Offset) + uint64(p.Size)
	if end > uint64(len(e.flash)) {
		return protocol.ResInvalidParam, nil
	}
	return protocol.ResSuccess, append([]byte(nil), e.flash[p.Offset:end]...)
}

func (e *EC) flashWrite(data []byte) (protocol.Result, []byte) {
	p, err := protocol.ParseFlashWriteParams(data)
	if err != nil {
		return protocol.ResInvalidParam, nil
	}
	end := uint64(p.Offset) + uint64(p.Size)
	if end > uint64(len(e.flash)) {
		return protocol.ResInvalidParam, nil
	}
	if e.executing(p.Offset, p.Size) {
		return protocol.ResAccessDenied, nil
	}
	if e.protectFlags&protocol.FlashProtectAllNow != 0 {
		return protocol.ResAccessDenied, nil
	}
	copy(e.flash[p.Offset:end], p.Data[:p.Size])
	return protocol.ResSuccess, nil
}

func (e *EC) flashErase(data []byte) (protocol.Result, []byte) {
	p, err := protocol.ParseFlashEraseParams(data)
	if err != nil {
		return protocol.ResInvalidParam, nil
	}
	if p.Offset%e.cfg.EraseBlockSize != 0 || p.Size%e.cfg.EraseBlockSize != 0 {
		return protocol.ResInvalidParam, nil
	}
	end := uint64(p.Offset) + uint64(p.Size)
	if end > uint64(len(e.flash)) {
		return protocol.ResInvalidParam, nil
	}
	if e.executing(p.Offset, p.Size) {
		return protocol.ResAccessDenied, nil
	}
	for i := uint64(p.Offset); i < end; i++ {
		e.flash[i] = e.cfg.EraseValue
	}
	return protocol.ResSuccess, nil
}

func (e *EC) flashProtect(data []byte) (protocol.Result, []byte) {
	p, err := protocol.ParseFlashProtectParams(data)
	if err != nil {
		return protocol.ResInvalidParam, nil
	}
	const writable = protocol.FlashProtectROAtBoot |
		protocol.FlashProtectRONow |
		protocol.FlashProtectAllNow |
		protocol.FlashProtectAllAtBoot
	apply := p.Mask & writable
	e.protectFlags = (e.protectFlags &^ apply) | (p.Flags & apply)
	r := protocol.FlashProtectResponse{
		Flags:         e.protectFlags,
		ValidFlags:    writable | protocol.FlashProtectGPIOAsserted,
		WritableFlags: writable,
	}
	return protocol.ResSuccess, r.Marshal()
}

func (e *EC) hostEvent(data []byte) (protocol.Result, []byte) {
	p, err := protocol.ParseHostEventParams(data)
	if err != nil {
		return protocol.ResInvalidParam, nil
	}
	var bank *uint64
	var a uint64
	switch p.MaskType {
	case protocol.HostEventMaskTypeMain:
		a = uint64(e.eventsA)
		bank = &a
	case protocol.HostEventMaskTypeB:
		bank = &e.eventsB
	default:
		return protocol.ResInvalidParam, nil
	}
	switch p.Action {
	case protocol.HostEventActionGet:
		r := protocol.HostEventResponse{Value: *bank}
		return protocol.ResSuccess, r.Marshal()
	case protocol.HostEventActionSet:
		*bank |= p.Value
	case protocol.HostEventActionClear:
		*bank &^= p.Value
	default:
		return protocol.ResInvalidParam, nil
	}
	if p.MaskType == protocol.HostEventMaskTypeMain {
		e.eventsA = uint32(a)
	}
	return protocol.ResSuccess, nil
}

func (e *EC) chargeState(data []byte) (protocol.Result, []byte) {
	p, err := protocol.ParseChargeStateParams(data)
	if err != nil {
		return protocol.ResInvalidParam, nil
	}
	switch p.Cmd {
	case protocol.ChargeStateCmdGetState:
		r := protocol.ChargeStateResponse{BattStateOfCharge: e.cfg.BattCharge}
		return protocol.ResSuccess, r.Marshal()
	case protocol.ChargeStateCmdGetParam:
		if p.Param != protocol.CsParamLimitPower || !e.cfg.LimitPowerSupported {
			return protocol.ResInvalidParam, nil
		}
		var v uint32
		if e.cfg.LimitPower {
			v = 1
		}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return protocol.ResSuccess, b
	default:
		return protocol.ResInvalidParam, nil
	}
}

func (e *EC) vbootHash(data []byte) (protocol.Result, []byte) {
	p, err := protocol.ParseVbootHashParams(data)
	if err != nil {
		return protocol.ResInvalidParam, nil
	}
	if uint64(p.Offset)+uint64(p.Size) > uint64(len(e.flash)) {
		return protocol.ResInvalidParam, nil
	}
	r := protocol.VbootHashResponse{
		HashType: protocol.VbootHashTypeSHA256,
		Offset:   p.Offset,
		Size:     p.Size,
	}
	switch p.Cmd {
	case protocol.VbootHashGet:
		if e.hashBusyLeft > 0 {
			e.hashBusyLeft--
			r.Status = protocol.VbootHashStatusBusy
			return protocol.ResSuccess, r.Marshal()
		}
		r.Status = protocol.VbootHashStatusDone
		r.Digest = e.sha256Region(p.Offset, p.Size)
		return protocol.ResSuccess, r.Marshal()
	case protocol.VbootHashStart:
		r.Status = protocol.VbootHashStatusBusy
		return protocol.ResSuccess, r.Marshal()
	default:
		return protocol.ResInvalidParam, nil
	}
}

func (e *EC) i2cPassthru(data []byte) (protocol.Result, []byte) {
	if len(data) < 2 {
		return protocol.ResInvalidParam, nil
	}
	port := data[0]
	numMsgs := int(data[1])
	descEnd := 2 + 4*numMsgs
	if len(data) < descEnd {
		return protocol.ResInvalidParam, nil
	}
	msgs := make([]protocol.I2CMsg, numMsgs)
	writeData := data[descEnd:]
	for i := range msgs {
		addr := binary.LittleEndian.Uint16(data[2+4*i:])
		length := binary.LittleEndian.Uint16(data[2+4*i+2:])
		msgs[i] = protocol.I2CMsg{
			Addr: addr &^ protocol.I2CFlagRead,
			Read: addr&protocol.I2CFlagRead != 0,
			Len:  length,
		}
		if !msgs[i].Read {
			if len(writeData) < int(length) {
				return protocol.ResInvalidParam, nil
			}
			msgs[i].Data = writeData[:length]
			writeData = writeData[length:]
		}
	}

	var readData []byte
	var status uint8
	if e.cfg.I2CHandler != nil {
		readData, status = e.cfg.I2CHandler(port, msgs)
	} else {
		var total int
		for _, m := range msgs {
			if m.Read {
				total += int(m.Len)
			}
		}
		readData = make([]byte, total)
	}
	r := protocol.I2CPassthruResponse{
		I2CStatus: status,
		NumMsgs:   uint8(numMsgs),
		Data:      readData,
	}
	return protocol.ResSuccess, r.Marshal()
}
