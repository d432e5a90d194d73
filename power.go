// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package crosec

import (
	"errors"
	"fmt"
	"time"

	"github.com/chipflow/crosec/protocol"
)

// ErrRebootTimeout means the controller did not answer the handshake
// after a cold reboot.
var ErrRebootTimeout = errors.New("controller did not return after reboot")

const (
	rebootSettle     = 50 * time.Millisecond
	rebootHellos     = 100
	rebootHelloDelay = 5 * time.Millisecond
)

// Reboot asks the controller to reboot. An immediate cold reboot drops
// the connection mid-exchange, so its transfer errors are ignored and
// the handshake is polled until the controller comes back.
func (d *Device) Reboot(cmd protocol.RebootCmd, flags uint8) error {
	p := protocol.RebootParams{Cmd: cmd, Flags: flags}
	_, err := d.command(protocol.CmdRebootEC, 0, p.Marshal(), 0)

	if cmd != protocol.RebootCold || flags&protocol.RebootFlagOnAPShutdown != 0 {
		return err
	}

	time.Sleep(rebootSettle)
	for i := 0; i < rebootHellos; i++ {
		if d.Hello() == nil {
			return nil
		}
		time.Sleep(rebootHelloDelay)
	}
	return ErrRebootTimeout
}

// SetLdo switches one LDO/FET.
func (d *Device) SetLdo(index, state uint8) error {
	p := protocol.LdoSetParams{Index: index, State: state}
	_, err := d.command(protocol.CmdLdoSet, 0, p.Marshal(), 0)
	return err
}

// GetLdo reads one LDO/FET state.
func (d *Device) GetLdo(index uint8) (uint8, error) {
	p := protocol.LdoGetParams{Index: index}
	resp, err := d.command(protocol.CmdLdoGet, 0, p.Marshal(), 1)
	if err != nil {
		return 0, err
	}
	return resp[0], nil
}

// SetPwmDuty sets a generic PWM channel to a raw 16-bit duty value.
func (d *Device) SetPwmDuty(index uint8, duty uint16) error {
	p := protocol.PwmSetDutyParams{Duty: duty, Index: index}
	_, err := d.command(protocol.CmdPwmSetDuty, 0, p.Marshal(), 0)
	return err
}

// SetPwmDutyPercent sets a PWM channel from a 0-100 percentage, scaled
// to the controller's 16-bit duty range.
func (d *Device) SetPwmDutyPercent(index uint8, percent uint8) error {
	if percent > 100 {
		return fmt.Errorf("duty %d%% out of range", percent)
	}
	duty := uint16(uint32(percent) * uint32(protocol.PwmMaxDuty) / 100)
	return d.SetPwmDuty(index, duty)
}

// ReadLimitPower reports whether the charger or battery limits the
// power available to the system. Controllers that do not implement the
// parameter fail with ErrNotSupported.
func (d *Device) ReadLimitPower() (bool, error) {
	p := protocol.ChargeStateParams{
		Cmd:   protocol.ChargeStateCmdGetParam,
		Param: protocol.CsParamLimitPower,
	}
	resp, err := d.command(protocol.CmdChargeState, 0, p.Marshal(), 4)
	if err != nil {
		if protocol.IsResult(err, protocol.ResInvalidCommand) ||
			protocol.IsResult(err, protocol.ResInvalidParam) {
			return false, fmt.Errorf("limit power: %w", ErrNotSupported)
		}
		return false, err
	}
	r, err := protocol.ParseChargeStateParamResponse(resp)
	if err != nil {
		return false, err
	}
	return r.Value != 0, nil
}

// ReadBattCharge reads the battery's state of charge in percent.
func (d *Device) ReadBattCharge() (uint32, error) {
	p := protocol.ChargeStateParams{Cmd: protocol.ChargeStateCmdGetState}
	resp, err := d.command(protocol.CmdChargeState, 0, p.Marshal(), 20)
	if err != nil {
		return 0, err
	}
	r, err := protocol.ParseChargeStateResponse(resp)
	if err != nil {
		return 0, err
	}
	return r.BattStateOfCharge, nil
}

// ConfigPowerButton configures power button behaviour.
func (d *Device) ConfigPowerButton(flags uint32) error {
	p := protocol.PowerButtonParams{Flags: flags}
	_, err := d.command(protocol.CmdConfigPowerButton, 0, p.Marshal(), 0)
	return err
}

// BatteryCutoff requests a battery cutoff. With the at-shutdown flag
// the controller defers the cutoff until the system powers down.
func (d *Device) BatteryCutoff(flags uint8) error {
	p := protocol.BatteryCutoffParams{Flags: flags}
	_, err := d.command(protocol.CmdBatteryCutoff, 1, p.Marshal(), 0)
	return err
}
