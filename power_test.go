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

func TestRebootJump(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	require.NoError(t, dev.Reboot(protocol.RebootJumpRW, 0))
	count, last := ec.Reboots()
	assert.Equal(t, 1, count)
	assert.Equal(t, protocol.RebootJumpRW, last.Cmd)
}

func TestRebootColdWaitsForController(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})
	before := ec.CommandCount(protocol.CmdHello)

	require.NoError(t, dev.Reboot(protocol.RebootCold, 0))
	// The driver polled the handshake until the controller answered.
	assert.Greater(t, ec.CommandCount(protocol.CmdHello), before)
}

func TestRebootColdAtShutdownReturnsImmediately(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})
	before := ec.CommandCount(protocol.CmdHello)

	require.NoError(t, dev.Reboot(protocol.RebootCold, protocol.RebootFlagOnAPShutdown))
	assert.Equal(t, before, ec.CommandCount(protocol.CmdHello))
	_, last := ec.Reboots()
	assert.Equal(t, protocol.RebootFlagOnAPShutdown, last.Flags)
}

func TestLdo(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	require.NoError(t, dev.SetLdo(3, protocol.LdoStateOn))
	assert.Equal(t, protocol.LdoStateOn, ec.Ldo(3))

	state, err := dev.GetLdo(3)
	require.NoError(t, err)
	assert.Equal(t, protocol.LdoStateOn, state)

	state, err = dev.GetLdo(4)
	require.NoError(t, err)
	assert.Equal(t, protocol.LdoStateOff, state)
}

func TestPwmDuty(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})

	require.NoError(t, dev.SetPwmDuty(1, 0x1234))
	assert.Equal(t, uint16(0x1234), ec.Pwm(1))

	require.NoError(t, dev.SetPwmDutyPercent(2, 100))
	assert.Equal(t, protocol.PwmMaxDuty, ec.Pwm(2))

	require.NoError(t, dev.SetPwmDutyPercent(3, 50))
	assert.InDelta(t, float64(protocol.PwmMaxDuty)/2, float64(ec.Pwm(3)), 1)

	assert.Error(t, dev.SetPwmDutyPercent(4, 101))
}

func TestReadLimitPower(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{
		LimitPowerSupported: true,
		LimitPower:          true,
	})
	limited, err := dev.ReadLimitPower()
	require.NoError(t, err)
	assert.True(t, limited)

	dev, _ = bindEmulator(t, emulator.Config{LimitPowerSupported: true})
	limited, err = dev.ReadLimitPower()
	require.NoError(t, err)
	assert.False(t, limited)
}

func TestReadLimitPowerUnsupported(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{})
	_, err := dev.ReadLimitPower()
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.True(t, IsUnsupported(err))
}

func TestReadBattCharge(t *testing.T) {
	dev, _ := bindEmulator(t, emulator.Config{BattCharge: 83})
	charge, err := dev.ReadBattCharge()
	require.NoError(t, err)
	assert.Equal(t, uint32(83), charge)
}

func TestBatteryCutoff(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})
	require.NoError(t, dev.BatteryCutoff(protocol.BatteryCutoffFlagAtShutdown))
	assert.True(t, ec.BatteryCutoff())
}

func TestConfigPowerButton(t *testing.T) {
	dev, ec := bindEmulator(t, emulator.Config{})
	require.NoError(t, dev.ConfigPowerButton(protocol.PowerBtnFlagEnablePulse))
	assert.Equal(t, protocol.PowerBtnFlagEnablePulse, ec.PowerButtonFlags())
}
