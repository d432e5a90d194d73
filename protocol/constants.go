// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import "fmt"

// Command is a host command opcode. The legacy interface can only carry
// opcodes up to 0xff; the packet interface carries the full 16 bits.
type Command uint16

const (
	CmdProtoVersion    Command = 0x0000
	CmdHello           Command = 0x0001
	CmdGetVersion      Command = 0x0002
	CmdGetBuildInfo    Command = 0x0004
	CmdGetChipInfo     Command = 0x0005
	CmdGetBoardVersion Command = 0x0006
	CmdGetFeatures     Command = 0x000d
	CmdGetSkuID        Command = 0x000e

	CmdFlashInfo       Command = 0x0010
	CmdFlashRead       Command = 0x0011
	CmdFlashWrite      Command = 0x0012
	CmdFlashErase      Command = 0x0013
	CmdFlashProtect    Command = 0x0015
	CmdFlashRegionInfo Command = 0x0016
	CmdVbnvContext     Command = 0x0017

	CmdPwmSetDuty        Command = 0x0025
	CmdVbootHash         Command = 0x002a
	CmdConfigPowerButton Command = 0x002b

	CmdVstoreInfo  Command = 0x0049
	CmdVstoreRead  Command = 0x004a
	CmdVstoreWrite Command = 0x004b

	CmdMkbpState    Command = 0x0060
	CmdMkbpInfo     Command = 0x0061
	CmdGetNextEvent Command = 0x0067

	CmdHostEventGetB       Command = 0x0087
	CmdHostEventGetSmiMask Command = 0x0088
	CmdHostEventSetSmiMask Command = 0x008a
	CmdHostEventClear      Command = 0x008c
	CmdHostEventClearB     Command = 0x008f

	CmdBatteryCutoff Command = 0x0099
	CmdLdoSet        Command = 0x009b
	CmdLdoGet        Command = 0x009c
	CmdI2CPassthru   Command = 0x009e
	CmdChargeState   Command = 0x00a0
	CmdHostEvent     Command = 0x00a4

	CmdRebootEC Command = 0x00d2

	CmdEfsVerify Command = 0x011e
)

func (c Command) String() string {
	return fmt.Sprintf("0x%04x", uint16(c))
}

// Result is the status code the controller reports for a command.
type Result uint16

const (
	ResSuccess          Result = 0
	ResInvalidCommand   Result = 1
	ResError            Result = 2
	ResInvalidParam     Result = 3
	ResAccessDenied     Result = 4
	ResInvalidResponse  Result = 5
	ResInvalidVersion   Result = 6
	ResInvalidChecksum  Result = 7
	ResInProgress       Result = 8
	ResUnavailable      Result = 9
	ResTimeout          Result = 10
	ResOverflow         Result = 11
	ResInvalidHeader    Result = 12
	ResRequestTruncated Result = 13
	ResResponseTooBig   Result = 14
	ResBusError         Result = 15
	ResBusy             Result = 16
)

var resultNames = map[Result]string{
	ResSuccess:          "success",
	ResInvalidCommand:   "invalid command",
	ResError:            "error",
	ResInvalidParam:     "invalid parameter",
	ResAccessDenied:     "access denied",
	ResInvalidResponse:  "invalid response",
	ResInvalidVersion:   "invalid version",
	ResInvalidChecksum:  "invalid checksum",
	ResInProgress:       "in progress",
	ResUnavailable:      "unavailable",
	ResTimeout:          "timeout",
	ResOverflow:         "overflow",
	ResInvalidHeader:    "invalid header",
	ResRequestTruncated: "request truncated",
	ResResponseTooBig:   "response too big",
	ResBusError:         "bus error",
	ResBusy:             "busy",
}

func (r Result) String() string {
	if s, ok := resultNames[r]; ok {
		return s
	}
	return fmt.Sprintf("0x%04x", uint16(r))
}

// Framing and sizing.
const (
	// RequestVersion and ResponseVersion are the struct_version values
	// of the packet-interface headers.
	RequestVersion  = 3
	ResponseVersion = 3

	RequestHeaderSize  = 8
	ResponseHeaderSize = 8

	// MaxPayloadSize is the largest command or response body carried in
	// one exchange. Larger operations (flash read/write) are chunked by
	// the caller.
	MaxPayloadSize = 256

	// MaxMessageBytes is the size of a device's reusable message buffer:
	// the largest framed packet plus slack so the body stays 8-byte
	// aligned on strict-alignment hosts.
	MaxMessageBytes = MaxPayloadSize + RequestHeaderSize + 8
)

// Hello handshake values. The controller answers a hello request by
// adding HelloDelta to the received word.
const (
	HelloDelta  uint32 = 0x01020304
	HelloSend   uint32 = 0x10203040
	HelloExpect uint32 = HelloSend + HelloDelta
)

// FlashRegion names a region of the controller's flash.
type FlashRegion uint32

const (
	RegionRO FlashRegion = iota
	RegionActive
	RegionWPRO
	RegionUpdate

	RegionCount
)

var regionNames = map[FlashRegion]string{
	RegionRO:     "ro",
	RegionActive: "active",
	RegionWPRO:   "wp-ro",
	RegionUpdate: "update",
}

func (r FlashRegion) String() string {
	if s, ok := regionNames[r]; ok {
		return s
	}
	return fmt.Sprintf("region(%d)", uint32(r))
}

// Flash protection flags.
const (
	FlashProtectROAtBoot          uint32 = 1 << 0
	FlashProtectRONow             uint32 = 1 << 1
	FlashProtectAllNow            uint32 = 1 << 2
	FlashProtectGPIOAsserted      uint32 = 1 << 3
	FlashProtectErrorStuck        uint32 = 1 << 4
	FlashProtectErrorInconsistent uint32 = 1 << 5
	FlashProtectAllAtBoot         uint32 = 1 << 6
)

// RebootCmd selects the kind of reboot requested from the controller.
type RebootCmd uint8

const (
	RebootCancel      RebootCmd = 0
	RebootJumpRO      RebootCmd = 1
	RebootJumpRW      RebootCmd = 2
	RebootCold        RebootCmd = 4
	RebootDisableJump RebootCmd = 5
	RebootHibernate   RebootCmd = 6
)

// Reboot flags.
const (
	RebootFlagReserved0    uint8 = 1 << 0
	RebootFlagOnAPShutdown uint8 = 1 << 1
)

// Host event numbers. Event n occupies bit n-1 of the event mask; an
// all-ones read is reported as HostEventInvalid.
const (
	HostEventLidClosed uint = 1
	HostEventLidOpen   uint = 2
	HostEventPowerBtn  uint = 3
	HostEventACConnect uint = 4
	HostEventInvalid   uint = 32
)

// HostEventMask returns the mask bit for a host event number.
func HostEventMask(event uint) uint32 {
	return 1 << (event - 1)
}

// Actions and mask selectors for CmdHostEvent (the 64-bit mask
// interface).
const (
	HostEventActionGet   uint8 = 0
	HostEventActionSet   uint8 = 1
	HostEventActionClear uint8 = 2

	HostEventMaskTypeMain uint8 = 0
	HostEventMaskTypeB    uint8 = 1
)

// Current image identifiers reported by CmdGetVersion.
type Image uint32

const (
	ImageUnknown Image = iota
	ImageRO
	ImageRW
)

func (i Image) String() string {
	switch i {
	case ImageRO:
		return "RO"
	case ImageRW:
		return "RW"
	default:
		return "unknown"
	}
}

// Feature numbers reported by CmdGetFeatures.
type Feature uint

const (
	FeatureLimited    Feature = 0
	FeatureFlash      Feature = 1
	FeatureKeyboard   Feature = 7
	FeatureHostEvents Feature = 13
	FeatureVstore     Feature = 25
	FeatureRTC        Feature = 27
	FeatureEvent64    Feature = 33
)

// Vstore geometry.
const VstoreSlotSize = 64

// Non-volatile context block size (v0 layout).
const VbnvBlockSize = 16

// VBNV context operations.
const (
	VbnvContextOpRead  uint32 = 0
	VbnvContextOpWrite uint32 = 1
)

// Keyboard matrix geometry. The scan response is one byte per column.
const KeyscanCols = 13

// MKBP event types carried by CmdGetNextEvent.
const (
	MkbpEventKeyMatrix uint8 = 0
	MkbpEventHostEvent uint8 = 1
	MkbpEventButton    uint8 = 5
)

// PWM duty range. Logical duty cycles are scaled to this full 16-bit
// range before transmission.
const PwmMaxDuty uint16 = 0xffff

// Charge state sub-commands and parameters.
const (
	ChargeStateCmdGetState uint8 = 0
	ChargeStateCmdGetParam uint8 = 1
	ChargeStateCmdSetParam uint8 = 2

	// CsParamLimitPower lives in the vendor parameter range; reading it
	// reports whether the charger/battery limits available power.
	CsParamLimitPower uint32 = 0x10000
)

// LDO states for CmdLdoSet/CmdLdoGet.
const (
	LdoStateOff uint8 = 0
	LdoStateOn  uint8 = 1
)

// Battery cutoff flags.
const BatteryCutoffFlagAtShutdown uint8 = 1 << 0

// Power button configuration flags.
const (
	PowerBtnFlagEnablePulse uint32 = 1 << 0
)
