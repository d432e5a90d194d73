// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package emulator provides an in-memory embedded controller that
// implements both the legacy command and packet transport modes. It
// backs the test suite and ectool's --emulate mode, and offers enough
// fault-injection surface (hello delta, disabled modes, busy hash
// reads, command hooks) to exercise the driver's failure paths.
package emulator

import (
	"crypto/sha256"
	"sync"

	"github.com/chipflow/crosec/protocol"
	"github.com/chipflow/crosec/transport"
)

// Extent is one flash region's position and size.
type Extent struct {
	Offset uint32
	Size   uint32
}

// Config seeds the emulated controller. Zero values get defaults from
// New.
type Config struct {
	FlashSize        uint32
	EraseValue       byte
	WriteBlockSize   uint32
	EraseBlockSize   uint32
	ProtectBlockSize uint32
	Regions          map[protocol.FlashRegion]Extent

	VstoreSlots  int
	VstoreLocked uint32

	VersionRO    string
	VersionRW    string
	CurrentImage protocol.Image
	BuildInfo    string
	Features     uint64
	SkuID        uint32

	BattCharge          uint32
	LimitPower          bool
	LimitPowerSupported bool

	// Switches enables the out-of-band switches capability.
	Switches *uint8

	// ReportVersion, when non-zero, makes CheckVersion answer without a
	// handshake.
	ReportVersion int

	// DisablePacket and DisableCommand turn off a transport mode so
	// tests can pin the negotiated protocol version.
	DisablePacket  bool
	DisableCommand bool

	// HelloDelta overrides the hello increment; a wrong value makes
	// version negotiation fail with a handshake mismatch.
	HelloDelta uint32

	// HashBusyReads makes the first N vboot-hash queries report busy.
	HashBusyReads int

	// I2CHandler services passthrough transfers. The default answers
	// reads with zeros.
	I2CHandler func(port uint8, msgs []protocol.I2CMsg) (data []byte, status uint8)

	// Hook intercepts a command before dispatch. Returning handled=true
	// short-circuits the emulator.
	Hook func(cmd protocol.Command, version uint8, data []byte) (resp []byte, result protocol.Result, handled bool)
}

// EC is the emulated controller. It implements transport.Transport.
type EC struct {
	mu  sync.Mutex
	cfg Config

	flash        []byte
	protectFlags uint32
	vstore       [][]byte

	eventsA uint32
	eventsB uint64
	smiMask uint32

	matrix  [protocol.KeyscanCols]byte
	pending []*protocol.GetNextEventResponse

	ldo    map[uint8]uint8
	pwm    map[uint8]uint16
	nvdata [protocol.VbnvBlockSize]byte

	powerBtnFlags uint32
	battCutoff    bool
	hashBusyLeft  int

	reboots    int
	lastReboot protocol.RebootParams

	exchanges int
	counts    map[protocol.Command]int
}

// New builds an emulated controller. The default geometry is 128 KiB of
// 0xff-erased flash, split evenly between an RO region the controller
// "executes from" and an active RW region.
func New(cfg Config) *EC {
	if cfg.FlashSize == 0 {
		cfg.FlashSize = 128 * 1024
	}
	if cfg.EraseValue == 0 {
		cfg.EraseValue = 0xff
	}
	if cfg.WriteBlockSize == 0 {
		cfg.WriteBlockSize = 4
	}
	if cfg.EraseBlockSize == 0 {
		cfg.EraseBlockSize = 4096
	}
	if cfg.ProtectBlockSize == 0 {
		cfg.ProtectBlockSize = 4096
	}
	if cfg.Regions == nil {
		half := cfg.FlashSize / 2
		cfg.Regions = map[protocol.FlashRegion]Extent{
			protocol.RegionRO:     {Offset: 0, Size: half},
			protocol.RegionWPRO:   {Offset: 0, Size: half},
			protocol.RegionActive: {Offset: half, Size: cfg.FlashSize - half},
		}
	}
	if cfg.VstoreSlots == 0 {
		cfg.VstoreSlots = 2
	}
	if cfg.VersionRO == "" {
		cfg.VersionRO = "emu_v1.0.0-ro"
	}
	if cfg.VersionRW == "" {
		cfg.VersionRW = "emu_v1.0.0-rw"
	}
	if cfg.CurrentImage == protocol.ImageUnknown {
		cfg.CurrentImage = protocol.ImageRO
	}
	if cfg.BuildInfo == "" {
		cfg.BuildInfo = "emu_v1.0.0 build"
	}
	if cfg.Features == 0 {
		cfg.Features = 1<<protocol.FeatureFlash |
			1<<protocol.FeatureKeyboard |
			1<<protocol.FeatureHostEvents |
			1<<protocol.FeatureVstore
	}
	if cfg.HelloDelta == 0 {
		cfg.HelloDelta = protocol.HelloDelta
	}

	e := &EC{
		cfg:          cfg,
		flash:        make([]byte, cfg.FlashSize),
		vstore:       make([][]byte, cfg.VstoreSlots),
		ldo:          make(map[uint8]uint8),
		pwm:          make(map[uint8]uint16),
		counts:       make(map[protocol.Command]int),
		hashBusyLeft: cfg.HashBusyReads,
	}
	for i := range e.flash {
		e.flash[i] = cfg.EraseValue
	}
	for i := range e.vstore {
		e.vstore[i] = make([]byte, protocol.VstoreSlotSize)
	}
	return e
}

func (e *EC) Name() string {
	return "emulator"
}

func (e *EC) Close() error {
	return nil
}

func (e *EC) CheckVersion() (int, error) {
	if e.cfg.ReportVersion == 0 {
		return 0, transport.ErrUnsupported
	}
	return e.cfg.ReportVersion, nil
}

func (e *EC) Switches() (uint8, error) {
	if e.cfg.Switches == nil {
		return 0, transport.ErrUnsupported
	}
	return *e.cfg.Switches, nil
}

// Packet services a framed version-3 exchange.
func (e *EC) Packet(req []byte, resp []byte) (int, error) {
	if e.cfg.DisablePacket {
		return 0, transport.ErrUnsupported
	}
	cmd, version, data, err := protocol.DecodeRequest(req)
	if err != nil {
		return 0, err
	}
	result, payload := e.dispatch(cmd, version, data)
	return protocol.EncodeResponse(resp, result, payload)
}

// Command services a legacy exchange. Controller status failures are
// surfaced as *protocol.ResultError, matching the transport contract.
func (e *EC) Command(cmd uint8, version uint8, req []byte, resp []byte) (int, error) {
	if e.cfg.DisableCommand {
		return 0, transport.ErrUnsupported
	}
	result, payload := e.dispatch(protocol.Command(cmd), version, req)
	if result != protocol.ResSuccess {
		return 0, protocol.ResultToError(protocol.Command(cmd), result)
	}
	if len(payload) > len(resp) {
		return 0, protocol.ErrResponseShort
	}
	return copy(resp, payload), nil
}

// Exchanges reports the total number of dispatched commands.
func (e *EC) Exchanges() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exchanges
}

// CommandCount reports how many times one command was dispatched.
func (e *EC) CommandCount(cmd protocol.Command) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[cmd]
}

// Flash exposes the backing flash array for test seeding and
// inspection.
func (e *EC) Flash() []byte {
	return e.flash
}

// SetHostEvents replaces the pending 32-bit host event mask.
func (e *EC) SetHostEvents(mask uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventsA = mask
}

// SetEventsB replaces the pending 64-bit (bank B) event mask.
func (e *EC) SetEventsB(mask uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventsB = mask
}

// SetSmiMask seeds the SMI event mask.
func (e *EC) SetSmiMask(mask uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.smiMask = mask
}

// SmiMask reads back the SMI event mask.
func (e *EC) SmiMask() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.smiMask
}

// ProtectFlags reads back the current protection state.
func (e *EC) ProtectFlags() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.protectFlags
}

// SetMatrix seeds the keyboard matrix columns.
func (e *EC) SetMatrix(cols [protocol.KeyscanCols]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matrix = cols
}

// QueueEvent appends one pending MKBP event.
func (e *EC) QueueEvent(eventType uint8, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, &protocol.GetNextEventResponse{
		EventType: eventType,
		Data:      append([]byte(nil), data...),
	})
}

// VstoreSlot exposes one slot's contents.
func (e *EC) VstoreSlot(slot int) []byte {
	return e.vstore[slot]
}

// Reboots reports how many reboot commands were accepted, and the last
// one seen.
func (e *EC) Reboots() (int, protocol.RebootParams) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reboots, e.lastReboot
}

// BatteryCutoff reports whether a cutoff was requested.
func (e *EC) BatteryCutoff() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.battCutoff
}

// Ldo reads back an LDO state.
func (e *EC) Ldo(index uint8) uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ldo[index]
}

// Pwm reads back a PWM duty.
func (e *EC) Pwm(index uint8) uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pwm[index]
}

// PowerButtonFlags reads back the configured power button behaviour.
func (e *EC) PowerButtonFlags() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.powerBtnFlags
}

// Nvdata exposes the non-volatile context block.
func (e *EC) Nvdata() []byte {
	return e.nvdata[:]
}

func (e *EC) regionExtent(r protocol.FlashRegion) (Extent, bool) {
	ext, ok := e.cfg.Regions[r]
	return ext, ok
}

// executing reports whether [offset, offset+size) overlaps the region
// holding the image the controller currently runs.
func (e *EC) executing(offset, size uint32) bool {
	region := protocol.RegionRO
	if e.cfg.CurrentImage == protocol.ImageRW {
		region = protocol.RegionActive
	}
	ext, ok := e.regionExtent(region)
	if !ok {
		return false
	}
	return offset < ext.Offset+ext.Size && offset+size > ext.Offset
}

func (e *EC) sha256Region(offset, size uint32) [protocol.VbootHashDigestSize]byte {
	return sha256.Sum256(e.flash[offset : offset+size])
}
