// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package crosec is a host-side driver for ChromeOS-class embedded
// controllers. It speaks the EC host command protocol over a pluggable
// transport (see the transport package) and exposes the controller's
// operations - identity, keyboard scanning, flash programming, host
// events, power and small persistent storage - as typed methods on a
// Device.
//
// The model is single-threaded and blocking: one exchange is in flight
// per Device at a time, and the two message buffers embedded in the
// handle are reused across calls. Callers running concurrently must
// serialize access themselves.
package crosec

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/loopholelabs/logging/types"

	"github.com/chipflow/crosec/protocol"
	"github.com/chipflow/crosec/transport"
)

var (
	// ErrVersionMismatch means the controller answered the handshake
	// with an unexpected value: it is reachable but does not speak a
	// protocol this driver supports.
	ErrVersionMismatch = errors.New("handshake mismatch: controller protocol not supported")

	// ErrProtoVersion means no protocol version could be negotiated on
	// the transport's capability set.
	ErrProtoVersion = errors.New("no supported protocol version")

	// ErrNotSupported is a controller-reported "I don't implement
	// this" outcome, distinct from transport and framing failures.
	ErrNotSupported = errors.New("operation not supported by controller")

	// ErrNoPendingEvent is returned by GetNextEvent when the
	// controller's event queue is empty.
	ErrNoPendingEvent = errors.New("no pending event")
)

// IsUnsupported reports whether err is an expected "not supported"
// outcome: a transport capability gap, a mapped ErrNotSupported, or a
// controller that does not know the command at all.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrNotSupported) ||
		errors.Is(err, transport.ErrUnsupported) ||
		protocol.IsResult(err, protocol.ResInvalidCommand)
}

// Extent is a flash region's offset and size within the controller's
// flash.
type Extent struct {
	Offset uint32
	Size   uint32
}

// FlashLayout describes the controller's flash as known from board
// configuration: the erased-byte value (-1 when unknown) and any
// regions the board pins down ahead of querying the controller.
type FlashLayout struct {
	EraseValue int
	Regions    map[protocol.FlashRegion]Extent
}

// Line is the optional interrupt line wired from the controller. It is
// polled, not serviced: Value reports whether the line is asserted.
type Line interface {
	Value() (bool, error)
}

// Device is one bound embedded controller.
type Device struct {
	t    transport.Transport
	log  types.Logger
	line Line

	protoVersion       int
	optimiseFlashWrite bool
	eraseValue         int

	// din and dout are reused for every exchange; heap allocations of
	// this size are 8-byte aligned, which keeps message bodies aligned
	// on strict-alignment hosts.
	din  []byte
	dout []byte

	flashInfo *protocol.FlashInfoResponse
	regions   map[protocol.FlashRegion]Extent
}

// Option configures a Device at bind time.
type Option func(*Device)

// WithLogger attaches a structured logger. Exchanges are hex-dumped at
// trace level.
func WithLogger(log types.Logger) Option {
	return func(d *Device) { d.log = log }
}

// WithInterruptLine wires the controller's interrupt line. Without one,
// InterruptPending always reports true and callers must poll.
func WithInterruptLine(line Line) Option {
	return func(d *Device) { d.line = line }
}

// WithFlashLayout seeds the flash layout from board configuration. A
// known erase value enables the erased-chunk write optimization.
func WithFlashLayout(layout FlashLayout) Option {
	return func(d *Device) {
		d.eraseValue = layout.EraseValue
		d.optimiseFlashWrite = layout.EraseValue >= 0
		for r, ext := range layout.Regions {
			d.regions[r] = ext
		}
	}
}

// Bind attaches to a controller on the given transport and negotiates
// the protocol version: the transport's own version check when it has
// one, otherwise a HELLO handshake through the packet interface and
// then the legacy interface. A reachable controller that answers the
// handshake wrongly fails with ErrVersionMismatch.
func Bind(t transport.Transport, opts ...Option) (*Device, error) {
	d := &Device{
		t:          t,
		eraseValue: -1,
		din:        make([]byte, protocol.MaxMessageBytes),
		dout:       make([]byte, protocol.MaxMessageBytes),
		regions:    make(map[protocol.FlashRegion]Extent),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.probeVersion(); err != nil {
		return nil, err
	}
	if d.log != nil {
		d.log.Info().
			Str("transport", t.Name()).
			Int("protocol", d.protoVersion).
			Msg("ec bound")
	}
	return d, nil
}

func (d *Device) probeVersion() error {
	if v, err := d.t.CheckVersion(); err == nil {
		d.protoVersion = v
		return d.Hello()
	} else if !errors.Is(err, transport.ErrUnsupported) {
		return err
	}

	var lastErr error
	for _, v := range []int{3, 2} {
		d.protoVersion = v
		err := d.Hello()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrVersionMismatch) {
			return err
		}
		lastErr = err
	}
	d.protoVersion = 0
	if lastErr != nil && !errors.Is(lastErr, transport.ErrUnsupported) {
		return fmt.Errorf("%w: %w", ErrProtoVersion, lastErr)
	}
	return ErrProtoVersion
}

// ProtocolVersion reports the negotiated protocol version.
func (d *Device) ProtocolVersion() int {
	return d.protoVersion
}

// Close releases the underlying transport.
func (d *Device) Close() error {
	return d.t.Close()
}

// command runs one exchange and returns the response payload, which
// aliases the device's input buffer and is only valid until the next
// exchange. respSize is the minimum payload length the caller needs.
func (d *Device) command(cmd protocol.Command, version uint8, req []byte, respSize int) ([]byte, error) {
	var payload []byte
	var err error
	switch d.protoVersion {
	case 3:
		payload, err = d.packetExchange(cmd, version, req)
	case 2:
		payload, err = d.legacyExchange(cmd, version, req)
	default:
		return nil, ErrProtoVersion
	}
	if err != nil {
		return nil, err
	}
	if len(payload) < respSize {
		return nil, protocol.ErrResponseShort
	}
	return payload, nil
}

func (d *Device) packetExchange(cmd protocol.Command, version uint8, req []byte) ([]byte, error) {
	n, err := protocol.EncodeRequest(d.dout, cmd, version, req)
	if err != nil {
		return nil, err
	}
	d.dumpData("out", cmd, d.dout[:n])
	rn, err := d.t.Packet(d.dout[:n], d.din)
	if err != nil {
		return nil, err
	}
	d.dumpData("in", cmd, d.din[:rn])
	result, payload, err := protocol.DecodeResponse(d.din[:rn])
	if err != nil {
		return nil, err
	}
	if err := protocol.ResultToError(cmd, result); err != nil {
		return nil, err
	}
	return payload, nil
}

func (d *Device) legacyExchange(cmd protocol.Command, version uint8, req []byte) ([]byte, error) {
	if cmd > 0xff {
		// The legacy interface carries single-byte opcodes only.
		return nil, fmt.Errorf("command %v: %w", cmd, transport.ErrUnsupported)
	}
	d.dumpData("out", cmd, req)
	n, err := d.t.Command(uint8(cmd), version, req, d.din)
	if err != nil {
		return nil, err
	}
	d.dumpData("in", cmd, d.din[:n])
	return d.din[:n], nil
}

func (d *Device) dumpData(dir string, cmd protocol.Command, data []byte) {
	if d.log == nil {
		return
	}
	d.log.Trace().
		Str("dir", dir).
		Str("cmd", cmd.String()).
		Str("data", hex.EncodeToString(data)).
		Msg("exchange")
}

// Hello sends the handshake request and verifies the controller's
// answer.
func (d *Device) Hello() error {
	p := protocol.HelloParams{InData: protocol.HelloSend}
	resp, err := d.command(protocol.CmdHello, 0, p.Marshal(), 4)
	if err != nil {
		return err
	}
	r, err := protocol.ParseHelloResponse(resp)
	if err != nil {
		return err
	}
	if r.OutData != protocol.HelloExpect {
		return fmt.Errorf("%w: got 0x%08x, want 0x%08x",
			ErrVersionMismatch, r.OutData, protocol.HelloExpect)
	}
	return nil
}

// ReadVersion reads the controller's image version strings.
func (d *Device) ReadVersion() (*protocol.GetVersionResponse, error) {
	resp, err := d.command(protocol.CmdGetVersion, 0, nil, 0)
	if err != nil {
		return nil, err
	}
	return protocol.ParseGetVersionResponse(resp)
}

// ReadID reads the identity string of the image the controller is
// currently running.
func (d *Device) ReadID() (string, error) {
	v, err := d.ReadVersion()
	if err != nil {
		return "", err
	}
	switch v.CurrentImage {
	case protocol.ImageRO:
		return v.VersionRO, nil
	case protocol.ImageRW:
		return v.VersionRW, nil
	default:
		return "", fmt.Errorf("unrecognized current image %d", v.CurrentImage)
	}
}

// ReadCurrentImage reports which image the controller is running.
func (d *Device) ReadCurrentImage() (protocol.Image, error) {
	v, err := d.ReadVersion()
	if err != nil {
		return protocol.ImageUnknown, err
	}
	return v.CurrentImage, nil
}

// ReadBuildInfo reads the controller's build string.
func (d *Device) ReadBuildInfo() (string, error) {
	resp, err := d.command(protocol.CmdGetBuildInfo, 0, nil, 0)
	if err != nil {
		return "", err
	}
	// NUL-terminated within the payload.
	for i, b := range resp {
		if b == 0 {
			return string(resp[:i]), nil
		}
	}
	return string(resp), nil
}

// GetFeatures reads the controller's feature bitmap.
func (d *Device) GetFeatures() (uint64, error) {
	resp, err := d.command(protocol.CmdGetFeatures, 0, nil, 8)
	if err != nil {
		return 0, err
	}
	r, err := protocol.ParseGetFeaturesResponse(resp)
	if err != nil {
		return 0, err
	}
	return r.Flags, nil
}

// CheckFeature reports whether the controller advertises one feature.
func (d *Device) CheckFeature(feature protocol.Feature) (bool, error) {
	flags, err := d.GetFeatures()
	if err != nil {
		return false, err
	}
	return flags&(1<<feature) != 0, nil
}

// GetSkuID reads the board SKU identifier.
func (d *Device) GetSkuID() (uint32, error) {
	resp, err := d.command(protocol.CmdGetSkuID, 0, nil, 4)
	if err != nil {
		return 0, err
	}
	r, err := protocol.ParseSkuIDResponse(resp)
	if err != nil {
		return 0, err
	}
	return r.SkuID, nil
}

// Switches reads the controller's switch state where the transport
// exposes it; ErrUnsupported otherwise.
func (d *Device) Switches() (uint8, error) {
	return d.t.Switches()
}

// InterruptPending reports whether the controller's interrupt line is
// asserted. Without a configured line it always reports true, so
// callers poll the event queue explicitly.
func (d *Device) InterruptPending() (bool, error) {
	if d.line == nil {
		return true, nil
	}
	return d.line.Value()
}

// ReadNvdata reads the controller's non-volatile context block.
func (d *Device) ReadNvdata() ([]byte, error) {
	p := protocol.VbnvContextParams{Op: protocol.VbnvContextOpRead}
	resp, err := d.command(protocol.CmdVbnvContext, 0, p.Marshal(), protocol.VbnvBlockSize)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp[:protocol.VbnvBlockSize]...), nil
}

// ErrNvdataSize rejects blocks that are not exactly the context block
// size, before any exchange is issued.
var ErrNvdataSize = errors.New("nvdata block must be exactly the context block size")

// WriteNvdata writes the controller's non-volatile context block.
func (d *Device) WriteNvdata(block []byte) error {
	if len(block) != protocol.VbnvBlockSize {
		return ErrNvdataSize
	}
	p := protocol.VbnvContextParams{Op: protocol.VbnvContextOpWrite}
	copy(p.Block[:], block)
	_, err := d.command(protocol.CmdVbnvContext, 0, p.Marshal(), 0)
	return err
}
