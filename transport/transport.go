// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport defines the capability set an EC backend
// implements. A backend supports some subset of {version check, legacy
// command, packet, switches}; the methods it cannot serve return
// ErrUnsupported instead of being absent, so callers branch on a
// first-class outcome rather than probing for missing methods.
package transport

import "errors"

// ErrUnsupported is returned by any Transport method the backend does
// not implement. It is an expected outcome, not a failure.
var ErrUnsupported = errors.New("operation not supported by this transport")

// Transport is one physical channel to an embedded controller.
//
// Calls are synchronous and blocking; timeout behaviour belongs to the
// backend. A Transport is not safe for concurrent exchanges: the device
// layer serializes access through its own buffers.
type Transport interface {
	// Name identifies the backend for logs and metrics.
	Name() string

	// CheckVersion reports the protocol version the backend speaks,
	// for backends that can answer without a handshake exchange.
	CheckVersion() (int, error)

	// Command performs a legacy (version 2) exchange. The backend owns
	// the outer framing; cmd is the raw opcode byte. The response
	// payload is written into resp and its length returned. Controller
	// status failures are surfaced as *protocol.ResultError.
	Command(cmd uint8, version uint8, req []byte, resp []byte) (int, error)

	// Packet performs a packet-interface (version 3) exchange. req is a
	// fully framed request; the framed response is written into resp
	// and its total length returned. The caller owns framing and
	// checksum validation.
	Packet(req []byte, resp []byte) (int, error)

	// Switches reads the controller's switch state, where the channel
	// exposes it out of band.
	Switches() (uint8, error)

	Close() error
}

// Unsupported provides ErrUnsupported defaults for every optional
// capability. Backends embed it and override what they implement.
type Unsupported struct{}

func (Unsupported) CheckVersion() (int, error) {
	return 0, ErrUnsupported
}

func (Unsupported) Command(uint8, uint8, []byte, []byte) (int, error) {
	return 0, ErrUnsupported
}

func (Unsupported) Packet([]byte, []byte) (int, error) {
	return 0, ErrUnsupported
}

func (Unsupported) Switches() (uint8, error) {
	return 0, ErrUnsupported
}
