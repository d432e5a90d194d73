// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package serial implements the packet transport over a UART, for
// controllers wired to a host serial port (or a debug bridge that
// behaves like one). The packet framing is self-describing, so the
// backend writes the framed request and then reads a response header
// followed by the body it announces.
package serial

import (
	"encoding/binary"
	"errors"
	"io"

	goserial "github.com/jacobsa/go-serial/serial"

	"github.com/chipflow/crosec/protocol"
	"github.com/chipflow/crosec/transport"
)

// readAttempts bounds how many zero-length reads (port timeouts) are
// tolerated while waiting for response bytes.
const readAttempts = 3

var (
	ErrSerial  = errors.New("error interacting with serial port")
	ErrTimeout = errors.New("timed out waiting for controller")
)

// Port is a packet transport over a serial byte stream.
type Port struct {
	transport.Unsupported
	rwc  io.ReadWriteCloser
	name string
}

// New wraps an existing byte stream. The stream's Read should have a
// timeout configured; a zero-length read is treated as one timeout.
func New(rwc io.ReadWriteCloser, name string) *Port {
	return &Port{rwc: rwc, name: name}
}

// Open opens a serial port with the given options and wraps it.
func Open(options goserial.OpenOptions) (*Port, error) {
	rwc, err := goserial.Open(options)
	if err != nil {
		return nil, err
	}
	return New(rwc, options.PortName), nil
}

func (p *Port) Name() string {
	return p.name
}

func (p *Port) Close() error {
	return p.rwc.Close()
}

// Packet writes the framed request and reads the framed response into
// resp, returning its total length.
func (p *Port) Packet(req []byte, resp []byte) (int, error) {
	n, err := p.rwc.Write(req)
	if err != nil {
		return 0, err
	}
	if n != len(req) {
		return 0, ErrSerial
	}

	if len(resp) < protocol.ResponseHeaderSize {
		return 0, ErrSerial
	}
	if err := p.readFull(resp[:protocol.ResponseHeaderSize]); err != nil {
		return 0, err
	}
	dataLen := int(binary.LittleEndian.Uint16(resp[4:]))
	total := protocol.ResponseHeaderSize + dataLen
	if total > len(resp) {
		return 0, protocol.ErrResponseShort
	}
	if err := p.readFull(resp[protocol.ResponseHeaderSize:total]); err != nil {
		return 0, err
	}
	return total, nil
}

// readFull fills buf from the port, tolerating a bounded number of
// timed-out reads.
func (p *Port) readFull(buf []byte) error {
	attempts := 0
	for done := 0; done < len(buf); {
		n, err := p.rwc.Read(buf[done:])
		if err != nil {
			return err
		}
		if n == 0 {
			// timed out waiting for bytes
			attempts++
			if attempts > readAttempts {
				return ErrTimeout
			}
			continue
		}
		done += n
	}
	return nil
}
