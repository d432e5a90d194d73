// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import "encoding/binary"

// Checksum computes the 8-bit additive checksum of data. It detects
// transport corruption only; it is not an integrity check.
func Checksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}

// EncodeRequest frames a version-3 request into buf and returns the
// framed length. The checksum byte is chosen so that the 8-bit sum of
// the whole packet is zero.
//
// Header layout (little-endian):
//
//	[VER][CKSUM][CMD_L][CMD_H][CMD_VER][RSVD][LEN_L][LEN_H][DATA...]
func EncodeRequest(buf []byte, cmd Command, version uint8, data []byte) (int, error) {
	if len(data) > MaxPayloadSize {
		return 0, ErrRequestTooBig
	}
	total := RequestHeaderSize + len(data)
	if total > len(buf) {
		return 0, ErrRequestTooBig
	}
	buf[0] = RequestVersion
	buf[1] = 0
	binary.LittleEndian.PutUint16(buf[2:], uint16(cmd))
	buf[4] = version
	buf[5] = 0
	binary.LittleEndian.PutUint16(buf[6:], uint16(len(data)))
	copy(buf[RequestHeaderSize:total], data)
	buf[1] = -Checksum(buf[:total])
	return total, nil
}

// DecodeRequest parses and validates a framed version-3 request,
// returning the command, command version and payload. The payload
// aliases buf. Used by transport backends and the emulator.
func DecodeRequest(buf []byte) (Command, uint8, []byte, error) {
	if len(buf) < RequestHeaderSize {
		return 0, 0, nil, ErrFrameTooShort
	}
	if buf[0] != RequestVersion {
		return 0, 0, nil, ErrHeaderVersion
	}
	dataLen := int(binary.LittleEndian.Uint16(buf[6:]))
	total := RequestHeaderSize + dataLen
	if total > len(buf) {
		return 0, 0, nil, ErrFrameTooShort
	}
	if Checksum(buf[:total]) != 0 {
		return 0, 0, nil, ErrChecksum
	}
	cmd := Command(binary.LittleEndian.Uint16(buf[2:]))
	return cmd, buf[4], buf[RequestHeaderSize:total], nil
}

// EncodeResponse frames a version-3 response into buf and returns the
// framed length. Used by the emulator and tests.
//
// Header layout (little-endian):
//
//	[VER][CKSUM][RES_L][RES_H][LEN_L][LEN_H][RSVD][RSVD][DATA...]
func EncodeResponse(buf []byte, result Result, data []byte) (int, error) {
	if len(data) > MaxPayloadSize {
		return 0, ErrRequestTooBig
	}
	total := ResponseHeaderSize + len(data)
	if total > len(buf) {
		return 0, ErrRequestTooBig
	}
	buf[0] = ResponseVersion
	buf[1] = 0
	binary.LittleEndian.PutUint16(buf[2:], uint16(result))
	binary.LittleEndian.PutUint16(buf[4:], uint16(len(data)))
	buf[6] = 0
	buf[7] = 0
	copy(buf[ResponseHeaderSize:total], data)
	buf[1] = -Checksum(buf[:total])
	return total, nil
}

// DecodeResponse validates a framed version-3 response and returns the
// result code and payload. The payload aliases buf, so it is only valid
// until the buffer is reused.
func DecodeResponse(buf []byte) (Result, []byte, error) {
	if len(buf) < ResponseHeaderSize {
		return 0, nil, ErrFrameTooShort
	}
	if buf[0] != ResponseVersion {
		return 0, nil, ErrHeaderVersion
	}
	dataLen := int(binary.LittleEndian.Uint16(buf[4:]))
	total := ResponseHeaderSize + dataLen
	if total > len(buf) {
		return 0, nil, ErrFrameTooShort
	}
	if Checksum(buf[:total]) != 0 {
		return 0, nil, ErrChecksum
	}
	result := Result(binary.LittleEndian.Uint16(buf[2:]))
	return result, buf[ResponseHeaderSize:total], nil
}
