// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package protocol implements the wire format of the EC host command
// protocol: command opcodes, result codes, the version-3 packet framing
// with its 8-bit additive checksum, and the typed request/response
// payloads used by the command facade.
//
// Version-2 (legacy) exchanges carry only a command byte, a command
// version and a raw payload; their outer framing is owned by the
// transport, so this package defines nothing for it beyond the payload
// encodings, which are shared between both protocol versions.
package protocol
