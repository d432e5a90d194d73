// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrRequestTooBig = errors.New("request exceeds maximum message size")
	ErrFrameTooShort = errors.New("frame shorter than its declared length")
	ErrHeaderVersion = errors.New("unknown frame header version")
	ErrChecksum      = errors.New("frame checksum mismatch")
	ErrResponseShort = errors.New("response payload shorter than expected")
)

// ResultError is a logical failure reported by the controller itself,
// as opposed to a transport or framing failure.
type ResultError struct {
	Cmd    Command
	Result Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("ec command %v failed: %v", e.Cmd, e.Result)
}

// ResultToError maps a controller result code to an error, nil on
// success.
func ResultToError(cmd Command, result Result) error {
	if result == ResSuccess {
		return nil
	}
	return &ResultError{Cmd: cmd, Result: result}
}

// IsResult reports whether err is a ResultError carrying the given
// result code.
func IsResult(err error, result Result) bool {
	var re *ResultError
	return errors.As(err, &re) && re.Result == result
}
