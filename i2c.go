// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package crosec

import (
	"errors"
	"fmt"

	"github.com/chipflow/crosec/protocol"
)

// ErrI2CStatus means the controller completed the passthrough exchange
// but the bus transfer itself failed.
var ErrI2CStatus = errors.New("i2c transfer failed")

// I2CTunnel runs an I2C transfer on one of the controller's buses and
// returns the data read back, one slice per read message in order.
func (d *Device) I2CTunnel(port uint8, msgs []protocol.I2CMsg) ([][]byte, error) {
	p := protocol.I2CPassthruParams{Port: port, Msgs: msgs}
	resp, err := d.command(protocol.CmdI2CPassthru, 0, p.Marshal(), 2)
	if err != nil {
		return nil, err
	}
	r, err := protocol.ParseI2CPassthruResponse(resp)
	if err != nil {
		return nil, err
	}
	if r.I2CStatus != 0 {
		return nil, fmt.Errorf("%w: status 0x%02x after %d messages",
			ErrI2CStatus, r.I2CStatus, r.NumMsgs)
	}

	reads := make([][]byte, 0, len(msgs))
	data := r.Data
	for _, m := range msgs {
		if !m.Read {
			continue
		}
		if len(data) < int(m.Len) {
			return nil, protocol.ErrResponseShort
		}
		reads = append(reads, append([]byte(nil), data[:m.Len]...))
		data = data[m.Len:]
	}
	return reads, nil
}
