// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package board turns a configuration file into bound controller
// handles. It owns the wiring: picking and opening the transport,
// layering on metrics, and handing each ec block a driver Device.
package board

import (
	"fmt"

	goserial "github.com/jacobsa/go-serial/serial"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chipflow/crosec"
	"github.com/chipflow/crosec/emulator"
	"github.com/chipflow/crosec/transport"
	"github.com/chipflow/crosec/transport/metrics"
	serialtransport "github.com/chipflow/crosec/transport/serial"
)

const defaultBaud = 115200

// Board is the set of controllers a configuration binds.
type Board struct {
	devices map[string]*crosec.Device
	log     types.Logger
}

// Options tunes Setup beyond what the configuration file carries.
type Options struct {
	Logger types.Logger

	// Metrics, when set, wraps every transport with Prometheus
	// instrumentation registered here.
	Metrics prometheus.Registerer
}

// Setup opens and binds every controller the schema names.
func Setup(s *Schema, opts Options) (*Board, error) {
	b := &Board{
		devices: make(map[string]*crosec.Device, len(s.EC)),
		log:     opts.Logger,
	}
	for _, es := range s.EC {
		dev, err := setupOne(es, opts)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("ec %q: %w", es.Name, err)
		}
		b.devices[es.Name] = dev
	}
	return b, nil
}

func setupOne(es *ECSchema, opts Options) (*crosec.Device, error) {
	t, err := openTransport(es)
	if err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		t = metrics.New(opts.Metrics, es.Name, t)
	}

	layout, err := es.FlashLayout()
	if err != nil {
		t.Close()
		return nil, err
	}

	devOpts := []crosec.Option{crosec.WithFlashLayout(layout)}
	if opts.Logger != nil {
		devOpts = append(devOpts, crosec.WithLogger(opts.Logger))
	}
	dev, err := crosec.Bind(t, devOpts...)
	if err != nil {
		t.Close()
		return nil, err
	}
	return dev, nil
}

func openTransport(es *ECSchema) (transport.Transport, error) {
	switch es.Transport {
	case "serial":
		if es.Port == "" {
			return nil, fmt.Errorf("serial transport needs a port")
		}
		baud := es.Baud
		if baud == 0 {
			baud = defaultBaud
		}
		return serialtransport.Open(goserial.OpenOptions{
			PortName:              es.Port,
			BaudRate:              baud,
			DataBits:              8,
			StopBits:              1,
			InterCharacterTimeout: 100,
		})
	case "emulator":
		return emulator.New(emulator.Config{}), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", es.Transport)
	}
}

// Device returns the bound controller with the given name, or nil.
func (b *Board) Device(name string) *crosec.Device {
	return b.devices[name]
}

// Devices returns all bound controllers keyed by name.
func (b *Board) Devices() map[string]*crosec.Device {
	return b.devices
}

// Close releases every bound controller. The last error wins.
func (b *Board) Close() error {
	var err error
	for name, dev := range b.devices {
		if cerr := dev.Close(); cerr != nil {
			if b.log != nil {
				b.log.Warn().Str("ec", name).Err(cerr).Msg("close failed")
			}
			err = cerr
		}
		delete(b.devices, name)
	}
	return err
}
