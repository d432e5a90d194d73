// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/loopholelabs/logging"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/chipflow/crosec"
	"github.com/chipflow/crosec/board"
)

var (
	rootCmd = &cobra.Command{
		Use:           "ectool",
		Short:         "embedded controller tool.",
		Long:          ``,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

var (
	configPath  string
	portName    string
	baudRate    uint
	emulate     bool
	traceWire   bool
	metricsAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Board config file (HCL)")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port of the controller")
	rootCmd.PersistentFlags().UintVarP(&baudRate, "baud", "b", 0, "Serial baud rate")
	rootCmd.PersistentFlags().BoolVar(&emulate, "emulate", false, "Talk to a built-in emulated controller")
	rootCmd.PersistentFlags().BoolVar(&traceWire, "trace", false, "Hex-dump every exchange")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address")
}

func Execute() error {
	return rootCmd.Execute()
}

func newLogger() types.Logger {
	log := logging.New(logging.Zerolog, "ectool", os.Stderr)
	if traceWire {
		log.SetLevel(types.TraceLevel)
	}
	return log
}

// openDevice binds the controller selected by the flags: the first ec
// block of the config file when one is given, otherwise a serial port
// or the emulator. The returned closer tears the board down.
func openDevice() (*crosec.Device, func() error, error) {
	log := newLogger()

	var schema *board.Schema
	if configPath != "" {
		s, err := board.ReadSchema(configPath)
		if err != nil {
			return nil, nil, err
		}
		schema = s
	} else {
		es := &board.ECSchema{Name: "ec", Transport: "serial", Port: portName, Baud: baudRate}
		if emulate {
			es.Transport = "emulator"
		}
		schema = &board.Schema{EC: []*board.ECSchema{es}}
	}
	if len(schema.EC) == 0 {
		return nil, nil, fmt.Errorf("config names no controllers")
	}

	opts := board.Options{Logger: log}
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts.Metrics = reg
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go http.ListenAndServe(metricsAddr, mux)
	}

	b, err := board.Setup(schema, opts)
	if err != nil {
		return nil, nil, err
	}
	return b.Device(schema.EC[0].Name), b.Close, nil
}
