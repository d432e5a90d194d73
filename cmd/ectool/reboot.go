// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chipflow/crosec/protocol"
)

var (
	cmdReboot = &cobra.Command{
		Use:   "reboot [cold|ro|rw|hibernate|cancel]",
		Short: "Reboot the controller",
		Long:  ``,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReboot,
	}
)

var rebootAtShutdown bool

func init() {
	rootCmd.AddCommand(cmdReboot)
	cmdReboot.Flags().BoolVar(&rebootAtShutdown, "at-shutdown", false, "Defer until the AP shuts down")
}

var rebootKinds = map[string]protocol.RebootCmd{
	"cold":      protocol.RebootCold,
	"ro":        protocol.RebootJumpRO,
	"rw":        protocol.RebootJumpRW,
	"hibernate": protocol.RebootHibernate,
	"cancel":    protocol.RebootCancel,
}

func runReboot(ccmd *cobra.Command, args []string) error {
	kind := protocol.RebootCold
	if len(args) == 1 {
		k, ok := rebootKinds[args[0]]
		if !ok {
			return fmt.Errorf("unknown reboot kind %q", args[0])
		}
		kind = k
	}
	var flags uint8
	if rebootAtShutdown {
		flags |= protocol.RebootFlagOnAPShutdown
	}

	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	if err := dev.Reboot(kind, flags); err != nil {
		return err
	}
	fmt.Println("Reboot requested")
	return nil
}
