// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chipflow/crosec"
)

var (
	cmdBattery = &cobra.Command{
		Use:   "battery",
		Short: "Show battery charge and power limit state",
		Long:  ``,
		RunE:  runBattery,
	}
)

func init() {
	rootCmd.AddCommand(cmdBattery)
}

func runBattery(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	charge, err := dev.ReadBattCharge()
	if err != nil {
		return err
	}
	fmt.Printf("Charge:      %d%%\n", charge)

	limited, err := dev.ReadLimitPower()
	switch {
	case err == nil && limited:
		fmt.Println("Limit power: yes")
	case err == nil:
		fmt.Println("Limit power: no")
	case crosec.IsUnsupported(err):
		fmt.Println("Limit power: not reported")
	default:
		return err
	}
	return nil
}
