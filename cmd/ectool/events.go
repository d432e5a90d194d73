// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chipflow/crosec"
)

var (
	cmdEvents = &cobra.Command{
		Use:   "events",
		Short: "Show pending host events",
		Long:  ``,
		RunE:  runEvents,
	}
	cmdLidMask = &cobra.Command{
		Use:   "lidmask [on|off]",
		Short: "Show or set shutdown-on-lid-close",
		Long:  ``,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLidMask,
	}
)

var eventsClear bool

func init() {
	rootCmd.AddCommand(cmdEvents)
	cmdEvents.Flags().BoolVar(&eventsClear, "clear", false, "Clear the reported events")

	rootCmd.AddCommand(cmdLidMask)
}

func runEvents(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	mask, err := dev.GetHostEvents()
	if err != nil {
		return err
	}
	fmt.Printf("Host events:   0x%08x\n", mask)

	if maskB, err := dev.GetEventsB(); err == nil {
		fmt.Printf("Host events B: 0x%016x\n", maskB)
	} else if !crosec.IsUnsupported(err) {
		return err
	}

	for {
		ev, err := dev.GetNextEvent()
		if errors.Is(err, crosec.ErrNoPendingEvent) {
			break
		}
		if err != nil {
			if crosec.IsUnsupported(err) {
				break
			}
			return err
		}
		fmt.Printf("MKBP event:    type %d data %x\n", ev.EventType, ev.Data)
	}

	if eventsClear && mask != 0 {
		if err := dev.ClearHostEvents(mask); err != nil {
			return err
		}
		fmt.Println("Events cleared")
	}
	return nil
}

func runLidMask(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	if len(args) == 1 {
		switch args[0] {
		case "on":
			err = dev.SetLidShutdownMask(true)
		case "off":
			err = dev.SetLidShutdownMask(false)
		default:
			return fmt.Errorf("lidmask takes on or off, not %q", args[0])
		}
		if err != nil {
			return err
		}
	}

	on, err := dev.GetLidShutdownMask()
	if err != nil {
		return err
	}
	if on {
		fmt.Println("Lid close shuts down: on")
	} else {
		fmt.Println("Lid close shuts down: off")
	}
	return nil
}
