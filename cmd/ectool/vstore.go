// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	cmdVstore = &cobra.Command{
		Use:   "vstore",
		Short: "Show vstore slots",
		Long:  ``,
		RunE:  runVstore,
	}
	cmdVstoreRead = &cobra.Command{
		Use:   "vstoreread <slot>",
		Short: "Read one vstore slot",
		Long:  ``,
		Args:  cobra.ExactArgs(1),
		RunE:  runVstoreRead,
	}
	cmdVstoreWrite = &cobra.Command{
		Use:   "vstorewrite <slot> <hexdata>",
		Short: "Write one vstore slot",
		Long:  ``,
		Args:  cobra.ExactArgs(2),
		RunE:  runVstoreWrite,
	}
)

func init() {
	rootCmd.AddCommand(cmdVstore)
	rootCmd.AddCommand(cmdVstoreRead)
	rootCmd.AddCommand(cmdVstoreWrite)
}

func runVstore(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	if ok, err := dev.VstoreSupported(); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("controller has no vstore")
	}

	count, locked, err := dev.VstoreInfo()
	if err != nil {
		return err
	}
	fmt.Printf("Slots: %d, locked mask 0x%x\n", count, locked)
	for slot := 0; slot < count; slot++ {
		data, err := dev.VstoreRead(slot)
		if err != nil {
			return err
		}
		state := " "
		if locked&(1<<slot) != 0 {
			state = "*"
		}
		fmt.Printf("%s %2d: %x\n", state, slot, data)
	}
	return nil
}

func runVstoreRead(ccmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad slot %q: %w", args[0], err)
	}
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	data, err := dev.VstoreRead(slot)
	if err != nil {
		return err
	}
	fmt.Printf("%x\n", data)
	return nil
}

func runVstoreWrite(ccmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad slot %q: %w", args[0], err)
	}
	data, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("bad hex data: %w", err)
	}
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	if err := dev.VstoreWrite(slot, data); err != nil {
		return err
	}
	fmt.Printf("Wrote %d bytes to slot %d\n", len(data), slot)
	return nil
}
