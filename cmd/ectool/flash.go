// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chipflow/crosec/protocol"
)

var (
	cmdFlashInfo = &cobra.Command{
		Use:   "flashinfo",
		Short: "Show flash geometry and protection state",
		Long:  ``,
		RunE:  runFlashInfo,
	}
	cmdFlashRead = &cobra.Command{
		Use:   "flashread",
		Short: "Read flash into a file",
		Long:  ``,
		RunE:  runFlashRead,
	}
	cmdFlashWrite = &cobra.Command{
		Use:   "flashwrite",
		Short: "Program a file into flash",
		Long:  ``,
		RunE:  runFlashWrite,
	}
	cmdFlashErase = &cobra.Command{
		Use:   "flasherase",
		Short: "Erase a flash range",
		Long:  ``,
		RunE:  runFlashErase,
	}
	cmdFlashProtect = &cobra.Command{
		Use:   "flashprotect [now|at-boot|off]",
		Short: "Show or change flash write protection",
		Long:  ``,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFlashProtect,
	}
)

var (
	flashOffset uint32
	flashSize   uint32
	flashFile   string
)

func init() {
	rootCmd.AddCommand(cmdFlashInfo)

	rootCmd.AddCommand(cmdFlashRead)
	cmdFlashRead.Flags().Uint32Var(&flashOffset, "offset", 0, "Flash offset")
	cmdFlashRead.Flags().Uint32Var(&flashSize, "size", 0, "Bytes to read")
	cmdFlashRead.Flags().StringVarP(&flashFile, "out", "o", "", "Output file")

	rootCmd.AddCommand(cmdFlashWrite)
	cmdFlashWrite.Flags().Uint32Var(&flashOffset, "offset", 0, "Flash offset")
	cmdFlashWrite.Flags().StringVarP(&flashFile, "in", "i", "", "Input file")

	rootCmd.AddCommand(cmdFlashErase)
	cmdFlashErase.Flags().Uint32Var(&flashOffset, "offset", 0, "Flash offset")
	cmdFlashErase.Flags().Uint32Var(&flashSize, "size", 0, "Bytes to erase")

	rootCmd.AddCommand(cmdFlashProtect)
}

func runFlashInfo(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	info, err := dev.FlashInfo()
	if err != nil {
		return err
	}
	fmt.Printf("Flash size:         %d\n", info.FlashSize)
	fmt.Printf("Write block size:   %d\n", info.WriteBlockSize)
	fmt.Printf("Erase block size:   %d\n", info.EraseBlockSize)
	fmt.Printf("Protect block size: %d\n", info.ProtectBlockSize)

	prot, err := dev.FlashProtect(0, 0)
	if err != nil {
		return err
	}
	fmt.Printf("Protect flags:      0x%08x\n", prot.Flags)

	for region := protocol.RegionRO; region < protocol.RegionCount; region++ {
		offset, size, err := dev.FlashOffset(region)
		if err != nil {
			continue
		}
		fmt.Printf("Region %-7s     offset 0x%06x size 0x%06x\n", region, offset, size)
	}
	return nil
}

func runFlashRead(ccmd *cobra.Command, args []string) error {
	if flashFile == "" || flashSize == 0 {
		return fmt.Errorf("flashread needs --out and --size")
	}
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	data, err := dev.FlashRead(flashOffset, flashSize)
	if err != nil {
		return err
	}
	if err := os.WriteFile(flashFile, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Read %d bytes from 0x%x into %s\n", len(data), flashOffset, flashFile)
	return nil
}

func runFlashWrite(ccmd *cobra.Command, args []string) error {
	if flashFile == "" {
		return fmt.Errorf("flashwrite needs --in")
	}
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	data, err := os.ReadFile(flashFile)
	if err != nil {
		return err
	}
	if err := dev.FlashWrite(flashOffset, data); err != nil {
		return err
	}
	fmt.Printf("Wrote %d bytes at 0x%x\n", len(data), flashOffset)
	return nil
}

func runFlashProtect(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	var mask, flags uint32
	if len(args) == 1 {
		switch args[0] {
		case "now":
			mask = protocol.FlashProtectAllNow
			flags = protocol.FlashProtectAllNow
		case "at-boot":
			mask = protocol.FlashProtectROAtBoot
			flags = protocol.FlashProtectROAtBoot
		case "off":
			mask = protocol.FlashProtectROAtBoot | protocol.FlashProtectAllAtBoot
		default:
			return fmt.Errorf("flashprotect takes now, at-boot or off, not %q", args[0])
		}
	}

	state, err := dev.FlashProtect(mask, flags)
	if err != nil {
		return err
	}
	fmt.Printf("Flags:    0x%08x\n", state.Flags)
	fmt.Printf("Valid:    0x%08x\n", state.ValidFlags)
	fmt.Printf("Writable: 0x%08x\n", state.WritableFlags)
	return nil
}

func runFlashErase(ccmd *cobra.Command, args []string) error {
	if flashSize == 0 {
		return fmt.Errorf("flasherase needs --size")
	}
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	if err := dev.FlashErase(flashOffset, flashSize); err != nil {
		return err
	}
	fmt.Printf("Erased %d bytes at 0x%x\n", flashSize, flashOffset)
	return nil
}
