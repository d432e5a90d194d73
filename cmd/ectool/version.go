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
	cmdVersion = &cobra.Command{
		Use:   "version",
		Short: "Show the controller's version and identity",
		Long:  ``,
		RunE:  runVersion,
	}
)

func init() {
	rootCmd.AddCommand(cmdVersion)
}

func runVersion(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	v, err := dev.ReadVersion()
	if err != nil {
		return err
	}
	fmt.Printf("RO version:    %s\n", v.VersionRO)
	fmt.Printf("RW version:    %s\n", v.VersionRW)
	fmt.Printf("Current image: %s\n", v.CurrentImage)

	if build, err := dev.ReadBuildInfo(); err == nil {
		fmt.Printf("Build info:    %s\n", build)
	}
	if sku, err := dev.GetSkuID(); err == nil {
		fmt.Printf("SKU ID:        %d\n", sku)
	} else if !crosec.IsUnsupported(err) {
		return err
	}
	fmt.Printf("Protocol:      v%d\n", dev.ProtocolVersion())
	return nil
}
