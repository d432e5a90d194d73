// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cmdHello = &cobra.Command{
		Use:   "hello",
		Short: "Check the controller answers the handshake",
		Long:  ``,
		RunE:  runHello,
	}
)

func init() {
	rootCmd.AddCommand(cmdHello)
}

func runHello(ccmd *cobra.Command, args []string) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer()

	if err := dev.Hello(); err != nil {
		return err
	}
	fmt.Printf("EC says hello (protocol v%d)\n", dev.ProtocolVersion())
	return nil
}
