// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// ectool talks to an embedded controller from the command line: it can
// query identity, program flash, inspect host events and drive the
// small persistent store, against real hardware on a serial port or
// against the built-in emulator.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
