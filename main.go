// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Aldestat - Aldes ventilation UART decoder and MQTT bridge

package main

import (
	"os"

	"github.com/Thermoquad/aldestat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
