// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/display"
)

func main() {
	configPath := flag.String("config", "./mpu9250_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting mpu9250 OLED status display")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := display.Run(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
