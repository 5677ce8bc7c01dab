// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"net/http"
	"strconv"

	"github.com/relabs-tech/mpu9250dmp/internal/cmdutil"
	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/i2cbus"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
	"github.com/relabs-tech/mpu9250dmp/internal/regdebug"
)

func main() {
	configPath := flag.String("config", "./mpu9250_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting MPU9250 register debug tool (standalone)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	i2cBus, err := cmdutil.OpenI2CBus()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	bus := i2cbus.New(i2cBus)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", regdebug.HandleWS(bus, cfg.I2CAddr, mpu9250.AK8963Addr, cfg.RegisterDebugAllowedRanges))

	addr := ":" + strconv.Itoa(portOrDefault(cfg.RegisterDebugWSPort, 8081))
	log.Printf("register debug tool listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func portOrDefault(port, fallback int) int {
	if port == 0 {
		return fallback
	}
	return port
}
