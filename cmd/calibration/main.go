// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"net/http"
	"strconv"

	"github.com/relabs-tech/mpu9250dmp/internal/calsession"
	"github.com/relabs-tech/mpu9250dmp/internal/cmdutil"
	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/i2cbus"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
)

func main() {
	configPath := flag.String("config", "./mpu9250_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting mpu9250 guided calibration server")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	i2cBus, err := cmdutil.OpenI2CBus()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	bus := i2cbus.New(i2cBus)

	dev := mpu9250.New(bus, cfg.I2CAddr)
	if err := dev.Reset(); err != nil {
		log.Fatalf("fatal: resetting IMU: %v", err)
	}
	if err := dev.EnableBypass(); err != nil {
		log.Fatalf("fatal: enabling I2C bypass: %v", err)
	}
	mag := mpu9250.NewMagnetometer(bus)
	if err := mag.Init(); err != nil {
		log.Fatalf("fatal: initializing magnetometer: %v", err)
	}

	gyroCalPath := cfg.ConfigDirectory + "/gyro.cal"
	magCalPath := cfg.ConfigDirectory + "/mag.cal"

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", calsession.HandleWS(dev, mag, gyroCalPath, magCalPath))

	addr := portAddr(cfg.CalibrationWSPort)
	log.Printf("calibration server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func portAddr(port int) string {
	if port == 0 {
		port = 8082
	}
	return ":" + strconv.Itoa(port)
}
