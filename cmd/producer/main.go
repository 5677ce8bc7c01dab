// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/mpu9250dmp/internal/cmdutil"
	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
	"github.com/relabs-tech/mpu9250dmp/internal/driver"
	"github.com/relabs-tech/mpu9250dmp/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "./mpu9250_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting mpu9250 DMP producer (IMU -> MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	i2cBus, err := cmdutil.OpenI2CBus()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	d, err := driver.New(i2cBus, cmdutil.DriverConfig(cfg))
	if err != nil {
		log.Fatalf("fatal: creating driver: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.Configure(ctx); err != nil {
		log.Fatalf("fatal: configuring IMU: %v", err)
	}
	if err := d.StartDMP(ctx, dmp.DefaultFirmware()); err != nil {
		log.Fatalf("fatal: starting DMP: %v", err)
	}
	defer d.PowerOff()

	if err := telemetry.Run(ctx, cfg, d); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
