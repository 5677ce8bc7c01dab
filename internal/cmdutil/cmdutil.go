// Package cmdutil holds the small amount of bring-up code shared by every
// cmd/ entrypoint: periph.io host/bus init and driver.Config assembly from
// the flat config file.
package cmdutil

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
	"github.com/relabs-tech/mpu9250dmp/internal/driver"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
)

// OpenI2CBus initializes periph.io and opens the default I2C bus.
func OpenI2CBus() (i2c.Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("cmdutil: periph init: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("cmdutil: open I2C bus: %w", err)
	}
	return bus, nil
}

// DriverConfig maps the flat config file's byte/int fields onto the
// driver's typed Config.
func DriverConfig(cfg *config.Config) driver.Config {
	return driver.Config{
		I2CAddr:             cfg.I2CAddr,
		InterruptPin:        cfg.InterruptPin,
		AccelFSR:            mpu9250.AccelFSR(cfg.AccelFSR),
		GyroFSR:             mpu9250.GyroFSR(cfg.GyroFSR),
		DLPF:                mpu9250.DLPF(cfg.DLPFConfig),
		EnableMagnetometer:  cfg.EnableMagnetometer,
		DMPSampleRateHz:     cfg.DMPSampleRateHz,
		FetchAccelGyro:      cfg.DMPFetchAccelGyro,
		MountOrientation:    dmp.MountOrientation(cfg.MountOrientation),
		CompassTimeConstant: cfg.CompassTimeConstant,
		MagSampleRateDiv:    cfg.MagSampleRateDiv,
		TapThresholdMG:      cfg.TapThresholdMG,
		ConfigDirectory:     cfg.ConfigDirectory,
		ShowWarnings:        cfg.ShowWarnings,
	}
}
