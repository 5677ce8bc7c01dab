package cmdutil

import (
	"testing"

	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
)

func TestDriverConfigMapsAllFields(t *testing.T) {
	cfg := &config.Config{
		I2CAddr:             0x68,
		InterruptPin:        "GPIO23",
		AccelFSR:            2,
		GyroFSR:             1,
		DLPFConfig:          3,
		EnableMagnetometer:  true,
		DMPSampleRateHz:     50,
		DMPFetchAccelGyro:   true,
		MountOrientation:    5,
		CompassTimeConstant: 2.5,
		MagSampleRateDiv:    4,
		TapThresholdMG:      250,
		ConfigDirectory:     "/etc/mpu9250",
		ShowWarnings:        true,
	}

	dc := DriverConfig(cfg)

	if dc.I2CAddr != cfg.I2CAddr {
		t.Errorf("I2CAddr = %v, want %v", dc.I2CAddr, cfg.I2CAddr)
	}
	if dc.InterruptPin != cfg.InterruptPin {
		t.Errorf("InterruptPin = %v, want %v", dc.InterruptPin, cfg.InterruptPin)
	}
	if dc.AccelFSR != mpu9250.AccelFSR(cfg.AccelFSR) {
		t.Errorf("AccelFSR = %v, want %v", dc.AccelFSR, cfg.AccelFSR)
	}
	if dc.GyroFSR != mpu9250.GyroFSR(cfg.GyroFSR) {
		t.Errorf("GyroFSR = %v, want %v", dc.GyroFSR, cfg.GyroFSR)
	}
	if dc.DLPF != mpu9250.DLPF(cfg.DLPFConfig) {
		t.Errorf("DLPF = %v, want %v", dc.DLPF, cfg.DLPFConfig)
	}
	if dc.EnableMagnetometer != cfg.EnableMagnetometer {
		t.Error("EnableMagnetometer not carried through")
	}
	if dc.DMPSampleRateHz != cfg.DMPSampleRateHz {
		t.Errorf("DMPSampleRateHz = %v, want %v", dc.DMPSampleRateHz, cfg.DMPSampleRateHz)
	}
	if dc.FetchAccelGyro != cfg.DMPFetchAccelGyro {
		t.Error("FetchAccelGyro not carried through")
	}
	if dc.MountOrientation != dmp.MountOrientation(cfg.MountOrientation) {
		t.Errorf("MountOrientation = %v, want %v", dc.MountOrientation, cfg.MountOrientation)
	}
	if dc.CompassTimeConstant != cfg.CompassTimeConstant {
		t.Errorf("CompassTimeConstant = %v, want %v", dc.CompassTimeConstant, cfg.CompassTimeConstant)
	}
	if dc.MagSampleRateDiv != cfg.MagSampleRateDiv {
		t.Errorf("MagSampleRateDiv = %v, want %v", dc.MagSampleRateDiv, cfg.MagSampleRateDiv)
	}
	if dc.TapThresholdMG != cfg.TapThresholdMG {
		t.Errorf("TapThresholdMG = %v, want %v", dc.TapThresholdMG, cfg.TapThresholdMG)
	}
	if dc.ConfigDirectory != cfg.ConfigDirectory {
		t.Errorf("ConfigDirectory = %v, want %v", dc.ConfigDirectory, cfg.ConfigDirectory)
	}
	if dc.ShowWarnings != cfg.ShowWarnings {
		t.Error("ShowWarnings not carried through")
	}
}

func TestDriverConfigZeroValue(t *testing.T) {
	dc := DriverConfig(&config.Config{})
	if dc.I2CAddr != 0 || dc.InterruptPin != "" || dc.EnableMagnetometer {
		t.Errorf("zero-value config should map to a zero-value driver.Config, got %+v", dc)
	}
}
