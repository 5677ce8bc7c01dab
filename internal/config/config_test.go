package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mpu9250_config.txt")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

const minimalConfig = `
# comment line, ignored
I2C_ADDR=0x68
INTERRUPT_PIN=GPIO23
`

func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.I2CAddr != 0x68 {
		t.Errorf("I2CAddr = 0x%x, want 0x68", cfg.I2CAddr)
	}
	if cfg.InterruptPin != "GPIO23" {
		t.Errorf("InterruptPin = %q, want GPIO23", cfg.InterruptPin)
	}
	// defaults filled in by validate()
	if cfg.DMPSampleRateHz != 50 {
		t.Errorf("DMPSampleRateHz default = %d, want 50", cfg.DMPSampleRateHz)
	}
	if cfg.MagSampleRateDiv != 1 {
		t.Errorf("MagSampleRateDiv default = %d, want 1", cfg.MagSampleRateDiv)
	}
	if cfg.CompassTimeConstant != 2.0 {
		t.Errorf("CompassTimeConstant default = %v, want 2.0", cfg.CompassTimeConstant)
	}
	if cfg.ConfigDirectory != "/etc/mpu9250" {
		t.Errorf("ConfigDirectory default = %q, want /etc/mpu9250", cfg.ConfigDirectory)
	}
}

func TestLoadMissingRequiredField(t *testing.T) {
	_, err := Load(writeConfig(t, "I2C_ADDR=0x68\n"))
	if err == nil {
		t.Fatal("expected error for missing INTERRUPT_PIN")
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"NOT_A_REAL_KEY=1\n"))
	if err == nil {
		t.Fatal("expected error for unknown config key")
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(writeConfig(t, "this line has no equals sign\n"))
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestLoadRejectsOutOfRangeFSR(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"ACCEL_FSR=9\n"))
	if err == nil {
		t.Fatal("expected error for ACCEL_FSR out of range")
	}
}

func TestLoadRejectsSampleRateNotDividing200(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"DMP_SAMPLE_RATE_HZ=60\n"))
	if err == nil {
		t.Fatal("expected error for DMP_SAMPLE_RATE_HZ not dividing 200")
	}
}

func TestLoadParsesAllTopicsAndPorts(t *testing.T) {
	body := minimalConfig + `
TOPIC_GPS_VELOCITY=gps/velocity
TOPIC_GPS_QUALITY=gps/quality
TOPIC_GPS_SATELLITES=gps/satellites
TOPIC_GPS=gps/fix
CALIBRATION_WS_PORT=8082
REGISTER_DEBUG_WS_PORT=8081
REGISTER_DEBUG_ALLOWED_RANGES=0x1B-0x1D,0x6B
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopicGPSVelocity != "gps/velocity" || cfg.TopicGPSQuality != "gps/quality" ||
		cfg.TopicGPSSatellites != "gps/satellites" || cfg.TopicGPS != "gps/fix" {
		t.Errorf("GPS topic fields not parsed correctly: %+v", cfg)
	}
	if cfg.CalibrationWSPort != 8082 || cfg.RegisterDebugWSPort != 8081 {
		t.Errorf("WS port fields not parsed correctly: %+v", cfg)
	}
	if cfg.RegisterDebugAllowedRanges != "0x1B-0x1D,0x6B" {
		t.Errorf("RegisterDebugAllowedRanges = %q", cfg.RegisterDebugAllowedRanges)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.txt"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
