package calstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relabs-tech/mpu9250dmp/internal/calibration"
)

func TestGyroBiasRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.cal")
	want := calibration.GyroBias{X: 12, Y: -34, Z: 56}
	if err := SaveGyroBias(path, want); err != nil {
		t.Fatalf("SaveGyroBias: %v", err)
	}
	got, ok, err := LoadGyroBias(path)
	if err != nil {
		t.Fatalf("LoadGyroBias: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != want {
		t.Errorf("LoadGyroBias = %+v, want %+v", got, want)
	}
}

func TestGyroBiasMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.cal")
	got, ok, err := LoadGyroBias(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing file")
	}
	if got != (calibration.GyroBias{}) {
		t.Errorf("expected zero value, got %+v", got)
	}
}

func TestGyroBiasMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.cal")
	writeFile(t, path, "12\nnotanumber\n34\n")
	if _, _, err := LoadGyroBias(path); err == nil {
		t.Fatal("expected error for malformed gyro.cal")
	}
}

func TestGyroBiasWrongLineCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.cal")
	writeFile(t, path, "12\n34\n")
	if _, _, err := LoadGyroBias(path); err == nil {
		t.Fatal("expected error for 2-line gyro.cal")
	}
}

func TestMagCalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mag.cal")
	want := calibration.MagCal{
		OffsetX: 1.5, OffsetY: -2.25, OffsetZ: 3.75,
		ScaleX: 0.9, ScaleY: 1.1, ScaleZ: 1.0,
	}
	if err := SaveMagCal(path, want); err != nil {
		t.Fatalf("SaveMagCal: %v", err)
	}
	got, ok, err := LoadMagCal(path)
	if err != nil {
		t.Fatalf("LoadMagCal: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != want {
		t.Errorf("LoadMagCal = %+v, want %+v", got, want)
	}
}

func TestMagCalMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.cal")
	_, ok, err := LoadMagCal(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing file")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
}
