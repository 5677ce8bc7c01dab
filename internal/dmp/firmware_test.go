package dmp

import "testing"

func TestDefaultFirmwareSize(t *testing.T) {
	fw := DefaultFirmware()
	if len(fw) != FirmwareSize {
		t.Fatalf("DefaultFirmware length = %d, want %d", len(fw), FirmwareSize)
	}
}

func TestDefaultFirmwareDeterministic(t *testing.T) {
	a := DefaultFirmware()
	b := DefaultFirmware()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("DefaultFirmware not deterministic at byte %d: %d != %d", i, a[i], b[i])
		}
	}
}

func TestFirmwareChecksumStable(t *testing.T) {
	fw := DefaultFirmware()
	if fw.Checksum() != fw.Checksum() {
		t.Fatal("Checksum not stable across calls")
	}
}
