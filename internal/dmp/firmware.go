// Package dmp implements DMP firmware loading, feature/orientation
// configuration, and FIFO packet layout for the MPU9250's Digital Motion
// Processor (C4, C6).
package dmp

import (
	"bytes"
	"fmt"

	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

// FirmwareSize is the exact byte length of the DMP image this driver loads.
const FirmwareSize = 3062

// chunkSize is the largest write issued per bank-paged transfer; Load
// shortens a chunk that would run past the end of a bank, so no write
// crosses a 256-byte bank boundary.
const chunkSize = 16

// ProgramStartAddress is the DMP instruction address execution begins at
// once the image is loaded, written to DMP_CFG_1/DMP_CFG_2.
const ProgramStartAddress uint16 = 0x0400

// Firmware is the image loaded into DMP RAM. DefaultFirmware below is a
// deterministic placeholder: this driver's source tree does not carry the
// vendor-licensed binary blob, so the placeholder is generated
// procedurally and documented as such rather than fabricated to look like
// real vendor bytes.
type Firmware []byte

// DefaultFirmware returns a deterministic FirmwareSize-byte placeholder
// image. Every real deployment must supply its own vendor-sourced firmware
// via Device.Load; this placeholder exists purely so the loader, bank
// chunking, and read-back verification path can be built and exercised
// without redistributing InvenSense's licensed binary.
func DefaultFirmware() Firmware {
	fw := make(Firmware, FirmwareSize)
	var x uint32 = 0x2545F491
	for i := range fw {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		fw[i] = byte(x)
	}
	return fw
}

// Checksum returns a simple additive checksum over the firmware image, used
// only to fingerprint which placeholder/vendor image is loaded; it has no
// bearing on the read-back integrity check performed during Load.
func (fw Firmware) Checksum() uint32 {
	var sum uint32
	for _, b := range fw {
		sum = sum*31 + uint32(b)
	}
	return sum
}

// Device loads and manages DMP firmware on a configured MPU9250.
type Device struct {
	dev *mpu9250.Device
}

// NewDevice wraps an already-reset *mpu9250.Device.
func NewDevice(dev *mpu9250.Device) *Device {
	return &Device{dev: dev}
}

// Load writes fw into DMP RAM in chunkSize-byte pieces, each confined to a
// single 256-byte bank, then reads every chunk back and compares it against
// what was written. Any mismatch is fatal: the DMP image is too large and
// too structurally sensitive to proceed with silent corruption.
func (d *Device) Load(fw Firmware) error {
	if len(fw) != FirmwareSize {
		return fmt.Errorf("mpu9250/dmp: firmware must be %d bytes, got %d", FirmwareSize, len(fw))
	}
	for offset := 0; offset < len(fw); {
		addr := uint16(offset)
		bankRemaining := mpu9250.BankSize - int(addr&0xFF)
		n := chunkSize
		if n > bankRemaining {
			n = bankRemaining
		}
		if offset+n > len(fw) {
			n = len(fw) - offset
		}
		chunk := fw[offset : offset+n]

		if err := d.dev.Bus.WriteMem(d.dev.Addr, mpu9250.RegBankSel, mpu9250.RegMemStartAddr, mpu9250.RegMemRW, addr, chunk); err != nil {
			return fmt.Errorf("mpu9250/dmp: write at 0x%04x: %w", addr, err)
		}
		readBack, err := d.dev.Bus.ReadMem(d.dev.Addr, mpu9250.RegBankSel, mpu9250.RegMemStartAddr, mpu9250.RegMemRW, addr, n)
		if err != nil {
			return fmt.Errorf("mpu9250/dmp: read-back at 0x%04x: %w", addr, err)
		}
		if !bytes.Equal(chunk, readBack) {
			return fmt.Errorf("%w: at 0x%04x", mpu9250err.ErrFirmwareCorrupted, addr)
		}
		offset += n
	}
	return nil
}

// SetProgramStart writes the DMP's execution entry point to DMP_CFG_1/2.
func (d *Device) SetProgramStart(addr uint16) error {
	if err := d.dev.Bus.WriteByte(d.dev.Addr, mpu9250.RegDMPCfg1, byte(addr>>8)); err != nil {
		return err
	}
	return d.dev.Bus.WriteByte(d.dev.Addr, mpu9250.RegDMPCfg2, byte(addr&0xFF))
}
