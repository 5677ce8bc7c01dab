package mpu9250

import (
	"errors"
	"testing"

	"github.com/relabs-tech/mpu9250dmp/internal/i2cbus"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

// fakeI2C is a minimal periph.io i2c.Bus double: it dispatches Tx calls to a
// per-register byte map and records writes, with no real hardware behind it.
type fakeI2C struct {
	regs map[byte]byte
	err  error
}

func newFakeI2C() *fakeI2C {
	return &fakeI2C{regs: map[byte]byte{
		RegWhoAmI:         0x71,
		AK8963RegWIA:      0x48,
		AK8963RegASAX:     0x80,
		AK8963RegASAX + 1: 0x80,
		AK8963RegASAX + 2: 0x80,
	}}
}

func (f *fakeI2C) String() string { return "fake" }
func (f *fakeI2C) Halt() error    { return nil }

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	if len(w) == 0 {
		return nil
	}
	reg := w[0]
	if len(w) > 1 {
		// write: reg + payload bytes
		for i, v := range w[1:] {
			f.regs[reg+byte(i)] = v
		}
		return nil
	}
	// read: reg only, fill r from regs starting at reg
	for i := range r {
		r[i] = f.regs[reg+byte(i)]
	}
	return nil
}

func newTestDevice() (*Device, *fakeI2C) {
	fi := newFakeI2C()
	bus := i2cbus.New(fi)
	return New(bus, AddrDefault), fi
}

func TestDeviceResetAcceptsAllowlistedWhoAmI(t *testing.T) {
	dev, fi := newTestDevice()
	fi.regs[RegWhoAmI] = 0x71
	if err := dev.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
}

func TestDeviceResetRejectsUnknownWhoAmI(t *testing.T) {
	dev, fi := newTestDevice()
	fi.regs[RegWhoAmI] = 0xFF
	err := dev.Reset()
	if !errors.Is(err, mpu9250err.ErrDeviceIDMismatch) {
		t.Fatalf("expected ErrDeviceIDMismatch, got %v", err)
	}
}

func TestConfigureRatesDivisor(t *testing.T) {
	dev, fi := newTestDevice()
	if err := dev.ConfigureRates(200, DLPF92Hz); err != nil {
		t.Fatalf("ConfigureRates: %v", err)
	}
	if got := fi.regs[RegSmplrtDiv]; got != 4 { // 1000/200-1
		t.Errorf("SMPLRT_DIV = %d, want 4", got)
	}
	if got := fi.regs[RegConfig]; got != byte(DLPF92Hz) {
		t.Errorf("CONFIG = %d, want %d", got, DLPF92Hz)
	}
}

func TestConfigureRatesOutOfRange(t *testing.T) {
	dev, _ := newTestDevice()
	if err := dev.ConfigureRates(0, DLPF92Hz); err == nil {
		t.Fatal("expected error for sampleRateHz=0")
	}
	if err := dev.ConfigureRates(1001, DLPF92Hz); err == nil {
		t.Fatal("expected error for sampleRateHz=1001")
	}
}

func TestAccelGyroSensitivity(t *testing.T) {
	if AccelSensitivity(Accel2G) != 16384.0 {
		t.Error("Accel2G sensitivity mismatch")
	}
	if AccelSensitivity(Accel16G) != 2048.0 {
		t.Error("Accel16G sensitivity mismatch")
	}
	if GyroSensitivity(Gyro250DPS) != 131.0 {
		t.Error("Gyro250DPS sensitivity mismatch")
	}
	if GyroSensitivity(Gyro2000DPS) != 16.4 {
		t.Error("Gyro2000DPS sensitivity mismatch")
	}
}

func TestMagnetometerInitReadsSensitivityAdjustment(t *testing.T) {
	fi := newFakeI2C()
	bus := i2cbus.New(fi)
	mag := NewMagnetometer(bus)
	if err := mag.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	x, y, z := mag.SensitivityAdjustment()
	// ASA byte 0x80 -> (128-128)/256+1 = 1.0
	if x != 1.0 || y != 1.0 || z != 1.0 {
		t.Errorf("sensitivity adjustment = (%v,%v,%v), want (1,1,1)", x, y, z)
	}
}

func TestMagnetometerInitRejectsBadWhoAmI(t *testing.T) {
	fi := newFakeI2C()
	fi.regs[AK8963RegWIA] = 0x00
	bus := i2cbus.New(fi)
	mag := NewMagnetometer(bus)
	err := mag.Init()
	if !errors.Is(err, mpu9250err.ErrDeviceIDMismatch) {
		t.Fatalf("expected ErrDeviceIDMismatch, got %v", err)
	}
}

func TestMagnetometerReadNotReady(t *testing.T) {
	fi := newFakeI2C()
	bus := i2cbus.New(fi)
	mag := NewMagnetometer(bus)
	fi.regs[AK8963RegST1] = 0x00
	_, _, _, _, err := mag.Read()
	if !errors.Is(err, mpu9250err.ErrMagNotReady) {
		t.Fatalf("expected ErrMagNotReady, got %v", err)
	}
}

func TestMagnetometerReadOverflow(t *testing.T) {
	fi := newFakeI2C()
	bus := i2cbus.New(fi)
	mag := NewMagnetometer(bus)
	fi.regs[AK8963RegST1] = AK8963ST1DataReady
	fi.regs[AK8963RegHXL+6] = AK8963ST2Overflow
	_, _, _, overflow, err := mag.Read()
	if !overflow || !errors.Is(err, mpu9250err.ErrMagSaturated) {
		t.Fatalf("expected overflow+ErrMagSaturated, got overflow=%v err=%v", overflow, err)
	}
}

func TestRemapToBodyFrame(t *testing.T) {
	bx, by, bz := RemapToBodyFrame(1, 2, 3)
	if bx != 2 || by != 1 || bz != -3 {
		t.Errorf("RemapToBodyFrame(1,2,3) = (%v,%v,%v), want (2,1,-3)", bx, by, bz)
	}
}

func TestRegisterMapCoversWhoAmI(t *testing.T) {
	found := false
	for _, r := range RegisterMap() {
		if r.Address == RegWhoAmI {
			found = true
			if r.Default != 0x71 {
				t.Errorf("WHO_AM_I default = 0x%02x, want 0x71", r.Default)
			}
		}
	}
	if !found {
		t.Fatal("RegisterMap missing WHO_AM_I entry")
	}
}

func TestAK8963RegisterMapCoversWIA(t *testing.T) {
	for _, r := range AK8963RegisterMap() {
		if r.Address == AK8963RegWIA && r.Default != 0x48 {
			t.Errorf("WIA default = 0x%02x, want 0x48", r.Default)
		}
	}
}
