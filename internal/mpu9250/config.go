package mpu9250

import (
	"fmt"
	"time"

	"github.com/relabs-tech/mpu9250dmp/internal/i2cbus"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

// AccelFSR is the accelerometer full-scale range selector.
type AccelFSR byte

const (
	Accel2G  AccelFSR = 0
	Accel4G  AccelFSR = 1
	Accel8G  AccelFSR = 2
	Accel16G AccelFSR = 3
)

// GyroFSR is the gyroscope full-scale range selector.
type GyroFSR byte

const (
	Gyro250DPS  GyroFSR = 0
	Gyro500DPS  GyroFSR = 1
	Gyro1000DPS GyroFSR = 2
	Gyro2000DPS GyroFSR = 3
)

// DLPF is the digital low-pass filter bandwidth selector, index into the
// CONFIG register's DLPF_CFG field.
type DLPF byte

const (
	DLPF250Hz DLPF = 0
	DLPF184Hz DLPF = 1
	DLPF92Hz  DLPF = 2
	DLPF41Hz  DLPF = 3
	DLPF20Hz  DLPF = 4
	DLPF10Hz  DLPF = 5
	DLPF5Hz   DLPF = 6
)

// AccelSensitivity returns LSB/g for the given full-scale range.
func AccelSensitivity(fsr AccelFSR) float64 {
	switch fsr {
	case Accel2G:
		return 16384.0
	case Accel4G:
		return 8192.0
	case Accel8G:
		return 4096.0
	case Accel16G:
		return 2048.0
	}
	return 16384.0
}

// GyroSensitivity returns LSB/(deg/s) for the given full-scale range.
func GyroSensitivity(fsr GyroFSR) float64 {
	switch fsr {
	case Gyro250DPS:
		return 131.0
	case Gyro500DPS:
		return 65.5
	case Gyro1000DPS:
		return 32.8
	case Gyro2000DPS:
		return 16.4
	}
	return 131.0
}

// Device wraps an i2cbus.Bus at a fixed I2C address and implements the
// register-level reset/configuration/bring-up sequence (C5).
type Device struct {
	Bus  *i2cbus.Bus
	Addr uint16
}

// New returns a Device bound to addr (AddrDefault or AddrAlt), not yet reset.
func New(bus *i2cbus.Bus, addr uint16) *Device {
	return &Device{Bus: bus, Addr: addr}
}

// Reset performs the power-on reset sequence: H_RESET, wait, verify WHO_AM_I
// against the allowlist, wake from sleep. Retries the WHO_AM_I read once
// after 10ms, matching the bus's own retry policy for the surrounding writes.
func (d *Device) Reset() error {
	if err := d.Bus.WriteByte(d.Addr, RegPwrMgmt1, PwrMgmt1HReset); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)

	who, err := d.Bus.ReadByte(d.Addr, RegWhoAmI)
	if err != nil {
		return err
	}
	if !WhoAmIAllowlist[who] {
		return fmt.Errorf("%w: got 0x%02x", mpu9250err.ErrDeviceIDMismatch, who)
	}
	// Wake from sleep, select the best available clock source (PLL with gyro
	// X reference; falls back to internal oscillator in hardware if unlocked).
	if err := d.Bus.WriteByte(d.Addr, RegPwrMgmt1, 0x01); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// ConfigureRates sets SMPLRT_DIV and the DLPF bandwidth. sampleRateHz must
// divide 1000 (or 8000 with DLPF disabled, which this driver never selects).
func (d *Device) ConfigureRates(sampleRateHz int, dlpf DLPF) error {
	if sampleRateHz <= 0 || sampleRateHz > 1000 {
		return fmt.Errorf("mpu9250: sample rate %d out of range (1..1000)", sampleRateHz)
	}
	div := 1000/sampleRateHz - 1
	if div < 0 {
		div = 0
	}
	if div > 255 {
		div = 255
	}
	if err := d.Bus.WriteByte(d.Addr, RegConfig, byte(dlpf)&0x07); err != nil {
		return err
	}
	return d.Bus.WriteByte(d.Addr, RegSmplrtDiv, byte(div))
}

// ConfigureAccel sets the accelerometer full-scale range.
func (d *Device) ConfigureAccel(fsr AccelFSR) error {
	return d.Bus.WriteByte(d.Addr, RegAccelConfig, byte(fsr)<<3)
}

// ConfigureGyro sets the gyroscope full-scale range.
func (d *Device) ConfigureGyro(fsr GyroFSR) error {
	return d.Bus.WriteByte(d.Addr, RegGyroConfig, byte(fsr)<<3)
}

// EnableBypass asserts INT_PIN_CFG.BYPASS_EN so the AK8963 magnetometer
// becomes directly addressable on the shared I2C bus, and disables the
// built-in I2C master (the two are mutually exclusive).
func (d *Device) EnableBypass() error {
	if err := d.Bus.WriteByte(d.Addr, RegUserCtrl, 0); err != nil {
		return err
	}
	return d.Bus.WriteByte(d.Addr, RegIntPinCfg, 0x02)
}

// SetInterruptActiveHigh configures INT_PIN_CFG for an active-high,
// push-pull, 50us-pulse data-ready interrupt, then writes INT_ENABLE = 0x01,
// unmasking RAW_RDY_EN (bit 0).
func (d *Device) SetInterruptActiveHigh() error {
	cur, err := d.Bus.ReadByte(d.Addr, RegIntPinCfg)
	if err != nil {
		return err
	}
	cur &^= 0xE0 // clear ACTL (bit7), OPEN (bit6) and LATCH_INT_EN (bit5): active-high, push-pull, 50us pulse
	if err := d.Bus.WriteByte(d.Addr, RegIntPinCfg, cur); err != nil {
		return err
	}
	return d.Bus.WriteByte(d.Addr, RegIntEnable, 0x01)
}

// ResetFIFOAndDMP writes FIFO_RST|DMP_RST to USER_CTRL, which also clears
// DMP_EN, FIFO_EN and I2C_MST_EN until the caller's next EnableDMP. Used both
// at startup and for FIFO desync recovery.
func (d *Device) ResetFIFOAndDMP() error {
	if err := d.Bus.WriteByte(d.Addr, RegUserCtrl, UserCtrlFifoRst|UserCtrlDMPRst); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

// EnableDMP sets USER_CTRL to run with the DMP and FIFO active (and, while
// the I2C master is needed for magnetometer pass-through reads, leaves
// I2C_MST_EN set as well).
func (d *Device) EnableDMP(withI2CMaster bool) error {
	v := UserCtrlDMPEn | UserCtrlFifoEn
	if withI2CMaster {
		v |= UserCtrlI2CMstEn
	}
	return d.Bus.WriteByte(d.Addr, RegUserCtrl, v)
}

// FIFOCount reads the current FIFO byte count.
func (d *Device) FIFOCount() (int, error) {
	b, err := d.Bus.ReadBytes(d.Addr, RegFifoCountH, 2)
	if err != nil {
		return 0, err
	}
	return int(b[0])<<8 | int(b[1]), nil
}

// ReadFIFO reads n raw bytes from the FIFO in bursts of at most 128 bytes.
func (d *Device) ReadFIFO(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		c := n - len(out)
		if c > 128 {
			c = 128
		}
		b, err := d.Bus.ReadBytes(d.Addr, RegFifoRW, c)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Magnetometer wraps the AK8963, accessed directly at its own bus address
// after EnableBypass; the MPU's I2C master pass-through registers are not
// used.
type Magnetometer struct {
	Bus  *i2cbus.Bus
	Addr uint16

	sensAdjX, sensAdjY, sensAdjZ float64
}

// NewMagnetometer returns a Magnetometer bound to the AK8963 bypass address.
func NewMagnetometer(bus *i2cbus.Bus) *Magnetometer {
	return &Magnetometer{Bus: bus, Addr: AK8963Addr}
}

// Init brings up the AK8963: soft reset, WHO_AM_I check, fuse-ROM read for
// per-axis sensitivity adjustment, then 16-bit continuous-measurement mode 2
// (100Hz). Requires the MPU's I2C bypass to already be enabled.
func (m *Magnetometer) Init() error {
	if err := m.Bus.WriteByte(m.Addr, AK8963RegCNTL2, 0x01); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)

	who, err := m.Bus.ReadByte(m.Addr, AK8963RegWIA)
	if err != nil {
		return err
	}
	if who != 0x48 {
		return fmt.Errorf("%w: ak8963 got 0x%02x", mpu9250err.ErrDeviceIDMismatch, who)
	}

	if err := m.Bus.WriteByte(m.Addr, AK8963RegCNTL1, AK8963ModeFuseROM); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	asa, err := m.Bus.ReadBytes(m.Addr, AK8963RegASAX, 3)
	if err != nil {
		return err
	}
	m.sensAdjX = (float64(asa[0])-128)/256 + 1
	m.sensAdjY = (float64(asa[1])-128)/256 + 1
	m.sensAdjZ = (float64(asa[2])-128)/256 + 1

	if err := m.Bus.WriteByte(m.Addr, AK8963RegCNTL1, AK8963ModePowerDown); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return m.Bus.WriteByte(m.Addr, AK8963RegCNTL1, AK8963Bit16|AK8963ModeCont2_100Hz)
}

// SensitivityAdjustment returns the per-axis ASA correction factors read
// from fuse ROM during Init.
func (m *Magnetometer) SensitivityAdjustment() (x, y, z float64) {
	return m.sensAdjX, m.sensAdjY, m.sensAdjZ
}

// Read returns the raw 16-bit magnetometer counts (device axes, pre mount-
// orientation remap) and whether ST2 reported a data overflow.
func (m *Magnetometer) Read() (x, y, z int16, overflow bool, err error) {
	st1, err := m.Bus.ReadByte(m.Addr, AK8963RegST1)
	if err != nil {
		return 0, 0, 0, false, err
	}
	if st1&AK8963ST1DataReady == 0 {
		return 0, 0, 0, false, mpu9250err.ErrMagNotReady
	}
	raw, err := m.Bus.ReadBytes(m.Addr, AK8963RegHXL, 7)
	if err != nil {
		return 0, 0, 0, false, err
	}
	x = int16(uint16(raw[0]) | uint16(raw[1])<<8)
	y = int16(uint16(raw[2]) | uint16(raw[3])<<8)
	z = int16(uint16(raw[4]) | uint16(raw[5])<<8)
	overflow = raw[6]&AK8963ST2Overflow != 0
	if overflow {
		return x, y, z, true, mpu9250err.ErrMagSaturated
	}
	return x, y, z, false, nil
}

// RemapToBodyFrame applies the fixed MPU9250-package axis transform that
// maps the AK8963's own axes onto the MPU's accelerometer/gyro axes:
// body = (mag_y, mag_x, -mag_z).
func RemapToBodyFrame(x, y, z float64) (bx, by, bz float64) {
	return y, x, -z
}
