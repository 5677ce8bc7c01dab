// Package calibration implements the guided gyro-bias and magnetometer
// ellipsoid-fit calibration routines (C9).
package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/mpu9250dmp/internal/algebra"
	"github.com/relabs-tech/mpu9250dmp/internal/i2cbus"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

// Gyro calibration thresholds, matching the reference routine exactly.
const (
	GyroCalThreshStdDev = 50.0
	GyroOffsetThreshMax = 500.0
	gyroCaptureDuration = 400 * time.Millisecond
	gyroCaptureRateHz   = 200
)

// GyroBias is the result of a successful gyro calibration: per-axis raw
// offset counts at +-250dps sensitivity, to be subtracted from every
// subsequent raw gyro reading.
type GyroBias struct {
	X, Y, Z float64
}

// CalibrateGyro captures ~400ms of gyro samples at 200Hz/+-250dps/184Hz DLPF
// through the hardware FIFO (bypassing the DMP), computes per-axis mean and
// standard deviation, and accepts the result only if every axis's stddev is
// below GyroCalThreshStdDev and the resulting mean offset is below
// GyroOffsetThreshMax. The device must be held stationary.
//
// On a noisy capture, the caller is expected to retry; per the reference
// routine's settle rule, the sample immediately following a discarded noisy
// capture is itself discarded once more before being trusted, since
// settling vibration often bleeds into the next window. wasLastNoisy
// carries that state across calls.
func CalibrateGyro(ctx context.Context, dev *mpu9250.Device, wasLastNoisy bool) (bias GyroBias, stillNoisy bool, err error) {
	if err := dev.ConfigureRates(gyroCaptureRateHz, mpu9250.DLPF184Hz); err != nil {
		return GyroBias{}, false, err
	}
	if err := dev.ConfigureGyro(mpu9250.Gyro250DPS); err != nil {
		return GyroBias{}, false, err
	}

	samples, err := captureGyroFIFO(ctx, dev, gyroCaptureDuration)
	if err != nil {
		return GyroBias{}, false, err
	}
	if len(samples) < 10 {
		return GyroBias{}, true, fmt.Errorf("calibration: captured only %d gyro samples", len(samples))
	}

	xs, ys, zs := algebra.NewVector(len(samples)), algebra.NewVector(len(samples)), algebra.NewVector(len(samples))
	for i, s := range samples {
		xs.D[i], ys.D[i], zs.D[i] = s[0], s[1], s[2]
	}
	sdX := xs.StdDev()
	sdY := ys.StdDev()
	sdZ := zs.StdDev()

	noisy := sdX > GyroCalThreshStdDev || sdY > GyroCalThreshStdDev || sdZ > GyroCalThreshStdDev
	if noisy || wasLastNoisy {
		// The settle-discard is one-shot: stillNoisy reports this capture's
		// own noisiness, not wasLastNoisy, so the steady reading that
		// follows a noisy one is discarded exactly once before the next
		// capture is trusted again.
		return GyroBias{}, noisy, fmt.Errorf("%w: stddev x=%.1f y=%.1f z=%.1f", mpu9250err.ErrCalibrationNoisy, sdX, sdY, sdZ)
	}

	mx := xs.Mean()
	my := ys.Mean()
	mz := zs.Mean()
	if abs(mx) > GyroOffsetThreshMax || abs(my) > GyroOffsetThreshMax || abs(mz) > GyroOffsetThreshMax {
		return GyroBias{}, false, fmt.Errorf("calibration: gyro offset out of range x=%.1f y=%.1f z=%.1f", mx, my, mz)
	}

	return GyroBias{X: mx, Y: my, Z: mz}, false, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// captureGyroFIFO enables only the gyro FIFO channels, waits the capture
// window, drains the raw FIFO, and decodes 6-byte gyro samples.
func captureGyroFIFO(ctx context.Context, dev *mpu9250.Device, window time.Duration) ([][3]float64, error) {
	if err := dev.Bus.WriteByte(dev.Addr, mpu9250.RegUserCtrl, mpu9250.UserCtrlFifoRst); err != nil {
		return nil, err
	}
	fifoEnMask := mpu9250.FifoGyroXEn | mpu9250.FifoGyroYEn | mpu9250.FifoGyroZEn
	if err := dev.Bus.WriteByte(dev.Addr, mpu9250.RegFifoEn, fifoEnMask); err != nil {
		return nil, err
	}
	if err := dev.Bus.WriteByte(dev.Addr, mpu9250.RegUserCtrl, mpu9250.UserCtrlFifoEn); err != nil {
		return nil, err
	}

	select {
	case <-time.After(window):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	n, err := dev.FIFOCount()
	if err != nil {
		return nil, err
	}
	n -= n % 6
	if n <= 0 {
		return nil, fmt.Errorf("calibration: empty gyro fifo capture")
	}
	raw, err := dev.ReadFIFO(n)
	if err != nil {
		return nil, err
	}

	out := make([][3]float64, 0, n/6)
	for i := 0; i+6 <= len(raw); i += 6 {
		x := int16(uint16(raw[i])<<8 | uint16(raw[i+1]))
		y := int16(uint16(raw[i+2])<<8 | uint16(raw[i+3]))
		z := int16(uint16(raw[i+4])<<8 | uint16(raw[i+5]))
		out = append(out, [3]float64{float64(x), float64(y), float64(z)})
	}
	return out, nil
}
