// Package mpu9250err defines the distinguishable error kinds the driver
// surfaces, following the errors.Is-compatible sentinel pattern.
package mpu9250err

import "errors"

var (
	// ErrTransport is an I2C bus syscall failure. Most register operations
	// retry exactly once after 10ms before surfacing this.
	ErrTransport = errors.New("mpu9250: i2c transport error")

	// ErrDeviceIDMismatch means who_am_i returned a value outside the
	// allowlist. Fatal.
	ErrDeviceIDMismatch = errors.New("mpu9250: device id mismatch")

	// ErrFirmwareCorrupted means a DMP memory read-back disagreed with what
	// was written. Fatal.
	ErrFirmwareCorrupted = errors.New("mpu9250: dmp firmware verification failed")

	// ErrBankCrossing is a programming error: a bank-paged memory access
	// would span a 256-byte page boundary. Fatal.
	ErrBankCrossing = errors.New("mpu9250: memory access crosses bank boundary")

	// ErrFifoDesync means the FIFO byte count was not 0 nor 1-5x the packet
	// length, or the parsed quaternion failed its magnitude bounds check.
	// Recovered locally by resetting the FIFO; the current tick is dropped.
	ErrFifoDesync = errors.New("mpu9250: fifo desynchronized")

	// ErrMagSaturated means the magnetometer's ST2 overflow bit was set;
	// the sample is discarded.
	ErrMagSaturated = errors.New("mpu9250: magnetometer saturated")

	// ErrMagNotReady means the magnetometer's data-ready bit was clear.
	ErrMagNotReady = errors.New("mpu9250: magnetometer not ready")

	// ErrCalibrationNoisy means gyro standard deviation exceeded the
	// configured threshold; calibration retries, never aborts silently.
	ErrCalibrationNoisy = errors.New("mpu9250: gyro calibration data too noisy")

	// ErrEllipsoidFitFailed means the magnetometer ellipsoid fit failed its
	// sanity checks; calibration aborts without overwriting any file.
	ErrEllipsoidFitFailed = errors.New("mpu9250: magnetometer ellipsoid fit failed sanity check")

	// ErrUninitialized means a blocking API was called before DMP start or
	// after shutdown.
	ErrUninitialized = errors.New("mpu9250: driver not initialized or already shut down")
)
