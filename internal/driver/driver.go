// Package driver wires the register configurator, DMP firmware/feature
// controller, interrupt-driven FIFO reader, sensor fusion, and calibration
// persistence into the public IMU driver API (C3-C10 composition root).
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/mpu9250dmp/internal/calstore"
	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
	"github.com/relabs-tech/mpu9250dmp/internal/fifo"
	"github.com/relabs-tech/mpu9250dmp/internal/fusion"
	"github.com/relabs-tech/mpu9250dmp/internal/gpioline"
	"github.com/relabs-tech/mpu9250dmp/internal/i2cbus"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
	"github.com/relabs-tech/mpu9250dmp/internal/quaternion"
)

// State is the IMU instance lifecycle state.
type State int

const (
	StateUninit State = iota
	StateConfigured
	StateDMPRunning
	StatePoweredOff
)

// Config is the immutable-after-Configure driver configuration record.
type Config struct {
	I2CAddr            uint16
	InterruptPin       string
	AccelFSR           mpu9250.AccelFSR
	GyroFSR            mpu9250.GyroFSR
	DLPF               mpu9250.DLPF
	EnableMagnetometer bool
	DMPSampleRateHz    int
	FetchAccelGyro     bool
	MountOrientation   dmp.MountOrientation
	CompassTimeConstant float64
	MagSampleRateDiv   int
	TapThresholdMG     float64
	ConfigDirectory    string
	ShowWarnings       bool
}

// Output is the record produced on every DMP tick.
type Output struct {
	Timestamp time.Time

	RawAccel [3]int16
	RawGyro  [3]int16
	Accel    [3]float64 // m/s^2
	Gyro     [3]float64 // deg/s
	Mag      [3]float64 // uT
	TempC    float64

	DMPQuat quaternion.Quaternion
	DMPTB   quaternion.TaitBryan

	FusedQuat quaternion.Quaternion
	FusedTB   quaternion.TaitBryan

	CompassHeading float64

	TapDetected bool
	TapDirection int // 1..6: +X,-X,+Y,-Y,+Z,-Z
}

// Callbacks groups the driver's two interrupt-context callback ABI entries.
// Implementations must not call back into the driver from either callback.
type Callbacks struct {
	OnData func(Output)
	OnTap  func(direction int)
}

// Driver is one configured IMU instance.
type Driver struct {
	cfg Config

	bus *i2cbus.Bus
	dev *mpu9250.Device
	mag *mpu9250.Magnetometer
	line *gpioline.Line

	featureMask uint16
	fuse        *fusion.Filter
	reader      *fifo.Reader

	gyroBias calibration_GyroBias
	magCal   calibration_MagCal

	mu    sync.Mutex
	cond  *sync.Cond
	state State
	last  Output
	haveLast  bool
	firstTick bool
	tick      uint64

	callbacks Callbacks

	cancel context.CancelFunc
	wg     sync.WaitGroup

	warn func(format string, args ...any)
}

// calibration_GyroBias/calibration_MagCal avoid importing internal/calibration
// purely for its two struct shapes; the driver keeps only the applied bias.
type calibration_GyroBias struct{ X, Y, Z float64 }
type calibration_MagCal struct {
	OffsetX, OffsetY, OffsetZ float64
	ScaleX, ScaleY, ScaleZ    float64
}

// New constructs a Driver bound to an already-opened periph.io I2C bus and
// GPIO interrupt line, in state UNINIT.
func New(i2cBus i2c.Bus, cfg Config) (*Driver, error) {
	if cfg.DMPSampleRateHz == 0 {
		cfg.DMPSampleRateHz = 50
	}
	if cfg.MagSampleRateDiv == 0 {
		cfg.MagSampleRateDiv = 1
	}
	if cfg.CompassTimeConstant <= 0.1 {
		cfg.CompassTimeConstant = 2.0
	}
	if cfg.ConfigDirectory == "" {
		cfg.ConfigDirectory = "/etc/mpu9250"
	}

	bus := i2cbus.New(i2cBus)
	line, err := gpioline.Open(cfg.InterruptPin)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:   cfg,
		bus:   bus,
		dev:   mpu9250.New(bus, cfg.I2CAddr),
		line:  line,
		state: StateUninit,
		warn:  func(string, ...any) {},
	}
	if cfg.ShowWarnings {
		d.warn = func(format string, args ...any) { fmt.Printf("mpu9250: "+format+"\n", args...) }
	}
	d.cond = sync.NewCond(&d.mu)
	return d, nil
}

// SetCallbacks registers the data/tap callbacks. Must be called before Start.
func (d *Driver) SetCallbacks(cb Callbacks) { d.callbacks = cb }

// Configure resets the device, applies FSR/DLPF/sample-rate, brings up the
// magnetometer if enabled, loads persisted calibration, and transitions to
// CONFIGURED.
func (d *Driver) Configure(ctx context.Context) error {
	if d.state != StateUninit {
		return fmt.Errorf("%w: Configure called from state %d", mpu9250err.ErrUninitialized, d.state)
	}
	if err := d.dev.Reset(); err != nil {
		return err
	}
	if err := d.dev.ConfigureRates(d.cfg.DMPSampleRateHz, d.cfg.DLPF); err != nil {
		return err
	}
	if err := d.dev.ConfigureAccel(d.cfg.AccelFSR); err != nil {
		return err
	}
	if err := d.dev.ConfigureGyro(d.cfg.GyroFSR); err != nil {
		return err
	}
	if err := d.dev.SetInterruptActiveHigh(); err != nil {
		return err
	}

	if d.cfg.EnableMagnetometer {
		if err := d.dev.EnableBypass(); err != nil {
			return err
		}
		d.mag = mpu9250.NewMagnetometer(d.bus)
		if err := d.mag.Init(); err != nil {
			return err
		}
	}

	gbias, ok, err := calstore.LoadGyroBias(d.cfg.ConfigDirectory + "/gyro.cal")
	if err != nil {
		d.warn("loading gyro.cal: %v", err)
	} else if ok {
		d.gyroBias = calibration_GyroBias{X: gbias.X, Y: gbias.Y, Z: gbias.Z}
	}
	mcal, ok, err := calstore.LoadMagCal(d.cfg.ConfigDirectory + "/mag.cal")
	if err != nil {
		d.warn("loading mag.cal: %v", err)
	} else if ok {
		d.magCal = calibration_MagCal{mcal.OffsetX, mcal.OffsetY, mcal.OffsetZ, mcal.ScaleX, mcal.ScaleY, mcal.ScaleZ}
	} else {
		d.magCal = calibration_MagCal{ScaleX: 1, ScaleY: 1, ScaleZ: 1}
	}

	features := []dmp.Feature{dmp.FeatureSendQuat, dmp.FeatureTap}
	if d.cfg.FetchAccelGyro {
		features = append(features, dmp.FeatureRawAccel, dmp.FeatureRawGyro)
	}
	d.featureMask = dmp.FeatureMask(features...)

	fuse, err := fusion.New(d.cfg.MountOrientation, d.cfg.CompassTimeConstant, 1.0/float64(d.cfg.DMPSampleRateHz))
	if err != nil {
		return err
	}
	d.fuse = fuse

	d.state = StateConfigured
	return nil
}

// StartDMP loads the DMP firmware (a documented placeholder image, see
// internal/dmp), sets its program entry point, enables FIFO+DMP, and starts
// the dedicated interrupt-reader goroutine, transitioning to DMP_RUNNING.
func (d *Driver) StartDMP(ctx context.Context, fw dmp.Firmware) error {
	if d.state != StateConfigured {
		return fmt.Errorf("%w: StartDMP called from state %d", mpu9250err.ErrUninitialized, d.state)
	}
	loader := dmp.NewDevice(d.dev)
	if err := loader.Load(fw); err != nil {
		return err
	}
	if err := loader.SetProgramStart(dmp.ProgramStartAddress); err != nil {
		return err
	}
	if err := d.dev.ResetFIFOAndDMP(); err != nil {
		return err
	}
	if err := d.dev.EnableDMP(d.cfg.EnableMagnetometer); err != nil {
		return err
	}

	d.reader = fifo.New(d.dev, d.mag, d.line, d.featureMask, d.cfg.MountOrientation, d.cfg.MagSampleRateDiv)
	d.reader.OnSample(d.handleSample)
	d.firstTick = true

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.reader.Run(runCtx)
	}()

	d.state = StateDMPRunning
	return nil
}

func (d *Driver) handleSample(s fifo.Sample) {
	out := Output{Timestamp: time.Now()}
	out.DMPQuat = s.Packet.Quat
	out.DMPTB = quaternion.ToTaitBryan(s.Packet.Quat)

	if s.Packet.HasAccel {
		out.RawAccel = s.Packet.Accel
		sens := mpu9250.AccelSensitivity(d.cfg.AccelFSR)
		for i, v := range s.Packet.Accel {
			out.Accel[i] = float64(v) / sens * 9.80665
		}
	}
	if s.Packet.HasGyro {
		out.RawGyro = s.Packet.Gyro
		sens := mpu9250.GyroSensitivity(d.cfg.GyroFSR)
		for i, v := range s.Packet.Gyro {
			// gyroBias is in raw counts at +-250dps sensitivity.
			out.Gyro[i] = float64(v)/sens - biasComponent(d.gyroBias, i)/mpu9250.GyroSensitivity(mpu9250.Gyro250DPS)
		}
	}

	haveMag := s.HasMag && s.MagErr == nil
	var magVec [3]float64
	if haveMag {
		cx, cy, cz := applyMagCal(d.magCal, s.MagX, s.MagY, s.MagZ)
		magVec = [3]float64{cx, cy, cz}
		out.Mag = magVec
	} else if s.HasMag {
		d.warn("magnetometer read failed: %v", s.MagErr)
	}

	pose := d.fuse.Step(s.Packet.Quat, magVec, haveMag)
	out.FusedQuat = pose.Quat
	out.FusedTB = pose.TaitBryan
	out.CompassHeading = pose.TaitBryan.YawZ

	if s.Packet.HasTap {
		out.TapDetected = true
		out.TapDirection = s.Packet.TapAxis*2 + 1
		if s.Packet.TapDir < 0 {
			out.TapDirection++
		}
	}

	d.mu.Lock()
	d.last = out
	d.haveLast = true
	d.tick++
	d.cond.Broadcast()
	d.mu.Unlock()

	if !d.firstTick {
		if d.callbacks.OnData != nil {
			d.callbacks.OnData(out)
		}
		if out.TapDetected && d.callbacks.OnTap != nil {
			d.callbacks.OnTap(out.TapDirection)
		}
	}
	d.firstTick = false
}

func biasComponent(b calibration_GyroBias, axis int) float64 {
	switch axis {
	case 0:
		return b.X
	case 1:
		return b.Y
	default:
		return b.Z
	}
}

func applyMagCal(c calibration_MagCal, x, y, z float64) (float64, float64, float64) {
	sx, sy, sz := c.ScaleX, c.ScaleY, c.ScaleZ
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	if sz == 0 {
		sz = 1
	}
	return (x - c.OffsetX) * sx, (y - c.OffsetY) * sy, (z - c.OffsetZ) * sz
}

// BlockUntilNewData blocks until a fresh Output is produced or ctx is done.
func (d *Driver) BlockUntilNewData(ctx context.Context) (Output, error) {
	if d.reader == nil {
		return Output{}, mpu9250err.ErrUninitialized
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.cond.Broadcast()
			d.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	d.mu.Lock()
	defer d.mu.Unlock()
	startTick := d.tick
	for d.tick == startTick {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		d.cond.Wait()
	}
	return d.last, nil
}

// Latest returns the most recently produced Output without blocking.
func (d *Driver) Latest() (Output, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.haveLast
}

// PowerOff stops the interrupt-reader goroutine (joining it, waiting at
// most 1 second and only warning on timeout) and transitions to
// POWERED_OFF.
func (d *Driver) PowerOff() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.reader != nil {
		d.reader.Close()
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		d.warn("power off: interrupt goroutine did not join within 1s")
	}
	_ = d.line.Halt()
	d.state = StatePoweredOff
	return nil
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State { return d.state }
