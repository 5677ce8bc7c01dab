// Package fusion combines the DMP's gyro-integrated quaternion yaw with a
// magnetometer-derived heading through a complementary filter, correcting
// for mount orientation and unwrapping spin discontinuities at +/-pi (C8).
package fusion

import (
	"math"

	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
	"github.com/relabs-tech/mpu9250dmp/internal/filter"
	"github.com/relabs-tech/mpu9250dmp/internal/quaternion"
)

// Pose is one fused attitude estimate.
type Pose struct {
	Quat      quaternion.Quaternion
	TaitBryan quaternion.TaitBryan
}

// Filter runs the complementary filter pair: a low-pass on magnetometer
// yaw and a high-pass on DMP gyro yaw, with the same crossover time
// constant, plus spin-unwrap counters tracking each input's +/-pi crossings
// independently before they are combined.
type Filter struct {
	lowPassMag  *filter.Filter
	highPassGyro *filter.Filter

	orientation dmp.MountOrientation

	haveLast     bool
	lastDMPYaw   float64
	dmpUnwrapped float64

	haveLastMag     bool
	lastMagYaw      float64
	magUnwrapped    float64
}

// New builds a Filter with crossover time constant tauSeconds at sample
// period dtSeconds, for an IMU mounted per orientation.
func New(orientation dmp.MountOrientation, tauSeconds, dtSeconds float64) (*Filter, error) {
	lp, err := filter.LowPass(tauSeconds, dtSeconds)
	if err != nil {
		return nil, err
	}
	hp, err := filter.HighPass(tauSeconds, dtSeconds)
	if err != nil {
		return nil, err
	}
	return &Filter{lowPassMag: lp, highPassGyro: hp, orientation: orientation}, nil
}

// magYaw computes a heading from a mount-corrected, tilt-compensated
// magnetometer reading: the mag vector is rotated into the level frame by
// the DMP's own tilt quaternion (roll/pitch), then atan2'd in the horizontal
// plane.
func magYaw(tilt quaternion.Quaternion, mag [3]float64) float64 {
	level := tilt.Conjugate().RotateVector(mag)
	return math.Atan2(-level[1], level[0])
}

// unwrap accumulates a continuously-increasing angle from a wrapped
// (-pi,pi] input, tracking crossings independently per call-site via the
// have/last/accumulated triple the caller owns.
func unwrap(have bool, last, accumulated, next float64) (newLast, newAccumulated float64) {
	if !have {
		return next, next
	}
	delta := next - last
	if delta > math.Pi {
		delta -= 2 * math.Pi
	} else if delta < -math.Pi {
		delta += 2 * math.Pi
	}
	return next, accumulated + delta
}

// Step advances the filter by one sample: q is the DMP's quaternion output;
// mag is a calibrated, already axis-remapped magnetometer reading,
// or the zero vector with haveMag false on ticks without a fresh reading.
func (f *Filter) Step(q quaternion.Quaternion, mag [3]float64, haveMag bool) Pose {
	tb := quaternion.ToTaitBryan(q)

	f.lastDMPYaw, f.dmpUnwrapped = unwrap(f.haveLast, f.lastDMPYaw, f.dmpUnwrapped, tb.YawZ)
	f.haveLast = true
	gyroYawHP := f.highPassGyro.Step(f.dmpUnwrapped)

	var magYawLP float64
	if haveMag {
		tilt := quaternion.FromTaitBryan(quaternion.TaitBryan{PitchX: tb.PitchX, RollY: tb.RollY})
		my := magYaw(tilt, mag)
		f.lastMagYaw, f.magUnwrapped = unwrap(f.haveLastMag, f.lastMagYaw, f.magUnwrapped, my)
		f.haveLastMag = true
		magYawLP = f.lowPassMag.Step(f.magUnwrapped)
	} else {
		magYawLP = f.lowPassMag.Step(f.magUnwrapped)
	}

	fusedYaw := quaternion.WrapToPi(gyroYawHP + magYawLP)

	outTB := quaternion.TaitBryan{PitchX: tb.PitchX, RollY: tb.RollY, YawZ: fusedYaw}
	outQ := quaternion.FromTaitBryan(outTB)
	return Pose{Quat: outQ, TaitBryan: outTB}
}
