package calibration

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/mpu9250dmp/internal/algebra"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

// Magnetometer calibration parameters, matching the reference routine.
const (
	MagSampleCount     = 200
	magSampleRateHz    = 15
	magCenterMax       = 200.0
	magLengthMin       = 5.0
	magLengthMax       = 200.0
	magScaleReference  = 70.0
)

// MagCal is the result of a successful magnetometer ellipsoid-fit
// calibration: a per-axis offset and scale to apply to raw remapped
// magnetometer readings.
type MagCal struct {
	OffsetX, OffsetY, OffsetZ float64
	ScaleX, ScaleY, ScaleZ    float64
}

// CalibrateMag prompts the caller (via the sample callback) to rotate the
// IMU through as many orientations as possible while it collects
// MagSampleCount readings at magSampleRateHz, fits an ellipsoid to the
// result, and sanity-checks the fit: a center component farther than
// magCenterMax from zero, or an axis length not strictly between
// magLengthMin and magLengthMax, fails the calibration rather than silently
// accepting a bad fit.
//
// onSample, if non-nil, is invoked after every captured sample so a caller
// can report capture progress; it must not block.
func CalibrateMag(ctx context.Context, mag *mpu9250.Magnetometer, onSample func(count int)) (MagCal, error) {
	period := time.Second / magSampleRateHz
	pts := algebra.NewMatrix(MagSampleCount, 3)

	collected := 0
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for collected < MagSampleCount {
		select {
		case <-ctx.Done():
			return MagCal{}, ctx.Err()
		case <-ticker.C:
		}

		x, y, z, _, err := mag.Read()
		if err != nil {
			continue
		}
		if x == 0 && y == 0 && z == 0 {
			continue
		}
		bx, by, bz := mpu9250.RemapToBodyFrame(float64(x), float64(y), float64(z))
		pts.D[collected][0] = bx
		pts.D[collected][1] = by
		pts.D[collected][2] = bz
		collected++
		if onSample != nil {
			onSample(collected)
		}
	}

	center, lengths, err := algebra.FitEllipsoid(pts)
	if err != nil {
		return MagCal{}, fmt.Errorf("%w: %v", mpu9250err.ErrEllipsoidFitFailed, err)
	}

	for k := 0; k < 3; k++ {
		if math.Abs(center.D[k]) > magCenterMax {
			return MagCal{}, fmt.Errorf("%w: center component %d = %.1f exceeds %.1f", mpu9250err.ErrEllipsoidFitFailed, k, center.D[k], magCenterMax)
		}
		if lengths.D[k] <= magLengthMin || lengths.D[k] >= magLengthMax {
			return MagCal{}, fmt.Errorf("%w: axis %d length %.1f outside (%.1f, %.1f)", mpu9250err.ErrEllipsoidFitFailed, k, lengths.D[k], magLengthMin, magLengthMax)
		}
	}

	return MagCal{
		OffsetX: center.D[0], OffsetY: center.D[1], OffsetZ: center.D[2],
		ScaleX: magScaleReference / lengths.D[0],
		ScaleY: magScaleReference / lengths.D[1],
		ScaleZ: magScaleReference / lengths.D[2],
	}, nil
}

// Apply returns the calibrated magnetometer reading given a raw remapped
// sample.
func (c MagCal) Apply(x, y, z float64) (cx, cy, cz float64) {
	return (x - c.OffsetX) * c.ScaleX, (y - c.OffsetY) * c.ScaleY, (z - c.OffsetZ) * c.ScaleZ
}
