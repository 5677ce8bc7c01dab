package calsession

import (
	"math"
	"testing"

	"github.com/relabs-tech/mpu9250dmp/internal/calibration"
)

func TestGyroConfidenceZeroBias(t *testing.T) {
	c := gyroConfidence(calibration.GyroBias{})
	if math.Abs(c-100) > 1e-9 {
		t.Errorf("gyroConfidence(zero bias) = %v, want 100", c)
	}
}

func TestGyroConfidenceDecreasesWithBias(t *testing.T) {
	low := gyroConfidence(calibration.GyroBias{X: 10})
	high := gyroConfidence(calibration.GyroBias{X: 400})
	if !(low > high) {
		t.Errorf("expected confidence to decrease as bias grows: low=%v high=%v", low, high)
	}
	if high <= 0 {
		t.Errorf("confidence should stay positive, got %v", high)
	}
}

func TestMagConfidenceUniformScales(t *testing.T) {
	c := magConfidence(calibration.MagCal{ScaleX: 1, ScaleY: 1, ScaleZ: 1})
	if math.Abs(c-100) > 1e-9 {
		t.Errorf("magConfidence(uniform scales) = %v, want 100", c)
	}
}

func TestMagConfidenceNonUniformScales(t *testing.T) {
	c := magConfidence(calibration.MagCal{ScaleX: 1, ScaleY: 2, ScaleZ: 4})
	want := 25.0 // min/max * 100 = 1/4 * 100
	if math.Abs(c-want) > 1e-9 {
		t.Errorf("magConfidence = %v, want %v", c, want)
	}
}

func TestMagConfidenceZeroScale(t *testing.T) {
	if c := magConfidence(calibration.MagCal{}); c != 0 {
		t.Errorf("magConfidence(zero scales) = %v, want 0", c)
	}
}

func TestAbs(t *testing.T) {
	if abs(-3.5) != 3.5 || abs(3.5) != 3.5 {
		t.Error("abs did not return absolute value")
	}
}
