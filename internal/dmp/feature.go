package dmp

import "fmt"

// Feature is a DMP output/behavior flag, ORed together to build the feature
// mask passed to ConfigureFeatures.
type Feature uint16

const (
	FeatureRawAccel  Feature = 1 << 0
	FeatureRawGyro   Feature = 1 << 1
	FeatureCalGyro   Feature = 1 << 2
	FeatureSendQuat  Feature = 1 << 3
	FeatureTap       Feature = 1 << 4
	FeatureShakeReject Feature = 1 << 5
)

// FeatureMask assembles the enabled-feature bitmask the DMP firmware's
// packet assembler reads to decide which fields appear in each FIFO packet.
func FeatureMask(features ...Feature) uint16 {
	var mask uint16
	for _, f := range features {
		mask |= uint16(f)
	}
	return mask
}

// FIFORateDivisor returns the DMP output-rate divider for a desired output
// rate in Hz. The DMP's internal sample rate is fixed at 200Hz; the
// divisor thins that down to rateHz. rateHz must evenly divide 200 and lie
// in (0, 200].
func FIFORateDivisor(rateHz int) (int, error) {
	if rateHz <= 0 || rateHz > 200 || 200%rateHz != 0 {
		return 0, fmt.Errorf("mpu9250/dmp: output rate %dHz must evenly divide 200", rateHz)
	}
	return 200/rateHz - 1, nil
}

// TapThresholdCounts converts a tap acceleration threshold given in mg into
// raw accelerometer LSBs at the given sensitivity (LSB/g).
func TapThresholdCounts(mg float64, accelSensitivityLSBPerG float64) uint16 {
	return uint16(mg / 1000.0 * accelSensitivityLSBPerG)
}

// TapTimeSamples converts a tap timing parameter given in milliseconds into
// a sample count at the DMP's fixed 200Hz internal rate.
func TapTimeSamples(ms int) uint16 {
	return uint16(ms * 200 / 1000)
}

// MountOrientation identifies one of the eight canonical axis-permutation
// mounting orientations the DMP's internal gyro-to-world remap supports.
type MountOrientation int

const (
	OrientationZUp MountOrientation = iota
	OrientationZDown
	OrientationXUp
	OrientationXDown
	OrientationYUp
	OrientationYDown
	OrientationXForward
	OrientationXBack
)

// matrices gives the signed 3x3 row-major axis-permutation matrix for each
// canonical mount orientation, following the convention used throughout the
// InvenSense/Kionix DMP driver family.
var matrices = map[MountOrientation][9]int8{
	OrientationZUp:       {1, 0, 0, 0, 1, 0, 0, 0, 1},
	OrientationZDown:     {-1, 0, 0, 0, 1, 0, 0, 0, -1},
	OrientationXUp:       {0, 0, -1, 0, 1, 0, 1, 0, 0},
	OrientationXDown:     {0, 0, 1, 0, 1, 0, -1, 0, 0},
	OrientationYUp:       {1, 0, 0, 0, 0, -1, 0, 1, 0},
	OrientationYDown:     {1, 0, 0, 0, 0, 1, 0, -1, 0},
	OrientationXForward:  {0, -1, 0, 1, 0, 0, 0, 0, 1},
	OrientationXBack:     {0, 1, 0, -1, 0, 0, 0, 0, 1},
}

// Matrix returns the row-major axis-permutation matrix for o.
func (o MountOrientation) Matrix() [9]int8 {
	return matrices[o]
}

// rowToScale encodes one row of a sign-permutation matrix into a 3-bit code:
// bit 2 set means negative, bits 1:0 identify which axis (0,1,2) holds the
// nonzero entry. A row with no nonzero entry encodes to 7 (invalid).
func rowToScale(row [3]int8) uint16 {
	switch {
	case row[0] > 0:
		return 0
	case row[0] < 0:
		return 4
	case row[1] > 0:
		return 1
	case row[1] < 0:
		return 5
	case row[2] > 0:
		return 2
	case row[2] < 0:
		return 6
	default:
		return 7
	}
}

// OrientationScalar packs o's axis-permutation matrix into the 9-bit scalar
// (3 bits per row) the DMP firmware expects for its internal gyro axis
// remap, following inv_orientation_matrix_to_scalar.
func (o MountOrientation) OrientationScalar() uint16 {
	m := matrices[o]
	r0 := [3]int8{m[0], m[1], m[2]}
	r1 := [3]int8{m[3], m[4], m[5]}
	r2 := [3]int8{m[6], m[7], m[8]}
	return rowToScale(r0) | rowToScale(r1)<<3 | rowToScale(r2)<<6
}

// RemapVector applies o's axis permutation to a body-frame vector, used to
// remap magnetometer samples (which bypass the DMP's internal gyro remap)
// into the same frame the DMP reports quaternions in.
//
// This is NOT the same permutation as the DMP's internal gyro remap
// (Matrix/OrientationScalar): the reference driver's mag_vec remap switch
// (__data_fusion) uses its own per-orientation assignment that disagrees in
// sign with the gyro orientation matrix for the four X-axis orientations.
func (o MountOrientation) RemapVector(v [3]float64) [3]float64 {
	x, y, z := v[0], v[1], v[2]
	switch o {
	case OrientationZUp:
		return [3]float64{x, y, z}
	case OrientationZDown:
		return [3]float64{-x, y, -z}
	case OrientationXUp:
		return [3]float64{z, y, x}
	case OrientationXDown:
		return [3]float64{-z, y, -x}
	case OrientationYUp:
		return [3]float64{x, -z, y}
	case OrientationYDown:
		return [3]float64{x, z, -y}
	case OrientationXForward:
		return [3]float64{y, -x, z}
	case OrientationXBack:
		return [3]float64{-y, x, z}
	default:
		return [3]float64{x, y, z}
	}
}
