package fusion

import (
	"math"
	"testing"

	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
	"github.com/relabs-tech/mpu9250dmp/internal/quaternion"
)

func TestNewBuildsFilterPair(t *testing.T) {
	f, err := New(dmp.OrientationZUp, 1.0, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.lowPassMag == nil || f.highPassGyro == nil {
		t.Fatal("New did not construct both filter legs")
	}
}

func TestStepIdentityNoMag(t *testing.T) {
	f, err := New(dmp.OrientationZUp, 1.0, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pose := f.Step(quaternion.Identity(), [3]float64{}, false)
	if math.Abs(pose.TaitBryan.YawZ) > 1e-6 {
		t.Errorf("YawZ = %v, want ~0 for identity quaternion", pose.TaitBryan.YawZ)
	}
}

func TestStepConvergesTowardMagYaw(t *testing.T) {
	f, err := New(dmp.OrientationZUp, 0.05, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Constant north-pointing mag reading (body X axis) with a constant
	// identity DMP quaternion; after enough steps the fused yaw should
	// settle near zero (mag says heading 0, gyro integration contributes 0).
	var pose Pose
	for i := 0; i < 2000; i++ {
		pose = f.Step(quaternion.Identity(), [3]float64{1, 0, 0}, true)
	}
	if math.Abs(pose.TaitBryan.YawZ) > 0.05 {
		t.Errorf("fused yaw = %v, want near 0 after settling", pose.TaitBryan.YawZ)
	}
}

func TestStepHandlesMissingMagSamples(t *testing.T) {
	f, err := New(dmp.OrientationZUp, 0.1, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// No mag ever arrives; Step must not panic or diverge to NaN.
	var pose Pose
	for i := 0; i < 50; i++ {
		pose = f.Step(quaternion.Identity(), [3]float64{}, false)
	}
	if math.IsNaN(pose.TaitBryan.YawZ) {
		t.Fatal("fused yaw is NaN with no mag samples")
	}
}
