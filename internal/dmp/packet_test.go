package dmp

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

func encodeQuatPacket(w, x, y, z int32) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], uint32(w))
	binary.BigEndian.PutUint32(buf[4:8], uint32(x))
	binary.BigEndian.PutUint32(buf[8:12], uint32(y))
	binary.BigEndian.PutUint32(buf[12:16], uint32(z))
	return buf
}

func TestPacketLength(t *testing.T) {
	mask := FeatureMask(FeatureSendQuat, FeatureRawAccel, FeatureRawGyro, FeatureTap)
	if got := PacketLength(mask); got != 16+6+6+4 {
		t.Errorf("PacketLength = %d, want 32", got)
	}
	if got := PacketLength(FeatureMask(FeatureSendQuat)); got != 16 {
		t.Errorf("PacketLength(quat only) = %d, want 16", got)
	}
}

func TestClassifyFIFOCount(t *testing.T) {
	packetLen := 16
	tests := []struct {
		bytes       int
		wantPackets int
		wantOffset  int
		wantErr     bool
	}{
		{0, 0, 0, false},
		{16, 1, 16, false},
		{32, 2, 16, false},
		{48, 1, 32, false},
		{64, 1, 32, false},
		{80, 1, 48, false},
		{15, 0, 0, true},
		{100, 0, 0, true},
	}
	for _, tt := range tests {
		packets, offset, err := ClassifyFIFOCount(tt.bytes, packetLen)
		if tt.wantErr {
			if !errors.Is(err, mpu9250err.ErrFifoDesync) {
				t.Errorf("ClassifyFIFOCount(%d): expected ErrFifoDesync, got %v", tt.bytes, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ClassifyFIFOCount(%d): unexpected error %v", tt.bytes, err)
		}
		if packets != tt.wantPackets || offset != tt.wantOffset {
			t.Errorf("ClassifyFIFOCount(%d) = (%d,%d), want (%d,%d)", tt.bytes, packets, offset, tt.wantPackets, tt.wantOffset)
		}
	}
}

func TestClassifyFIFOCountZeroPacketLen(t *testing.T) {
	if _, _, err := ClassifyFIFOCount(16, 0); err == nil {
		t.Fatal("expected error for packetLen=0")
	}
}

func TestParsePacketQuatValid(t *testing.T) {
	// w dominant, near-identity rotation: magnitude near full scale
	raw := encodeQuatPacket(1<<30, 0, 0, 0)
	pkt, err := ParsePacket(raw, FeatureMask(FeatureSendQuat))
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if pkt.Quat[0] < 0.99 {
		t.Errorf("Quat[0] = %v, want ~1.0", pkt.Quat[0])
	}
}

func TestParsePacketQuatInvalidMagnitude(t *testing.T) {
	// all-zero quaternion has magnitude 0, well outside the valid band
	raw := encodeQuatPacket(0, 0, 0, 0)
	_, err := ParsePacket(raw, FeatureMask(FeatureSendQuat))
	if !errors.Is(err, mpu9250err.ErrFifoDesync) {
		t.Fatalf("expected ErrFifoDesync for zero quaternion, got %v", err)
	}
}

func TestParsePacketTruncated(t *testing.T) {
	raw := make([]byte, 8)
	_, err := ParsePacket(raw, FeatureMask(FeatureSendQuat))
	if !errors.Is(err, mpu9250err.ErrFifoDesync) {
		t.Fatalf("expected ErrFifoDesync for truncated packet, got %v", err)
	}
}

func TestParsePacketAccelGyro(t *testing.T) {
	mask := FeatureMask(FeatureRawAccel, FeatureRawGyro)
	raw := make([]byte, 12)
	binary.BigEndian.PutUint16(raw[0:2], uint16(int16(-100)))
	binary.BigEndian.PutUint16(raw[2:4], uint16(int16(200)))
	binary.BigEndian.PutUint16(raw[4:6], uint16(int16(300)))
	binary.BigEndian.PutUint16(raw[6:8], uint16(int16(1)))
	binary.BigEndian.PutUint16(raw[8:10], uint16(int16(2)))
	binary.BigEndian.PutUint16(raw[10:12], uint16(int16(3)))

	pkt, err := ParsePacket(raw, mask)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if !pkt.HasAccel || pkt.Accel != [3]int16{-100, 200, 300} {
		t.Errorf("Accel = %v, want [-100 200 300]", pkt.Accel)
	}
	if !pkt.HasGyro || pkt.Gyro != [3]int16{1, 2, 3} {
		t.Errorf("Gyro = %v, want [1 2 3]", pkt.Gyro)
	}
}

func TestParsePacketTap(t *testing.T) {
	mask := FeatureMask(FeatureTap)
	raw := make([]byte, 4)
	// direction=1 (X+), count=1: tap byte = (1<<3)|0 = 0x08
	raw[3] = 0x08
	pkt, err := ParsePacket(raw, mask)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if !pkt.HasTap {
		t.Fatal("expected HasTap true")
	}
	if pkt.TapAxis != 0 || pkt.TapDir != 1 {
		t.Errorf("TapAxis=%d TapDir=%d, want axis=0 dir=1", pkt.TapAxis, pkt.TapDir)
	}
}

func TestParsePacketNoTapWhenZero(t *testing.T) {
	mask := FeatureMask(FeatureTap)
	raw := make([]byte, 4)
	pkt, err := ParsePacket(raw, mask)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if pkt.HasTap {
		t.Error("expected HasTap false for zero tap byte")
	}
}
