package dmp

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
	"github.com/relabs-tech/mpu9250dmp/internal/quaternion"
)

// qQuat is the Q30 fixed-point scale the DMP reports quaternion components
// in; quatMinSq/quatMaxSq bound the squared magnitude in Q28.
const (
	qQuat      = 1 << 30
	quatMinSq  = (1 << 28) - (1 << 16)
	quatMaxSq  = (1 << 28) + (1 << 16)
)

// Packet is one parsed FIFO record. Which fields are populated depends on
// which Feature flags were enabled: Quat is always present when
// FeatureSendQuat is set; Accel/Gyro only when their raw-feature flags are
// set; Tap only on a tap event.
type Packet struct {
	Quat      quaternion.Quaternion
	HasAccel  bool
	Accel     [3]int16
	HasGyro   bool
	Gyro      [3]int16
	HasTap    bool
	TapAxis   int // 0=X,1=Y,2=Z
	TapDir    int // +1 or -1
	TapCount  int
}

// PacketLength returns the byte length of one FIFO packet for the given
// feature mask: 16 bytes for the quaternion, +6 for accel, +6 for gyro, +4
// for tap (16-bit tap word plus 2 reserved/interrupt-source bytes),
// following the DMP's fixed field ordering (quat, accel, gyro, tap).
func PacketLength(mask uint16) int {
	n := 0
	if mask&uint16(FeatureSendQuat) != 0 {
		n += 16
	}
	if mask&uint16(FeatureRawAccel) != 0 {
		n += 6
	}
	if mask&uint16(FeatureRawGyro) != 0 || mask&uint16(FeatureCalGyro) != 0 {
		n += 6
	}
	if mask&uint16(FeatureTap) != 0 {
		n += 4
	}
	return n
}

// ClassifyFIFOCount maps a raw FIFO byte count and the configured packet
// length to a packet count and the byte offset of the packet to parse: the
// last packet for 2x and 3x, the second-last for 4x and 5x. For 1x the
// offset is packetLen, one past the only packet; the FIFO reader clamps it
// back onto that packet.
func ClassifyFIFOCount(fifoBytes, packetLen int) (packets int, offset int, err error) {
	if packetLen <= 0 {
		return 0, 0, fmt.Errorf("mpu9250/dmp: packet length must be > 0")
	}
	if fifoBytes == 0 {
		return 0, 0, nil
	}
	switch {
	case fifoBytes == packetLen:
		return 1, packetLen, nil
	case fifoBytes == 2*packetLen:
		return 2, packetLen, nil
	case fifoBytes == 3*packetLen:
		return 1, 2 * packetLen, nil
	case fifoBytes == 4*packetLen:
		return 1, 2 * packetLen, nil
	case fifoBytes == 5*packetLen:
		return 1, 3 * packetLen, nil
	default:
		return 0, 0, mpu9250err.ErrFifoDesync
	}
}

// ParsePacket decodes one packetLen-byte FIFO record according to mask. The
// quaternion is read as four big-endian Q30 components (W, X, Y, Z) and
// rejected with ErrFifoDesync when its magnitude fails the bounds check.
// A tap is reported whenever the low six bits of the tap byte are non-zero;
// the tap-source byte (raw[i+1] of the tap field) is not examined.
func ParsePacket(raw []byte, mask uint16) (Packet, error) {
	var pkt Packet
	i := 0

	if mask&uint16(FeatureSendQuat) != 0 {
		if len(raw) < i+16 {
			return pkt, mpu9250err.ErrFifoDesync
		}
		w := int32(binary.BigEndian.Uint32(raw[i : i+4]))
		x := int32(binary.BigEndian.Uint32(raw[i+4 : i+8]))
		y := int32(binary.BigEndian.Uint32(raw[i+8 : i+12]))
		z := int32(binary.BigEndian.Uint32(raw[i+12 : i+16]))
		i += 16

		if !quatMagnitudeValid(w, x, y, z) {
			return pkt, mpu9250err.ErrFifoDesync
		}

		pkt.Quat = quaternion.Quaternion{
			float64(w) / qQuat,
			float64(x) / qQuat,
			float64(y) / qQuat,
			float64(z) / qQuat,
		}.Normalized()
	}

	if mask&uint16(FeatureRawAccel) != 0 {
		if len(raw) < i+6 {
			return pkt, mpu9250err.ErrFifoDesync
		}
		pkt.HasAccel = true
		pkt.Accel[0] = int16(binary.BigEndian.Uint16(raw[i : i+2]))
		pkt.Accel[1] = int16(binary.BigEndian.Uint16(raw[i+2 : i+4]))
		pkt.Accel[2] = int16(binary.BigEndian.Uint16(raw[i+4 : i+6]))
		i += 6
	}

	if mask&uint16(FeatureRawGyro) != 0 || mask&uint16(FeatureCalGyro) != 0 {
		if len(raw) < i+6 {
			return pkt, mpu9250err.ErrFifoDesync
		}
		pkt.HasGyro = true
		pkt.Gyro[0] = int16(binary.BigEndian.Uint16(raw[i : i+2]))
		pkt.Gyro[1] = int16(binary.BigEndian.Uint16(raw[i+2 : i+4]))
		pkt.Gyro[2] = int16(binary.BigEndian.Uint16(raw[i+4 : i+6]))
		i += 6
	}

	if mask&uint16(FeatureTap) != 0 {
		if len(raw) < i+4 {
			return pkt, mpu9250err.ErrFifoDesync
		}
		tap := raw[i+3] & 0x3F
		if tap != 0 {
			pkt.HasTap = true
			direction := tap >> 3
			count := int(tap%8) + 1
			// direction codes 1..6 are +X,-X,+Y,-Y,+Z,-Z
			pkt.TapAxis = (int(direction) - 1) / 2
			if direction%2 == 1 {
				pkt.TapDir = 1
			} else {
				pkt.TapDir = -1
			}
			pkt.TapCount = count
		}
		i += 4
	}

	return pkt, nil
}

// quatMagnitudeValid reports whether a Q30 quaternion's squared magnitude
// (scaled to Q28) falls within the firmware's documented valid band; a
// failure marks the packet as desynchronized in ParsePacket.
func quatMagnitudeValid(w, x, y, z int32) bool {
	magSq := (float64(w)/qQuat)*(float64(w)/qQuat)*float64(int64(1)<<28) +
		(float64(x)/qQuat)*(float64(x)/qQuat)*float64(int64(1)<<28) +
		(float64(y)/qQuat)*(float64(y)/qQuat)*float64(int64(1)<<28) +
		(float64(z)/qQuat)*(float64(z)/qQuat)*float64(int64(1)<<28)
	return magSq >= quatMinSq && magSq <= quatMaxSq && !math.IsNaN(magSq)
}
