// Package fifo runs the interrupt-driven FIFO read loop: one goroutine per
// IMU, parked on a dedicated OS thread, blocking on the GPIO data-ready
// line and emitting parsed DMP packets paired with periodic magnetometer
// samples (C7).
package fifo

import (
	"context"
	"runtime"
	"sync"

	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
	"github.com/relabs-tech/mpu9250dmp/internal/gpioline"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
)

// Sample is one fused hardware tick: a DMP packet plus, on ticks where the
// magnetometer cadence fires, a remapped magnetometer reading.
type Sample struct {
	Packet dmp.Packet

	HasMag  bool
	MagX    float64
	MagY    float64
	MagZ    float64
	MagErr  error // non-nil when a cadence mag read failed (HasMag true) or the FIFO count/read failed (HasMag false, no packet)
}

// Reader owns the interrupt loop for a single IMU.
type Reader struct {
	dev       *mpu9250.Device
	mag       *mpu9250.Magnetometer
	line      *gpioline.Line
	mask      uint16
	packetLen int

	magSampleDiv int // read magnetometer every Nth tick
	orientation  dmp.MountOrientation

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Sample
	closed  bool

	onSample func(Sample)
}

// New constructs a Reader. magSampleDiv must be >= 1; the magnetometer is
// read on every magSampleDiv'th DMP tick.
func New(dev *mpu9250.Device, mag *mpu9250.Magnetometer, line *gpioline.Line, mask uint16, orientation dmp.MountOrientation, magSampleDiv int) *Reader {
	if magSampleDiv < 1 {
		magSampleDiv = 1
	}
	r := &Reader{
		dev:          dev,
		mag:          mag,
		line:         line,
		mask:         mask,
		packetLen:    dmp.PacketLength(mask),
		magSampleDiv: magSampleDiv,
		orientation:  orientation,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// OnSample registers a callback invoked synchronously from the reader's
// dedicated goroutine for every emitted Sample. It must not block.
func (r *Reader) OnSample(fn func(Sample)) {
	r.onSample = fn
}

// Run pins the calling goroutine to its OS thread (the kernel schedules
// interrupt-driven I2C transactions best when they are not bounced across
// cores) and blocks until ctx is cancelled, reading and parsing FIFO
// packets as the data-ready line fires.
func (r *Reader) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tick := 0
	for {
		if err := r.line.WaitEdge(ctx); err != nil {
			return err
		}

		n, err := r.dev.FIFOCount()
		if err != nil {
			r.deliver(Sample{MagErr: err})
			continue
		}

		packets, offset, err := dmp.ClassifyFIFOCount(n, r.packetLen)
		if err != nil {
			// Desync: drop whatever is queued and resynchronize.
			_ = r.dev.ResetFIFOAndDMP()
			_ = r.dev.EnableDMP(true)
			continue
		}
		if packets == 0 {
			continue
		}

		raw, err := r.dev.ReadFIFO(n)
		if err != nil {
			r.deliver(Sample{MagErr: err})
			continue
		}
		// The full fifo_count bytes must be drained off the hardware
		// register regardless of the classified offset, or the next
		// FIFOCount() comes back non-aligned to packetLen and desyncs.
		// offset is then purely a parse-time index into raw, clamped to
		// the buffer's last packetLen bytes for the 1x case (whose
		// offset, packetLen, overruns a packetLen-sized buffer).
		start := offset
		if start > len(raw)-r.packetLen {
			start = len(raw) - r.packetLen
		}
		pktRaw := raw[start : start+r.packetLen]

		pkt, err := dmp.ParsePacket(pktRaw, r.mask)
		if err != nil {
			_ = r.dev.ResetFIFOAndDMP()
			_ = r.dev.EnableDMP(true)
			continue
		}

		sample := Sample{Packet: pkt}
		tick++
		if tick%r.magSampleDiv == 0 {
			sample.HasMag = true
			x, y, z, _, merr := r.mag.Read()
			if merr != nil {
				sample.MagErr = merr
			} else {
				bx, by, bz := mpu9250.RemapToBodyFrame(float64(x), float64(y), float64(z))
				out := r.orientation.RemapVector([3]float64{bx, by, bz})
				sample.MagX, sample.MagY, sample.MagZ = out[0], out[1], out[2]
			}
		}

		r.deliver(sample)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (r *Reader) deliver(s Sample) {
	if r.onSample != nil {
		r.onSample(s)
		return
	}
	r.mu.Lock()
	r.pending = append(r.pending, s)
	r.cond.Signal()
	r.mu.Unlock()
}

// Next blocks until a sample is available or ctx is done. It is the
// polling-free alternative to OnSample for callers that prefer a pull API;
// the two are mutually exclusive (OnSample takes priority if both are used).
func (r *Reader) Next(ctx context.Context) (Sample, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.cond.Broadcast()
			r.mu.Unlock()
		case <-done:
		}
	}()

	r.mu.Lock()
	for len(r.pending) == 0 && !r.closed {
		if ctx.Err() != nil {
			r.mu.Unlock()
			close(done)
			return Sample{}, ctx.Err()
		}
		r.cond.Wait()
	}
	var s Sample
	if len(r.pending) > 0 {
		s = r.pending[0]
		r.pending = r.pending[1:]
	}
	r.mu.Unlock()
	close(done)
	return s, nil
}

// Close unblocks any goroutine parked in Next.
func (r *Reader) Close() {
	r.mu.Lock()
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()
}
