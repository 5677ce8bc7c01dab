// Package filter implements ring-buffer-backed discrete SISO transfer
// function filters: H(z) = gain * num(z)/den(z), with soft-start saturation
// ramping and factory constructors for common shapes.
package filter

import (
	"errors"
	"fmt"
	"math"
)

// ErrImproperTransferFunction is returned when len(den) < len(num): the
// filter would not be causal.
var ErrImproperTransferFunction = errors.New("filter: len(den) must be >= len(num)")

// Filter is a discrete SISO IIR/FIR filter with state held in two ring
// buffers of length order = len(den)-1.
type Filter struct {
	gain float64
	num  []float64
	den  []float64
	dt   float64

	uHist []float64 // most recent first
	yHist []float64

	hasSat         bool
	satMin, satMax float64
	saturated      bool

	softStartSteps int
	stepCount      int
}

// New builds a filter from a transfer function gain*num(z)/den(z) sampled at
// period dt. len(den) must be >= len(num).
func New(gain float64, num, den []float64, dt float64) (*Filter, error) {
	if len(den) < len(num) {
		return nil, fmt.Errorf("%w: len(num)=%d len(den)=%d", ErrImproperTransferFunction, len(num), len(den))
	}
	order := len(den) - 1
	f := &Filter{
		gain: gain,
		num:  append([]float64(nil), num...),
		den:  append([]float64(nil), den...),
		dt:   dt,
	}
	f.uHist = make([]float64, order+1)
	f.yHist = make([]float64, order)
	return f, nil
}

// EnableSaturation clamps Step's output to [min, max] and exposes Saturated().
func (f *Filter) EnableSaturation(min, max float64) {
	f.hasSat = true
	f.satMin, f.satMax = min, max
}

// EnableSoftStart gradually widens the saturation clamp linearly from zero
// to its nominal width over the given number of steps following Reset.
func (f *Filter) EnableSoftStart(steps int) {
	f.softStartSteps = steps
}

// Reset clears filter state and restarts any soft-start ramp.
func (f *Filter) Reset() {
	for i := range f.uHist {
		f.uHist[i] = 0
	}
	for i := range f.yHist {
		f.yHist[i] = 0
	}
	f.stepCount = 0
	f.saturated = false
}

// Prefill sets the filter's entire history to a constant value v, avoiding a
// startup transient when the incoming signal is already known.
func (f *Filter) Prefill(v float64) {
	for i := range f.uHist {
		f.uHist[i] = v
	}
	for i := range f.yHist {
		f.yHist[i] = v
	}
}

// Saturated reports whether the most recent Step clamped its output.
func (f *Filter) Saturated() bool { return f.saturated }

// Step advances the filter by one sample and returns y[n].
func (f *Filter) Step(u float64) float64 {
	copy(f.uHist[1:], f.uHist[:len(f.uHist)-1])
	f.uHist[0] = u

	var num float64
	for i, c := range f.num {
		num += c * f.uHist[i]
	}
	var denTail float64
	for i := 1; i < len(f.den); i++ {
		denTail += f.den[i] * f.yHist[i-1]
	}
	y := f.gain*num - denTail
	y /= f.den[0]

	f.saturated = false
	if f.hasSat {
		lo, hi := f.satMin, f.satMax
		if f.stepCount < f.softStartSteps {
			frac := float64(f.stepCount+1) / float64(f.softStartSteps)
			lo *= frac
			hi *= frac
		}
		if y < lo {
			y = lo
			f.saturated = true
		} else if y > hi {
			y = hi
			f.saturated = true
		}
	}

	if len(f.yHist) > 0 {
		copy(f.yHist[1:], f.yHist[:len(f.yHist)-1])
		f.yHist[0] = y
	}
	f.stepCount++
	return y
}

// LowPass builds a first-order low-pass filter with time constant tau
// (seconds), discretized via the matched-pole (exponential) method.
func LowPass(tau, dt float64) (*Filter, error) {
	alpha := math.Exp(-dt / tau)
	return New(1, []float64{1 - alpha}, []float64{1, -alpha}, dt)
}

// HighPass builds a first-order high-pass filter with time constant tau,
// complementary to LowPass (their outputs sum to the original signal when
// driven by the same input and prefilled to match).
func HighPass(tau, dt float64) (*Filter, error) {
	alpha := math.Exp(-dt / tau)
	return New(1, []float64{alpha, -alpha}, []float64{1, -alpha}, dt)
}

// Integrator builds a discrete-time trapezoidal integrator.
func Integrator(dt float64) (*Filter, error) {
	return New(1, []float64{dt / 2, dt / 2}, []float64{1, -1}, dt)
}

// DoubleIntegrator builds a cascade-equivalent double integrator as a single
// second-order transfer function.
func DoubleIntegrator(dt float64) (*Filter, error) {
	return New(1, []float64{dt * dt / 4, dt * dt / 2, dt * dt / 4}, []float64{1, -2, 1}, dt)
}

// MovingAverage builds an N-tap FIR moving-average filter.
func MovingAverage(n int, dt float64) (*Filter, error) {
	if n < 1 {
		return nil, fmt.Errorf("filter: MovingAverage window must be >= 1, got %d", n)
	}
	num := make([]float64, n)
	for i := range num {
		num[i] = 1.0 / float64(n)
	}
	den := make([]float64, n)
	den[0] = 1
	return New(1, num, den, dt)
}

// Butterworth builds an order-n low-pass Butterworth filter with cutoff
// frequency fc (Hz), discretized via Tustin's method with frequency
// pre-warping.
func Butterworth(order int, fc, dt float64) (*Filter, error) {
	if order < 1 {
		return nil, fmt.Errorf("filter: Butterworth order must be >= 1, got %d", order)
	}
	wc := 2 / dt * math.Tan(math.Pi*fc*dt) // pre-warped cutoff
	// Build the continuous-time Butterworth denominator via its poles, then
	// apply Tustin's substitution s = 2/dt * (z-1)/(z+1) pole-by-pole,
	// accumulating the resulting first/second order discrete sections.
	num := []float64{1}
	den := []float64{1}
	remaining := order
	k := 0
	for remaining > 0 {
		if remaining >= 2 {
			theta := math.Pi * (2*float64(k) + 1) / (2 * float64(order))
			// continuous 2nd-order section: s^2 + 2*wc*sin(theta)*s + wc^2
			a2, a1, a0 := 1.0, 2*wc*math.Sin(theta), wc*wc
			dNum, dDen := tustinSecondOrder(a2, a1, a0, wc, dt)
			num = polyMul(num, dNum)
			den = polyMul(den, dDen)
			remaining -= 2
			k++
		} else {
			// continuous 1st-order section: s + wc
			dNum, dDen := tustinFirstOrder(wc, dt)
			num = polyMul(num, dNum)
			den = polyMul(den, dDen)
			remaining--
		}
	}
	// normalize so the filter has unity DC gain
	var numSum, denSum float64
	for _, v := range num {
		numSum += v
	}
	for _, v := range den {
		denSum += v
	}
	gain := denSum / numSum
	return New(gain, num, den, dt)
}

func tustinFirstOrder(wc, dt float64) (num, den []float64) {
	c := 2 / dt
	// H(s) = wc / (s + wc); s -> c*(z-1)/(z+1)
	// denominator: (c+wc) + (wc-c) z^-1  ; numerator: wc*(1+z^-1)
	return []float64{wc, wc}, []float64{c + wc, wc - c}
}

func tustinSecondOrder(a2, a1, a0, wc, dt float64) (num, den []float64) {
	c := 2 / dt
	// H(s) = wc^2 / (a2 s^2 + a1 s + a0); s -> c*(z-1)/(z+1)
	d0 := a2*c*c + a1*c + a0
	d1 := -2*a2*c*c + 2*a0
	d2 := a2*c*c - a1*c + a0
	n := wc * wc
	return []float64{n, 2 * n, n}, []float64{d0, d1, d2}
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// PID builds a parallel PID controller with a first-order derivative
// rolloff time constant Tf, required to exceed dt/2 so the derivative term
// remains well-conditioned at the sample rate.
func PID(kp, ki, kd, tf, dt float64) (*Filter, error) {
	if tf <= dt/2 {
		return nil, fmt.Errorf("filter: PID rolloff Tf=%v must exceed dt/2=%v", tf, dt/2)
	}
	// Parallel form discretized with Tustin on each term, combined into one
	// second-order transfer function over a common denominator (1 + s*Tf).
	c := 2 / dt
	// P: kp ; I: ki/s -> ki*dt/2*(1+z^-1)/(1-z^-1) ; D: kd*s/(1+Tf*s)
	// Combine via a common denominator (1-z^-1)(c*Tf+1 + (c*Tf-1) is the
	// high-frequency rolloff pole); build num/den directly in z-domain.
	denI := []float64{1, -1}
	denD := []float64{c*tf + 1, 1 - c*tf}
	den := polyMul(denI, denD)

	pNum := polyMul([]float64{kp}, den)
	iNum := polyMul([]float64{ki * dt / 2, ki * dt / 2}, denD)
	dNum := polyMul([]float64{kd * c, -kd * c}, denI)

	num := make([]float64, len(den))
	copy(num, pNum)
	for i, v := range iNum {
		num[i] += v
	}
	for i, v := range dNum {
		num[i] += v
	}
	return New(1, num, den, dt)
}
