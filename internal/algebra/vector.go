// Package algebra provides dense vector/matrix primitives sized at runtime:
// LU/QR decomposition, linear solves, and the least-squares ellipsoid fit
// used by magnetometer calibration.
package algebra

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when operand shapes are incompatible.
var ErrDimensionMismatch = errors.New("algebra: dimension mismatch")

// ErrNotSquare is returned by operations requiring a square matrix.
var ErrNotSquare = errors.New("algebra: matrix is not square")

// ErrSingular is returned when a matrix is singular or not full rank to
// within the configured zero tolerance.
var ErrSingular = errors.New("algebra: matrix is singular or not full rank")

// Vector is a dense, runtime-sized column of float64 values.
type Vector struct {
	D []float64
}

// NewVector allocates a zeroed vector of length n.
func NewVector(n int) Vector {
	return Vector{D: make([]float64, n)}
}

// Ones returns a vector of length n filled with 1.0.
func Ones(n int) Vector {
	v := NewVector(n)
	for i := range v.D {
		v.D[i] = 1.0
	}
	return v
}

// Len returns the vector's length.
func (v Vector) Len() int { return len(v.D) }

// Duplicate returns an independent copy.
func (v Vector) Duplicate() Vector {
	out := NewVector(len(v.D))
	copy(out.D, v.D)
	return out
}

// StdDev returns the population standard deviation of v.
func (v Vector) StdDev() float64 {
	n := len(v.D)
	if n == 0 {
		return 0
	}
	var mean float64
	for _, x := range v.D {
		mean += x
	}
	mean /= float64(n)
	var ss float64
	for _, x := range v.D {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// Mean returns the arithmetic mean of v.
func (v Vector) Mean() float64 {
	if len(v.D) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v.D {
		sum += x
	}
	return sum / float64(len(v.D))
}

// Dot computes the inner product of v and w as one contiguous
// multiply-accumulate loop.
func (v Vector) Dot(w Vector) (float64, error) {
	if len(v.D) != len(w.D) {
		return 0, fmt.Errorf("%w: dot(%d,%d)", ErrDimensionMismatch, len(v.D), len(w.D))
	}
	var sum float64
	for i := range v.D {
		sum += v.D[i] * w.D[i]
	}
	return sum, nil
}
