package algebra

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewPoints is returned by FitEllipsoid when fewer than 6 points are
// supplied; the 6-parameter design matrix is otherwise underdetermined.
var ErrTooFewPoints = errors.New("algebra: ellipsoid fit needs at least 6 points")

// FitEllipsoid fits an axis-aligned ellipsoid to pts (each row [x y z]) by
// least squares, returning its center and axis half-lengths.
//
// The design matrix is [x² x y² y z² z]; solving A*f=1 in the least-squares
// sense, the center is c_k = -f_{2k+1}/(2 f_{2k}) and the half-lengths come
// from a second, small linear solve recovering 1/ℓ_k² from f and c.
func FitEllipsoid(pts Matrix) (center, lengths Vector, err error) {
	if pts.Cols != 3 {
		return Vector{}, Vector{}, fmt.Errorf("algebra: FitEllipsoid requires 3 columns, got %d", pts.Cols)
	}
	p := pts.Rows
	if p < 6 {
		return Vector{}, Vector{}, ErrTooFewPoints
	}

	b := Ones(p)
	a := NewMatrix(p, 6)
	for i := 0; i < p; i++ {
		x, y, z := pts.D[i][0], pts.D[i][1], pts.D[i][2]
		a.D[i][0] = x * x
		a.D[i][1] = x
		a.D[i][2] = y * y
		a.D[i][3] = y
		a.D[i][4] = z * z
		a.D[i][5] = z
	}
	f, err := SolveQR(a, b)
	if err != nil {
		return Vector{}, Vector{}, fmt.Errorf("algebra: ellipsoid fit QR solve: %w", err)
	}

	center = NewVector(3)
	center.D[0] = -f.D[1] / (2.0 * f.D[0])
	center.D[1] = -f.D[3] / (2.0 * f.D[2])
	center.D[2] = -f.D[5] / (2.0 * f.D[4])

	bb := NewVector(3)
	aa := NewMatrix(3, 3)
	aa.D[0][0] = f.D[0]*center.D[0]*center.D[0] + 1.0
	aa.D[0][1] = f.D[0] * center.D[1] * center.D[1]
	aa.D[0][2] = f.D[0] * center.D[2] * center.D[2]
	aa.D[1][0] = f.D[2] * center.D[0] * center.D[0]
	aa.D[1][1] = f.D[2]*center.D[1]*center.D[1] + 1.0
	aa.D[1][2] = f.D[2] * center.D[2] * center.D[2]
	aa.D[2][0] = f.D[4] * center.D[0] * center.D[0]
	aa.D[2][1] = f.D[4] * center.D[1] * center.D[1]
	aa.D[2][2] = f.D[4]*center.D[2]*center.D[2] + 1.0
	bb.D[0] = f.D[0]
	bb.D[1] = f.D[2]
	bb.D[2] = f.D[4]

	lens, err := Solve(aa, bb)
	if err != nil {
		return Vector{}, Vector{}, fmt.Errorf("algebra: ellipsoid fit length solve: %w", err)
	}
	lengths = NewVector(3)
	for i := 0; i < 3; i++ {
		lengths.D[i] = 1.0 / math.Sqrt(lens.D[i])
	}
	return center, lengths, nil
}
