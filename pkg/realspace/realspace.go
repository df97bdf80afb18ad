// Package realspace provides the 3D coordinate frames used by data sets and ROIs.
//
// A Frame is an origin plus three basis axes. Points expressed in a frame's
// local ("alt") coordinates are converted to the shared base (world) frame with
// AltToBase and back with BaseToAlt. Extents ("dimensions") are converted with
// the Dim variants, which ignore the origin and are always non-negative.
package realspace

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a position or extent in 3D space (x, y, z).
type Point = r3.Vec

// Axis indexes the three basis vectors of a Frame.
type Axis int

const (
	XAxis Axis = iota
	YAxis
	ZAxis
	NumAxes
)

func (a Axis) String() string {
	switch a {
	case XAxis:
		return "x"
	case YAxis:
		return "y"
	case ZAxis:
		return "z"
	default:
		return "invalid"
	}
}

// DegenerateEpsilon is the determinant magnitude below which BaseToAltStrict
// reports a frame as degenerate.
const DegenerateEpsilon = 1e-12

// ErrDegenerateFrame is returned when a frame's axes are (nearly) linearly dependent.
var ErrDegenerateFrame = errors.New("realspace: degenerate coordinate frame")

// Component returns the coordinate of p along axis a.
func Component(p Point, a Axis) float64 {
	switch a {
	case XAxis:
		return p.X
	case YAxis:
		return p.Y
	default:
		return p.Z
	}
}

// SetComponent returns p with the coordinate along a replaced by v.
func SetComponent(p Point, a Axis, v float64) Point {
	switch a {
	case XAxis:
		p.X = v
	case YAxis:
		p.Y = v
	default:
		p.Z = v
	}
	return p
}

// Abs returns p with every component made non-negative.
func Abs(p Point) Point {
	return Point{X: math.Abs(p.X), Y: math.Abs(p.Y), Z: math.Abs(p.Z)}
}

// Mul multiplies p and q component-wise.
func Mul(p, q Point) Point {
	return Point{X: p.X * q.X, Y: p.Y * q.Y, Z: p.Z * q.Z}
}

// Div divides p by q component-wise.
func Div(p, q Point) Point {
	return Point{X: p.X / q.X, Y: p.Y / q.Y, Z: p.Z / q.Z}
}

// Min returns the component-wise minimum of p and q.
func Min(p, q Point) Point {
	return Point{X: math.Min(p.X, q.X), Y: math.Min(p.Y, q.Y), Z: math.Min(p.Z, q.Z)}
}

// Max returns the component-wise maximum of p and q.
func Max(p, q Point) Point {
	return Point{X: math.Max(p.X, q.X), Y: math.Max(p.Y, q.Y), Z: math.Max(p.Z, q.Z)}
}

// Voxel addresses a cell of a dense grid. Frame and Gate select the time
// frame and gate of 4D/5D data and are ignored by purely spatial grids.
type Voxel struct {
	X, Y, Z     int
	Frame, Gate int
}

// Add returns the spatial sum of v and w, keeping v's frame and gate.
func (v Voxel) Add(w Voxel) Voxel {
	v.X += w.X
	v.Y += w.Y
	v.Z += w.Z
	return v
}

// Sub returns the spatial difference v - w, keeping v's frame and gate.
func (v Voxel) Sub(w Voxel) Voxel {
	v.X -= w.X
	v.Y -= w.Y
	v.Z -= w.Z
	return v
}

// InBounds reports whether the spatial part of v lies inside a grid of size dim.
func (v Voxel) InBounds(dim Voxel) bool {
	return v.X >= 0 && v.Y >= 0 && v.Z >= 0 && v.X < dim.X && v.Y < dim.Y && v.Z < dim.Z
}

// Count returns the number of spatial voxels in a grid of size v.
func (v Voxel) Count() int {
	if v.X <= 0 || v.Y <= 0 || v.Z <= 0 {
		return 0
	}
	return v.X * v.Y * v.Z
}

// Point returns the voxel's spatial indices as floats.
func (v Voxel) Point() Point {
	return Point{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Center returns the local-space center of voxel v in a grid of the given voxel size.
func (v Voxel) Center(voxelSize Point) Point {
	return Point{
		X: (float64(v.X) + 0.5) * voxelSize.X,
		Y: (float64(v.Y) + 0.5) * voxelSize.Y,
		Z: (float64(v.Z) + 0.5) * voxelSize.Z,
	}
}

// PointToVoxel returns the voxel of a grid with the given voxel size that
// contains the local point p.
func PointToVoxel(p, voxelSize Point) Voxel {
	return Voxel{
		X: int(math.Floor(p.X / voxelSize.X)),
		Y: int(math.Floor(p.Y / voxelSize.Y)),
		Z: int(math.Floor(p.Z / voxelSize.Z)),
	}
}

// RotateOnAxis rotates v by theta radians about the direction axis (Rodrigues).
// The axis does not need to be unit length. A zero axis returns v unchanged.
func RotateOnAxis(v, axis Point, theta float64) Point {
	n := r3.Norm(axis)
	if n == 0 {
		return v
	}
	u := r3.Scale(1/n, axis)

	c := math.Cos(theta)
	s := math.Sin(theta)
	t := 1 - c

	return Point{
		X: v.X*(c+t*u.X*u.X) +
			v.Y*(t*u.X*u.Y-s*u.Z) +
			v.Z*(t*u.X*u.Z+s*u.Y),
		Y: v.X*(t*u.X*u.Y+s*u.Z) +
			v.Y*(c+t*u.Y*u.Y) +
			v.Z*(t*u.Y*u.Z-s*u.X),
		Z: v.X*(t*u.X*u.Z-s*u.Y) +
			v.Y*(t*u.Y*u.Z+s*u.X) +
			v.Z*(c+t*u.Z*u.Z),
	}
}

// MakeOrthogonal applies Gram-Schmidt to axes in place. X is kept, Y is made
// orthogonal to X, and Z is made orthogonal to X and the corrected Y.
func MakeOrthogonal(axes *[3]Point) {
	x := axes[XAxis]
	xx := r3.Dot(x, x)
	if xx == 0 {
		return
	}

	y := r3.Sub(axes[YAxis], r3.Scale(r3.Dot(axes[YAxis], x)/xx, x))
	axes[YAxis] = y

	z := r3.Sub(axes[ZAxis], r3.Scale(r3.Dot(axes[ZAxis], x)/xx, x))
	if yy := r3.Dot(y, y); yy != 0 {
		z = r3.Sub(z, r3.Scale(r3.Dot(z, y)/yy, y))
	}
	axes[ZAxis] = z
}

// MakeOrthonormal makes axes orthogonal and then unit length, in place.
// Zero-length axes are left as they are.
func MakeOrthonormal(axes *[3]Point) {
	MakeOrthogonal(axes)
	for i := range axes {
		if l := math.Sqrt(r3.Dot(axes[i], axes[i])); l > 0 {
			axes[i] = r3.Scale(1/l, axes[i])
		}
	}
}
