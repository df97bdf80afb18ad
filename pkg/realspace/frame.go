package realspace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"amideroi/internal/logging"
)

// Frame is an affine coordinate frame: an origin in base space plus three
// basis axes. Axes are unit length only right after orthonormalization; data
// set frames may carry scaled axes on purpose.
type Frame struct {
	Offset Point
	Axes   [3]Point
}

// Identity returns the base frame.
func Identity() Frame {
	return Frame{
		Axes: [3]Point{
			{X: 1},
			{Y: 1},
			{Z: 1},
		},
	}
}

// NewFrame returns a frame with the given origin and axes.
func NewFrame(offset Point, axes [3]Point) Frame {
	return Frame{Offset: offset, Axes: axes}
}

// Translated returns the identity orientation placed at offset.
func Translated(offset Point) Frame {
	f := Identity()
	f.Offset = offset
	return f
}

// Axis returns the basis vector for a.
func (f Frame) Axis(a Axis) Point {
	return f.Axes[a]
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("offset=(%g,%g,%g) x=(%g,%g,%g) y=(%g,%g,%g) z=(%g,%g,%g)",
		f.Offset.X, f.Offset.Y, f.Offset.Z,
		f.Axes[0].X, f.Axes[0].Y, f.Axes[0].Z,
		f.Axes[1].X, f.Axes[1].Y, f.Axes[1].Z,
		f.Axes[2].X, f.Axes[2].Y, f.Axes[2].Z)
}

// Matrix returns the 3x3 axis matrix with the axes as columns.
func (f Frame) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		f.Axes[0].X, f.Axes[1].X, f.Axes[2].X,
		f.Axes[0].Y, f.Axes[1].Y, f.Axes[2].Y,
		f.Axes[0].Z, f.Axes[1].Z, f.Axes[2].Z,
	})
}

// Determinant returns det of the axis matrix, a·(b×c).
func (f Frame) Determinant() float64 {
	return r3.Dot(f.Axes[0], r3.Cross(f.Axes[1], f.Axes[2]))
}

// Orthonormalize re-orthonormalizes the frame's axes in place.
func (f *Frame) Orthonormalize() {
	MakeOrthonormal(&f.Axes)
}

// Rotate rotates the frame by theta radians about the base-space direction
// axis passing through pivot, then re-orthonormalizes the axes.
func (f *Frame) Rotate(axis Point, theta float64, pivot Point) {
	for i := range f.Axes {
		f.Axes[i] = RotateOnAxis(f.Axes[i], axis, theta)
	}
	f.Offset = r3.Add(pivot, RotateOnAxis(r3.Sub(f.Offset, pivot), axis, theta))
	f.Orthonormalize()
}

// Shift moves the frame origin by delta, expressed in base coordinates.
func (f *Frame) Shift(delta Point) {
	f.Offset = r3.Add(f.Offset, delta)
}

// AltToBase converts a point in f's local coordinates to base coordinates.
func AltToBase(p Point, f Frame) Point {
	return r3.Add(f.Offset, vectorToBase(p, f))
}

func vectorToBase(p Point, f Frame) Point {
	return Point{
		X: p.X*f.Axes[0].X + p.Y*f.Axes[1].X + p.Z*f.Axes[2].X,
		Y: p.X*f.Axes[0].Y + p.Y*f.Axes[1].Y + p.Z*f.Axes[2].Y,
		Z: p.X*f.Axes[0].Z + p.Y*f.Axes[1].Z + p.Z*f.Axes[2].Z,
	}
}

// cramer solves axes * r = v by cofactor expansion. ok is false when the
// determinant is NaN or zero; in that case the determinant is taken as 1 and
// NaN numerators as 0, so the result is always finite for finite input.
func cramer(v Point, f Frame) (r Point, det float64, ok bool) {
	a, b, c := f.Axes[0], f.Axes[1], f.Axes[2]

	det = a.X*(b.Y*c.Z-c.Y*b.Z) -
		b.X*(a.Y*c.Z-c.Y*a.Z) +
		c.X*(a.Y*b.Z-b.Y*a.Z)

	nx := v.X*(b.Y*c.Z-c.Y*b.Z) -
		b.X*(v.Y*c.Z-c.Y*v.Z) +
		c.X*(v.Y*b.Z-b.Y*v.Z)
	ny := a.X*(v.Y*c.Z-c.Y*v.Z) -
		v.X*(a.Y*c.Z-c.Y*a.Z) +
		c.X*(a.Y*v.Z-v.Y*a.Z)
	nz := a.X*(b.Y*v.Z-v.Y*b.Z) -
		b.X*(a.Y*v.Z-v.Y*a.Z) +
		v.X*(a.Y*b.Z-b.Y*a.Z)

	ok = !math.IsNaN(det) && det != 0
	if !ok {
		det = 1
	}
	if math.IsNaN(nx) {
		nx = 0
	}
	if math.IsNaN(ny) {
		ny = 0
	}
	if math.IsNaN(nz) {
		nz = 0
	}
	return Point{X: nx / det, Y: ny / det, Z: nz / det}, det, ok
}

// BaseToAlt converts a base-space point into f's local coordinates.
//
// Degenerate frames do not produce NaN: the determinant is clamped to 1 and
// NaN numerators to 0. This keeps geometry finite but the result is then not
// meaningful; use BaseToAltStrict to detect it.
func BaseToAlt(p Point, f Frame) Point {
	r, _, ok := cramer(r3.Sub(p, f.Offset), f)
	if !ok {
		logging.Logger().Warn("clamped degenerate frame in base-to-alt transform", "frame", f.String())
	}
	return r
}

// BaseToAltStrict is BaseToAlt but reports ErrDegenerateFrame when the
// determinant magnitude is below DegenerateEpsilon.
func BaseToAltStrict(p Point, f Frame) (Point, error) {
	r, det, ok := cramer(r3.Sub(p, f.Offset), f)
	if !ok || math.Abs(det) < DegenerateEpsilon {
		return Point{}, fmt.Errorf("base to alt with det=%g: %w", det, ErrDegenerateFrame)
	}
	return r, nil
}

// AltToAlt converts a point from in's local coordinates to out's.
func AltToAlt(p Point, in, out Frame) Point {
	return BaseToAlt(AltToBase(p, in), out)
}

// DimToBase converts an extent in f's local coordinates to a base-space
// extent. The origin is not applied and the result is non-negative.
func DimToBase(d Point, f Frame) Point {
	return Abs(vectorToBase(d, f))
}

// BaseToDim converts a base-space extent into f's local coordinates. The
// origin is not applied and the result is non-negative.
func BaseToDim(d Point, f Frame) Point {
	r, _, _ := cramer(d, f)
	return Abs(r)
}

// DimToAlt converts an extent from in's local coordinates to out's.
func DimToAlt(d Point, in, out Frame) Point {
	return BaseToDim(DimToBase(d, in), out)
}

// TransformPoint converts p from frame from to frame to.
func TransformPoint(p Point, from, to Frame) Point {
	return AltToAlt(p, from, to)
}

// TransformExtent converts the extent d from frame from to frame to. Every
// component of the result is non-negative.
func TransformExtent(d Point, from, to Frame) Point {
	return DimToAlt(d, from, to)
}

// Relative returns the frame whose AltToBase maps from-local coordinates
// directly to to-local coordinates, so that
//
//	AltToBase(p, Relative(from, to)) == AltToAlt(p, from, to)
//
// up to rounding. Both frames are affine, so the composition is too.
func Relative(from, to Frame) Frame {
	var rel Frame
	rel.Offset = BaseToAlt(from.Offset, to)
	for i := range from.Axes {
		rel.Axes[i], _, _ = cramer(from.Axes[i], to)
	}
	return rel
}

// Corners returns the eight corners of the axis-aligned local box [lo, hi].
func Corners(lo, hi Point) [8]Point {
	var c [8]Point
	for i := range c {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		c[i] = p
	}
	return c
}

// Bounds returns the axis-aligned box in frame out enclosing the local box
// [lo, hi] of frame in.
func Bounds(lo, hi Point, in, out Frame) (Point, Point) {
	rel := Relative(in, out)
	corners := Corners(lo, hi)
	bmin := AltToBase(corners[0], rel)
	bmax := bmin
	for _, c := range corners[1:] {
		p := AltToBase(c, rel)
		bmin = Min(bmin, p)
		bmax = Max(bmax, p)
	}
	return bmin, bmax
}
