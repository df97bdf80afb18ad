// Package roi defines regions of interest over data sets.
//
// Geometric ROIs (box, ellipsoid, cylinder) occupy the local box [0, Corner]
// of their frame. Masked ROIs (isocontour, freehand) carry a voxel mask whose
// voxel (i,j,k) spans [i*VoxelSize.X, (i+1)*VoxelSize.X] etc. Both kinds are
// queried the same way through Contains.
package roi

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"amideroi/pkg/geometry"
	"amideroi/pkg/isocontour"
	"amideroi/pkg/mask"
	"amideroi/pkg/realspace"
)

// Type is the shape variant of an ROI.
type Type int

const (
	Box Type = iota
	Ellipsoid
	Cylinder
	Isocontour2D
	Isocontour3D
	Freehand2D
	Freehand3D
)

var typeNames = [...]string{
	Box:          "box",
	Ellipsoid:    "ellipsoid",
	Cylinder:     "cylinder",
	Isocontour2D: "isocontour_2d",
	Isocontour3D: "isocontour_3d",
	Freehand2D:   "freehand_2d",
	Freehand3D:   "freehand_3d",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType parses the names produced by Type.String.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ROI type %q", s)
}

// Masked reports whether t is backed by a voxel mask.
func (t Type) Masked() bool {
	return t >= Isocontour2D
}

// Planar reports whether t is a single-slice masked type.
func (t Type) Planar() bool {
	return t == Isocontour2D || t == Freehand2D
}

// Isocontour reports whether t is grown from a seed.
func (t Type) Isocontour() bool {
	return t == Isocontour2D || t == Isocontour3D
}

var (
	// ErrInvalidROI is returned for ROIs with impossible geometry.
	ErrInvalidROI = errors.New("roi: invalid region")
	// ErrWrongType is returned when an operation does not apply to the ROI type.
	ErrWrongType = errors.New("roi: operation not supported for this type")
)

// ROI is a region of interest. It exclusively owns its frame and mask.
type ROI struct {
	Name string
	Type Type

	// Space places the ROI in base coordinates.
	Space realspace.Frame

	// Corner is the far corner of the ROI's local extent, starting at the origin.
	// For masked types it is kept equal to Mask.Dim * VoxelSize.
	Corner realspace.Point

	// VoxelSize is the mask sampling resolution, independent of any data set.
	VoxelSize realspace.Point
	Mask      *mask.Mask

	// Contour records the parameters of the last isocontour fill, if any.
	Contour *isocontour.Params
}

// New returns a geometric ROI spanning [0, corner] in space.
func New(name string, t Type, space realspace.Frame, corner realspace.Point) (*ROI, error) {
	if t.Masked() {
		return nil, fmt.Errorf("%s is a masked type, use NewMasked: %w", t, ErrWrongType)
	}
	r := &ROI{Name: name, Type: t, Space: space, Corner: corner}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewMasked returns an empty masked ROI sampled at voxelSize.
func NewMasked(name string, t Type, space realspace.Frame, voxelSize realspace.Point) (*ROI, error) {
	if !t.Masked() {
		return nil, fmt.Errorf("%s is not a masked type: %w", t, ErrWrongType)
	}
	m, err := mask.New(realspace.Voxel{}, t.Planar())
	if err != nil {
		return nil, err
	}
	r := &ROI{Name: name, Type: t, Space: space, VoxelSize: voxelSize, Mask: m}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the ROI's geometry.
func (r *ROI) Validate() error {
	c := r.Corner
	if c.X < 0 || c.Y < 0 || c.Z < 0 || math.IsNaN(c.X+c.Y+c.Z) || math.IsInf(c.X+c.Y+c.Z, 0) {
		return fmt.Errorf("%s %q has corner (%g,%g,%g): %w", r.Type, r.Name, c.X, c.Y, c.Z, ErrInvalidROI)
	}
	if r.Type.Masked() {
		vs := r.VoxelSize
		if !(vs.X > 0 && vs.Y > 0 && vs.Z > 0) {
			return fmt.Errorf("%s %q has voxel size (%g,%g,%g): %w", r.Type, r.Name, vs.X, vs.Y, vs.Z, ErrInvalidROI)
		}
		if r.Mask == nil {
			return fmt.Errorf("%s %q has no mask: %w", r.Type, r.Name, ErrInvalidROI)
		}
	}
	if r.Space.Determinant() == 0 {
		return fmt.Errorf("%s %q: %w", r.Type, r.Name, realspace.ErrDegenerateFrame)
	}
	return nil
}

// Undrawn reports whether the ROI has no extent yet.
func (r *ROI) Undrawn() bool {
	if r.Type.Masked() {
		return r.Mask.Empty() || r.Mask.Count() == 0
	}
	return r.Corner == (realspace.Point{})
}

// Contains reports whether the point p, in the ROI's local coordinates, is
// inside the ROI.
func (r *ROI) Contains(p realspace.Point) bool {
	half := r3.Scale(0.5, r.Corner)
	switch r.Type {
	case Box:
		return geometry.PointInBox(r3.Sub(p, half), half)
	case Ellipsoid:
		return geometry.PointInEllipsoid(p, half, half)
	case Cylinder:
		return geometry.PointInEllipticCylinder(p, half, r.Corner.Z, half)
	default:
		if r.Mask.Empty() || p.X < 0 || p.Y < 0 || p.Z < 0 {
			return false
		}
		return r.Mask.Get(realspace.PointToVoxel(p, r.VoxelSize)) != mask.Outside
	}
}

// ContainsBase reports whether the base-space point p is inside the ROI.
func (r *ROI) ContainsBase(p realspace.Point) bool {
	return r.Contains(realspace.BaseToAlt(p, r.Space))
}

// Center returns the base-space center of the ROI's extent.
func (r *ROI) Center() realspace.Point {
	return realspace.AltToBase(r3.Scale(0.5, r.Corner), r.Space)
}

// SetCenter moves the ROI so its extent is centered on the base point p.
func (r *ROI) SetCenter(p realspace.Point) {
	r.Space.Shift(r3.Sub(p, r.Center()))
}

// CenterOfMass returns the base-space center of mass: the mean of the set
// mask voxels for masked ROIs, the center of the extent otherwise.
func (r *ROI) CenterOfMass() realspace.Point {
	if r.Type.Masked() && !r.Mask.Empty() {
		return realspace.AltToBase(r.Mask.CenterOfMass(r.VoxelSize), r.Space)
	}
	return r.Center()
}

// Rotate rotates the ROI by theta radians about the base-space direction
// axis through its center.
func (r *ROI) Rotate(axis realspace.Point, theta float64) {
	r.Space.Rotate(axis, theta, r.Center())
}

// Bounds returns the box in frame f enclosing the ROI's extent.
func (r *ROI) Bounds(f realspace.Frame) (lo, hi realspace.Point) {
	return realspace.Bounds(realspace.Point{}, r.Corner, r.Space, f)
}

// Volume returns the ROI's volume in local units cubed.
func (r *ROI) Volume() float64 {
	c := r.Corner
	switch r.Type {
	case Box:
		return c.X * c.Y * c.Z
	case Ellipsoid:
		return 4.0 / 3.0 * math.Pi * (c.X / 2) * (c.Y / 2) * (c.Z / 2)
	case Cylinder:
		return math.Pi * (c.X / 2) * (c.Y / 2) * c.Z
	default:
		if r.Mask.Empty() {
			return 0
		}
		return float64(r.Mask.Count()) * r.VoxelSize.X * r.VoxelSize.Y * r.VoxelSize.Z
	}
}

func (r *ROI) updateCorner() {
	r.Corner = realspace.Mul(r.Mask.Dim.Point(), r.VoxelSize)
}

// Copy returns a deep copy of the ROI.
func (r *ROI) Copy() *ROI {
	c := *r
	if r.Mask != nil {
		c.Mask = r.Mask.Clone()
	}
	if r.Contour != nil {
		p := *r.Contour
		c.Contour = &p
	}
	return &c
}
