// Package geometry holds the containment tests used by the geometric ROI types.
//
// All tests take the query point in the shape's local frame and treat the
// boundary as inside.
package geometry

import (
	"math"

	"amideroi/pkg/realspace"
)

// PointInBox reports whether every |p_i| is at most half_i.
func PointInBox(p, half realspace.Point) bool {
	return math.Abs(p.X) <= half.X &&
		math.Abs(p.Y) <= half.Y &&
		math.Abs(p.Z) <= half.Z
}

// PointInEllipsoid reports whether sum((p_i - c_i)^2 / r_i^2) <= 1.
func PointInEllipsoid(p, center, radii realspace.Point) bool {
	return normSq(p.X-center.X, radii.X)+
		normSq(p.Y-center.Y, radii.Y)+
		normSq(p.Z-center.Z, radii.Z) <= 1
}

// PointInEllipticCylinder reports whether p is inside the cylinder whose axis
// runs along local z through center, spanning center.z ± height/2, with
// elliptical cross-section radii.X by radii.Y. radii.Z is ignored.
func PointInEllipticCylinder(p, center realspace.Point, height float64, radii realspace.Point) bool {
	if math.Abs(p.Z-center.Z) > height/2 {
		return false
	}
	return normSq(p.X-center.X, radii.X)+normSq(p.Y-center.Y, radii.Y) <= 1
}

// normSq returns (d/r)^2. A zero radius only admits d == 0.
func normSq(d, r float64) float64 {
	if r == 0 {
		if d == 0 {
			return 0
		}
		return math.Inf(1)
	}
	q := d / r
	return q * q
}
