package geometry

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"amideroi/pkg/realspace"
)

type pt = realspace.Point

func TestPointInBoxOriginProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("origin is inside any positive box", prop.ForAll(
		func(x, y, z float64) bool {
			return PointInBox(pt{}, pt{X: x, Y: y, Z: z})
		},
		gen.Float64Range(1e-6, 1e6),
		gen.Float64Range(1e-6, 1e6),
		gen.Float64Range(1e-6, 1e6),
	))

	properties.TestingRun(t)
}

func TestPointInBox(t *testing.T) {
	half := pt{X: 1, Y: 2, Z: 3}
	const eps = 1e-9

	tests := []struct {
		name string
		p    pt
		want bool
	}{
		{"corner on boundary", pt{X: 1, Y: 2, Z: 3}, true},
		{"negative corner", pt{X: -1, Y: -2, Z: -3}, true},
		{"x exceeded", pt{X: 1 + eps}, false},
		{"y exceeded", pt{Y: -2 - eps}, false},
		{"z exceeded", pt{Z: 3 + eps}, false},
		{"inside", pt{X: 0.5, Y: -1, Z: 2.9}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInBox(tt.p, half))
		})
	}
}

func TestPointInEllipsoid(t *testing.T) {
	center := pt{X: 1, Y: 1, Z: 1}
	radii := pt{X: 2, Y: 1, Z: 0.5}

	assert.True(t, PointInEllipsoid(center, center, radii))
	assert.True(t, PointInEllipsoid(pt{X: 3, Y: 1, Z: 1}, center, radii), "boundary is inclusive")
	assert.False(t, PointInEllipsoid(pt{X: 3 + 1e-9, Y: 1, Z: 1}, center, radii))
	assert.True(t, PointInEllipsoid(pt{X: 1, Y: 1, Z: 1.5}, center, radii))
	assert.False(t, PointInEllipsoid(pt{X: 2.5, Y: 1.9, Z: 1}, center, radii))
}

func TestPointInEllipticCylinder(t *testing.T) {
	center := pt{X: 0, Y: 0, Z: 5}
	radii := pt{X: 1, Y: 2}

	assert.True(t, PointInEllipticCylinder(center, center, 4, radii))
	assert.True(t, PointInEllipticCylinder(pt{Z: 7}, center, 4, radii))
	assert.False(t, PointInEllipticCylinder(pt{Z: 7.01}, center, 4, radii))
	assert.True(t, PointInEllipticCylinder(pt{Y: 2, Z: 3}, center, 4, radii))
	assert.False(t, PointInEllipticCylinder(pt{X: 0.8, Y: 1.5, Z: 5}, center, 4, radii))
}

func TestZeroRadius(t *testing.T) {
	assert.True(t, PointInEllipsoid(pt{}, pt{}, pt{X: 0, Y: 1, Z: 1}))
	assert.False(t, PointInEllipsoid(pt{X: 1e-12}, pt{}, pt{X: 0, Y: 1, Z: 1}))
}
