package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amideroi/pkg/realspace"
)

func TestNewVolume(t *testing.T) {
	v, err := NewVolume(realspace.Voxel{X: 4, Y: 3, Z: 2}, realspace.Point{X: 1, Y: 1, Z: 2}, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, realspace.Voxel{X: 4, Y: 3, Z: 2}, v.Dim())
	assert.Equal(t, 2, v.NumFrames())
	assert.Equal(t, 1, v.NumGates())
	assert.Len(t, v.Data, 48)
	assert.Equal(t, realspace.Identity(), v.Space())

	_, err = NewVolume(realspace.Voxel{X: 0, Y: 1, Z: 1}, realspace.Point{X: 1, Y: 1, Z: 1}, 1, 1)
	assert.Error(t, err)
	_, err = NewVolume(realspace.Voxel{X: 1, Y: 1, Z: 1}, realspace.Point{X: 1, Y: 0, Z: 1}, 1, 1)
	assert.Error(t, err)
}

func TestValueFramesAreIndependent(t *testing.T) {
	v, err := NewVolume(realspace.Voxel{X: 2, Y: 2, Z: 2}, realspace.Point{X: 1, Y: 1, Z: 1}, 2, 2)
	require.NoError(t, err)

	v.Fill(1, 1, 7)
	assert.Equal(t, 7.0, v.Value(realspace.Voxel{X: 1, Y: 1, Z: 1, Frame: 1, Gate: 1}))
	assert.Equal(t, 0.0, v.Value(realspace.Voxel{X: 1, Y: 1, Z: 1, Frame: 0, Gate: 1}))
	assert.Equal(t, 0.0, v.Value(realspace.Voxel{X: 1, Y: 1, Z: 1, Frame: 1, Gate: 0}))
	assert.Equal(t, 0.0, v.Value(realspace.Voxel{X: 2}), "out of range reads as zero")
	assert.Equal(t, 0.0, v.Value(realspace.Voxel{Frame: 5}))
}

func TestFillBoxClipsAndMinMax(t *testing.T) {
	v, err := NewVolume(realspace.Voxel{X: 4, Y: 4, Z: 4}, realspace.Point{X: 1, Y: 1, Z: 1}, 1, 1)
	require.NoError(t, err)
	v.Fill(0, 0, 10)
	v.FillBox(realspace.Voxel{X: 2, Y: 2, Z: 2}, realspace.Voxel{X: 9, Y: 9, Z: 9}, 100)

	assert.Equal(t, 100.0, v.Value(realspace.Voxel{X: 3, Y: 3, Z: 3}))
	assert.Equal(t, 10.0, v.Value(realspace.Voxel{X: 1, Y: 3, Z: 3}))

	lo, hi := v.MinMax()
	assert.Equal(t, 10.0, lo)
	assert.Equal(t, 100.0, hi)
}

func TestFillSphere(t *testing.T) {
	v, err := NewVolume(realspace.Voxel{X: 5, Y: 5, Z: 5}, realspace.Point{X: 1, Y: 1, Z: 1}, 1, 1)
	require.NoError(t, err)
	v.FillSphere(realspace.Point{X: 2.5, Y: 2.5, Z: 2.5}, 1.01, 0, 0, 1)

	n := 0
	for _, d := range v.Data {
		if d == 1 {
			n++
		}
	}
	assert.Equal(t, 7, n, "center plus six face neighbors")
}
