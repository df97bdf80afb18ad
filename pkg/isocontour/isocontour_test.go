package isocontour

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amideroi/internal/models"
	"amideroi/pkg/mask"
	"amideroi/pkg/realspace"
)

type vox = realspace.Voxel

func hotCube(t *testing.T) *models.Volume {
	t.Helper()
	v, err := models.NewVolume(vox{X: 5, Y: 5, Z: 5}, realspace.Point{X: 1, Y: 1, Z: 1}, 1, 1)
	require.NoError(t, err)
	v.FillBox(vox{X: 1, Y: 1, Z: 1}, vox{X: 3, Y: 3, Z: 3}, 100)
	return v
}

func TestGrowHotCube(t *testing.T) {
	v := hotCube(t)

	res, err := Grow(context.Background(), v, Params{Seed: vox{X: 2, Y: 2, Z: 2}, Min: 50, Range: AboveMin})
	require.NoError(t, err)

	assert.Equal(t, 27, res.Voxels())
	assert.Equal(t, vox{X: 3, Y: 3, Z: 3}, res.Mask.Dim)
	assert.Equal(t, vox{X: 1, Y: 1, Z: 1}, res.Offset)
	assert.Equal(t, mask.Interior, res.Mask.Get(vox{X: 1, Y: 1, Z: 1}))
	assert.Equal(t, mask.Edge, res.Mask.Get(vox{}))
	assert.Equal(t, realspace.Point{X: 1, Y: 1, Z: 1}, res.Space.Offset)
	assert.Equal(t, v.Size, res.VoxelSize)
}

func TestGrowSeedAlwaysIncluded(t *testing.T) {
	v := hotCube(t)

	res, err := Grow(context.Background(), v, Params{Seed: vox{X: 0, Y: 0, Z: 0}, Min: 50, Range: AboveMin})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Voxels(), "failing seed gives a single voxel")
	assert.Equal(t, vox{}, res.Offset)
	assert.Equal(t, vox{X: 1, Y: 1, Z: 1}, res.Mask.Dim)
}

func TestGrowBelowMaxFillsBackground(t *testing.T) {
	v := hotCube(t)

	res, err := Grow(context.Background(), v, Params{Seed: vox{}, Max: 50, Range: BelowMax})
	require.NoError(t, err)
	assert.Equal(t, 125-27, res.Voxels())
	assert.Equal(t, vox{X: 5, Y: 5, Z: 5}, res.Mask.Dim)
	assert.Equal(t, mask.Outside, res.Mask.Get(vox{X: 2, Y: 2, Z: 2}))
}

func TestGrowDiagonalConnectivity(t *testing.T) {
	v, err := models.NewVolume(vox{X: 3, Y: 3, Z: 3}, realspace.Point{X: 1, Y: 1, Z: 1}, 1, 1)
	require.NoError(t, err)
	v.Set(vox{}, 1)
	v.Set(vox{X: 1, Y: 1, Z: 1}, 1)
	v.Set(vox{X: 2, Y: 2, Z: 2}, 1)

	res, err := Grow(context.Background(), v, Params{Seed: vox{}, Min: 1, Max: 1, Range: BetweenMinMax})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Voxels())

	planar, err := Grow(context.Background(), v, Params{Seed: vox{}, Min: 1, Max: 1, Range: BetweenMinMax, Planar: true})
	require.NoError(t, err)
	assert.Equal(t, 1, planar.Voxels(), "planar fill does not leave the seed plane")
}

func TestGrowPlanar(t *testing.T) {
	v := hotCube(t)
	v.FillBox(vox{X: 0, Y: 0, Z: 4}, vox{X: 4, Y: 4, Z: 4}, 100)

	res, err := Grow(context.Background(), v, Params{Seed: vox{X: 2, Y: 2, Z: 2}, Min: 50, Range: AboveMin, Planar: true})
	require.NoError(t, err)

	assert.True(t, res.Mask.Planar)
	assert.Equal(t, 9, res.Voxels())
	assert.Equal(t, vox{X: 1, Y: 1, Z: 2}, res.Offset)
	assert.Equal(t, mask.Interior, res.Mask.Get(vox{X: 1, Y: 1}))
	assert.Equal(t, realspace.Point{X: 1, Y: 1, Z: 2}, res.Space.Offset)
}

func TestGrowBetweenRejectsHotAndCold(t *testing.T) {
	v := hotCube(t)
	v.Fill(0, 0, 10)
	v.FillBox(vox{X: 1, Y: 1, Z: 1}, vox{X: 3, Y: 3, Z: 3}, 50)
	v.Set(vox{X: 2, Y: 2, Z: 2}, 100)

	res, err := Grow(context.Background(), v, Params{Seed: vox{X: 1, Y: 1, Z: 1}, Min: 40, Max: 60, Range: BetweenMinMax})
	require.NoError(t, err)
	assert.Equal(t, 26, res.Voxels())
	assert.Equal(t, mask.Outside, res.Mask.Get(vox{X: 1, Y: 1, Z: 1}))
}

func TestGrowScaledAndTranslatedSpace(t *testing.T) {
	v := hotCube(t)
	v.Size = realspace.Point{X: 2, Y: 2, Z: 3}
	v.Coords = realspace.Translated(realspace.Point{X: 10, Y: 20, Z: 30})

	res, err := Grow(context.Background(), v, Params{Seed: vox{X: 3, Y: 3, Z: 3}, Min: 50, Range: AboveMin})
	require.NoError(t, err)
	assert.Equal(t, realspace.Point{X: 12, Y: 22, Z: 33}, res.Space.Offset)
	assert.Equal(t, realspace.Point{X: 2, Y: 2, Z: 3}, res.VoxelSize)
}

func TestGrowSeedOutOfRange(t *testing.T) {
	v := hotCube(t)
	_, err := Grow(context.Background(), v, Params{Seed: vox{X: 5}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSeedOutOfRange))
}

func TestGrowUsesSeedFrame(t *testing.T) {
	v, err := models.NewVolume(vox{X: 3, Y: 3, Z: 3}, realspace.Point{X: 1, Y: 1, Z: 1}, 2, 1)
	require.NoError(t, err)
	v.Fill(1, 0, 5)

	res, err := Grow(context.Background(), v, Params{Seed: vox{X: 1, Y: 1, Z: 1, Frame: 1}, Min: 5, Range: AboveMin})
	require.NoError(t, err)
	assert.Equal(t, 27, res.Voxels())
}

func TestGrowCancelled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping large flood fill in short mode")
	}
	v, err := models.NewVolume(vox{X: 40, Y: 40, Z: 40}, realspace.Point{X: 1, Y: 1, Z: 1}, 1, 1)
	require.NoError(t, err)
	v.Fill(0, 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Grow(ctx, v, Params{Seed: vox{X: 20, Y: 20, Z: 20}, Min: 1, Range: AboveMin})
	assert.ErrorIs(t, err, context.Canceled)

	res, err := Grow(context.Background(), v, Params{Seed: vox{X: 20, Y: 20, Z: 20}, Min: 1, Range: AboveMin})
	require.NoError(t, err)
	assert.Equal(t, 40*40*40, res.Voxels())
}

func TestRangeAcceptEpsilon(t *testing.T) {
	assert.True(t, AboveMin.Accept(100-1e-6, 100, 0))
	assert.False(t, AboveMin.Accept(99, 100, 0))
	assert.True(t, BelowMax.Accept(-100-1e-6, 0, -100), "tolerance uses |bound|")
	assert.False(t, BelowMax.Accept(-99, 0, -100))
	assert.True(t, BetweenMinMax.Accept(5, 5, 5))
	assert.False(t, BetweenMinMax.Accept(6, 5, 5.5))
}

func TestParseRange(t *testing.T) {
	for _, r := range []Range{AboveMin, BelowMax, BetweenMinMax} {
		got, err := ParseRange(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseRange("sideways")
	assert.Error(t, err)
}
