package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amideroi/pkg/realspace"
	"amideroi/pkg/roi"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s", "scenario.yaml")
	want := Example()
	require.NoError(t, Save(want, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("volume:\n  dim: [1, 2]\n"), 0644))
	_, err = Load(bad)
	assert.Error(t, err, "dim needs three entries")
}

func TestBuildVolume(t *testing.T) {
	vol, err := Example().BuildVolume()
	require.NoError(t, err)

	assert.Equal(t, realspace.Voxel{X: 32, Y: 32, Z: 16}, vol.Dim())
	assert.Equal(t, 100.0, vol.Value(realspace.Voxel{X: 16, Y: 16, Z: 8}))
	assert.Equal(t, 50.0, vol.Value(realspace.Voxel{X: 3, Y: 3, Z: 3}))
	assert.Equal(t, 10.0, vol.Value(realspace.Voxel{X: 30, Y: 1, Z: 1}))

	s := Example()
	s.Volume.Objects = append(s.Volume.Objects, ObjectSpec{Shape: "torus"})
	_, err = s.BuildVolume()
	assert.Error(t, err)

	s = Example()
	s.Volume.Dim = Index3{0, 1, 1}
	_, err = s.BuildVolume()
	assert.Error(t, err)
}

func TestBuildVolumeRotated(t *testing.T) {
	s := Example()
	s.Volume.Offset = Vec3{5, 0, 0}
	s.Volume.Rotation = &Rotation{Axis: Vec3{0, 0, 1}, AngleDeg: 90}
	vol, err := s.BuildVolume()
	require.NoError(t, err)

	got := realspace.AltToBase(realspace.Point{X: 1}, vol.Space())
	assert.InDelta(t, 5.0, got.X, 1e-9)
	assert.InDelta(t, 1.0, got.Y, 1e-9)
}

func TestBuildROIs(t *testing.T) {
	s := Example()
	vol, err := s.BuildVolume()
	require.NoError(t, err)

	rois, err := s.BuildROIs(context.Background(), vol)
	require.NoError(t, err)
	require.Len(t, rois, 5)

	hot := 0
	for _, d := range vol.Data {
		if d == 100 {
			hot++
		}
	}
	iso := rois[3]
	assert.Equal(t, roi.Isocontour3D, iso.Type)
	assert.Equal(t, hot, iso.Mask.Count())

	free := rois[4]
	assert.Equal(t, roi.Freehand2D, free.Type)
	assert.Equal(t, 15, free.Mask.Count())
	assert.True(t, free.ContainsBase(realspace.Point{X: 4.5, Y: 3.5, Z: 7}))

	tilted := rois[2]
	assert.NotEqual(t, realspace.Identity().Axes, tilted.Space.Axes)
}

func TestBuildROIErrors(t *testing.T) {
	vol, err := Example().BuildVolume()
	require.NoError(t, err)

	tests := []ROISpec{
		{Name: "blob", Type: "blob"},
		{Name: "neg", Type: "box", Corner: Vec3{-1, 1, 1}},
		{Name: "iso", Type: "isocontour_2d"},
		{Name: "iso-range", Type: "isocontour_3d", Isocontour: &IsocontourSpec{Range: "sideways"}},
		{Name: "iso-seed", Type: "isocontour_3d", Isocontour: &IsocontourSpec{Seed: Index3{99, 0, 0}, Range: "above_min"}},
	}
	for _, spec := range tests {
		t.Run(spec.Name, func(t *testing.T) {
			s := &Scenario{ROIs: []ROISpec{spec}}
			_, err := s.BuildROIs(context.Background(), vol)
			assert.Error(t, err)
		})
	}
}
