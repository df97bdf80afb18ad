package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amideroi/internal/models"
	"amideroi/pkg/realspace"
	"amideroi/pkg/roi"
)

type (
	pt  = realspace.Point
	vox = realspace.Voxel
)

var unit = pt{X: 1, Y: 1, Z: 1}

// hotCube is a 4x4x4 volume of zeros with 100 in the eight voxels [1,2]^3.
func hotCube(t *testing.T) *models.Volume {
	t.Helper()
	v, err := models.NewVolume(vox{X: 4, Y: 4, Z: 4}, unit, 1, 1)
	require.NoError(t, err)
	v.FillBox(vox{X: 1, Y: 1, Z: 1}, vox{X: 2, Y: 2, Z: 2}, 100)
	return v
}

func box(t *testing.T, offset, corner pt) *roi.ROI {
	t.Helper()
	r, err := roi.New("box", roi.Box, realspace.Translated(offset), corner)
	require.NoError(t, err)
	return r
}

func weights(t *testing.T, r *roi.ROI, ds Source, opts Options) map[vox]float64 {
	t.Helper()
	out := make(map[vox]float64)
	err := Analyze(context.Background(), r, ds, 0, 0, opts, func(v vox, _, w float64) {
		_, dup := out[v]
		require.False(t, dup, "voxel %v visited twice", v)
		out[v] = w
	})
	require.NoError(t, err)
	return out
}

func TestEndToEndHotCube(t *testing.T) {
	for _, accurate := range []bool{false, true} {
		ds := hotCube(t)
		r := box(t, unit, pt{X: 2, Y: 2, Z: 2})

		acc, err := Accumulate(context.Background(), r, ds, 0, 0, Options{Accurate: accurate})
		require.NoError(t, err)
		s := acc.Statistics(Calculation{})

		assert.Equal(t, 8, s.Voxels, "accurate=%v", accurate)
		assert.InDelta(t, 8.0, s.FractionalVoxels, 1e-12)
		assert.InDelta(t, 100.0, s.Mean, 1e-12)
		assert.Equal(t, 100.0, s.Min)
		assert.Equal(t, 100.0, s.Max)
		assert.Equal(t, 100.0, s.Median)
		assert.InDelta(t, 0.0, s.Variance, 1e-9)
		assert.InDelta(t, 800.0, s.Total, 1e-9)
		assert.InDelta(t, 8.0, s.Volume, 1e-12)
	}
}

func TestSingleVoxelWeight(t *testing.T) {
	ds := hotCube(t)
	for _, accurate := range []bool{false, true} {
		got := weights(t, box(t, unit, unit), ds, Options{Accurate: accurate})
		assert.Equal(t, map[vox]float64{{X: 1, Y: 1, Z: 1}: 1}, got, "accurate=%v", accurate)

		// a voxel-sized box straddling eight voxels splits evenly
		shifted := weights(t, box(t, pt{X: 1.5, Y: 1.5, Z: 1.5}, unit), ds, Options{Accurate: accurate})
		sum := 0.0
		for v, w := range shifted {
			assert.InDelta(t, 0.125, w, 1e-12, "%v", v)
			sum += w
		}
		assert.Len(t, shifted, 8)
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
}

func TestMaskedROIWeight(t *testing.T) {
	ds := hotCube(t)
	r, err := roi.NewMasked("free", roi.Freehand3D, realspace.Translated(unit), unit)
	require.NoError(t, err)
	require.NoError(t, r.PaintMask(false, vox{}, 0))

	for _, accurate := range []bool{false, true} {
		got := weights(t, r, ds, Options{Accurate: accurate})
		assert.Equal(t, map[vox]float64{{X: 1, Y: 1, Z: 1}: 1}, got, "accurate=%v", accurate)
	}
}

func TestSmallDimensionAlwaysSubsamples(t *testing.T) {
	ds, err := models.NewVolume(vox{X: 2, Y: 2, Z: 1}, unit, 1, 1)
	require.NoError(t, err)
	r := box(t, pt{}, pt{X: 1, Y: 1, Z: 0.5})

	got := weights(t, r, ds, Options{})
	assert.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[vox{}], 1e-12)
}

func TestGranularity(t *testing.T) {
	ds := hotCube(t)
	r := box(t, pt{X: 1.25, Y: 1, Z: 1}, unit)

	got := weights(t, r, ds, Options{Accurate: true, Granularity: 4})
	assert.InDelta(t, 0.75, got[vox{X: 1, Y: 1, Z: 1}], 1e-12)
	assert.InDelta(t, 0.25, got[vox{X: 2, Y: 1, Z: 1}], 1e-12)
}

func TestInversionComplementProperty(t *testing.T) {
	ds, err := models.NewVolume(vox{X: 6, Y: 6, Z: 6}, unit, 1, 1)
	require.NoError(t, err)

	properties := gopter.NewProperties(nil)
	properties.Property("inside and outside weights sum to one", prop.ForAll(
		func(ox, oy, oz, c float64, accurate bool) bool {
			r, err := roi.New("e", roi.Ellipsoid, realspace.Translated(pt{X: ox, Y: oy, Z: oz}), pt{X: c, Y: c + 0.5, Z: c})
			if err != nil {
				return false
			}
			opts := Options{Accurate: accurate, Granularity: 3}
			in := weights(t, r, ds, opts)
			opts.Inverse = true
			out := weights(t, r, ds, opts)

			for z := 0; z < 6; z++ {
				for y := 0; y < 6; y++ {
					for x := 0; x < 6; x++ {
						v := vox{X: x, Y: y, Z: z}
						if math.Abs(in[v]+out[v]-1) > 1e-12 {
							return false
						}
					}
				}
			}
			return true
		},
		gen.Float64Range(-2, 5),
		gen.Float64Range(-2, 5),
		gen.Float64Range(-2, 5),
		gen.Float64Range(0.3, 3),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestEmptyIntersection(t *testing.T) {
	ds := hotCube(t)
	far := box(t, pt{X: 50, Y: 50, Z: 50}, unit)

	calls := 0
	err := Analyze(context.Background(), far, ds, 0, 0, Options{}, func(vox, float64, float64) { calls++ })
	require.NoError(t, err)
	assert.Zero(t, calls)

	acc, err := Accumulate(context.Background(), far, ds, 0, 0, Options{})
	require.NoError(t, err)
	s := acc.Statistics(Calculation{})
	assert.Zero(t, s.Voxels)
	assert.True(t, math.IsNaN(s.Mean))

	inv := weights(t, far, ds, Options{Inverse: true})
	assert.Len(t, inv, 64)
	for _, w := range inv {
		assert.Equal(t, 1.0, w)
	}
}

func TestUndrawnROI(t *testing.T) {
	ds := hotCube(t)
	r := box(t, unit, pt{})

	assert.Empty(t, weights(t, r, ds, Options{}))
	assert.Len(t, weights(t, r, ds, Options{Inverse: true}), 64)
}

func TestTranslatedDataSet(t *testing.T) {
	ds := hotCube(t)
	ds.Coords = realspace.Translated(pt{X: 10})
	r := box(t, pt{X: 11, Y: 1, Z: 1}, pt{X: 2, Y: 2, Z: 2})

	acc, err := Accumulate(context.Background(), r, ds, 0, 0, Options{})
	require.NoError(t, err)
	s := acc.Statistics(Calculation{})
	assert.Equal(t, 8, s.Voxels)
	assert.InDelta(t, 100.0, s.Mean, 1e-12)
}

func TestFrameOutOfRange(t *testing.T) {
	ds := hotCube(t)
	r := box(t, unit, unit)

	_, err := Accumulate(context.Background(), r, ds, 1, 0, Options{})
	assert.True(t, errors.Is(err, ErrFrameOutOfRange))
	_, err = AnalyzeParallel(context.Background(), r, ds, 0, -1, Options{}, 2)
	assert.True(t, errors.Is(err, ErrFrameOutOfRange))
}

func TestAnalyzeCancelled(t *testing.T) {
	ds := hotCube(t)
	r := box(t, unit, unit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Analyze(ctx, r, ds, 0, 0, Options{}, func(vox, float64, float64) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func gradientVolume(t *testing.T, n int) *models.Volume {
	t.Helper()
	v, err := models.NewVolume(vox{X: n, Y: n, Z: n}, pt{X: 1, Y: 1.5, Z: 2}, 1, 1)
	require.NoError(t, err)
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				v.Set(vox{X: x, Y: y, Z: z}, float64(x+10*y+100*z))
			}
		}
	}
	return v
}

func TestParallelMatchesSerial(t *testing.T) {
	ds := gradientVolume(t, 12)
	r, err := roi.New("e", roi.Ellipsoid, realspace.Translated(pt{X: 2, Y: 3, Z: 4}), pt{X: 7, Y: 9, Z: 12})
	require.NoError(t, err)
	r.Rotate(pt{X: 1, Y: 1}, 0.6)

	for _, opts := range []Options{{}, {Accurate: true, Granularity: 4}, {Inverse: true}} {
		serial, err := Accumulate(context.Background(), r, ds, 0, 0, opts)
		require.NoError(t, err)
		want := serial.Statistics(Calculation{})
		require.Positive(t, want.Voxels)

		for _, workers := range []int{1, 3, 5, 64, 0} {
			par, err := AnalyzeParallel(context.Background(), r, ds, 0, 0, opts, workers)
			require.NoError(t, err)
			assert.Equal(t, serial.Samples(), par.Samples(), "opts=%+v workers=%d", opts, workers)
			assert.Equal(t, want, par.Statistics(Calculation{}), "opts=%+v workers=%d", opts, workers)
		}
	}
}

func TestAnalyzeAll(t *testing.T) {
	ds, err := models.NewVolume(vox{X: 4, Y: 4, Z: 4}, unit, 2, 2)
	require.NoError(t, err)
	for gate := 0; gate < 2; gate++ {
		for frame := 0; frame < 2; frame++ {
			ds.FillBox(vox{X: 1, Y: 1, Z: 1, Frame: frame, Gate: gate}, vox{X: 2, Y: 2, Z: 2}, float64(10*gate+frame))
		}
	}
	r := box(t, unit, pt{X: 2, Y: 2, Z: 2})

	results, err := AnalyzeAll(context.Background(), r, ds, Options{}, Calculation{}, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, res := range results {
		assert.Equal(t, 8, res.Stats.Voxels)
		assert.InDelta(t, float64(10*res.Gate+res.Frame), res.Stats.Mean, 1e-12)
	}
	assert.Equal(t, 1, results[1].Frame)
	assert.Equal(t, 0, results[1].Gate)

	_, err = AnalyzeAll(context.Background(), r, ds, Options{}, Calculation{Kind: HighestFraction}, 2)
	assert.Error(t, err)
}

func BenchmarkAnalyzeFast(b *testing.B) {
	ds, _ := models.NewVolume(vox{X: 64, Y: 64, Z: 64}, unit, 1, 1)
	r, _ := roi.New("e", roi.Ellipsoid, realspace.Translated(pt{X: 8, Y: 8, Z: 8}), pt{X: 48, Y: 48, Z: 48})
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Accumulate(ctx, r, ds, 0, 0, Options{})
	}
}
