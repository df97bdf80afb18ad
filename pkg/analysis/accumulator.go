package analysis

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"amideroi/pkg/realspace"
)

// Sample is one weighted voxel reported by Analyze.
type Sample struct {
	Voxel  realspace.Voxel
	Value  float64
	Weight float64
}

// Accumulator collects weighted samples. Its Add method is a VisitFunc.
// Accumulators from disjoint runs combine with Merge.
type Accumulator struct {
	samples     []Sample
	voxelVolume float64
}

// NewAccumulator returns an empty accumulator for voxels of the given volume.
func NewAccumulator(voxelVolume float64) *Accumulator {
	return &Accumulator{voxelVolume: voxelVolume}
}

// Add records a sample. Non-positive weights are ignored.
func (a *Accumulator) Add(v realspace.Voxel, value, weight float64) {
	if weight <= 0 {
		return
	}
	a.samples = append(a.samples, Sample{Voxel: v, Value: value, Weight: weight})
}

// Merge appends b's samples to a.
func (a *Accumulator) Merge(b *Accumulator) {
	a.samples = append(a.samples, b.samples...)
}

// Len returns the number of samples.
func (a *Accumulator) Len() int {
	return len(a.samples)
}

// Samples returns the recorded samples in visit order.
func (a *Accumulator) Samples() []Sample {
	return a.samples
}

// Statistics summarizes the weighted samples of an ROI.
// For an empty result the counts are zero and every moment is NaN.
type Statistics struct {
	Voxels           int
	FractionalVoxels float64
	Total            float64
	Mean             float64
	Variance         float64
	StdDev           float64
	StdErr           float64
	Median           float64
	Min              float64
	Max              float64
	Volume           float64
}

// Statistics computes the statistics of the samples selected by calc.
// The variance uses frequency weights, so it is zero until the fractional
// voxel count exceeds one.
func (a *Accumulator) Statistics(calc Calculation) Statistics {
	sorted := slices.Clone(a.samples)
	slices.SortStableFunc(sorted, func(x, y Sample) int { return cmp.Compare(x.Value, y.Value) })
	sorted = calc.filter(sorted)

	if len(sorted) == 0 {
		nan := math.NaN()
		return Statistics{
			Mean: nan, Variance: nan, StdDev: nan, StdErr: nan,
			Median: nan, Min: nan, Max: nan,
		}
	}

	x := make([]float64, len(sorted))
	w := make([]float64, len(sorted))
	for i, s := range sorted {
		x[i], w[i] = s.Value, s.Weight
	}

	s := Statistics{
		Voxels:           len(sorted),
		FractionalVoxels: floats.Sum(w),
		Total:            floats.Dot(x, w),
		Mean:             stat.Mean(x, w),
		Median:           stat.Quantile(0.5, stat.Empirical, x, w),
		Min:              x[0],
		Max:              x[len(x)-1],
	}
	if s.FractionalVoxels > 1 {
		s.Variance = math.Max(stat.Variance(x, w), 0)
	}
	s.StdDev = math.Sqrt(s.Variance)
	s.StdErr = s.StdDev / math.Sqrt(s.FractionalVoxels)
	s.Volume = s.FractionalVoxels * a.voxelVolume
	return s
}
