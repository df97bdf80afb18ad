package analysis

import (
	"context"
	"runtime"
	"sync"
	"time"

	"amideroi/pkg/roi"
)

// AnalyzeParallel accumulates like Accumulate with the z-range split into
// contiguous slabs, one goroutine per slab. Slab results are merged in z
// order, so the statistics equal those of the serial run. workers <= 0 uses
// one slab per CPU.
func AnalyzeParallel(ctx context.Context, r *roi.ROI, ds Source, frame, gate int, opts Options, workers int) (*Accumulator, error) {
	start := time.Now()
	p, err := newPlan(r, ds, frame, gate, opts)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	numSlices := p.dim.Z
	workers = max(min(workers, numSlices), 1)
	slicesPerWorker := (numSlices + workers - 1) / workers

	type slab struct {
		acc        *Accumulator
		visited    int
		subsampled int
		err        error
	}
	slabs := make([]slab, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			startSlice := workerID * slicesPerWorker
			endSlice := min((workerID+1)*slicesPerWorker, numSlices)
			out := &slabs[workerID]
			out.acc = NewAccumulator(voxelVolume(ds))
			if startSlice >= endSlice {
				return
			}
			out.visited, out.subsampled, out.err = p.run(ctx, startSlice, endSlice, out.acc.Add)
		}(w)
	}
	wg.Wait()

	acc := NewAccumulator(voxelVolume(ds))
	visited, subsampled := 0, 0
	for _, s := range slabs {
		if s.err != nil {
			return nil, s.err
		}
		acc.Merge(s.acc)
		visited += s.visited
		subsampled += s.subsampled
	}
	p.record(opts, visited, subsampled, time.Since(start))
	return acc, nil
}

// FrameResult holds the statistics of one frame and gate.
type FrameResult struct {
	Frame int
	Gate  int
	Stats Statistics
}

// AnalyzeAll computes statistics for every frame and gate of ds, gate-major.
func AnalyzeAll(ctx context.Context, r *roi.ROI, ds Source, opts Options, calc Calculation, workers int) ([]FrameResult, error) {
	if err := calc.Validate(); err != nil {
		return nil, err
	}
	results := make([]FrameResult, 0, ds.NumFrames()*ds.NumGates())
	for gate := 0; gate < ds.NumGates(); gate++ {
		for frame := 0; frame < ds.NumFrames(); frame++ {
			acc, err := AnalyzeParallel(ctx, r, ds, frame, gate, opts, workers)
			if err != nil {
				return nil, err
			}
			results = append(results, FrameResult{Frame: frame, Gate: gate, Stats: acc.Statistics(calc)})
		}
	}
	return results, nil
}
