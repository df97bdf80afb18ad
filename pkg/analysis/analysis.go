// Package analysis measures data sets inside (or outside) regions of interest.
//
// Analyze walks the data-set voxels that overlap an ROI and reports, for each,
// the fraction of the voxel's volume inside the ROI. Accumulator gathers those
// callbacks into Statistics.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"amideroi/internal/logging"
	"amideroi/pkg/isocontour"
	"amideroi/pkg/metrics"
	"amideroi/pkg/realspace"
	"amideroi/pkg/roi"
)

// DefaultGranularity is the number of subvoxel samples per axis.
const DefaultGranularity = 10

// ErrFrameOutOfRange is returned for frame or gate indices the data set lacks.
var ErrFrameOutOfRange = errors.New("analysis: frame or gate out of range")

// Source is a data set that can be analyzed.
type Source interface {
	isocontour.Source
	NumFrames() int
	NumGates() int
}

// Options selects the iteration strategy.
type Options struct {
	// Inverse visits the voxels outside the ROI with weight 1-w.
	Inverse bool
	// Accurate subsamples every candidate voxel instead of trusting the
	// corner and center test.
	Accurate bool
	// Granularity is the subvoxel samples per axis; zero means DefaultGranularity.
	Granularity int
}

func (o Options) granularity() int {
	if o.Granularity <= 0 {
		return DefaultGranularity
	}
	return o.Granularity
}

// VisitFunc receives a data-set voxel, its value and the fraction of it that
// is inside the ROI (outside, for inverse runs). weight is always in (0, 1].
type VisitFunc func(v realspace.Voxel, value, weight float64)

// plan is the per-call geometry shared by every z-slab of one analysis.
type plan struct {
	roi *roi.ROI
	ds  Source
	// rel maps data-set local coordinates to ROI local coordinates
	rel realspace.Frame
	dim realspace.Voxel
	vs  realspace.Point

	// lo and hi bound the candidate voxels, inclusive
	lo, hi realspace.Voxel
	empty  bool

	frame, gate  int
	inverse      bool
	subvoxelOnly bool
	g            int
}

func newPlan(r *roi.ROI, ds Source, frame, gate int, opts Options) (*plan, error) {
	if frame < 0 || frame >= ds.NumFrames() || gate < 0 || gate >= ds.NumGates() {
		return nil, fmt.Errorf("frame %d gate %d of %d/%d: %w",
			frame, gate, ds.NumFrames(), ds.NumGates(), ErrFrameOutOfRange)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	dim := ds.Dim()
	p := &plan{
		roi:     r,
		ds:      ds,
		rel:     realspace.Relative(ds.Space(), r.Space),
		dim:     dim,
		vs:      ds.VoxelSize(),
		frame:   frame,
		gate:    gate,
		inverse: opts.Inverse,
		g:       opts.granularity(),
	}
	p.subvoxelOnly = opts.Accurate || dim.X <= 1 || dim.Y <= 1 || dim.Z <= 1

	if r.Undrawn() || dim.Count() == 0 {
		p.empty = true
		return p, nil
	}

	blo, bhi := r.Bounds(ds.Space())
	for a := realspace.XAxis; a < realspace.NumAxes; a++ {
		n := component(dim, a)
		size := realspace.Component(p.vs, a)
		lo := math.Floor(realspace.Component(blo, a)/size) - 1
		hi := math.Floor(realspace.Component(bhi, a)/size) + 1
		if math.IsNaN(lo) || math.IsNaN(hi) || hi < 0 || lo > float64(n-1) {
			p.empty = true
			return p, nil
		}
		setComponent(&p.lo, a, int(math.Max(lo, 0)))
		setComponent(&p.hi, a, int(math.Min(hi, float64(n-1))))
	}
	return p, nil
}

func component(v realspace.Voxel, a realspace.Axis) int {
	switch a {
	case realspace.XAxis:
		return v.X
	case realspace.YAxis:
		return v.Y
	default:
		return v.Z
	}
}

func setComponent(v *realspace.Voxel, a realspace.Axis, n int) {
	switch a {
	case realspace.XAxis:
		v.X = n
	case realspace.YAxis:
		v.Y = n
	default:
		v.Z = n
	}
}

func (p *plan) contains(q realspace.Point) bool {
	return p.roi.Contains(realspace.AltToBase(q, p.rel))
}

func (p *plan) inRange(x, y, z int) bool {
	return !p.empty &&
		x >= p.lo.X && x <= p.hi.X &&
		y >= p.lo.Y && y <= p.hi.Y &&
		z >= p.lo.Z && z <= p.hi.Z
}

// cornerPlane records, for the voxel-corner lattice at height z over the
// candidate range, which corners are inside the ROI.
func (p *plan) cornerPlane(plane []bool, z int) {
	nx := p.hi.X - p.lo.X + 2
	ny := p.hi.Y - p.lo.Y + 2
	for yy := 0; yy < ny; yy++ {
		for xx := 0; xx < nx; xx++ {
			q := realspace.Point{
				X: float64(p.lo.X+xx) * p.vs.X,
				Y: float64(p.lo.Y+yy) * p.vs.Y,
				Z: float64(z) * p.vs.Z,
			}
			plane[yy*nx+xx] = p.contains(q)
		}
	}
}

// subvoxel returns the fraction of g^3 subcell centers of v inside the ROI.
func (p *plan) subvoxel(v realspace.Voxel) float64 {
	step := realspace.Point{X: p.vs.X / float64(p.g), Y: p.vs.Y / float64(p.g), Z: p.vs.Z / float64(p.g)}
	base := realspace.Mul(v.Point(), p.vs)
	n := 0
	for k := 0; k < p.g; k++ {
		qz := base.Z + (float64(k)+0.5)*step.Z
		for j := 0; j < p.g; j++ {
			qy := base.Y + (float64(j)+0.5)*step.Y
			for i := 0; i < p.g; i++ {
				q := realspace.Point{X: base.X + (float64(i)+0.5)*step.X, Y: qy, Z: qz}
				if p.contains(q) {
					n++
				}
			}
		}
	}
	return float64(n) / float64(p.g*p.g*p.g)
}

// run visits the z-slices [z0, z1) and returns the number of callbacks and
// subsampled voxels.
func (p *plan) run(ctx context.Context, z0, z1 int, fn VisitFunc) (visited, subsampled int, err error) {
	var below, above []bool
	nx := p.hi.X - p.lo.X + 2
	if !p.empty && !p.subvoxelOnly {
		ny := p.hi.Y - p.lo.Y + 2
		below = make([]bool, nx*ny)
		above = make([]bool, nx*ny)
	}
	planeZ := -1

	ylo, yhi, xlo, xhi := 0, p.dim.Y-1, 0, p.dim.X-1
	if !p.inverse {
		ylo, yhi, xlo, xhi = p.lo.Y, p.hi.Y, p.lo.X, p.hi.X
	}

	for z := z0; z < z1; z++ {
		if err := ctx.Err(); err != nil {
			return visited, subsampled, err
		}
		zIn := !p.empty && z >= p.lo.Z && z <= p.hi.Z
		if !zIn && !p.inverse {
			continue
		}
		if zIn && below != nil {
			if planeZ != z {
				p.cornerPlane(below, z)
			}
			p.cornerPlane(above, z+1)
		}

		for y := ylo; y <= yhi; y++ {
			for x := xlo; x <= xhi; x++ {
				v := realspace.Voxel{X: x, Y: y, Z: z, Frame: p.frame, Gate: p.gate}
				w := 1.0
				if p.inRange(x, y, z) {
					var sub bool
					w, sub = p.weight(v, below, above, nx)
					if sub {
						subsampled++
					}
					if p.inverse {
						w = 1 - w
					}
				} else if !p.inverse {
					continue
				}
				if w <= 0 {
					continue
				}
				fn(v, p.ds.Value(v), w)
				visited++
			}
		}

		if zIn && below != nil {
			below, above = above, below
			planeZ = z + 1
		}
	}
	return visited, subsampled, nil
}

// weight returns the in-ROI fraction of a candidate voxel and whether it had
// to be subsampled.
func (p *plan) weight(v realspace.Voxel, below, above []bool, nx int) (float64, bool) {
	if !p.subvoxelOnly {
		i := (v.Y-p.lo.Y)*nx + (v.X - p.lo.X)
		corners := [8]bool{
			below[i], below[i+1], below[i+nx], below[i+nx+1],
			above[i], above[i+1], above[i+nx], above[i+nx+1],
		}
		all, none := true, true
		for _, c := range corners {
			all = all && c
			none = none && !c
		}
		center := p.contains(v.Center(p.vs))
		if all && center {
			return 1, false
		}
		if none && !center {
			return 0, false
		}
	}
	return p.subvoxel(v), true
}

// Analyze calls fn for every voxel of ds in the given frame and gate that
// overlaps r, or that lies outside r when opts.Inverse is set. Voxels with
// weight zero are skipped. The context is checked once per z-slice.
func Analyze(ctx context.Context, r *roi.ROI, ds Source, frame, gate int, opts Options, fn VisitFunc) error {
	start := time.Now()
	p, err := newPlan(r, ds, frame, gate, opts)
	if err != nil {
		return err
	}
	visited, subsampled, err := p.run(ctx, 0, p.dim.Z, fn)
	if err != nil {
		return err
	}
	p.record(opts, visited, subsampled, time.Since(start))
	return nil
}

func (p *plan) record(opts Options, visited, subsampled int, elapsed time.Duration) {
	metrics.RecordAnalysis(opts.Accurate, opts.Inverse, visited, subsampled, elapsed)
	logging.Logger().Debug("roi analyzed",
		"roi", p.roi.Name, "frame", p.frame, "gate", p.gate,
		"accurate", opts.Accurate, "inverse", opts.Inverse, "empty", p.empty,
		"lo", fmt.Sprintf("%d,%d,%d", p.lo.X, p.lo.Y, p.lo.Z),
		"hi", fmt.Sprintf("%d,%d,%d", p.hi.X, p.hi.Y, p.hi.Z),
		"visited", visited, "subsampled", subsampled, "elapsed", elapsed)
}

// Accumulate runs Analyze into a new Accumulator.
func Accumulate(ctx context.Context, r *roi.ROI, ds Source, frame, gate int, opts Options) (*Accumulator, error) {
	acc := NewAccumulator(voxelVolume(ds))
	if err := Analyze(ctx, r, ds, frame, gate, opts, acc.Add); err != nil {
		return nil, err
	}
	return acc, nil
}

func voxelVolume(ds Source) float64 {
	vs := ds.VoxelSize()
	return vs.X * vs.Y * vs.Z
}
