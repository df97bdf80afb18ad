// Package isocontour grows a connected voxel region from a seed.
//
// The fill is a depth-first search without an explicit stack: every visited
// voxel stores which neighbor discovered it in a direction byte, and the
// cursor backs up along those bits when it runs out of unchecked neighbors.
package isocontour

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"amideroi/internal/logging"
	"amideroi/pkg/mask"
	"amideroi/pkg/metrics"
	"amideroi/pkg/realspace"
)

// Epsilon widens threshold bounds by Epsilon*|bound| to absorb rounding.
const Epsilon = 1e-5

// checkInterval is the number of cursor moves between context checks.
const checkInterval = 1 << 14

// ErrSeedOutOfRange is returned when the seed is not inside the data set.
var ErrSeedOutOfRange = errors.New("isocontour: seed voxel outside data set")

// Source is the data set a contour is grown on.
type Source interface {
	Dim() realspace.Voxel
	VoxelSize() realspace.Point
	Space() realspace.Frame
	Value(v realspace.Voxel) float64
}

// Range selects which side of the thresholds belongs to the contour.
type Range int

const (
	AboveMin Range = iota
	BelowMax
	BetweenMinMax
)

func (r Range) String() string {
	switch r {
	case AboveMin:
		return "above_min"
	case BelowMax:
		return "below_max"
	case BetweenMinMax:
		return "between"
	default:
		return fmt.Sprintf("Range(%d)", int(r))
	}
}

// ParseRange parses the names produced by Range.String.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above_min", "above", "min":
		return AboveMin, nil
	case "below_max", "below", "max":
		return BelowMax, nil
	case "between", "between_min_max":
		return BetweenMinMax, nil
	default:
		return 0, fmt.Errorf("unknown isocontour range %q", s)
	}
}

// Accept reports whether value satisfies the range for the given bounds.
func (r Range) Accept(value, lo, hi float64) bool {
	above := value >= lo-Epsilon*math.Abs(lo)
	below := value <= hi+Epsilon*math.Abs(hi)
	switch r {
	case AboveMin:
		return above
	case BelowMax:
		return below
	default:
		return above && below
	}
}

// Params configures a fill. Seed.Frame and Seed.Gate select the sampled
// frame and gate. Planar fills stay in the seed's z-plane.
type Params struct {
	Seed   realspace.Voxel
	Min    float64
	Max    float64
	Range  Range
	Planar bool
}

// Result is a grown contour in the geometry of its source.
type Result struct {
	// Mask is the cropped, edge-classified contour.
	Mask *mask.Mask
	// Offset is the source voxel at the mask's first voxel.
	Offset realspace.Voxel
	// Space places the mask in base coordinates: its origin is the low
	// corner of Offset and its axes are the source's.
	Space     realspace.Frame
	VoxelSize realspace.Point
}

// Voxels returns the number of voxels in the contour.
func (r *Result) Voxels() int {
	return r.Mask.Count()
}

const (
	inside  uint8 = 1 << 0
	checked uint8 = 1 << 1
	backXP  uint8 = 1 << 2
	backXN  uint8 = 1 << 3
	backYP  uint8 = 1 << 4
	backYN  uint8 = 1 << 5
	backZP  uint8 = 1 << 6
	backZN  uint8 = 1 << 7

	backMask = backXP | backXN | backYP | backYN | backZP | backZN
)

// backBits encodes the step that leads from a newly found voxel back to the
// voxel that found it, i.e. the negation of the forward step (dx, dy, dz).
func backBits(dx, dy, dz int) uint8 {
	var b uint8
	switch {
	case dx > 0:
		b |= backXN
	case dx < 0:
		b |= backXP
	}
	switch {
	case dy > 0:
		b |= backYN
	case dy < 0:
		b |= backYP
	}
	switch {
	case dz > 0:
		b |= backZN
	case dz < 0:
		b |= backZP
	}
	return b
}

func backStep(b uint8) realspace.Voxel {
	var v realspace.Voxel
	if b&backXP != 0 {
		v.X = 1
	} else if b&backXN != 0 {
		v.X = -1
	}
	if b&backYP != 0 {
		v.Y = 1
	} else if b&backYN != 0 {
		v.Y = -1
	}
	if b&backZP != 0 {
		v.Z = 1
	} else if b&backZN != 0 {
		v.Z = -1
	}
	return v
}

// Grow floods every voxel reachable from p.Seed through 26 (8 when planar)
// neighbors whose value satisfies the range. A seed that fails the range
// still yields a single-voxel contour.
func Grow(ctx context.Context, src Source, p Params) (*Result, error) {
	dim := src.Dim()
	seed := p.Seed
	if !seed.InBounds(dim) {
		return nil, fmt.Errorf("seed (%d,%d,%d) in %dx%dx%d: %w",
			seed.X, seed.Y, seed.Z, dim.X, dim.Y, dim.Z, ErrSeedOutOfRange)
	}

	// grid is the search space; planar fills map grid z=0 to the seed plane
	grid := realspace.Voxel{X: dim.X, Y: dim.Y, Z: dim.Z}
	zBase := 0
	zr := 1
	if p.Planar {
		grid.Z = 1
		zBase = seed.Z
		zr = 0
	}
	if n := grid.Count(); n > mask.MaxVoxels {
		return nil, fmt.Errorf("isocontour scratch grid of %d voxels: %w", n, mask.ErrOutOfMemory)
	}

	value := func(x, y, z int) float64 {
		return src.Value(realspace.Voxel{X: x, Y: y, Z: z + zBase, Frame: seed.Frame, Gate: seed.Gate})
	}
	accept := func(x, y, z int) bool {
		return p.Range.Accept(value(x, y, z), p.Min, p.Max)
	}

	tmp := make([]uint8, grid.Count())
	idx := func(x, y, z int) int { return x + y*grid.X + z*grid.X*grid.Y }

	cx, cy, cz := seed.X, seed.Y, seed.Z-zBase
	tmp[idx(cx, cy, cz)] = inside | checked

	if accept(cx, cy, cz) {
		steps := 0
		for {
			steps++
			if steps%checkInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			moved := false
		scan:
			for dz := -zr; dz <= zr; dz++ {
				z := cz + dz
				if z < 0 || z >= grid.Z {
					continue
				}
				for dy := -1; dy <= 1; dy++ {
					y := cy + dy
					if y < 0 || y >= grid.Y {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						x := cx + dx
						if x < 0 || x >= grid.X {
							continue
						}
						i := idx(x, y, z)
						if tmp[i]&checked != 0 {
							continue
						}
						tmp[i] |= checked
						if accept(x, y, z) {
							tmp[i] |= inside | backBits(dx, dy, dz)
							cx, cy, cz = x, y, z
							moved = true
							break scan
						}
					}
				}
			}
			if moved {
				continue
			}

			b := tmp[idx(cx, cy, cz)] & backMask
			if b == 0 {
				break
			}
			s := backStep(b)
			cx, cy, cz = cx+s.X, cy+s.Y, cz+s.Z
		}
	}

	return compact(tmp, grid, zBase, src, p.Planar)
}

// compact crops the inside voxels of the scratch grid into an edge
// classified mask and places it in the source's geometry.
func compact(tmp []uint8, grid realspace.Voxel, zBase int, src Source, planar bool) (*Result, error) {
	lo := grid
	hi := realspace.Voxel{X: -1, Y: -1, Z: -1}
	for z := 0; z < grid.Z; z++ {
		for y := 0; y < grid.Y; y++ {
			for x := 0; x < grid.X; x++ {
				if tmp[x+y*grid.X+z*grid.X*grid.Y]&inside == 0 {
					continue
				}
				lo.X, lo.Y, lo.Z = min(lo.X, x), min(lo.Y, y), min(lo.Z, z)
				hi.X, hi.Y, hi.Z = max(hi.X, x), max(hi.Y, y), max(hi.Z, z)
			}
		}
	}

	dim := hi.Sub(lo).Add(realspace.Voxel{X: 1, Y: 1, Z: 1})
	m, err := mask.New(dim, planar)
	if err != nil {
		return nil, err
	}
	for z := 0; z < dim.Z; z++ {
		for y := 0; y < dim.Y; y++ {
			for x := 0; x < dim.X; x++ {
				gx, gy, gz := x+lo.X, y+lo.Y, z+lo.Z
				if tmp[gx+gy*grid.X+gz*grid.X*grid.Y]&inside != 0 {
					m.Set(realspace.Voxel{X: x, Y: y, Z: z}, mask.Edge)
				}
			}
		}
	}
	m.ClassifyAll()

	offset := realspace.Voxel{X: lo.X, Y: lo.Y, Z: lo.Z + zBase}
	vs := src.VoxelSize()
	space := src.Space()
	space.Offset = realspace.AltToBase(realspace.Mul(offset.Point(), vs), space)

	res := &Result{Mask: m, Offset: offset, Space: space, VoxelSize: vs}
	n := res.Voxels()
	metrics.RecordIsocontour(n)
	logging.Logger().Debug("isocontour grown",
		"voxels", n, "dim_x", dim.X, "dim_y", dim.Y, "dim_z", dim.Z,
		"offset_x", offset.X, "offset_y", offset.Y, "offset_z", offset.Z)
	return res, nil
}
