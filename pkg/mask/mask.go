// Package mask implements the dense voxel masks behind isocontour and
// freehand ROIs.
//
// A mask stores one State per voxel in x-fastest order. Planar masks have a
// single z-plane and use 8-connectivity; volumetric masks use 26.
package mask

import (
	"errors"
	"fmt"

	"amideroi/internal/logging"
	"amideroi/pkg/realspace"
)

// State is the marking of a single mask voxel.
type State uint8

const (
	Outside State = iota
	Edge
	Interior
)

func (s State) String() string {
	switch s {
	case Outside:
		return "outside"
	case Edge:
		return "edge"
	case Interior:
		return "interior"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Neighbor counts of a fully surrounded voxel.
const (
	PlanarNeighbors     = 8
	VolumetricNeighbors = 26
)

// MaxVoxels bounds the size of any mask allocation. Larger requests fail with
// ErrOutOfMemory instead of aborting the process.
var MaxVoxels = 1 << 30

// ErrOutOfMemory is returned when a mask cannot be allocated.
var ErrOutOfMemory = errors.New("mask: allocation too large")

// Mask is a dense grid of voxel states.
type Mask struct {
	Dim    realspace.Voxel
	Planar bool
	Data   []State
}

// New allocates an all-outside mask. Planar masks always have Dim.Z == 1.
func New(dim realspace.Voxel, planar bool) (*Mask, error) {
	if planar && dim.Z > 1 {
		return nil, fmt.Errorf("planar mask with %d planes", dim.Z)
	}
	dim.Frame, dim.Gate = 0, 0
	data, err := allocate(dim)
	if err != nil {
		return nil, err
	}
	return &Mask{Dim: dim, Planar: planar, Data: data}, nil
}

func allocate(dim realspace.Voxel) (data []State, err error) {
	n := dim.Count()
	if n > MaxVoxels || n < 0 {
		logging.Logger().Warn("refusing mask allocation", "x", dim.X, "y", dim.Y, "z", dim.Z, "max", MaxVoxels)
		return nil, fmt.Errorf("%dx%dx%d voxels: %w", dim.X, dim.Y, dim.Z, ErrOutOfMemory)
	}
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("%dx%dx%d voxels: %v: %w", dim.X, dim.Y, dim.Z, r, ErrOutOfMemory)
		}
	}()
	return make([]State, n), nil
}

// Clone returns a deep copy of m.
func (m *Mask) Clone() *Mask {
	c := &Mask{Dim: m.Dim, Planar: m.Planar, Data: make([]State, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

// Empty reports whether the mask has no voxels allocated.
func (m *Mask) Empty() bool {
	return m == nil || m.Dim.Count() == 0
}

func (m *Mask) index(v realspace.Voxel) int {
	return v.X + v.Y*m.Dim.X + v.Z*m.Dim.X*m.Dim.Y
}

// Get returns the state at v. Out-of-bounds voxels are Outside.
func (m *Mask) Get(v realspace.Voxel) State {
	if !v.InBounds(m.Dim) {
		return Outside
	}
	return m.Data[m.index(v)]
}

// Set stores s at v. Out-of-bounds voxels are ignored.
func (m *Mask) Set(v realspace.Voxel, s State) {
	if !v.InBounds(m.Dim) {
		return
	}
	m.Data[m.index(v)] = s
}

// Count returns the number of set (edge or interior) voxels.
func (m *Mask) Count() int {
	n := 0
	for _, s := range m.Data {
		if s != Outside {
			n++
		}
	}
	return n
}

// Classify returns Interior when v and all of its grid neighbors are set,
// Edge when only v is set, and Outside otherwise. Neighbors outside the mask
// count as unset.
func (m *Mask) Classify(v realspace.Voxel) State {
	if m.Get(v) == Outside {
		return Outside
	}

	zr := 1
	full := VolumetricNeighbors
	if m.Planar {
		zr = 0
		full = PlanarNeighbors
	}

	n := 0
	for dz := -zr; dz <= zr; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				if m.Get(realspace.Voxel{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}) != Outside {
					n++
				}
			}
		}
	}

	if n == full {
		return Interior
	}
	return Edge
}

// ClassifyRegion re-marks every set voxel in the inclusive box [lo, hi],
// clipped to the mask.
func (m *Mask) ClassifyRegion(lo, hi realspace.Voxel) {
	lo, hi = m.clip(lo, hi)
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				v := realspace.Voxel{X: x, Y: y, Z: z}
				if s := m.Classify(v); s != Outside {
					m.Data[m.index(v)] = s
				}
			}
		}
	}
}

// ClassifyAll re-marks the whole mask.
func (m *Mask) ClassifyAll() {
	m.ClassifyRegion(realspace.Voxel{}, m.Dim.Sub(realspace.Voxel{X: 1, Y: 1, Z: 1}))
}

func (m *Mask) clip(lo, hi realspace.Voxel) (realspace.Voxel, realspace.Voxel) {
	lo.X, lo.Y, lo.Z = max(lo.X, 0), max(lo.Y, 0), max(lo.Z, 0)
	hi.X, hi.Y, hi.Z = min(hi.X, m.Dim.X-1), min(hi.Y, m.Dim.Y-1), min(hi.Z, m.Dim.Z-1)
	return lo, hi
}

// Bounds returns the inclusive box of set voxels. ok is false for an empty mask.
func (m *Mask) Bounds() (lo, hi realspace.Voxel, ok bool) {
	lo = m.Dim
	hi = realspace.Voxel{X: -1, Y: -1, Z: -1}
	for z := 0; z < m.Dim.Z; z++ {
		for y := 0; y < m.Dim.Y; y++ {
			for x := 0; x < m.Dim.X; x++ {
				if m.Data[x+y*m.Dim.X+z*m.Dim.X*m.Dim.Y] == Outside {
					continue
				}
				lo.X, lo.Y, lo.Z = min(lo.X, x), min(lo.Y, y), min(lo.Z, z)
				hi.X, hi.Y, hi.Z = max(hi.X, x), max(hi.Y, y), max(hi.Z, z)
				ok = true
			}
		}
	}
	if !ok {
		return realspace.Voxel{}, realspace.Voxel{}, false
	}
	return lo, hi, true
}

// Crop returns the sub-mask covering the inclusive box [lo, hi].
func (m *Mask) Crop(lo, hi realspace.Voxel) (*Mask, error) {
	lo, hi = m.clip(lo, hi)
	dim := hi.Sub(lo).Add(realspace.Voxel{X: 1, Y: 1, Z: 1})
	if dim.Count() == 0 {
		return New(realspace.Voxel{}, m.Planar)
	}
	out, err := New(dim, m.Planar)
	if err != nil {
		return nil, err
	}
	for z := 0; z < dim.Z; z++ {
		for y := 0; y < dim.Y; y++ {
			src := m.index(realspace.Voxel{X: lo.X, Y: lo.Y + y, Z: lo.Z + z})
			dst := out.index(realspace.Voxel{Y: y, Z: z})
			copy(out.Data[dst:dst+dim.X], m.Data[src:src+dim.X])
		}
	}
	return out, nil
}

// CenterOfMass returns the mean local-space center of the set voxels for the
// given voxel size. An empty mask returns the origin.
func (m *Mask) CenterOfMass(voxelSize realspace.Point) realspace.Point {
	var sum realspace.Point
	n := 0
	for z := 0; z < m.Dim.Z; z++ {
		for y := 0; y < m.Dim.Y; y++ {
			for x := 0; x < m.Dim.X; x++ {
				v := realspace.Voxel{X: x, Y: y, Z: z}
				if m.Data[m.index(v)] == Outside {
					continue
				}
				c := v.Center(voxelSize)
				sum.X += c.X
				sum.Y += c.Y
				sum.Z += c.Z
				n++
			}
		}
	}
	if n == 0 {
		return realspace.Point{}
	}
	return realspace.Point{X: sum.X / float64(n), Y: sum.Y / float64(n), Z: sum.Z / float64(n)}
}
