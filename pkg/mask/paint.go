package mask

import (
	"amideroi/internal/logging"
	"amideroi/pkg/realspace"
)

var one = realspace.Voxel{X: 1, Y: 1, Z: 1}

// Paint draws (or erases) the cube of side 2*radius+1 centered on center.
// Planar masks paint a square in plane 0 and ignore center.Z.
//
// When drawing past the current bounds the mask grows to hold the whole
// brush. The returned shift is added to every old voxel index; the owner must
// move its frame origin by -shift*voxelSize to keep the mask fixed in space.
// Erasing never grows the mask. On ErrOutOfMemory the mask is unchanged.
func (m *Mask) Paint(erase bool, center realspace.Voxel, radius int) (realspace.Voxel, error) {
	radius = max(radius, 0)
	if m.Planar {
		center.Z = 0
	}
	center.Frame, center.Gate = 0, 0

	r := realspace.Voxel{X: radius, Y: radius, Z: radius}
	if m.Planar {
		r.Z = 0
	}
	lo, hi := center.Sub(r), center.Add(r)

	var shift realspace.Voxel
	if !erase {
		var err error
		shift, err = m.growToFit(lo, hi)
		if err != nil {
			return realspace.Voxel{}, err
		}
		lo, hi = lo.Add(shift), hi.Add(shift)
	}

	clo, chi := m.clip(lo, hi)
	for z := clo.Z; z <= chi.Z; z++ {
		for y := clo.Y; y <= chi.Y; y++ {
			for x := clo.X; x <= chi.X; x++ {
				i := m.index(realspace.Voxel{X: x, Y: y, Z: z})
				if erase {
					m.Data[i] = Outside
				} else if m.Data[i] == Outside {
					m.Data[i] = Edge
				}
			}
		}
	}

	margin := one
	if m.Planar {
		margin.Z = 0
	}
	m.ClassifyRegion(lo.Sub(margin), hi.Add(margin))
	return shift, nil
}

// growToFit reallocates m so that the inclusive box [lo, hi] is inside it and
// returns the index shift applied to existing content.
func (m *Mask) growToFit(lo, hi realspace.Voxel) (realspace.Voxel, error) {
	var nlo, nhi realspace.Voxel
	if m.Dim.Count() == 0 {
		nlo, nhi = lo, hi
	} else {
		last := m.Dim.Sub(one)
		if lo.X >= 0 && lo.Y >= 0 && lo.Z >= 0 && hi.X <= last.X && hi.Y <= last.Y && hi.Z <= last.Z {
			return realspace.Voxel{}, nil
		}
		nlo = realspace.Voxel{X: min(lo.X, 0), Y: min(lo.Y, 0), Z: min(lo.Z, 0)}
		nhi = realspace.Voxel{X: max(hi.X, last.X), Y: max(hi.Y, last.Y), Z: max(hi.Z, last.Z)}
	}

	dim := nhi.Sub(nlo).Add(one)
	data, err := allocate(dim)
	if err != nil {
		return realspace.Voxel{}, err
	}

	shift := realspace.Voxel{}.Sub(nlo)
	grown := &Mask{Dim: dim, Planar: m.Planar, Data: data}
	for z := 0; z < m.Dim.Z && m.Dim.Count() > 0; z++ {
		for y := 0; y < m.Dim.Y; y++ {
			src := m.index(realspace.Voxel{Y: y, Z: z})
			dst := grown.index(realspace.Voxel{X: shift.X, Y: y + shift.Y, Z: z + shift.Z})
			copy(grown.Data[dst:dst+m.Dim.X], m.Data[src:src+m.Dim.X])
		}
	}

	logging.Logger().Debug("mask grown",
		"old_x", m.Dim.X, "old_y", m.Dim.Y, "old_z", m.Dim.Z,
		"new_x", dim.X, "new_y", dim.Y, "new_z", dim.Z)
	*m = *grown
	return shift, nil
}
