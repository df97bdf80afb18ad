package models

import (
	"fmt"
	"math"

	"amideroi/pkg/realspace"
)

// Volume is an in-memory data set: a dense scalar field over a voxel grid,
// optionally with several time frames and gates.
type Volume struct {
	// Data holds the samples as a 1D array, x fastest, then y, z, frame and gate
	Data []float64

	// Width, Height, Depth are the grid dimensions in voxels
	Width, Height, Depth int

	// Frames and Gates are the 4th and 5th dimensions, at least 1
	Frames, Gates int

	// Size is the physical size of each voxel in mm
	Size realspace.Point

	// Coords places the grid in base space; voxel (i,j,k) spans
	// [i*Size.X, (i+1)*Size.X] etc. in this frame
	Coords realspace.Frame
}

// NewVolume allocates a zero-filled volume with identity coordinates.
func NewVolume(dim realspace.Voxel, voxelSize realspace.Point, frames, gates int) (*Volume, error) {
	if dim.X <= 0 || dim.Y <= 0 || dim.Z <= 0 {
		return nil, fmt.Errorf("invalid volume dimensions %dx%dx%d", dim.X, dim.Y, dim.Z)
	}
	if voxelSize.X <= 0 || voxelSize.Y <= 0 || voxelSize.Z <= 0 {
		return nil, fmt.Errorf("voxel size must be positive, got (%g,%g,%g)", voxelSize.X, voxelSize.Y, voxelSize.Z)
	}
	frames, gates = max(frames, 1), max(gates, 1)
	return &Volume{
		Data:   make([]float64, dim.Count()*frames*gates),
		Width:  dim.X,
		Height: dim.Y,
		Depth:  dim.Z,
		Frames: frames,
		Gates:  gates,
		Size:   voxelSize,
		Coords: realspace.Identity(),
	}, nil
}

// Dim returns the spatial grid size.
func (v *Volume) Dim() realspace.Voxel {
	return realspace.Voxel{X: v.Width, Y: v.Height, Z: v.Depth}
}

// VoxelSize returns the physical voxel size.
func (v *Volume) VoxelSize() realspace.Point { return v.Size }

// Space returns the volume's coordinate frame.
func (v *Volume) Space() realspace.Frame { return v.Coords }

func (v *Volume) NumFrames() int { return v.Frames }
func (v *Volume) NumGates() int  { return v.Gates }

func (v *Volume) index(p realspace.Voxel) (int, bool) {
	if !p.InBounds(v.Dim()) || p.Frame < 0 || p.Frame >= v.Frames || p.Gate < 0 || p.Gate >= v.Gates {
		return 0, false
	}
	plane := v.Width * v.Height
	vol := plane * v.Depth
	return (p.Gate*v.Frames+p.Frame)*vol + p.Z*plane + p.Y*v.Width + p.X, true
}

// Value returns the sample at p, or 0 outside the grid.
func (v *Volume) Value(p realspace.Voxel) float64 {
	i, ok := v.index(p)
	if !ok {
		return 0
	}
	return v.Data[i]
}

// Set stores a sample; voxels outside the grid are ignored.
func (v *Volume) Set(p realspace.Voxel, value float64) {
	if i, ok := v.index(p); ok {
		v.Data[i] = value
	}
}

// Fill sets every sample of one frame and gate.
func (v *Volume) Fill(frame, gate int, value float64) {
	v.FillBox(realspace.Voxel{Frame: frame, Gate: gate},
		realspace.Voxel{X: v.Width - 1, Y: v.Height - 1, Z: v.Depth - 1, Frame: frame, Gate: gate}, value)
}

// FillBox sets the inclusive voxel box [lo, hi] in lo's frame and gate.
func (v *Volume) FillBox(lo, hi realspace.Voxel, value float64) {
	for z := max(lo.Z, 0); z <= min(hi.Z, v.Depth-1); z++ {
		for y := max(lo.Y, 0); y <= min(hi.Y, v.Height-1); y++ {
			for x := max(lo.X, 0); x <= min(hi.X, v.Width-1); x++ {
				v.Set(realspace.Voxel{X: x, Y: y, Z: z, Frame: lo.Frame, Gate: lo.Gate}, value)
			}
		}
	}
}

// FillSphere sets every voxel whose center lies within radius (mm) of the
// local point center, in the given frame and gate.
func (v *Volume) FillSphere(center realspace.Point, radius float64, frame, gate int, value float64) {
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				p := realspace.Voxel{X: x, Y: y, Z: z, Frame: frame, Gate: gate}
				c := p.Center(v.Size)
				dx, dy, dz := c.X-center.X, c.Y-center.Y, c.Z-center.Z
				if dx*dx+dy*dy+dz*dz <= radius*radius {
					v.Set(p, value)
				}
			}
		}
	}
}

// MinMax returns the smallest and largest sample over all frames and gates.
func (v *Volume) MinMax() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, d := range v.Data {
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}
