package roi

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"amideroi/internal/logging"
	"amideroi/pkg/isocontour"
	"amideroi/pkg/mask"
	"amideroi/pkg/realspace"
)

// PaintMask draws or erases a brush of side 2*radius+1 mask voxels centered
// on voxel v. If the mask grows, the frame origin moves so that existing mask
// voxels keep their base-space position.
func (r *ROI) PaintMask(erase bool, v realspace.Voxel, radius int) error {
	if !r.Type.Masked() {
		return fmt.Errorf("paint %s %q: %w", r.Type, r.Name, ErrWrongType)
	}
	if r.Mask == nil {
		m, err := mask.New(realspace.Voxel{}, r.Type.Planar())
		if err != nil {
			return err
		}
		r.Mask = m
	}

	shift, err := r.Mask.Paint(erase, v, radius)
	if err != nil {
		return fmt.Errorf("paint %s %q: %w", r.Type, r.Name, err)
	}
	if shift != (realspace.Voxel{}) {
		r.Space.Offset = realspace.AltToBase(r3.Scale(-1, realspace.Mul(shift.Point(), r.VoxelSize)), r.Space)
		logging.Logger().Debug("roi frame shifted after mask growth",
			"roi", r.Name, "shift_x", shift.X, "shift_y", shift.Y, "shift_z", shift.Z)
	}
	r.updateCorner()
	return nil
}

// PaintMaskAt paints like PaintMask with the brush centered on the mask
// voxel containing the base-space point p.
func (r *ROI) PaintMaskAt(erase bool, p realspace.Point, radius int) error {
	if !r.Type.Masked() {
		return fmt.Errorf("paint %s %q: %w", r.Type, r.Name, ErrWrongType)
	}
	v := realspace.PointToVoxel(realspace.BaseToAlt(p, r.Space), r.VoxelSize)
	return r.PaintMask(erase, v, radius)
}

// SetIsocontour replaces the ROI's mask with the region grown on src from
// p.Seed. The ROI takes over src's orientation and voxel size.
func (r *ROI) SetIsocontour(ctx context.Context, src isocontour.Source, p isocontour.Params) error {
	if !r.Type.Isocontour() {
		return fmt.Errorf("isocontour on %s %q: %w", r.Type, r.Name, ErrWrongType)
	}
	p.Planar = r.Type.Planar()

	res, err := isocontour.Grow(ctx, src, p)
	if err != nil {
		return fmt.Errorf("isocontour on %q: %w", r.Name, err)
	}

	r.Mask = res.Mask
	r.Space = res.Space
	r.VoxelSize = res.VoxelSize
	r.Contour = &p
	r.updateCorner()
	return nil
}

// IntersectionSlice samples the ROI on a planar grid: pixel (i,j) of the
// result is set when the center of the slice voxel (i,j,0) of frame slice,
// with the given dimensions and voxel size, lies inside the ROI. The mask is
// edge classified so callers can draw outlines.
func (r *ROI) IntersectionSlice(slice realspace.Frame, dim realspace.Voxel, voxelSize realspace.Point) (*mask.Mask, error) {
	dim.Z = 1
	out, err := mask.New(dim, true)
	if err != nil {
		return nil, err
	}
	if r.Undrawn() {
		return out, nil
	}

	rel := realspace.Relative(slice, r.Space)
	for y := 0; y < dim.Y; y++ {
		for x := 0; x < dim.X; x++ {
			v := realspace.Voxel{X: x, Y: y}
			if r.Contains(realspace.AltToBase(v.Center(voxelSize), rel)) {
				out.Set(v, mask.Edge)
			}
		}
	}
	out.ClassifyAll()
	return out, nil
}
