// Package visualization renders orthogonal slices of a data set with the
// outlines of the ROIs drawn on it.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"amideroi/pkg/analysis"
	"amideroi/pkg/mask"
	"amideroi/pkg/realspace"
	"amideroi/pkg/roi"
)

// Viewer extracts slices of one frame and gate of a data set.
type Viewer struct {
	ds    analysis.Source
	frame int
	gate  int

	// lo and hi are the display window; values outside are clamped
	lo, hi float64
}

// NewViewer creates a viewer over the given frame and gate of ds. The
// display window spans the frame's minimum to maximum value.
func NewViewer(ds analysis.Source, frame, gate int) (*Viewer, error) {
	if frame < 0 || frame >= ds.NumFrames() || gate < 0 || gate >= ds.NumGates() {
		return nil, fmt.Errorf("frame %d gate %d: %w", frame, gate, analysis.ErrFrameOutOfRange)
	}
	v := &Viewer{ds: ds, frame: frame, gate: gate, lo: math.Inf(1), hi: math.Inf(-1)}
	dim := ds.Dim()
	for z := 0; z < dim.Z; z++ {
		for y := 0; y < dim.Y; y++ {
			for x := 0; x < dim.X; x++ {
				val := ds.Value(realspace.Voxel{X: x, Y: y, Z: z, Frame: frame, Gate: gate})
				v.lo = math.Min(v.lo, val)
				v.hi = math.Max(v.hi, val)
			}
		}
	}
	return v, nil
}

// SetWindow overrides the display window.
func (v *Viewer) SetWindow(lo, hi float64) {
	v.lo, v.hi = lo, hi
}

// plane describes how an image of a slice maps onto the data set: image
// column u and row w run along data-set axes U and W, at index pos along N.
type plane struct {
	U, W, N realspace.Axis
	pos     int
	cols    int
	rows    int
}

func (v *Viewer) plane(axis string, position int) (plane, error) {
	if position < 0 {
		return plane{}, fmt.Errorf("position must be non-negative")
	}
	dim := v.ds.Dim()
	var p plane
	switch strings.ToLower(axis) {
	case "x":
		p = plane{U: realspace.ZAxis, W: realspace.YAxis, N: realspace.XAxis, cols: dim.Z, rows: dim.Y}
		if position >= dim.X {
			return p, fmt.Errorf("position %d exceeds width %d", position, dim.X)
		}
	case "y":
		p = plane{U: realspace.XAxis, W: realspace.ZAxis, N: realspace.YAxis, cols: dim.X, rows: dim.Z}
		if position >= dim.Y {
			return p, fmt.Errorf("position %d exceeds height %d", position, dim.Y)
		}
	case "z":
		p = plane{U: realspace.XAxis, W: realspace.YAxis, N: realspace.ZAxis, cols: dim.X, rows: dim.Y}
		if position >= dim.Z {
			return p, fmt.Errorf("position %d exceeds depth %d", position, dim.Z)
		}
	default:
		return p, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	p.pos = position
	return p, nil
}

// voxel returns the data-set voxel under image pixel (u, w).
func (p plane) voxel(u, w int) realspace.Voxel {
	var c [3]int
	c[p.U], c[p.W], c[p.N] = u, w, p.pos
	return realspace.Voxel{X: c[0], Y: c[1], Z: c[2]}
}

// frame returns the slice's coordinate frame: local x, y, z run along the
// data set's U, W, N axes, with the origin at the low face of the slice.
func (p plane) frame(ds analysis.Source) (realspace.Frame, realspace.Point) {
	space := ds.Space()
	vs := ds.VoxelSize()

	var origin realspace.Point
	origin = realspace.SetComponent(origin, p.N, float64(p.pos)*realspace.Component(vs, p.N))

	f := realspace.Frame{
		Offset: realspace.AltToBase(origin, space),
		Axes:   [3]realspace.Point{space.Axis(p.U), space.Axis(p.W), space.Axis(p.N)},
	}
	size := realspace.Point{
		X: realspace.Component(vs, p.U),
		Y: realspace.Component(vs, p.W),
		Z: realspace.Component(vs, p.N),
	}
	return f, size
}

// ExtractSlice extracts a 2D slice perpendicular to the given axis, scaled
// to the display window.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	p, err := v.plane(axis, position)
	if err != nil {
		return nil, err
	}

	span := v.hi - v.lo
	img := image.NewGray16(image.Rect(0, 0, p.cols, p.rows))
	for w := 0; w < p.rows; w++ {
		for u := 0; u < p.cols; u++ {
			vox := p.voxel(u, w)
			vox.Frame, vox.Gate = v.frame, v.gate
			norm := 0.0
			if span > 0 {
				norm = (v.ds.Value(vox) - v.lo) / span
			}
			value := uint16(math.Max(0, math.Min(65535, norm*65535)))
			img.SetGray16(u, w, color.Gray16{Y: value})
		}
	}
	return img, nil
}

// ROIMask returns the pixels of the slice whose centers lie inside r.
func (v *Viewer) ROIMask(r *roi.ROI, axis string, position int) (*mask.Mask, error) {
	p, err := v.plane(axis, position)
	if err != nil {
		return nil, err
	}
	f, size := p.frame(v.ds)
	return r.IntersectionSlice(f, realspace.Voxel{X: p.cols, Y: p.rows, Z: 1}, size)
}

// Palette colors successive ROI outlines.
var Palette = []color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{R: 64, G: 128, B: 255, A: 255},
	{R: 255, G: 255, A: 255},
	{R: 255, B: 255, A: 255},
	{G: 255, B: 255, A: 255},
}

// Overlay extracts a slice and draws the edge pixels of every ROI on it.
func (v *Viewer) Overlay(rois []*roi.ROI, axis string, position int) (*image.RGBA, error) {
	gray, err := v.ExtractSlice(axis, position)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(gray.Bounds())
	draw.Draw(out, out.Bounds(), gray, image.Point{}, draw.Src)

	for i, r := range rois {
		m, err := v.ROIMask(r, axis, position)
		if err != nil {
			return nil, fmt.Errorf("roi %s: %w", r.Name, err)
		}
		c := Palette[i%len(Palette)]
		for y := 0; y < m.Dim.Y; y++ {
			for x := 0; x < m.Dim.X; x++ {
				if m.Get(realspace.Voxel{X: x, Y: y}) == mask.Edge {
					out.SetRGBA(x, y, c)
				}
			}
		}
	}
	return out, nil
}

// Scale enlarges img by an integer factor without smoothing.
func Scale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SavePNG writes img, enlarged by scale, as a PNG file.
func SavePNG(img image.Image, filename string, scale int) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, Scale(img, scale)); err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return file.Close()
}

// SaveSliceSequence writes every slice along axis, with ROI outlines, to
// outputDir.
func (v *Viewer) SaveSliceSequence(rois []*roi.ROI, axis string, outputDir string, scale int) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	dim := v.ds.Dim()
	var maxPos int
	switch strings.ToLower(axis) {
	case "x":
		maxPos = dim.X
	case "y":
		maxPos = dim.Y
	case "z":
		maxPos = dim.Z
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.Overlay(rois, axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", strings.ToLower(axis), pos))
		if err := SavePNG(img, filename, scale); err != nil {
			return err
		}
	}
	return nil
}
