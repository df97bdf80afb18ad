// Package scenario reads and writes YAML descriptions of a synthetic data set
// and the ROIs drawn on it, and builds them into memory.
package scenario

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"amideroi/internal/models"
	"amideroi/pkg/isocontour"
	"amideroi/pkg/realspace"
	"amideroi/pkg/roi"
)

// Vec3 is a point or size written as a three element YAML sequence.
type Vec3 [3]float64

// Point converts v.
func (v Vec3) Point() realspace.Point {
	return realspace.Point{X: v[0], Y: v[1], Z: v[2]}
}

// Index3 is a voxel index written as a three element YAML sequence.
type Index3 [3]int

// Voxel converts i.
func (i Index3) Voxel() realspace.Voxel {
	return realspace.Voxel{X: i[0], Y: i[1], Z: i[2]}
}

// Scenario is one data set and its ROIs.
type Scenario struct {
	Volume VolumeSpec `yaml:"volume"`
	ROIs   []ROISpec  `yaml:"rois"`
}

// VolumeSpec describes a synthetic volume.
type VolumeSpec struct {
	Dim        Index3       `yaml:"dim"`
	VoxelSize  Vec3         `yaml:"voxel_size"`
	Offset     Vec3         `yaml:"offset"`
	Rotation   *Rotation    `yaml:"rotation,omitempty"`
	Frames     int          `yaml:"frames,omitempty"`
	Gates      int          `yaml:"gates,omitempty"`
	Background float64      `yaml:"background"`
	Objects    []ObjectSpec `yaml:"objects,omitempty"`
}

// ObjectSpec paints a constant-valued shape into the volume. Spheres use
// Center and Radius in local mm; boxes use the inclusive voxel range Lo..Hi.
type ObjectSpec struct {
	Shape  string  `yaml:"shape"`
	Center Vec3    `yaml:"center,omitempty"`
	Radius float64 `yaml:"radius,omitempty"`
	Lo     Index3  `yaml:"lo,omitempty"`
	Hi     Index3  `yaml:"hi,omitempty"`
	Value  float64 `yaml:"value"`
	Frame  int     `yaml:"frame,omitempty"`
	Gate   int     `yaml:"gate,omitempty"`
}

// Rotation turns a frame by AngleDeg degrees about Axis. Volumes turn about
// their origin, ROIs about their center.
type Rotation struct {
	Axis     Vec3    `yaml:"axis"`
	AngleDeg float64 `yaml:"angle_deg"`
}

// ROISpec describes one ROI. Geometric types use Offset and Corner; masked
// types use VoxelSize plus Brush strokes or an Isocontour seed.
type ROISpec struct {
	Name       string          `yaml:"name"`
	Type       string          `yaml:"type"`
	Offset     Vec3            `yaml:"offset"`
	Corner     Vec3            `yaml:"corner,omitempty"`
	Rotation   *Rotation       `yaml:"rotation,omitempty"`
	VoxelSize  Vec3            `yaml:"voxel_size,omitempty"`
	Brush      []BrushStroke   `yaml:"brush,omitempty"`
	Isocontour *IsocontourSpec `yaml:"isocontour,omitempty"`
}

// BrushStroke paints or erases a cube of mask voxels.
type BrushStroke struct {
	Voxel  Index3 `yaml:"voxel"`
	Radius int    `yaml:"radius"`
	Erase  bool   `yaml:"erase,omitempty"`
}

// IsocontourSpec seeds an isocontour fill on the scenario volume.
type IsocontourSpec struct {
	Seed  Index3  `yaml:"seed"`
	Frame int     `yaml:"frame,omitempty"`
	Gate  int     `yaml:"gate,omitempty"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Range string  `yaml:"range"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading scenario file: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing scenario file: %w", err)
	}
	return &s, nil
}

// Save writes s to path, creating the directory if needed.
func Save(s *Scenario, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating scenario directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("error marshaling scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing scenario file: %w", err)
	}
	return nil
}

// BuildVolume allocates and paints the scenario's volume.
func (s *Scenario) BuildVolume() (*models.Volume, error) {
	spec := s.Volume
	vol, err := models.NewVolume(spec.Dim.Voxel(), spec.VoxelSize.Point(), spec.Frames, spec.Gates)
	if err != nil {
		return nil, err
	}
	vol.Coords = realspace.Translated(spec.Offset.Point())
	if spec.Rotation != nil {
		spec.Rotation.apply(&vol.Coords)
	}

	for gate := 0; gate < vol.Gates; gate++ {
		for frame := 0; frame < vol.Frames; frame++ {
			vol.Fill(frame, gate, spec.Background)
		}
	}

	for i, obj := range spec.Objects {
		switch obj.Shape {
		case "sphere":
			vol.FillSphere(obj.Center.Point(), obj.Radius, obj.Frame, obj.Gate, obj.Value)
		case "box":
			lo := obj.Lo.Voxel()
			lo.Frame, lo.Gate = obj.Frame, obj.Gate
			vol.FillBox(lo, obj.Hi.Voxel(), obj.Value)
		default:
			return nil, fmt.Errorf("object %d: unknown shape %q", i, obj.Shape)
		}
	}
	return vol, nil
}

// apply rotates f about its own origin.
func (r *Rotation) apply(f *realspace.Frame) {
	f.Rotate(r.Axis.Point(), r.AngleDeg*math.Pi/180, f.Offset)
}

// BuildROIs constructs every ROI. Isocontour ROIs are grown on vol.
func (s *Scenario) BuildROIs(ctx context.Context, vol *models.Volume) ([]*roi.ROI, error) {
	out := make([]*roi.ROI, 0, len(s.ROIs))
	for i, spec := range s.ROIs {
		r, err := spec.build(ctx, vol)
		if err != nil {
			return nil, fmt.Errorf("roi %d (%s): %w", i, spec.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (spec ROISpec) build(ctx context.Context, vol *models.Volume) (*roi.ROI, error) {
	t, err := roi.ParseType(spec.Type)
	if err != nil {
		return nil, err
	}
	space := realspace.Translated(spec.Offset.Point())

	if !t.Masked() {
		r, err := roi.New(spec.Name, t, space, spec.Corner.Point())
		if err != nil {
			return nil, err
		}
		if spec.Rotation != nil {
			r.Rotate(spec.Rotation.Axis.Point(), spec.Rotation.AngleDeg*math.Pi/180)
		}
		return r, nil
	}

	vs := spec.VoxelSize.Point()
	if vs == (realspace.Point{}) {
		vs = vol.VoxelSize()
	}
	r, err := roi.NewMasked(spec.Name, t, space, vs)
	if err != nil {
		return nil, err
	}

	if t.Isocontour() {
		if spec.Isocontour == nil {
			return nil, fmt.Errorf("%s needs an isocontour seed", t)
		}
		iso := spec.Isocontour
		mode, err := isocontour.ParseRange(iso.Range)
		if err != nil {
			return nil, err
		}
		seed := iso.Seed.Voxel()
		seed.Frame, seed.Gate = iso.Frame, iso.Gate
		p := isocontour.Params{Seed: seed, Min: iso.Min, Max: iso.Max, Range: mode}
		if err := r.SetIsocontour(ctx, vol, p); err != nil {
			return nil, err
		}
	}

	// strokes are indexed in the ROI's initial frame, which moves as the mask grows
	for _, b := range spec.Brush {
		p := realspace.AltToBase(b.Voxel.Voxel().Center(vs), space)
		if err := r.PaintMaskAt(b.Erase, p, b.Radius); err != nil {
			return nil, err
		}
	}
	if spec.Rotation != nil {
		r.Rotate(spec.Rotation.Axis.Point(), spec.Rotation.AngleDeg*math.Pi/180)
	}
	return r, nil
}

// Example returns a small scenario with one of each ROI family.
func Example() *Scenario {
	return &Scenario{
		Volume: VolumeSpec{
			Dim:        Index3{32, 32, 16},
			VoxelSize:  Vec3{1, 1, 2},
			Background: 10,
			Objects: []ObjectSpec{
				{Shape: "sphere", Center: Vec3{16, 16, 16}, Radius: 8, Value: 100},
				{Shape: "box", Lo: Index3{2, 2, 2}, Hi: Index3{5, 5, 5}, Value: 50},
			},
		},
		ROIs: []ROISpec{
			{Name: "sphere-box", Type: "box", Offset: Vec3{10, 10, 10}, Corner: Vec3{12, 12, 12}},
			{Name: "sphere-ellipsoid", Type: "ellipsoid", Offset: Vec3{8, 8, 8}, Corner: Vec3{16, 16, 16}},
			{Name: "tilted-cylinder", Type: "cylinder", Offset: Vec3{12, 12, 8}, Corner: Vec3{8, 8, 16},
				Rotation: &Rotation{Axis: Vec3{1, 0, 0}, AngleDeg: 30}},
			{Name: "hot-iso", Type: "isocontour_3d", Isocontour: &IsocontourSpec{Seed: Index3{16, 16, 8}, Min: 75, Range: "above_min"}},
			{Name: "freehand", Type: "freehand_2d", Offset: Vec3{0, 0, 6}, VoxelSize: Vec3{1, 1, 2},
				Brush: []BrushStroke{{Voxel: Index3{3, 3, 0}, Radius: 1}, {Voxel: Index3{5, 3, 0}, Radius: 1}}},
		},
	}
}
