package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"amideroi/pkg/analysis"
	"amideroi/pkg/roi"
)

type frameReport struct {
	Frame            int     `yaml:"frame"`
	Gate             int     `yaml:"gate"`
	Voxels           int     `yaml:"voxels"`
	FractionalVoxels float64 `yaml:"fractional_voxels"`
	Volume           float64 `yaml:"volume_mm3"`
	Total            float64 `yaml:"total"`
	Mean             float64 `yaml:"mean"`
	Median           float64 `yaml:"median"`
	StdDev           float64 `yaml:"stddev"`
	StdErr           float64 `yaml:"stderr"`
	Min              float64 `yaml:"min"`
	Max              float64 `yaml:"max"`
}

type roiReport struct {
	Name   string        `yaml:"name"`
	Type   string        `yaml:"type"`
	Frames []frameReport `yaml:"frames"`
}

func newROIReport(r *roi.ROI, results []analysis.FrameResult) roiReport {
	rep := roiReport{Name: r.Name, Type: r.Type.String(), Frames: make([]frameReport, len(results))}
	for i, res := range results {
		s := res.Stats
		rep.Frames[i] = frameReport{
			Frame:            res.Frame,
			Gate:             res.Gate,
			Voxels:           s.Voxels,
			FractionalVoxels: s.FractionalVoxels,
			Volume:           s.Volume,
			Total:            s.Total,
			Mean:             s.Mean,
			Median:           s.Median,
			StdDev:           s.StdDev,
			StdErr:           s.StdErr,
			Min:              s.Min,
			Max:              s.Max,
		}
	}
	return rep
}

func writeReports(w io.Writer, format string, reports []roiReport) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ROI\tTYPE\tFRAME\tGATE\tVOXELS\tVOLUME\tMEAN\tMEDIAN\tSTDDEV\tMIN\tMAX")
		for _, r := range reports {
			for _, f := range r.Frames {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.3f\t%.3f\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n",
					r.Name, r.Type, f.Frame, f.Gate, f.FractionalVoxels, f.Volume,
					f.Mean, f.Median, f.StdDev, f.Min, f.Max)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
