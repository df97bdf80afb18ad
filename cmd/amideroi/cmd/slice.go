package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"amideroi/pkg/visualization"
)

type sliceFlags struct {
	scenario string
	axis     string
	pos      int
	frame    int
	gate     int
	out      string
	all      string
	names    []string
	window   []float64
}

func newSliceCommand(a *app) *cobra.Command {
	var f sliceFlags

	cmd := &cobra.Command{
		Use:   "slice",
		Short: "Render volume slices with ROI outlines as PNG",
		Long: `Render an orthogonal slice of the scenario volume with the outline of
every ROI drawn over it. With --all every slice along the axis is written
into the given directory.

Examples:
  amideroi slice --scenario scene.yaml --axis z --pos 8 --out slice.png
  amideroi slice --scenario scene.yaml --axis x --all slices/ --scale 2
  amideroi slice --scenario scene.yaml --axis z --pos 8 --window 0,50 --out hot.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.out == "" && f.all == "" {
				return errors.New("one of --out or --all is required")
			}
			vol, rois, err := loadScenario(cmd.Context(), f.scenario)
			if err != nil {
				return err
			}
			rois, err = selectROIs(rois, f.names)
			if err != nil {
				return err
			}

			viewer, err := visualization.NewViewer(vol, f.frame, f.gate)
			if err != nil {
				return err
			}
			switch len(f.window) {
			case 0:
			case 2:
				viewer.SetWindow(f.window[0], f.window[1])
			default:
				return errors.New("window must be two values lo,hi")
			}

			scale := a.cfg.Output.Scale
			if f.all != "" {
				if err := viewer.SaveSliceSequence(rois, f.axis, f.all, scale); err != nil {
					return err
				}
				a.log.Info("slices written", "axis", f.axis, "dir", f.all, "rois", len(rois))
				fmt.Fprintf(cmd.OutOrStdout(), "Slices written to %s\n", f.all)
				return nil
			}

			img, err := viewer.Overlay(rois, f.axis, f.pos)
			if err != nil {
				return err
			}
			if err := visualization.SavePNG(img, f.out, scale); err != nil {
				return err
			}
			a.log.Info("slice written", "axis", f.axis, "pos", f.pos, "file", f.out)
			fmt.Fprintf(cmd.OutOrStdout(), "Slice written to %s\n", f.out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.scenario, "scenario", "s", "", "scenario file describing the volume and ROIs")
	cmd.Flags().StringVar(&f.axis, "axis", "z", "slice normal (x, y, z)")
	cmd.Flags().IntVar(&f.pos, "pos", 0, "slice index along the axis")
	cmd.Flags().IntVar(&f.frame, "frame", 0, "frame to render")
	cmd.Flags().IntVar(&f.gate, "gate", 0, "gate to render")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output PNG file")
	cmd.Flags().StringVar(&f.all, "all", "", "write every slice along the axis into this directory")
	cmd.Flags().StringSliceVar(&f.names, "roi", nil, "only outline the named ROIs")
	cmd.Flags().Float64SliceVar(&f.window, "window", nil, "display window lo,hi (default is the frame's range)")
	cmd.Flags().Int("scale", 4, "integer upscaling factor")
	_ = cmd.MarkFlagRequired("scenario")

	a.bind(cmd, []flagBinding{{"output.scale", "scale"}})
	return cmd
}
