package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"amideroi/internal/models"
	"amideroi/pkg/analysis"
	"amideroi/pkg/roi"
	"amideroi/pkg/scenario"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var scenarioFile string
	var names []string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute ROI statistics over every frame and gate",
		Long: `Build the volume and ROIs of a scenario file and report, for each ROI,
frame and gate, the weighted statistics of the voxels it covers.

Examples:
  amideroi analyze --scenario scene.yaml
  amideroi analyze --scenario scene.yaml --accurate --granularity 20
  amideroi analyze --scenario scene.yaml --inverse --roi hot-iso
  amideroi analyze --scenario scene.yaml --calculation highest_fraction --param 0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, rois, err := loadScenario(cmd.Context(), scenarioFile)
			if err != nil {
				return err
			}
			rois, err = selectROIs(rois, names)
			if err != nil {
				return err
			}

			calc, err := a.cfg.Analysis.Calc()
			if err != nil {
				return err
			}
			reports, err := a.analyze(cmd.Context(), vol, rois, calc)
			if err != nil {
				return err
			}
			return writeReports(cmd.OutOrStdout(), a.cfg.Output.Format, reports)
		},
	}

	cmd.Flags().StringVarP(&scenarioFile, "scenario", "s", "", "scenario file describing the volume and ROIs")
	cmd.Flags().StringSliceVar(&names, "roi", nil, "only analyze the named ROIs")
	cmd.Flags().Bool("accurate", false, "sub-voxel sample every boundary voxel")
	cmd.Flags().Bool("inverse", false, "analyze the voxels outside each ROI")
	cmd.Flags().Int("granularity", analysis.DefaultGranularity, "sub-voxel samples per axis")
	cmd.Flags().IntP("workers", "w", 0, "parallel z-slabs (0 = number of CPUs)")
	cmd.Flags().String("calculation", analysis.AllVoxels.String(),
		"voxel selection (all, highest_fraction, near_max, above_value)")
	cmd.Flags().Float64("param", 0, "fraction, percent or threshold for the calculation")
	cmd.Flags().StringP("format", "f", "text", "output format (text, yaml)")
	_ = cmd.MarkFlagRequired("scenario")

	a.bind(cmd, []flagBinding{
		{"analysis.accurate", "accurate"},
		{"analysis.inverse", "inverse"},
		{"analysis.granularity", "granularity"},
		{"analysis.workers", "workers"},
		{"analysis.calculation", "calculation"},
		{"analysis.calculation_param", "param"},
		{"output.format", "format"},
	})
	return cmd
}

func (a *app) analyze(ctx context.Context, vol *models.Volume, rois []*roi.ROI, calc analysis.Calculation) ([]roiReport, error) {
	opts := a.cfg.Analysis.Options()
	reports := make([]roiReport, 0, len(rois))
	for _, r := range rois {
		start := time.Now()
		results, err := analysis.AnalyzeAll(ctx, r, vol, opts, calc, a.cfg.Analysis.Workers)
		if err != nil {
			return nil, fmt.Errorf("roi %s: %w", r.Name, err)
		}
		a.log.Info("roi analyzed",
			"roi", r.Name,
			"type", r.Type.String(),
			"frames", len(results),
			"elapsed", time.Since(start))
		reports = append(reports, newROIReport(r, results))
	}
	return reports, nil
}

// loadScenario reads a scenario file and builds its volume and ROIs.
func loadScenario(ctx context.Context, path string) (*models.Volume, []*roi.ROI, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, nil, err
	}
	vol, err := s.BuildVolume()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build volume: %w", err)
	}
	rois, err := s.BuildROIs(ctx, vol)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build ROIs: %w", err)
	}
	return vol, rois, nil
}

// selectROIs keeps the named ROIs, in the order given. No names keeps all.
func selectROIs(rois []*roi.ROI, names []string) ([]*roi.ROI, error) {
	if len(names) == 0 {
		return rois, nil
	}
	byName := make(map[string]*roi.ROI, len(rois))
	for _, r := range rois {
		byName[r.Name] = r
	}
	out := make([]*roi.ROI, 0, len(names))
	for _, n := range names {
		r, ok := byName[n]
		if !ok {
			return nil, errors.New("unknown roi: " + n)
		}
		out = append(out, r)
	}
	return out, nil
}
