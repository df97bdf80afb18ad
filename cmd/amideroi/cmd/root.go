// Package cmd implements the amideroi command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"amideroi/internal/logging"
	"amideroi/pkg/config"
	"amideroi/pkg/metrics"
)

// app carries the state shared by one command tree: its viper instance,
// the configuration loaded before each run and the logger built from it.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
}

// flagBinding ties a configuration key to a command flag.
type flagBinding struct {
	key  string
	flag string
}

func (a *app) bind(cmd *cobra.Command, bindings []flagBinding) {
	for _, b := range bindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(b.flag)
		}
		if err := a.v.BindPFlag(b.key, f); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", b.flag, err))
		}
	}
}

// NewRootCommand builds the amideroi command tree. Each call has its own
// configuration state, so tests can execute several trees side by side.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "amideroi",
		Short: "ROI geometry and statistics for medical image volumes",
		Long: `amideroi draws regions of interest on image volumes and computes the
statistics of the voxels they cover.

ROIs are boxes, ellipsoids, cylinders, painted masks or isocontour fills,
each in its own rotated frame. Partial voxels at the ROI surface are
weighted by sub-voxel sampling.

Examples:
  amideroi config init
  amideroi analyze --scenario scene.yaml --format yaml
  amideroi isocontour --scenario scene.yaml --seed 16,16,8 --min 75
  amideroi slice --scenario scene.yaml --axis z --pos 8 --out slice.png`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $XDG_CONFIG_HOME/amideroi, /etc/amideroi)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	root.PersistentFlags().String("metrics-textfile", "", "write prometheus metrics to this file after the command")
	a.bind(root, []flagBinding{
		{"log_level", "log-level"},
		{"log_format", "log-format"},
		{"metrics.textfile", "metrics-textfile"},
	})

	root.AddCommand(
		newAnalyzeCommand(a),
		newIsocontourCommand(a),
		newSliceCommand(a),
		newConfigCommand(a),
	)
	return root
}

// setup loads the configuration, with flags applied, and installs the logger.
func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.NewLoader(a.v).Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cfg, logOut)
	logging.SetLogger(a.log)
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug("configuration loaded", "file", used)
	}
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) writeMetrics() error {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return err
	}
	a.log.Debug("metrics written", "file", a.cfg.Metrics.Textfile)
	return nil
}
