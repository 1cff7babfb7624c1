// Command panoview renders a synthetic 360° video stream with the panorama
// engine. It can write a single snapshot or run the live render loop with
// simulated motion, Prometheus metrics and config hot reload.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/panorama"
	"github.com/gogpu/panorama/internal/config"
)

var (
	opts = config.Default()

	// base holds the flag-level settings before the config file and
	// environment are applied. Reloads start from it.
	base config.Options

	level = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "panoview",
	Short: "Render synthetic 360° video with the panorama engine",
	Long: `panoview drives the panorama display engine with a synthetic
equirectangular source. Settings come from a TOML file, PANOVIEW_*
environment variables and flags, in increasing precedence.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	config.BindFlags(rootCmd.PersistentFlags(), &opts)
	rootCmd.AddCommand(snapshotCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	base = opts
	if err := config.Load(&opts, cmd); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	l, err := config.ParseLevel(opts.LoggingLevel)
	if err != nil {
		return err
	}
	level.Set(l)
	logger := config.NewLogger(os.Stderr, opts.LoggingFormat, level)
	slog.SetDefault(logger)
	panorama.SetLogger(logger)
	logger.Debug("configuration loaded", "config", opts.Config, "mode", opts.DisplayMode, "fov", opts.DisplayFov)
	return nil
}
