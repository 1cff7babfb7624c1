package main

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gogpu/panorama"
	"github.com/gogpu/panorama/internal/config"
	"github.com/gogpu/panorama/orient"
	"github.com/gogpu/panorama/render"
)

var (
	snapshotOut   string
	snapshotYaw   float64
	snapshotPitch float64
	snapshotAt    time.Duration
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Render one view of the test card to a PNG file",
	Long: `snapshot submits a single synthetic frame, turns the camera by
--yaw and --pitch degrees and writes the captured view to --out.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := newEngine(opts, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		src := newSource(opts.SourceWidth, opts.SourceHeight, opts.SourceFps)
		img, err := snapshot(e, src, snapshotAt, snapshotYaw, snapshotPitch)
		if err != nil {
			return err
		}
		if err := writePNG(snapshotOut, img); err != nil {
			return err
		}
		slog.Info("snapshot written", "path", snapshotOut,
			"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
		return nil
	},
}

func init() {
	f := snapshotCmd.Flags()
	f.StringVarP(&snapshotOut, "out", "o", "panorama.png", "Output PNG file")
	f.Float64Var(&snapshotYaw, "yaw", 0, "Camera yaw in degrees, positive looks right")
	f.Float64Var(&snapshotPitch, "pitch", 0, "Camera pitch in degrees, positive looks up")
	f.DurationVar(&snapshotAt, "at", 0, "Source time of the test card")
}

// newEngine creates an engine for o with a surface of the render size and
// the runtime settings applied.
func newEngine(o config.Options, reg prometheus.Registerer) (*panorama.Engine, error) {
	eo, err := engineOptions(o, reg)
	if err != nil {
		return nil, err
	}
	e, err := panorama.New(eo...)
	if err != nil {
		return nil, err
	}
	s, err := render.NewImageSurface(o.RenderWidth, o.RenderHeight)
	if err == nil {
		err = e.InitDevice(s)
	}
	if err == nil {
		err = applyRuntime(e, o)
	}
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// snapshot renders the test card for t seen from yaw and pitch degrees.
func snapshot(e *panorama.Engine, src *source, t time.Duration, yaw, pitch float64) (*image.RGBA, error) {
	e.SetPixelBuffer(src.frameAt(t), t)
	e.Pan(-orient.Radians(yaw), orient.Radians(pitch))
	return e.TakePicture()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
