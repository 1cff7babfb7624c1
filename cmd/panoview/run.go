package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gogpu/panorama"
	"github.com/gogpu/panorama/internal/config"
)

var (
	runDuration time.Duration
	runOut      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live render loop on the synthetic source",
	Long: `run starts continuous rendering with a synthetic frame producer and a
simulated gyro. It stops on SIGINT, SIGTERM or after --duration, and can
write the last view to --out. With --config the file is watched and
display, input and logging settings are applied on save.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if runDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runDuration)
			defer cancel()
		}
		return run(ctx, cmd)
	},
}

func init() {
	f := runCmd.Flags()
	f.DurationVar(&runDuration, "duration", 0, "Stop after this long, 0 runs until interrupted")
	f.StringVarP(&runOut, "out", "o", "", "Write the final view to this PNG file")
}

func run(ctx context.Context, cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e, err := newEngine(opts, reg)
	if err != nil {
		return err
	}
	defer e.Close()

	defer panorama.Subscribe(e, func(ev panorama.FramePresented) {
		if ev.Seq%uint64(max(opts.SourceFps, 1)) == 0 {
			slog.Debug("frame presented", "seq", ev.Seq, "ts", ev.Timestamp, "dropped", ev.Dropped, "took", ev.Duration)
		}
	})()

	if opts.MetricsAddr != "" {
		stopMetrics, err := serveMetrics(opts.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	if opts.Config != "" {
		w := config.NewWatcher(opts.Config, config.Loader(base, cmd), slog.Default())
		defer w.OnReload(func(o config.Options) { reload(e, o) })()
		if err := w.Start(ctx); err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	src := newSource(opts.SourceWidth, opts.SourceHeight, opts.SourceFps)
	g := newGyro(opts.MotionRate)
	var wg sync.WaitGroup
	var produced uint64
	wg.Add(2)
	go func() {
		defer wg.Done()
		produced = src.run(ctx, e)
	}()
	go func() {
		defer wg.Done()
		g.run(ctx, e)
	}()

	if err := e.StartRendering(); err != nil {
		return err
	}
	slog.Info("rendering", "width", opts.RenderWidth, "height", opts.RenderHeight,
		"refresh_rate", opts.RenderRefreshRate, "source_fps", opts.SourceFps)

	<-ctx.Done()
	e.CleanRenderQueue()
	wg.Wait()

	if runOut != "" {
		img, err := e.TakePicture()
		if err != nil {
			return err
		}
		if err := writePNG(runOut, img); err != nil {
			return err
		}
		slog.Info("final view written", "path", runOut)
	}

	st := e.Stats()
	slog.Info("stopped", "produced", produced, "presented", st.Presented,
		"dropped", st.Frames.Dropped, "ticks_skipped", st.TicksSkipped, "failed", st.Failed)
	return nil
}

// reload applies a changed config file to the running engine.
func reload(e *panorama.Engine, o config.Options) {
	if l, err := config.ParseLevel(o.LoggingLevel); err == nil {
		level.Set(l)
	}
	if err := applyRuntime(e, o); err != nil {
		slog.Warn("config partly applied", "err", err)
		return
	}
	slog.Info("config applied", "mode", o.DisplayMode, "fov", e.FieldOfView())
}

// serveMetrics exposes reg on addr and returns a function that shuts the
// server down.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
