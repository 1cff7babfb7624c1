package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panoview.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFlagName(t *testing.T) {
	tests := map[string]string{
		"Config":              "config",
		"DisplayFov":          "display-fov",
		"InputOrientToDevice": "input-orient-to-device",
		"MetricsAddr":         "metrics-addr",
	}
	for in, want := range tests {
		if got := FlagName(in); got != want {
			t.Errorf("FlagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	opts := Default()
	opts.Config = writeFile(t, `
[display]
mode = "cylindrical"
fov = 90
max_fov = 120

[input]
pinch_to_zoom = false

[render]
refresh_rate = 30.5
workers = 3

[motion]
rate = "10ms"
`)
	if err := Load(&opts, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if opts.DisplayMode != "cylindrical" || opts.DisplayFov != 90 || opts.DisplayMaxFov != 120 {
		t.Errorf("display = %q %v %v", opts.DisplayMode, opts.DisplayFov, opts.DisplayMaxFov)
	}
	if opts.InputPinchToZoom {
		t.Error("pinch_to_zoom = false not applied")
	}
	if opts.RenderRefreshRate != 30.5 || opts.RenderWorkers != 3 {
		t.Errorf("render = %v %d", opts.RenderRefreshRate, opts.RenderWorkers)
	}
	if opts.MotionRate != 10*time.Millisecond {
		t.Errorf("MotionRate = %v", opts.MotionRate)
	}
	if opts.DisplayMinFov != 10 {
		t.Errorf("unset key changed DisplayMinFov to %v", opts.DisplayMinFov)
	}
}

func TestLoadMissingFile(t *testing.T) {
	opts := Default()
	opts.Config = filepath.Join(t.TempDir(), "absent.toml")
	if err := Load(&opts, nil); err != nil {
		t.Errorf("Load() with missing file = %v", err)
	}
	if opts.DisplayMode != "spherical" {
		t.Errorf("DisplayMode = %q", opts.DisplayMode)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", "[display\nmode ="},
		{"wrong type", "[display]\nfov = \"wide\"\n"},
		{"bad duration", "[motion]\nrate = \"soon\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Default()
			opts.Config = writeFile(t, tt.content)
			if err := Load(&opts, nil); err == nil {
				t.Error("Load() returned nil error")
			}
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "[display]\nmode = \"flat\"\nfov = 60\n\n[render]\nwidth = 800\n")
	t.Setenv(EnvPrefix+"DISPLAY_FOV", "100")
	t.Setenv(EnvPrefix+"RENDER_WIDTH", "1024")

	opts := Default()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&opts.RenderWidth, FlagName("RenderWidth"), opts.RenderWidth, "")
	if err := cmd.Flags().Parse([]string{"--render-width=320"}); err != nil {
		t.Fatal(err)
	}
	opts.Config = path

	if err := Load(&opts, cmd); err != nil {
		t.Fatal(err)
	}
	if opts.DisplayMode != "flat" {
		t.Errorf("DisplayMode = %q, want file value", opts.DisplayMode)
	}
	if opts.DisplayFov != 100 {
		t.Errorf("DisplayFov = %v, want env over file", opts.DisplayFov)
	}
	if opts.RenderWidth != 320 {
		t.Errorf("RenderWidth = %d, want flag over env and file", opts.RenderWidth)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"render size", func(o *Options) { o.RenderWidth = 0 }},
		{"source size", func(o *Options) { o.SourceHeight = -1 }},
		{"fov range", func(o *Options) { o.DisplayMinFov = 150 }},
		{"straight fov", func(o *Options) { o.DisplayMaxFov = 180 }},
		{"refresh", func(o *Options) { o.RenderRefreshRate = 0 }},
		{"fps", func(o *Options) { o.SourceFps = 0 }},
		{"motion rate", func(o *Options) { o.MotionRate = 0 }},
		{"filter", func(o *Options) { o.RenderFilter = "cubic" }},
		{"level", func(o *Options) { o.LoggingLevel = "loud" }},
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Default()
			tt.modify(&o)
			if err := o.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}

func TestLoaderKeepsFlags(t *testing.T) {
	base := Default()
	base.RenderHeight = 200
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&base.RenderHeight, FlagName("RenderHeight"), base.RenderHeight, "")
	if err := cmd.Flags().Set(FlagName("RenderHeight"), "200"); err != nil {
		t.Fatal(err)
	}

	load := Loader(base, cmd)
	path := writeFile(t, "[render]\nheight = 999\nwidth = 100\n")
	got, err := load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.RenderHeight != 200 || got.RenderWidth != 100 {
		t.Errorf("reloaded render = %dx%d, want 100x200", got.RenderWidth, got.RenderHeight)
	}

	bad := writeFile(t, "[render]\nwidth = -5\n")
	if _, err := load(bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("load(invalid) = %v, want ErrInvalid", err)
	}
}

func TestBindFlags(t *testing.T) {
	opts := Default()
	cmd := &cobra.Command{Use: "test"}
	BindFlags(cmd.Flags(), &opts)

	args := []string{"--display-mode=flat", "--display-fov=33.5", "--input-show-touches", "--render-workers=4", "--motion-rate=5ms"}
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	if opts.DisplayMode != "flat" || opts.DisplayFov != 33.5 || !opts.InputShowTouches || opts.RenderWorkers != 4 || opts.MotionRate != 5*time.Millisecond {
		t.Errorf("parsed options = %+v", opts)
	}
	f := cmd.Flags().Lookup("render-width")
	if f == nil || f.DefValue != "640" {
		t.Errorf("render-width flag = %+v, want default 640", f)
	}
	if f.Usage == "" {
		t.Error("render-width flag has no usage text")
	}
}
