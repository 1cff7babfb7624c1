// Package config loads panoview settings from a TOML file, PANOVIEW_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PANOVIEW_"

// ErrInvalid is wrapped by Validate errors.
var ErrInvalid = errors.New("config: invalid value")

// Options is the flat configuration of the panoview CLI. The toml tag is a
// dotted path into the file, the env tag is appended to EnvPrefix and the
// flag name is derived from the field name ("DisplayFov" -> "display-fov").
type Options struct {
	Config string `help:"Path to the TOML configuration file"`

	DisplayMode        string  `help:"Display mode (spherical, cylindrical, flat)" toml:"display.mode" env:"DISPLAY_MODE"`
	DisplayFov         float64 `help:"Initial vertical field of view in degrees" toml:"display.fov" env:"DISPLAY_FOV"`
	DisplayMinFov      float64 `help:"Smallest field of view in degrees" toml:"display.min_fov" env:"DISPLAY_MIN_FOV"`
	DisplayMaxFov      float64 `help:"Largest field of view in degrees" toml:"display.max_fov" env:"DISPLAY_MAX_FOV"`
	DisplayComposition string  `help:"Motion and touch composition (sensor-first, touch-first, touch-wins)" toml:"display.composition" env:"DISPLAY_COMPOSITION"`

	InputOrientToDevice bool `help:"Steer the camera with device motion" toml:"input.orient_to_device" env:"INPUT_ORIENT_TO_DEVICE"`
	InputTouchToPan     bool `help:"Pan with one finger" toml:"input.touch_to_pan" env:"INPUT_TOUCH_TO_PAN"`
	InputPinchToZoom    bool `help:"Zoom with two fingers" toml:"input.pinch_to_zoom" env:"INPUT_PINCH_TO_ZOOM"`
	InputShowTouches    bool `help:"Draw markers at touch hits" toml:"input.show_touches" env:"INPUT_SHOW_TOUCHES"`

	RenderWidth       int     `help:"Viewport width in pixels" toml:"render.width" env:"RENDER_WIDTH"`
	RenderHeight      int     `help:"Viewport height in pixels" toml:"render.height" env:"RENDER_HEIGHT"`
	RenderRefreshRate float64 `help:"Continuous rendering rate in Hz" toml:"render.refresh_rate" env:"RENDER_REFRESH_RATE"`
	RenderWorkers     int     `help:"Rasterizer workers, 0 for GOMAXPROCS" toml:"render.workers" env:"RENDER_WORKERS"`
	RenderFilter      string  `help:"Texture filter (bilinear, nearest)" toml:"render.filter" env:"RENDER_FILTER"`
	RenderTimecode    bool    `help:"Draw the source timecode" toml:"render.timecode" env:"RENDER_TIMECODE"`

	SourceFps    float64 `help:"Synthetic source frame rate" toml:"source.fps" env:"SOURCE_FPS"`
	SourceWidth  int     `help:"Synthetic source width" toml:"source.width" env:"SOURCE_WIDTH"`
	SourceHeight int     `help:"Synthetic source height" toml:"source.height" env:"SOURCE_HEIGHT"`

	MotionRate time.Duration `help:"Synthetic gyro sample interval" toml:"motion.rate" env:"MOTION_RATE"`

	LoggingLevel  string `help:"Logging level (debug, info, warn, error)" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" toml:"logging.format" env:"LOGGING_FORMAT"`

	MetricsAddr string `help:"Serve Prometheus metrics on this address" toml:"metrics.addr" env:"METRICS_ADDR"`
}

// Default returns the built-in settings.
func Default() Options {
	return Options{
		DisplayMode:        "spherical",
		DisplayFov:         75,
		DisplayMinFov:      10,
		DisplayMaxFov:      140,
		DisplayComposition: "sensor-first",

		InputOrientToDevice: true,
		InputTouchToPan:     true,
		InputPinchToZoom:    true,

		RenderWidth:       640,
		RenderHeight:      360,
		RenderRefreshRate: 60,
		RenderFilter:      "bilinear",
		RenderTimecode:    true,

		SourceFps:    30,
		SourceWidth:  1024,
		SourceHeight: 512,

		MotionRate: time.Second / 60,

		LoggingLevel:  "info",
		LoggingFormat: "text",
	}
}

// Load applies the config file named by opts.Config, then environment
// variables, onto opts. Fields whose flag was set on cmd are left alone.
// A missing file is not an error; a malformed one is.
func Load(opts *Options, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var file map[string]any
	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("config: read %s: %w", opts.Config, err)
		default:
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("config: parse %s: %w", opts.Config, err)
			}
		}
	}

	for i := range t.NumField() {
		sf := t.Field(i)
		if changed[FlagName(sf.Name)] {
			continue
		}
		field := v.Field(i)
		if path := sf.Tag.Get("toml"); path != "" && file != nil {
			if value := nested(file, path); value != nil {
				if err := setValue(field, value); err != nil {
					return fmt.Errorf("config: %s: %w", path, err)
				}
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if s, ok := os.LookupEnv(EnvPrefix + key); ok && s != "" {
				if err := setString(field, s); err != nil {
					return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
				}
			}
		}
	}
	return nil
}

// Validate checks ranges that the engine would otherwise reject.
func (o Options) Validate() error {
	switch {
	case o.RenderWidth <= 0 || o.RenderHeight <= 0:
		return fmt.Errorf("%w: render size %dx%d", ErrInvalid, o.RenderWidth, o.RenderHeight)
	case o.SourceWidth <= 0 || o.SourceHeight <= 0:
		return fmt.Errorf("%w: source size %dx%d", ErrInvalid, o.SourceWidth, o.SourceHeight)
	case o.DisplayMinFov <= 0 || o.DisplayMinFov > o.DisplayMaxFov || o.DisplayMaxFov >= 180:
		return fmt.Errorf("%w: field of view range [%v, %v]", ErrInvalid, o.DisplayMinFov, o.DisplayMaxFov)
	case o.RenderRefreshRate <= 0:
		return fmt.Errorf("%w: refresh rate %v", ErrInvalid, o.RenderRefreshRate)
	case o.SourceFps <= 0:
		return fmt.Errorf("%w: source fps %v", ErrInvalid, o.SourceFps)
	case o.MotionRate <= 0:
		return fmt.Errorf("%w: motion rate %v", ErrInvalid, o.MotionRate)
	case o.RenderFilter != "bilinear" && o.RenderFilter != "nearest":
		return fmt.Errorf("%w: filter %q", ErrInvalid, o.RenderFilter)
	}
	if _, err := ParseLevel(o.LoggingLevel); err != nil {
		return err
	}
	return nil
}

// Loader returns a function that rebuilds Options from base for the
// config watcher. Flags set on cmd keep their values across reloads.
func Loader(base Options, cmd *cobra.Command) func(path string) (Options, error) {
	return func(path string) (Options, error) {
		opts := base
		opts.Config = path
		if err := Load(&opts, cmd); err != nil {
			return Options{}, err
		}
		if err := opts.Validate(); err != nil {
			return Options{}, err
		}
		return opts, nil
	}
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: logging level %q", ErrInvalid, s)
	}
	return l, nil
}

// NewLogger builds a text or JSON handler on w whose level follows lv.
func NewLogger(w io.Writer, format string, lv *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lv}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// BindFlags registers one flag per Options field on fs, bound to the field
// and defaulting to its current value.
func BindFlags(fs *pflag.FlagSet, o *Options) {
	v := reflect.ValueOf(o).Elem()
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		name, usage := FlagName(sf.Name), sf.Tag.Get("help")
		switch p := v.Field(i).Addr().Interface().(type) {
		case *string:
			fs.StringVar(p, name, *p, usage)
		case *bool:
			fs.BoolVar(p, name, *p, usage)
		case *int:
			fs.IntVar(p, name, *p, usage)
		case *float64:
			fs.Float64Var(p, name, *p, usage)
		case *time.Duration:
			fs.DurationVar(p, name, *p, usage)
		}
	}
}

// FlagName converts a field name to its flag name.
func FlagName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func nested(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	cur := data
	for i, p := range parts {
		if i == len(parts)-1 {
			return cur[p]
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return nil
}

var durationType = reflect.TypeFor[time.Duration]()

// setValue stores a decoded TOML value. TOML integers decode as int64 and
// are accepted for float fields.
func setValue(field reflect.Value, value any) error {
	if field.Type() == durationType {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want a duration string, got %T", value)
		}
		return setString(field, s)
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case reflect.Int:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
			return nil
		}
	case reflect.Float64:
		switch n := value.(type) {
		case float64:
			field.SetFloat(n)
			return nil
		case int64:
			field.SetFloat(float64(n))
			return nil
		}
	}
	return fmt.Errorf("cannot use %T for %s", value, field.Kind())
}

func setString(field reflect.Value, s string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
