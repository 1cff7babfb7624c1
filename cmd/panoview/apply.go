package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/panorama"
	"github.com/gogpu/panorama/internal/config"
	"github.com/gogpu/panorama/orient"
	"github.com/gogpu/panorama/projection"
)

// engineOptions maps the startup settings onto engine options. The
// synthetic gyro always reports motion support.
func engineOptions(o config.Options, reg prometheus.Registerer) ([]panorama.EngineOption, error) {
	mode, err := panorama.ParseDisplayMode(o.DisplayMode)
	if err != nil {
		return nil, err
	}
	comp, err := panorama.ParseComposition(o.DisplayComposition)
	if err != nil {
		return nil, err
	}
	filter, err := parseFilter(o.RenderFilter)
	if err != nil {
		return nil, err
	}

	eo := []panorama.EngineOption{
		panorama.WithDisplayMode(mode),
		panorama.WithFieldOfViewRange(o.DisplayMinFov, o.DisplayMaxFov),
		panorama.WithFieldOfView(o.DisplayFov),
		panorama.WithComposition(comp),
		panorama.WithMotionSupported(true),
		panorama.WithRefreshRate(o.RenderRefreshRate),
		panorama.WithWorkers(o.RenderWorkers),
		panorama.WithFilter(filter),
		panorama.WithTimecode(o.RenderTimecode),
		panorama.WithCaptureSize(o.RenderWidth, o.RenderHeight),
	}
	if o.MotionRate > 0 {
		hz := float64(time.Second) / float64(o.MotionRate)
		eo = append(eo, panorama.WithTrackerOptions(orient.WithUpdateRate(hz)))
	}
	if reg != nil {
		eo = append(eo, panorama.WithMetrics(reg))
	}
	return eo, nil
}

// applyRuntime pushes the settings that can change while the engine runs.
// Every field is attempted; the errors are joined.
func applyRuntime(e *panorama.Engine, o config.Options) error {
	var errs []error
	if mode, err := panorama.ParseDisplayMode(o.DisplayMode); err != nil {
		errs = append(errs, err)
	} else if err := e.SetDisplayMode(mode); err != nil {
		errs = append(errs, err)
	}
	if comp, err := panorama.ParseComposition(o.DisplayComposition); err != nil {
		errs = append(errs, err)
	} else if err := e.SetComposition(comp); err != nil {
		errs = append(errs, err)
	}
	if err := e.SetFieldOfViewRange(o.DisplayMinFov, o.DisplayMaxFov); err != nil {
		errs = append(errs, err)
	}
	if err := e.SetFieldOfView(o.DisplayFov); err != nil {
		errs = append(errs, err)
	}

	if err := e.SetOrientToDevice(o.InputOrientToDevice); err != nil {
		errs = append(errs, err)
	}
	e.SetTouchToPan(o.InputTouchToPan)
	e.SetPinchToZoom(o.InputPinchToZoom)
	e.SetShowTouches(o.InputShowTouches)
	return errors.Join(errs...)
}

func parseFilter(s string) (projection.Filter, error) {
	switch s {
	case "", "bilinear":
		return projection.FilterBilinear, nil
	case "nearest":
		return projection.FilterNearest, nil
	}
	return 0, fmt.Errorf("unknown filter %q", s)
}
