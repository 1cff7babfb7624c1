package panorama

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gogpu/panorama/frame"
)

const metricsNamespace = "panorama"

// Draw outcomes recorded in the draws_total counter.
const (
	outcomePresented = "presented"
	outcomeNotReady  = "not_ready"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

// engineMetrics holds the engine collectors. Collectors are created even
// without a registerer so that updates never need nil checks.
type engineMetrics struct {
	draws        *prometheus.CounterVec
	ticksSkipped prometheus.Counter
	pictures     prometheus.Counter
	drawDuration prometheus.Histogram
	fov          prometheus.Gauge
	touches      prometheus.Gauge
}

// newEngineMetrics creates the collectors and registers them on r when r is
// non-nil. Registering two engines on one registerer panics.
func newEngineMetrics(r prometheus.Registerer, slot *frame.Slot) *engineMetrics {
	f := promauto.With(r)
	m := &engineMetrics{
		draws: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "render",
			Name:      "draws_total",
			Help:      "Render loop draws by outcome",
		}, []string{"outcome"}),
		ticksSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "render",
			Name:      "ticks_skipped_total",
			Help:      "VSync ticks skipped because the render queue was full",
		}),
		pictures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "capture",
			Name:      "pictures_total",
			Help:      "Still images produced by TakePicture",
		}),
		drawDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "render",
			Name:      "draw_duration_seconds",
			Help:      "Time spent rasterizing and presenting one frame",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		fov: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "view",
			Name:      "field_of_view_degrees",
			Help:      "Current vertical field of view",
		}),
		touches: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "input",
			Name:      "active_touches",
			Help:      "Number of touches currently down",
		}),
	}

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "frames",
		Name:      "submitted_total",
		Help:      "Frames passed to SetPixelBuffer",
	}, func() float64 { return float64(slot.Stats().Submitted) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "frames",
		Name:      "dropped_total",
		Help:      "Frames replaced before any draw displayed them",
	}, func() float64 { return float64(slot.Stats().Dropped) })

	for _, o := range []string{outcomePresented, outcomeNotReady, outcomeFailed, outcomeCancelled} {
		m.draws.WithLabelValues(o)
	}
	return m
}
