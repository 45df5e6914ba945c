package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChannelCollector bundles Prometheus metrics for the fast-fading core. It
// satisfies the spectrum.MetricsRecorder interface so the propagation model
// can drive counters directly.
type ChannelCollector struct {
	gatherer prometheus.Gatherer

	LongTermComputations prometheus.Counter
	LongTermCacheHits    prometheus.Counter
	RxPsdDurations       prometheus.Histogram
	ActiveLinks          prometheus.Gauge
	ChannelUpdates       prometheus.Counter
}

// NewChannelCollector registers channel metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewChannelCollector(reg prometheus.Registerer) (*ChannelCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	computations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "channel_longterm_computations_total",
		Help: "Cumulative number of long-term component computations (cache misses and invalidations).",
	}), "channel_longterm_computations_total")
	if err != nil {
		return nil, err
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "channel_longterm_cache_hits_total",
		Help: "Cumulative number of long-term cache hits.",
	}), "channel_longterm_cache_hits_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "channel_rx_psd_duration_seconds",
		Help:    "Wall-clock duration of received-PSD computations.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
	durations, err = registerHistogram(reg, durations, "channel_rx_psd_duration_seconds")
	if err != nil {
		return nil, err
	}

	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "channel_active_links",
		Help: "Number of links with a cached long-term component.",
	}), "channel_active_links")
	if err != nil {
		return nil, err
	}

	updates, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "channel_matrix_updates_total",
		Help: "Cumulative number of channel matrix regenerations performed by the provider.",
	}), "channel_matrix_updates_total")
	if err != nil {
		return nil, err
	}

	return &ChannelCollector{
		gatherer:             gatherer,
		LongTermComputations: computations,
		LongTermCacheHits:    hits,
		RxPsdDurations:       durations,
		ActiveLinks:          links,
		ChannelUpdates:       updates,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ChannelCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// LongTermComputed counts one long-term computation.
func (c *ChannelCollector) LongTermComputed() {
	if c == nil || c.LongTermComputations == nil {
		return
	}
	c.LongTermComputations.Inc()
}

// LongTermCacheHit counts one long-term cache hit.
func (c *ChannelCollector) LongTermCacheHit() {
	if c == nil || c.LongTermCacheHits == nil {
		return
	}
	c.LongTermCacheHits.Inc()
}

// RxPsdComputed records the duration of one received-PSD computation.
func (c *ChannelCollector) RxPsdComputed(elapsed time.Duration) {
	if c == nil || c.RxPsdDurations == nil {
		return
	}
	c.RxPsdDurations.Observe(elapsed.Seconds())
}

// SetActiveLinks updates the cached-link gauge.
func (c *ChannelCollector) SetActiveLinks(n int) {
	if c == nil || c.ActiveLinks == nil {
		return
	}
	c.ActiveLinks.Set(float64(n))
}

// ChannelUpdated counts one channel matrix regeneration.
func (c *ChannelCollector) ChannelUpdated() {
	if c == nil || c.ChannelUpdates == nil {
		return
	}
	c.ChannelUpdates.Inc()
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
