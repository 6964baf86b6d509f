package inject

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics records injector activity in Prometheus. A nil *metrics records
// nothing.
type metrics struct {
	resolutions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	constructions *prometheus.CounterVec
	cacheHits     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, injectorID string) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"injector": injectorID}

	m := &metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "inject",
			Name:        "resolutions_total",
			Help:        "Top-level resolutions by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "inject",
			Name:        "resolution_duration_seconds",
			Help:        "Duration of top-level resolutions.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"outcome"}),
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "inject",
			Name:        "constructions_total",
			Help:        "Instances produced by bindings, by strategy.",
			ConstLabels: labels,
		}, []string{"strategy"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "inject",
			Name:        "singleton_cache_hits_total",
			Help:        "Resolutions answered from the singleton cache.",
			ConstLabels: labels,
		}),
	}

	collectors := []prometheus.Collector{m.resolutions, m.duration, m.constructions, m.cacheHits}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, registered := range collectors[:i] {
				reg.Unregister(registered)
			}
			return nil, err
		}
	}

	return m, nil
}

// resolved records a top-level resolution.
func (m *metrics) resolved(err error, d time.Duration) {
	if m == nil {
		return
	}

	outcome := outcomeOf(err)
	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// construction records a build attempt.
func (m *metrics) construction(kind StrategyKind) {
	if m == nil {
		return
	}
	m.constructions.WithLabelValues(kind.String()).Inc()
}

func (m *metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// outcomeOf classifies a resolution error for metric labels.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnsatisfiedDependency):
		return "unsatisfied"
	case errors.Is(err, ErrCircularDependency):
		return "circular"
	case errors.Is(err, ErrConstruction):
		return "construction"
	default:
		return "error"
	}
}
