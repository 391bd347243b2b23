package timeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks grouping recomputations.
type Metrics struct {
	rebuilds   prometheus.Counter
	groups     prometheus.Gauge
	duration   prometheus.Histogram
	memoHits   prometheus.Counter
	memoMisses prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "foldline",
			Name:      "rebuilds_total",
			Help:      "Number of group index recomputations.",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "foldline",
			Name:      "groups",
			Help:      "Groups materialized by the last recomputation.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "foldline",
			Name:      "rebuild_seconds",
			Help:      "Time spent classifying and grouping a timeline.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		memoHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "foldline",
			Name:      "summary_memo_hits_total",
			Help:      "Group refreshes answered from the summary memo.",
		}),
		memoMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "foldline",
			Name:      "summary_memo_misses_total",
			Help:      "Group refreshes that rendered a new summary.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.rebuilds, m.groups, m.duration, m.memoHits, m.memoMisses)
	}
	return m
}

func (m *Metrics) observeRebuild(groups int, elapsed time.Duration, hits, misses int) {
	if m == nil {
		return
	}
	m.rebuilds.Inc()
	m.groups.Set(float64(groups))
	m.duration.Observe(elapsed.Seconds())
	m.memoHits.Add(float64(hits))
	m.memoMisses.Add(float64(misses))
}
