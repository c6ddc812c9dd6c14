package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal        *prometheus.CounterVec
	fallbacksTotal    *prometheus.CounterVec
	consecutiveFalls  *prometheus.GaugeVec
	integrityWarnings *prometheus.CounterVec
	staleResponses    *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	latency           *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_ticks_total",
				Help: "Ticks processed, by window source",
			},
			[]string{"strategy", "source"},
		),
		fallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_fallbacks_total",
				Help: "Ticks that used a synthetic window",
			},
			[]string{"strategy", "reason"},
		),
		consecutiveFalls: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalpull_consecutive_fallbacks",
				Help: "Synthetic windows in a row since the last live window",
			},
			[]string{"strategy"},
		),
		integrityWarnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_integrity_warnings_total",
				Help: "Feed items with data integrity problems",
			},
			[]string{"strategy", "kind"},
		),
		staleResponses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_stale_responses_total",
				Help: "Feed responses discarded because a newer fetch was issued",
			},
			[]string{"strategy"},
		),
		transitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_signal_transitions_total",
				Help: "Signal lifecycle transitions",
			},
			[]string{"strategy", "transition"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordTick(strategy, source string) {
	r.ticksTotal.WithLabelValues(strategy, source).Inc()
}

func (r *Recorder) RecordFallback(strategy, reason string) {
	r.fallbacksTotal.WithLabelValues(strategy, reason).Inc()
}

func (r *Recorder) SetConsecutiveFallbacks(strategy string, n int) {
	r.consecutiveFalls.WithLabelValues(strategy).Set(float64(n))
}

func (r *Recorder) RecordIntegrityWarning(strategy, kind string) {
	r.integrityWarnings.WithLabelValues(strategy, kind).Inc()
}

func (r *Recorder) RecordStaleResponse(strategy string) {
	r.staleResponses.WithLabelValues(strategy).Inc()
}

func (r *Recorder) RecordTransition(strategy, transition string) {
	r.transitionsTotal.WithLabelValues(strategy, transition).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything. Used in tests and when metrics are disabled.
type Nop struct{}

func (Nop) RecordTick(string, string) {}
func (Nop) RecordFallback(string, string) {}
func (Nop) SetConsecutiveFallbacks(string, int) {}
func (Nop) RecordIntegrityWarning(string, string) {}
func (Nop) RecordStaleResponse(string) {}
func (Nop) RecordTransition(string, string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
