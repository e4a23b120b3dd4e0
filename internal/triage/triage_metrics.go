package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal      *prometheus.CounterVec
	TriageDuration    *prometheus.HistogramVec
	LLMCallsTotal     *prometheus.CounterVec
	LLMDuration       *prometheus.HistogramVec
	KBLoadErrorsTotal prometheus.Counter
	KBEntries         prometheus.Gauge
	NotifySendsTotal  *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_triages_total",
			Help: "Total triage requests by outcome.",
		}, []string{"outcome", "provider"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_triage_duration_seconds",
			Help:    "Duration of triage requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"outcome"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_llm_calls_total",
			Help: "Total completion calls by provider and status.",
		}, []string{"provider", "status"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_llm_call_duration_seconds",
			Help:    "Duration of individual completion calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}, []string{"provider"}),
		KBLoadErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_kb_load_errors_total",
			Help: "Total knowledge base load failures.",
		}),
		KBEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warden_kb_entries",
			Help: "Number of knowledge base entries seen on the last successful load.",
		}),
		NotifySendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_notify_sends_total",
			Help: "Total major incident notifications by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.KBLoadErrorsTotal,
		m.KBEntries,
		m.NotifySendsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnKBLoad: func(entries int, err error) {
			if err != nil {
				m.KBLoadErrorsTotal.Inc()
				return
			}
			m.KBEntries.Set(float64(entries))
		},
		OnLLMCall: func(provider string, duration float64, err error) {
			m.LLMCallsTotal.WithLabelValues(provider, statusLabel(err)).Inc()
			m.LLMDuration.WithLabelValues(provider).Observe(duration)
		},
		OnComplete: func(e *CompleteEvent) {
			m.TriagesTotal.WithLabelValues(e.Outcome, e.Provider).Inc()
			m.TriageDuration.WithLabelValues(e.Outcome).Observe(e.Duration)
		},
	}
}

// ObserveNotify records the result of a notification attempt.
func (m *Metrics) ObserveNotify(err error) {
	m.NotifySendsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
