package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PointageMetrics tracks the badge ledger write path and the rollup worker.
type PointageMetrics struct {
	pointageRecorded *prometheus.CounterVec
	pointageDenied   *prometheus.CounterVec
	cooldownHits     *prometheus.CounterVec
	ledgerLatency    prometheus.Histogram
	rollupProcessed  *prometheus.CounterVec
}

var (
	pointageMetricsOnce sync.Once
	pointageMetrics     *PointageMetrics
)

func Pointage() *PointageMetrics {
	return PointageWithConfig(Config{})
}

func PointageWithConfig(cfg Config) *PointageMetrics {
	pointageMetricsOnce.Do(func() {
		pointageMetrics = newPointageMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pointageMetrics
}

func ResetPointageMetricsForTest() {
	pointageMetricsOnce = sync.Once{}
	pointageMetrics = nil
}

func newPointageMetrics(registerer prometheus.Registerer, cfg Config) *PointageMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pointage"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	pointageRecorded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "pointage_events_recorded_total",
			Help:        "Total badge events appended to the ledger.",
			ConstLabels: constLabels,
		},
		[]string{"type"}, // entry | exit | acces
	)

	pointageDenied := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "pointage_denied_total",
			Help:        "Total badge presentations refused before reaching the ledger.",
			ConstLabels: constLabels,
		},
		[]string{"reason"}, // access_denied | zone_denied | cooldown | deactivated
	)

	cooldownHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "pointage_cooldown_hits_total",
			Help:        "Badge presentations landing inside the anti-double-badge window.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"}, // deduplicated | rejected
	)

	ledgerLatency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "pointage_ledger_append_seconds",
			Help:        "Wall time of the serialized append transaction.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			ConstLabels: constLabels,
		},
	)

	rollupProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "pointage_rollup_processed_total",
			Help:        "Daily rollup rows written by the background worker.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed
	)

	registerer.MustRegister(
		pointageRecorded,
		pointageDenied,
		cooldownHits,
		ledgerLatency,
		rollupProcessed,
	)

	return &PointageMetrics{
		pointageRecorded: pointageRecorded,
		pointageDenied:   pointageDenied,
		cooldownHits:     cooldownHits,
		ledgerLatency:    ledgerLatency,
		rollupProcessed:  rollupProcessed,
	}
}

func (m *PointageMetrics) IncRecorded(eventType string) {
	if m == nil {
		return
	}
	m.pointageRecorded.WithLabelValues(eventType).Inc()
}

func (m *PointageMetrics) IncDenied(reason string) {
	if m == nil {
		return
	}
	m.pointageDenied.WithLabelValues(reason).Inc()
}

func (m *PointageMetrics) IncCooldown(outcome string) {
	if m == nil {
		return
	}
	m.cooldownHits.WithLabelValues(outcome).Inc()
}

func (m *PointageMetrics) ObserveLedgerAppend(elapsed time.Duration) {
	if m == nil {
		return
	}
	seconds := elapsed.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.ledgerLatency.Observe(seconds)
}

func (m *PointageMetrics) IncRollup(result string) {
	if m == nil {
		return
	}
	m.rollupProcessed.WithLabelValues(result).Inc()
}
