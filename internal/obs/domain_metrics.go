package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SettingsCacheTotal counts settings lookups by outcome (hit, miss, backoff).
	SettingsCacheTotal *prometheus.CounterVec
	// SettingsFetchTotal counts settings source fetches by source and result.
	SettingsFetchTotal *prometheus.CounterVec
	// SettingsFetchLatency records settings source latency in milliseconds.
	SettingsFetchLatency *prometheus.HistogramVec
	// SettingsUpdatesTotal counts admin settings updates by result.
	SettingsUpdatesTotal *prometheus.CounterVec
	// BreakdownReconstructionsTotal counts rebuilt discount trails by confidence.
	BreakdownReconstructionsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SettingsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finance_settings_cache_total",
			Help:      "Count of financial settings lookups by cache outcome.",
		}, []string{"result"})
		SettingsFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finance_settings_fetch_total",
			Help:      "Count of financial settings fetches by source and result.",
		}, []string{"source", "result"})
		SettingsFetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "finance_settings_fetch_duration_ms",
			Help:      "Latency of financial settings fetches in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 3000},
		}, []string{"source"})
		SettingsUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finance_settings_updates_total",
			Help:      "Count of financial settings updates by result.",
		}, []string{"result"})
		BreakdownReconstructionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_breakdown_reconstructions_total",
			Help:      "Count of reconstructed discount breakdowns by confidence.",
		}, []string{"result"})

		mustRegisterCollector(reg, SettingsCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettingsCacheTotal = v
			}
		})
		mustRegisterCollector(reg, SettingsFetchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettingsFetchTotal = v
			}
		})
		mustRegisterCollector(reg, SettingsFetchLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				SettingsFetchLatency = v
			}
		})
		mustRegisterCollector(reg, SettingsUpdatesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettingsUpdatesTotal = v
			}
		})
		mustRegisterCollector(reg, BreakdownReconstructionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BreakdownReconstructionsTotal = v
			}
		})
	})
}

// RecordSettingsCache increments the cache outcome counter when registered.
func RecordSettingsCache(result string) {
	if SettingsCacheTotal != nil {
		SettingsCacheTotal.WithLabelValues(result).Inc()
	}
}

// RecordSettingsFetch records the outcome and latency of a source fetch.
func RecordSettingsFetch(source, result string, elapsed time.Duration) {
	if SettingsFetchTotal != nil {
		SettingsFetchTotal.WithLabelValues(source, result).Inc()
	}
	if SettingsFetchLatency != nil {
		SettingsFetchLatency.WithLabelValues(source).Observe(DurationMillis(elapsed))
	}
}

// RecordSettingsUpdate increments the settings update counter.
func RecordSettingsUpdate(result string) {
	if SettingsUpdatesTotal != nil {
		SettingsUpdatesTotal.WithLabelValues(result).Inc()
	}
}

// RecordBreakdown increments the reconstruction counter.
func RecordBreakdown(result string) {
	if BreakdownReconstructionsTotal != nil {
		BreakdownReconstructionsTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
