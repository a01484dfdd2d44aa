// Package metrics holds the Prometheus counters of a crawl run.
//
// hitscan is a batch tool, so nothing is served: the registry is written
// once in the node_exporter textfile format when the run ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/hitscan/internal/capture"
	"github.com/nao1215/hitscan/internal/cascade"
	"github.com/nao1215/hitscan/internal/model"
)

// Metrics holds all Prometheus metrics for one run.
type Metrics struct {
	registry *prometheus.Registry

	// Cascade metrics
	TierRuns    *prometheus.CounterVec
	TierVisits  *prometheus.CounterVec
	TierRecords *prometheus.CounterVec

	// Card metrics
	Cards *prometheus.CounterVec

	// Capture metrics
	ResponsesPushed  prometheus.Gauge
	ResponsesEvicted prometheus.Gauge

	// Result metrics
	Hits     *prometheus.GaugeVec
	Machines prometheus.Gauge
}

// New creates the metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TierRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hitscan_tier_runs_total",
			Help: "Number of times a fallback tier ran",
		}, []string{"tier"}),
		TierVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hitscan_tier_visits_total",
			Help: "Views extracted by a fallback tier",
		}, []string{"tier"}),
		TierRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hitscan_tier_records_total",
			Help: "Hit records added by a fallback tier",
		}, []string{"tier"}),
		Cards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hitscan_cards_total",
			Help: "Processed cards by outcome",
		}, []string{"outcome"}),
		ResponsesPushed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hitscan_responses_captured",
			Help: "Responses admitted into the capture ring",
		}),
		ResponsesEvicted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hitscan_responses_evicted",
			Help: "Responses dropped from the full capture ring",
		}),
		Hits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hitscan_hits",
			Help: "Deduplicated hit rows by kind",
		}, []string{"kind"}),
		Machines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hitscan_machines",
			Help: "Machines with at least one resolved hit",
		}),
	}
	m.registry.MustRegister(
		m.TierRuns, m.TierVisits, m.TierRecords,
		m.Cards,
		m.ResponsesPushed, m.ResponsesEvicted,
		m.Hits, m.Machines,
	)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TierFinished implements cascade.Observer.
func (m *Metrics) TierFinished(_ model.Card, r cascade.TierResult) {
	tier := r.Tier.String()
	m.TierRuns.WithLabelValues(tier).Inc()
	m.TierVisits.WithLabelValues(tier).Add(float64(r.Visits))
	m.TierRecords.WithLabelValues(tier).Add(float64(r.Records))
}

// ObserveCard counts a card outcome.
func (m *Metrics) ObserveCard(c model.CardOutcome) {
	switch {
	case c.Error != "":
		m.Cards.WithLabelValues("error").Inc()
	case c.Empty:
		m.Cards.WithLabelValues("empty").Inc()
	default:
		m.Cards.WithLabelValues("hits").Inc()
	}
}

// ObserveRing adds the counters of one capture ring. Each browsing
// session has its own ring.
func (m *Metrics) ObserveRing(s capture.RingStats) {
	m.ResponsesPushed.Add(float64(s.Pushed))
	m.ResponsesEvicted.Add(float64(s.Evicted))
}

// ObserveReport records the aggregated result.
func (m *Metrics) ObserveReport(report *model.CrawlReport) {
	var big, reg int
	for _, row := range report.Details {
		switch row.Kind {
		case model.KindBIG:
			big++
		case model.KindREG:
			reg++
		}
	}
	m.Hits.WithLabelValues(model.KindBIG.String()).Set(float64(big))
	m.Hits.WithLabelValues(model.KindREG.String()).Set(float64(reg))
	m.Machines.Set(float64(len(report.Summary)))
}

// WriteTextfile writes the registry to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
