// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"io"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/queue"
)

const namespace = "habitrun"

// Metric names, without the namespace.
const (
	metricGenerations = "generations_total"
	metricLatency     = "generation_duration_seconds"
	metricRetries     = "generation_retries_total"
	metricTokens      = "generation_tokens_total"
	metricJobs        = "queue_jobs_total"
	metricQueueWait   = "queue_wait_seconds"
	metricQueueDepth  = "queue_depth"
)

// =============================================================================
// METRICS
// =============================================================================

// Metrics holds the Prometheus collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	generations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	jobs        *prometheus.CounterVec
	queueWait   prometheus.Histogram

	mu    sync.Mutex
	usage *UsageLog
}

// NewMetrics registers the collectors on a private registry. depth, when
// set, reports the number of jobs waiting in the prompt queue.
func NewMetrics(depth func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metricGenerations,
			Help:      "Generation calls by purpose and outcome",
		}, []string{"purpose", "outcome"}),

		// Model latency up to the default queue timeout.
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      metricLatency,
			Help:      "Time spent running prompt tasks",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"purpose"}),

		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metricRetries,
			Help:      "Truncation retries by purpose",
		}, []string{"purpose"}),

		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metricTokens,
			Help:      "Tokens reported by the API",
		}, []string{"purpose", "kind"}),

		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metricJobs,
			Help:      "Finished prompt queue jobs by status",
		}, []string{"status"}),

		queueWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      metricQueueWait,
			Help:      "Time jobs spent waiting in the prompt queue",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	if depth != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      metricQueueDepth,
			Help:      "Jobs waiting in the prompt queue",
		}, func() float64 { return float64(depth()) })
	}
	return m
}

// AttachUsage forwards every generation to log as well.
func (m *Metrics) AttachUsage(log *UsageLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = log
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// =============================================================================
// OBSERVERS
// =============================================================================

// JobFinished implements queue.Observer.
func (m *Metrics) JobFinished(info queue.Info) {
	m.jobs.WithLabelValues(string(info.Status)).Inc()
	m.queueWait.Observe(info.Waited().Seconds())
	if info.Status != queue.StatusSkipped {
		m.latency.WithLabelValues(info.Label).Observe(info.Ran().Seconds())
	}
}

// GenerationFinished implements gemini.Observer.
func (m *Metrics) GenerationFinished(purpose, model string, usage gemini.Usage, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(gemini.KindOf(err))
	}
	m.generations.WithLabelValues(purpose, outcome).Inc()
	m.tokens.WithLabelValues(purpose, "prompt").Add(float64(usage.PromptTokens))
	m.tokens.WithLabelValues(purpose, "candidates").Add(float64(usage.CandidateTokens))

	m.mu.Lock()
	log := m.usage
	m.mu.Unlock()
	if log != nil {
		log.Add(usage, err)
	}
}

// GenerationRetried implements gemini.Observer.
func (m *Metrics) GenerationRetried(purpose string) {
	m.retries.WithLabelValues(purpose).Inc()
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// PurposeStats are per-purpose totals.
type PurposeStats struct {
	Purpose     string
	Calls       int
	Failures    int
	Retries     int
	MeanSeconds float64
}

// Snapshot is a plain copy of the current values.
type Snapshot struct {
	Calls           int
	Failures        int
	Retries         int
	PromptTokens    int
	CandidateTokens int
	QueueDepth      int
	Jobs            map[string]int
	Purposes        []PurposeStats
}

// Snapshot gathers the registry into totals.
func (m *Metrics) Snapshot() (Snapshot, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Jobs: map[string]int{}}
	purposes := map[string]*PurposeStats{}
	stats := func(purpose string) *PurposeStats {
		p, ok := purposes[purpose]
		if !ok {
			p = &PurposeStats{Purpose: purpose}
			purposes[purpose] = p
		}
		return p
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := labelMap(metric)
			switch mf.GetName() {
			case namespace + "_" + metricGenerations:
				n := int(metric.GetCounter().GetValue())
				p := stats(labels["purpose"])
				p.Calls += n
				snap.Calls += n
				if labels["outcome"] != "ok" {
					p.Failures += n
					snap.Failures += n
				}
			case namespace + "_" + metricRetries:
				n := int(metric.GetCounter().GetValue())
				stats(labels["purpose"]).Retries += n
				snap.Retries += n
			case namespace + "_" + metricTokens:
				n := int(metric.GetCounter().GetValue())
				if labels["kind"] == "prompt" {
					snap.PromptTokens += n
				} else {
					snap.CandidateTokens += n
				}
			case namespace + "_" + metricLatency:
				h := metric.GetHistogram()
				if h.GetSampleCount() > 0 {
					stats(labels["purpose"]).MeanSeconds = h.GetSampleSum() / float64(h.GetSampleCount())
				}
			case namespace + "_" + metricJobs:
				snap.Jobs[labels["status"]] += int(metric.GetCounter().GetValue())
			case namespace + "_" + metricQueueDepth:
				snap.QueueDepth = int(metric.GetGauge().GetValue())
			}
		}
	}

	for _, p := range purposes {
		snap.Purposes = append(snap.Purposes, *p)
	}
	sort.Slice(snap.Purposes, func(i, j int) bool {
		return snap.Purposes[i].Purpose < snap.Purposes[j].Purpose
	})
	return snap, nil
}

// WriteText writes the registry in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func labelMap(metric *dto.Metric) map[string]string {
	out := make(map[string]string, len(metric.GetLabel()))
	for _, lp := range metric.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}
