package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes used as the histogram's outcome label.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Counters is the per-provider part of a snapshot.
type Counters struct {
	TotalRequests  uint64 `json:"totalRequests"`
	TotalResponses uint64 `json:"totalResponses"`
}

type APIStats struct {
	Name    string   `json:"name"`
	Metrics Counters `json:"metrics"`
}

// GlobalMetrics is the externally visible usage report.
type GlobalMetrics struct {
	TotalQueries uint64     `json:"totalQueries"`
	APIs         []APIStats `json:"apis"`
}

type providerStats struct {
	requests  atomic.Uint64
	responses atomic.Uint64
}

// Recorder counts provider attempts and successes. Safe for concurrent use.
type Recorder struct {
	providers sync.Map // name -> *providerStats
	queries   atomic.Uint64

	requestsTotal  *prometheus.CounterVec
	responsesTotal *prometheus.CounterVec
	queriesTotal   prometheus.Counter
	cacheLookups   *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
}

// NewRecorder builds a Recorder whose collectors are registered on reg.
// A nil reg leaves the collectors unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_provider_requests_total",
				Help: "Rate requests sent to each provider",
			},
			[]string{"provider"},
		),
		responsesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_provider_responses_total",
				Help: "Non-empty rate responses received from each provider",
			},
			[]string{"provider"},
		),
		queriesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "exchange_queries_total",
				Help: "Successful provider queries across all providers",
			},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_cache_lookups_total",
				Help: "Rate cache lookups by result",
			},
			[]string{"result"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_provider_fetch_duration_seconds",
				Help:    "Provider fetch latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider", "outcome"},
		),
	}
}

func (r *Recorder) stats(name string) *providerStats {
	if v, ok := r.providers.Load(name); ok {
		return v.(*providerStats)
	}
	v, _ := r.providers.LoadOrStore(name, &providerStats{})
	return v.(*providerStats)
}

// RecordRequest counts one attempt against the named provider.
func (r *Recorder) RecordRequest(name string) {
	r.stats(name).requests.Add(1)
	r.requestsTotal.WithLabelValues(name).Inc()
}

// RecordResponse counts one non-empty response from the named provider and one
// successful query overall. An unseen name gets a fresh record.
func (r *Recorder) RecordResponse(name string) {
	r.stats(name).responses.Add(1)
	r.queries.Add(1)
	r.responsesTotal.WithLabelValues(name).Inc()
	r.queriesTotal.Inc()
}

func (r *Recorder) ObserveFetch(name, outcome string, d time.Duration) {
	r.fetchDuration.WithLabelValues(name, outcome).Observe(d.Seconds())
}

func (r *Recorder) RecordCacheHit()  { r.cacheLookups.WithLabelValues("hit").Inc() }
func (r *Recorder) RecordCacheMiss() { r.cacheLookups.WithLabelValues("miss").Inc() }

// Snapshot returns the current counters, providers sorted by name. Each value
// is read atomically; the snapshot as a whole is not a single point in time.
func (r *Recorder) Snapshot() GlobalMetrics {
	out := GlobalMetrics{TotalQueries: r.queries.Load(), APIs: []APIStats{}}
	r.providers.Range(func(k, v any) bool {
		s := v.(*providerStats)
		out.APIs = append(out.APIs, APIStats{
			Name: k.(string),
			Metrics: Counters{
				TotalRequests:  s.requests.Load(),
				TotalResponses: s.responses.Load(),
			},
		})
		return true
	})
	sort.Slice(out.APIs, func(i, j int) bool { return out.APIs[i].Name < out.APIs[j].Name })
	return out
}
