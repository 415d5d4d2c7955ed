// Package metrics owns the Prometheus collectors for every binary. Each
// Metrics value has its own registry, so tests can create as many as they
// like. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	processRuns     prometheus.Counter
	processDuration prometheus.Histogram
	occurrences     prometheus.Counter
	ruleFailures    *prometheus.CounterVec
	contributions   prometheus.Counter
	goalsCompleted  prometheus.Counter
	eventsPublished *prometheus.CounterVec
	eventsConsumed  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		processRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_recurring_runs_total",
			Help: "Recurring processing runs.",
		}),
		processDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fintrack_recurring_run_duration_seconds",
			Help:    "Duration of a recurring processing run.",
			Buckets: prometheus.DefBuckets,
		}),
		occurrences: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_recurring_occurrences_total",
			Help: "Transactions materialized from recurring rules.",
		}),
		ruleFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_recurring_rule_failures_total",
				Help: "Recurring rules that failed to process, by reason.",
			},
			[]string{"reason"},
		),
		contributions: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_goal_contributions_total",
			Help: "Accepted goal contributions.",
		}),
		goalsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_goals_completed_total",
			Help: "Goals that reached their target.",
		}),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_events_published_total",
				Help: "Domain events published, by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		eventsConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_events_consumed_total",
				Help: "Domain events handled by the event worker, by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_lookups_total",
				Help: "Cache lookups by cache name and result.",
			},
			[]string{"cache", "result"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncrRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// ObserveRateLimitClients exports how many clients the rate limiter is
// tracking. Registering twice on one registry keeps the first gauge.
func (m *Metrics) ObserveRateLimitClients(active func() int) {
	if m == nil {
		return
	}
	_ = m.Registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fintrack_rate_limit_clients",
		Help: "Clients with an open rate limit window.",
	}, func() float64 { return float64(active()) }))
}

// ObserveProcessRun records one recurring run and the transactions it
// created.
func (m *Metrics) ObserveProcessRun(created int, d time.Duration) {
	if m == nil {
		return
	}
	m.processRuns.Inc()
	m.processDuration.Observe(d.Seconds())
	m.occurrences.Add(float64(created))
}

func (m *Metrics) IncrRuleFailure(reason string) {
	if m == nil {
		return
	}
	m.ruleFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrContribution(completed bool) {
	if m == nil {
		return
	}
	m.contributions.Inc()
	if completed {
		m.goalsCompleted.Inc()
	}
}

// IncrGoalCompleted counts a goal completed outside a contribution, by
// editing its target or marking it done.
func (m *Metrics) IncrGoalCompleted() {
	if m == nil {
		return
	}
	m.goalsCompleted.Inc()
}

func (m *Metrics) IncrEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, outcome(err)).Inc()
}

func (m *Metrics) IncrEventConsumed(eventType string, err error) {
	if m == nil {
		return
	}
	m.eventsConsumed.WithLabelValues(eventType, outcome(err)).Inc()
}

func (m *Metrics) IncrCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
