package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache outcomes for RankingCache.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
	CacheSkip = "skip" // computed but not stored because the data moved underneath
)

type Metrics struct {
	reg *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	RankingComputations *prometheus.CounterVec
	RankingDuration     prometheus.Histogram
	RankingCache        *prometheus.CounterVec
	RankingStudents     prometheus.Gauge
}

// New registers every collector on reg. A nil reg gets a fresh registry with Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RankingComputations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_computations_total",
			Help: "SAW ranking computations by outcome.",
		}, []string{"outcome"}),
		RankingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranking_duration_seconds",
			Help:    "Time to fetch the snapshot and compute a ranking.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		RankingCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_cache_total",
			Help: "Ranking cache lookups by result.",
		}, []string{"result"}),
		RankingStudents: f.NewGauge(prometheus.GaugeOpts{
			Name: "ranking_students",
			Help: "Students in the most recent ranking.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records request count and latency labelled by the matched chi route pattern,
// keeping label cardinality bounded for paths with IDs.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
