package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cliparr"

// Metrics exposes Prometheus collectors for the transcode scheduler, the sweeper and HTTP.
type Metrics struct {
	jobsActive     prometheus.Gauge
	jobsQueued     prometheus.Gauge
	jobsTotal      *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	clipsExpired   prometheus.Counter
	bytesReclaimed prometheus.Counter
	viewsTotal     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the metrics registered with the global Prometheus registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers collectors on reg, reusing any that already exist.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "jobs_active",
			Help: "Transcode jobs currently holding a slot.",
		}),
		jobsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "jobs_queued",
			Help: "Transcode jobs waiting for a slot.",
		}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "jobs_total",
			Help: "Finished transcode jobs by result.",
		}, []string{"result"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "job_duration_seconds",
			Help:    "Wall time of a transcode job once it held a slot.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		clipsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweeper", Name: "clips_expired_total",
			Help: "Clips moved to expired by the sweeper.",
		}),
		bytesReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweeper", Name: "bytes_reclaimed_total",
			Help: "Artifact bytes removed by the sweeper.",
		}),
		viewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "player", Name: "views_total",
			Help: "Master playlist requests by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.jobsActive = register(reg, m.jobsActive)
	m.jobsQueued = register(reg, m.jobsQueued)
	m.jobsTotal = register(reg, m.jobsTotal)
	m.jobDuration = register(reg, m.jobDuration)
	m.clipsExpired = register(reg, m.clipsExpired)
	m.bytesReclaimed = register(reg, m.bytesReclaimed)
	m.viewsTotal = register(reg, m.viewsTotal)
	m.httpRequests = register(reg, m.httpRequests)
	m.httpDuration = register(reg, m.httpDuration)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// SetSchedulerDepth publishes the current active and queued counts.
func (m *Metrics) SetSchedulerDepth(active, queued int) {
	if m == nil {
		return
	}
	m.jobsActive.Set(float64(active))
	m.jobsQueued.Set(float64(queued))
}

// ObserveJob records one finished job.
func (m *Metrics) ObserveJob(success bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "succeeded"
	if !success {
		result = "failed"
	}
	m.jobsTotal.WithLabelValues(result).Inc()
	m.jobDuration.Observe(d.Seconds())
}

// ObserveSweep records one sweeper pass.
func (m *Metrics) ObserveSweep(expired int, bytes int64) {
	if m == nil {
		return
	}
	m.clipsExpired.Add(float64(expired))
	m.bytesReclaimed.Add(float64(bytes))
}

// ObserveView counts a master playlist request as granted or denied.
func (m *Metrics) ObserveView(granted bool) {
	if m == nil {
		return
	}
	if granted {
		m.viewsTotal.WithLabelValues("granted").Inc()
		return
	}
	m.viewsTotal.WithLabelValues("denied").Inc()
}

// GinMiddleware records request counts and latency per route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
