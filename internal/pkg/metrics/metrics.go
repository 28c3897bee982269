package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bilbomap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bilbomap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Map search metrics
	GeoFits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "geosearch",
		Name:      "viewport_commands_total",
		Help:      "Programmatic viewport commands issued, by kind (fit_bounds, set_center)",
	}, []string{"kind"})

	GeoRefinements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "geosearch",
		Name:      "refinements_total",
		Help:      "Refinements written to the search engine, by kind (refine, clear, position, query)",
	}, []string{"kind"})

	GeoStaleResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "geosearch",
		Name:      "stale_results_total",
		Help:      "Search results discarded because a newer refinement superseded them",
	})

	GeoStaleIdles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "geosearch",
		Name:      "stale_idle_events_total",
		Help:      "Remote idle events dropped because they predate the latest viewport command",
	})

	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bilbomap",
		Subsystem: "geosearch",
		Name:      "search_duration_seconds",
		Help:      "Search engine latency, by strategy (bounding_box, around, text)",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"strategy"})

	SearchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "geosearch",
		Name:      "search_errors_total",
		Help:      "Search engine failures, by strategy",
	}, []string{"strategy"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bilbomap",
		Subsystem: "ws",
		Name:      "active_sessions",
		Help:      "Current number of open map sessions",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bilbomap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bilbomap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bilbomap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bilbomap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path // route pattern keeps cardinality low
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool stats into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
