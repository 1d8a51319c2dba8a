package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsPath    = "/metrics"
	unmatchedRoute = "unmatched"
)

// PrometheusMiddleware собирает метрики шлюза:
//
//	<ns>_http_request_duration_seconds{method,path,status}
//	<ns>_http_requests_inflight
//	<ns>_http_request_errors_total{method,path,status}   статусы >= 400
//	<ns>_http_body_bytes_total{path,direction}           direction: in | out
//
// Пути берутся из шаблона маршрута; запросы вне маршрутов идут под меткой
// "unmatched". Сам /metrics не учитывается.
type PrometheusMiddleware struct {
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	errors   *prometheus.CounterVec
	body     *prometheus.CounterVec
}

// NewPrometheusMiddleware регистрирует метрики в reg (nil: без регистрации)
func NewPrometheusMiddleware(namespace string, reg prometheus.Registerer) *PrometheusMiddleware {
	pm := &PrometheusMiddleware{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Время обработки запроса шлюзом.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path", "status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "Запросы со статусом 4xx или 5xx.",
		}, []string{"method", "path", "status"}),
		body: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_body_bytes_total",
			Help:      "Байты тел запросов и ответов.",
		}, []string{"path", "direction"}),
	}

	if reg != nil {
		reg.MustRegister(pm.duration, pm.inflight, pm.errors, pm.body)
	}
	return pm
}

func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		pm.inflight.Inc()
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		pm.inflight.Dec()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		code := c.Writer.Status()
		status := strconv.Itoa(code)

		pm.duration.WithLabelValues(c.Request.Method, path, status).Observe(elapsed.Seconds())
		if code >= 400 {
			pm.errors.WithLabelValues(c.Request.Method, path, status).Inc()
		}
		if n := c.Request.ContentLength; n > 0 {
			pm.body.WithLabelValues(path, "in").Add(float64(n))
		}
		if n := c.Writer.Size(); n > 0 {
			pm.body.WithLabelValues(path, "out").Add(float64(n))
		}
	}
}

// RegisterMetricsEndpoint публикует g на GET /metrics
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine, g prometheus.Gatherer) {
	r.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
