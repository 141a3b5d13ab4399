package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPath = "/metrics"

// PrometheusMiddleware собирает HTTP-метрики админского API:
//   - <service>_http_request_duration_seconds{method,path,status}: status как класс (2xx, 4xx...)
//   - <service>_http_requests_inflight
//   - <service>_http_request_errors_total{method,path,status}: точный код для 4xx/5xx
//   - <service>_http_response_bytes_total{path}
//
// Запросы к /metrics не учитываются.
type PrometheusMiddleware struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
	respBytes   *prometheus.CounterVec
}

// NewPrometheusMiddleware создает middleware и регистрирует метрики в reg
// (nil - регистр по умолчанию)
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) *PrometheusMiddleware {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	pm := &PrometheusMiddleware{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "HTTP-запросы в обработке.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Ответы с кодом 4xx/5xx.",
		}, []string{"method", "path", "status"}),
		respBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_response_bytes_total",
			Help:      "Объем тел ответов.",
		}, []string{"path"}),
	}

	reg.MustRegister(pm.reqDuration, pm.reqInflight, pm.reqErrors, pm.respBytes)
	return pm
}

// Handler возвращает gin.HandlerFunc для router.Use()
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		start := time.Now()
		pm.reqInflight.Inc()
		defer pm.reqInflight.Dec()
		c.Next()

		code := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		pm.reqDuration.WithLabelValues(method, path, statusClass(code)).Observe(time.Since(start).Seconds())
		if code >= 400 {
			pm.reqErrors.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
		}
		if n := c.Writer.Size(); n > 0 {
			pm.respBytes.WithLabelValues(path).Add(float64(n))
		}
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// RegisterMetricsEndpoint добавляет GET /metrics, отдающий метрики из g
// (nil - регистр по умолчанию)
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine, g prometheus.Gatherer) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
