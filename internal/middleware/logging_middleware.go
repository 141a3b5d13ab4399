package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockverse/internal/logging"
)

const (
	// TraceIDHeader заголовок ответа с идентификатором трассировки запроса
	TraceIDHeader = "X-Trace-Id"
	// TraceIDKey ключ trace-ID в gin.Context
	TraceIDKey = "trace_id"
	// UserKey ключ имени администратора в gin.Context, выставляется JWT middleware
	UserKey = "user"
)

// Служебные пути пишутся в лог только на уровне Trace
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLogger выдает запросу trace-ID и пишет по строке на запрос
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создает middleware; nil logger означает логгер API
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.GetAPILogger()
	}
	return &RequestLogger{logger: logger}
}

// traceID берет trace-ID из span otelgin, затем из заголовка клиента, иначе новый UUID
func traceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	if v := c.GetHeader(TraceIDHeader); v != "" {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := traceID(c)
		c.Set(TraceIDKey, id)
		c.Header(TraceIDHeader, id)

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		user := c.GetString(UserKey)
		if user == "" {
			user = "-"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		const format = "%s %s %d %s ip=%s user=%s trace=%s"
		args := []any{c.Request.Method, path, status, latency, c.ClientIP(), user, id}
		switch {
		case status >= 500:
			rl.logger.Error(format, args...)
		case status >= 400:
			rl.logger.Warn(format, args...)
		case quietPaths[path]:
			rl.logger.Trace(format, args...)
		default:
			rl.logger.Info(format, args...)
		}
	}
}
