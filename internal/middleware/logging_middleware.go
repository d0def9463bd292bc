package middleware

import (
	"time"

	"github.com/annel0/railverse/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger пишет краткую пару строк на каждый HTTP-запрос и кладёт
// trace-id в контекст gin. Идентификатор берётся из активного span
// OpenTelemetry; если трассировки нет, генерируется UUID, чтобы запрос
// всё равно можно было проследить по логам.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := traceIDOf(c)
		c.Set("trace_id", traceID)

		start := time.Now()
		method := c.Request.Method
		path := routePath(c)

		logging.LogInfo("[HTTP] ▶ %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		logging.LogInfo("[HTTP] ◀ %s %s %d %s trace=%s",
			method, path, c.Writer.Status(), time.Since(start), traceID)
	}
}

func traceIDOf(c *gin.Context) string {
	span := trace.SpanFromContext(c.Request.Context())
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return uuid.NewString()
}

// routePath возвращает шаблон маршрута, а для не-матченных запросов - сырой путь
func routePath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}
