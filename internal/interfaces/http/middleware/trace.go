package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adjacent-api/pkg/logger"
)

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 把 trace_id 写入日志上下文和响应头，并给 span 标注项目与任务
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if sc := span.SpanContext(); sc.IsValid() {
			traceID, spanID := sc.TraceID().String(), sc.SpanID().String()
			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)

			ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
			c.Request = c.Request.WithContext(ctx)
			c.Header("X-Trace-ID", traceID)

			if pid := c.Param("pid"); pid != "" {
				span.SetAttributes(attribute.String("project.id", pid))
			}
			if jid := c.Param("jid"); jid != "" {
				span.SetAttributes(attribute.String("job.id", jid))
			}
		}

		c.Next()
	}
}

// RouteContext 路径中的项目/任务 ID 写入日志上下文
func RouteContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if pid := c.Param("pid"); pid != "" {
			ctx = logger.WithContext(ctx, logger.ProjectIDKey, pid)
		}
		if jid := c.Param("jid"); jid != "" {
			ctx = logger.WithContext(ctx, logger.JobIDKey, jid)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
