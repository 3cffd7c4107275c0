package callback

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/metrics"
)

type startTimeKey struct{}

const tracerName = "eino"

// newNodeHandler 为每个 lambda 节点记录耗时与 span，节点名即阶段名
func newNodeHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			return startSpan(ctx, "eino.node", info)
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			observeStage(ctx, info)
			endSpan(ctx, nil)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			observeStage(ctx, info)
			logger.Debug(ctx, "workflow node failed", "node", nodeName(info), "error", err.Error())
			endSpan(ctx, err)
			return ctx
		}).
		Build()
}

// newChainHandler 整条 chain 一个父 span
func newChainHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			return startSpan(ctx, "eino.chain", info)
		}).
		OnEndFn(func(ctx context.Context, _ *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			endSpan(ctx, nil)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			endSpan(ctx, err)
			return ctx
		}).
		Build()
}

func startSpan(ctx context.Context, kind string, info *einocb.RunInfo) context.Context {
	ctx = context.WithValue(ctx, startTimeKey{}, time.Now())
	name := nodeName(info)
	ctx, _ = otel.Tracer(tracerName).Start(ctx, kind+" "+name,
		trace.WithAttributes(attribute.String("eino.node_name", name)),
	)
	return ctx
}

func endSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func observeStage(ctx context.Context, info *einocb.RunInfo) {
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.PipelineStageDuration.WithLabelValues(nodeName(info)).Observe(d)
	}
}

func nodeName(info *einocb.RunInfo) string {
	if info == nil || info.Name == "" {
		return "unnamed"
	}
	return info.Name
}

func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}
