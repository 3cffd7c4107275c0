package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adjacent-api/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishPipelineJob 投递异步流水线请求
func (p *Producer) PublishPipelineJob(ctx context.Context, job *PipelineJobMessage) (string, error) {
	msg, err := NewMessage(job.JobID, TypePipelineRun, job.ProjectID, job.UserID, job)
	if err != nil {
		return "", err
	}
	if v, ok := ctx.Value(logger.RequestIDKey).(string); ok && v != "" {
		msg.SetMetadata("request_id", v)
	}
	if v, ok := ctx.Value(logger.TraceIDKey).(string); ok && v != "" {
		msg.SetMetadata("trace_id", v)
	}
	return p.Publish(ctx, StreamPipelineRun, msg)
}

// PublishPipelineEvent 广播流水线状态变化
func (p *Producer) PublishPipelineEvent(ctx context.Context, ev *PipelineEventMessage) (string, error) {
	msg, err := NewMessage(ev.JobID, TypePipelineEvent, ev.ProjectID, "", ev)
	if err != nil {
		return "", err
	}
	msg.SetMetadata("status", ev.Status)
	return p.Publish(ctx, StreamPipelineEvents, msg)
}
