package port

import (
	"context"
	"fmt"
	"io"

	wfmodel "adjacent-api/internal/workflow/model"
)

// ModelGateway 工作流层对 chat-completions 后端的最小依赖（port）。
type ModelGateway interface {
	// Invoke 非流式调用，返回原始响应体
	Invoke(ctx context.Context, req *wfmodel.ModelRequest) (wfmodel.Response, error)
	// Stream 流式调用，调用方负责 Close()
	Stream(ctx context.Context, req *wfmodel.ModelRequest) (io.ReadCloser, error)
}

// ConfigurationError 模型没有可用凭据，重试无意义
type ConfigurationError struct {
	Model string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing API key for model: %s", e.Model)
}

// UpstreamError 后端返回非 2xx，或请求未能送达（Status 为 0）
type UpstreamError struct {
	Model  string
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("model API request failed for %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model API error %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
