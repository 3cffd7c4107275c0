// Package llm 实现模型网关：按模型选择凭据并调用 chat-completions 接口。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adjacent-api/internal/config"
	wfmodel "adjacent-api/internal/workflow/model"
	workflowport "adjacent-api/internal/workflow/port"
	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/metrics"
	"adjacent-api/pkg/tracer"
)

const (
	chatCompletionsPath = "/chat/completions"
	// 错误响应体最多读取的字节数
	maxErrorBody = 64 << 10
)

// Gateway 模型网关，本身无状态，可并发使用
type Gateway struct {
	cfg *config.LLMConfig
	hc  *http.Client
}

var _ workflowport.ModelGateway = (*Gateway)(nil)

// NewGateway 创建模型网关，每次调用的超时由 cfg.Timeout 限定
func NewGateway(cfg *config.Config) *Gateway {
	return NewGatewayWithClient(&cfg.LLM, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewGatewayWithClient 使用自定义 HTTP 客户端，测试中用于指向本地服务
func NewGatewayWithClient(cfg *config.LLMConfig, hc *http.Client) *Gateway {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Gateway{cfg: cfg, hc: hc}
}

// Mock 是否处于模拟模式
func (g *Gateway) Mock() bool {
	return g.cfg.Mock
}

// Invoke 非流式调用，返回响应体原文
func (g *Gateway) Invoke(ctx context.Context, req *wfmodel.ModelRequest) (out wfmodel.Response, err error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model request: %w", err)
	}

	ctx, span := tracer.Start(ctx, "llm.Gateway.Invoke",
		trace.WithAttributes(attribute.String("llm.model", req.Model), attribute.Bool("llm.mock", g.cfg.Mock)))
	start := time.Now()
	status := "ok"
	defer func() {
		if err != nil {
			status = errorStatus(err)
		}
		metrics.LLMCallTotal.WithLabelValues(req.Model, status).Inc()
		metrics.LLMCallDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
		tracer.Finish(span, err)
	}()

	if g.cfg.Mock {
		status = "mock"
		return mockResponse(req)
	}

	resp, cancel, err := g.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &workflowport.UpstreamError{Model: req.Model, Err: fmt.Errorf("reading response body: %w", err)}
	}
	return wfmodel.Response(body), nil
}

// Stream 流式调用，原样返回后端字节流；调用方负责 Close()
func (g *Gateway) Stream(ctx context.Context, req *wfmodel.ModelRequest) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model request: %w", err)
	}
	if g.cfg.Mock {
		metrics.LLMCallTotal.WithLabelValues(req.Model, "mock").Inc()
		return mockStream(req), nil
	}

	resp, cancel, err := g.post(ctx, req, true)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(req.Model, errorStatus(err)).Inc()
		return nil, err
	}
	metrics.LLMCallTotal.WithLabelValues(req.Model, "ok").Inc()
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

// post 发送请求；非 2xx 时读取响应体并返回 UpstreamError。
// 成功时调用方需关闭 Body 并调用 cancel。
func (g *Gateway) post(ctx context.Context, req *wfmodel.ModelRequest, stream bool) (*http.Response, context.CancelFunc, error) {
	apiKey := resolveAPIKey(g.cfg, req.Model)
	if apiKey == "" {
		return nil, nil, &workflowport.ConfigurationError{Model: req.Model}
	}

	payload := req.Payload()
	payload["stream"] = stream
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	url := g.endpoint()
	ctx, cancel := g.withTimeout(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	logger.Debug(ctx, "calling model API",
		"url", url,
		"model", req.Model,
		"api_key", logger.Redact(apiKey),
		"stream", stream,
	)

	resp, err := g.hc.Do(httpReq)
	if err != nil {
		cancel()
		return nil, nil, &workflowport.UpstreamError{Model: req.Model, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Warn(ctx, "model API returned error status",
			"model", req.Model,
			"status", resp.StatusCode,
			"response", string(b),
		)
		return nil, nil, &workflowport.UpstreamError{Model: req.Model, Status: resp.StatusCode, Body: string(b)}
	}
	return resp, cancel, nil
}

func (g *Gateway) endpoint() string {
	base := strings.TrimRight(strings.TrimSpace(g.cfg.APIBase), "/")
	if base == "" {
		base = "https://integrate.api.nvidia.com/v1"
	}
	if strings.HasSuffix(base, chatCompletionsPath) {
		return base
	}
	return base + chatCompletionsPath
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

func errorStatus(err error) string {
	switch e := err.(type) {
	case *workflowport.ConfigurationError:
		return "config_error"
	case *workflowport.UpstreamError:
		if e.Status == 0 {
			return "transport_error"
		}
		return "upstream_error"
	default:
		return "error"
	}
}

// cancelOnClose 关闭流时一并释放超时上下文
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
