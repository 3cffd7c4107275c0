package node

import (
	"context"
	"errors"

	workflowport "adjacent-api/internal/workflow/port"
)

// IsFatalLLMError 不应计为一次失败尝试、需要立即中止的错误：缺少凭据或上下文已取消
func IsFatalLLMError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	var cfgErr *workflowport.ConfigurationError
	if errors.As(err, &cfgErr) {
		return true
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// UpstreamStatus 提取上游 HTTP 状态码，非上游错误返回 0
func UpstreamStatus(err error) int {
	var upErr *workflowport.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Status
	}
	return 0
}
