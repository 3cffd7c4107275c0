package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 未显式指定时的调用参数
const (
	DefaultTemperature = 1.0
	DefaultTopP        = 1.0
	DefaultMaxTokens   = 2048
)

// ModelRequest 一次 chat-completions 调用。
// Model 中的规格标记（9b/12b）决定使用哪一组凭据。
type ModelRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature *float64
	TopP        *float64
	MaxTokens   int
	// ExtraParams 平铺合并进请求体，例如 min_thinking_tokens
	ExtraParams map[string]any
	Stream      bool
}

// Float 取地址辅助
func Float(v float64) *float64 {
	return &v
}

// Validate 检查请求是否满足发送条件
func (r *ModelRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("request is nil")
	}
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages are required")
	}
	for i, m := range r.Messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// Payload 组装请求体，ExtraParams 最后合并，同名时覆盖默认字段
func (r *ModelRequest) Payload() map[string]any {
	temperature := DefaultTemperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	topP := DefaultTopP
	if r.TopP != nil {
		topP = *r.TopP
	}
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	payload := map[string]any{
		"model":             r.Model,
		"messages":          r.Messages,
		"temperature":       temperature,
		"top_p":             topP,
		"max_tokens":        maxTokens,
		"frequency_penalty": 0,
		"presence_penalty":  0,
		"stream":            r.Stream,
	}
	for k, v := range r.ExtraParams {
		payload[k] = v
	}
	return payload
}

// Response 模型网关原样返回的响应体，结构因供应商而异，按需探测
type Response json.RawMessage

// MarshalJSON 原样输出，非法 JSON 时按字符串输出
func (r Response) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	if json.Valid(r) {
		return []byte(r), nil
	}
	return json.Marshal(string(r))
}

func (r Response) String() string {
	return string(r)
}
