package llm

import (
	"encoding/json"
	"io"
	"strings"

	wfmodel "adjacent-api/internal/workflow/model"
)

// mockResponse 模拟模式下的固定响应，output 为可被抽取的空结果 JSON
func mockResponse(req *wfmodel.ModelRequest) (wfmodel.Response, error) {
	body := map[string]any{
		"mock":  true,
		"model": req.Model,
	}
	if IsOrchestratorModel(req.Model) {
		body["output"] = `{"actions":[]}`
		body["messages"] = req.Messages
	} else {
		body["output"] = `{"entities":[]}`
		body["entities"] = []any{}
	}
	return json.Marshal(body)
}

// mockStream 模拟模式下的 SSE 流，单个 chunk 后结束
func mockStream(req *wfmodel.ModelRequest) io.ReadCloser {
	chunk, _ := json.Marshal(map[string]any{
		"mock":  true,
		"model": req.Model,
		"choices": []any{map[string]any{
			"delta": map[string]any{"content": "mock stream"},
		}},
	})
	var sb strings.Builder
	sb.WriteString("data: ")
	sb.Write(chunk)
	sb.WriteString("\n\ndata: [DONE]\n\n")
	return io.NopCloser(strings.NewReader(sb.String()))
}
