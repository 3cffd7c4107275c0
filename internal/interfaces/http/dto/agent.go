package dto

import (
	"encoding/json"

	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
)

// RunExtractionRequest 抽取请求
type RunExtractionRequest struct {
	Input string   `json:"input"`
	Media []string `json:"media,omitempty"`
}

// RunOrchestratorRequest input 为空时使用结构化字段拼接输入
type RunOrchestratorRequest struct {
	Input     string          `json:"input"`
	ProjectID string          `json:"projectId,omitempty"`
	Company   json.RawMessage `json:"company,omitempty"`
	Knowledge json.RawMessage `json:"knowledge,omitempty"`
	Meetings  json.RawMessage `json:"meetings,omitempty"`
	Files     json.RawMessage `json:"files,omitempty"`
}

// Structured 结构化上下文
func (r *RunOrchestratorRequest) Structured() wfnode.StructuredInput {
	return wfnode.StructuredInput{
		ProjectID: r.ProjectID,
		Company:   r.Company,
		Knowledge: r.Knowledge,
		Meetings:  r.Meetings,
		Files:     r.Files,
	}
}

// RunPlanningRequest 规划请求
type RunPlanningRequest struct {
	ProjectID     string          `json:"projectId"`
	ExtractedData json.RawMessage `json:"extractedData"`
}

// RunPipelineRequest 流水线请求，async 为 true 时交给 worker 执行
type RunPipelineRequest struct {
	ProjectID     string   `json:"projectId"`
	DataSourceIDs []string `json:"data_source_ids,omitempty"`
	Async         bool     `json:"async,omitempty"`
}

// ModelResultResponse 单次模型调用结果
type ModelResultResponse struct {
	OK     bool             `json:"ok"`
	Model  string           `json:"model"`
	Result wfmodel.Response `json:"result"`
}

// PlanningResponse 规划结果
type PlanningResponse struct {
	OK    bool            `json:"ok"`
	Model string          `json:"model"`
	Tasks []*TaskResponse `json:"tasks"`
}

// PipelineResponse 流水线结果
type PipelineResponse struct {
	OK        bool                       `json:"ok"`
	Tasks     []*TaskResponse            `json:"tasks"`
	Extracted []wfmodel.ExtractionResult `json:"extracted,omitempty"`
	Mock      bool                       `json:"mock,omitempty"`
	Message   string                     `json:"message,omitempty"`
}

// PipelineAcceptedResponse 异步运行已入队
type PipelineAcceptedResponse struct {
	OK     bool   `json:"ok"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ChatStreamRequest 流式转发请求
type ChatStreamRequest struct {
	Model       string                `json:"model" binding:"required"`
	Messages    []wfmodel.ChatMessage `json:"messages" binding:"required"`
	Temperature *float64              `json:"temperature,omitempty"`
	TopP        *float64              `json:"top_p,omitempty"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
}

// ToModelRequest 转为网关请求
func (r *ChatStreamRequest) ToModelRequest() *wfmodel.ModelRequest {
	return &wfmodel.ModelRequest{
		Model:       r.Model,
		Messages:    r.Messages,
		Temperature: r.Temperature,
		TopP:        r.TopP,
		MaxTokens:   r.MaxTokens,
		Stream:      true,
	}
}
