// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"encoding/json"
	"time"

	"adjacent-api/internal/domain/entity"
)

// JobResponse 异步流水线任务
type JobResponse struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Status      string          `json:"status"`
	Params      json.RawMessage `json:"params,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
	RetryCount  int             `json:"retry_count"`
	DurationMs  int             `json:"duration_ms,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToJobResponse 将领域实体转换为响应 DTO
func ToJobResponse(j *entity.PipelineJob) *JobResponse {
	if j == nil {
		return nil
	}

	return &JobResponse{
		ID:          j.ID,
		ProjectID:   j.ProjectID,
		Status:      string(j.Status),
		Params:      j.InputParams,
		Result:      j.OutputResult,
		ErrorMsg:    j.ErrorMessage,
		RetryCount:  j.RetryCount,
		DurationMs:  j.DurationMs,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ToJobList 批量转换
func ToJobList(jobs []*entity.PipelineJob) []*JobResponse {
	out := make([]*JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToJobResponse(j))
	}
	return out
}
