package entity

import (
	"encoding/json"
	"time"
)

// JobStatus 异步任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal 是否已结束
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// PipelineJob 异步流水线任务
type PipelineJob struct {
	ID           string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID    string          `json:"project_id" gorm:"type:uuid;index;not null"`
	RequestedBy  string          `json:"requested_by" gorm:"type:uuid;index"`
	Status       JobStatus       `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	InputParams  json.RawMessage `json:"input_params" gorm:"type:jsonb"`
	OutputResult json.RawMessage `json:"output_result,omitempty" gorm:"type:jsonb"`
	ErrorMessage string          `json:"error_message,omitempty" gorm:"type:text"`
	RetryCount   int             `json:"retry_count" gorm:"default:0"`
	DurationMs   int             `json:"duration_ms,omitempty"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (PipelineJob) TableName() string {
	return "pipeline_jobs"
}

// NewPipelineJob 创建待执行任务
func NewPipelineJob(projectID, requestedBy string, inputParams json.RawMessage) *PipelineJob {
	return &PipelineJob{
		ProjectID:   projectID,
		RequestedBy: requestedBy,
		Status:      JobStatusPending,
		InputParams: inputParams,
	}
}

// Start 开始执行任务
func (j *PipelineJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Complete 完成任务
func (j *PipelineJob) Complete(result json.RawMessage) {
	j.finish(JobStatusCompleted)
	j.OutputResult = result
}

// Fail 任务失败，result 可携带模型原始输出等诊断信息
func (j *PipelineJob) Fail(errMsg string, result json.RawMessage) {
	j.finish(JobStatusFailed)
	j.ErrorMessage = errMsg
	j.OutputResult = result
}

func (j *PipelineJob) finish(status JobStatus) {
	now := time.Now()
	j.Status = status
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// Retry 重新排队
func (j *PipelineJob) Retry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = ""
}

// CanRetry 检查是否可以重试
func (j *PipelineJob) CanRetry(maxRetries int) bool {
	return j.RetryCount < maxRetries && j.Status == JobStatusFailed
}
