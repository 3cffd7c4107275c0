// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"encoding/json"

	"adjacent-api/internal/domain/entity"
)

// JobRepository 异步流水线任务仓储接口
type JobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.PipelineJob) error

	// GetByID 根据 ID 获取任务
	GetByID(ctx context.Context, id string) (*entity.PipelineJob, error)

	// MarkRunning 标记为运行中
	MarkRunning(ctx context.Context, id string) error

	// SetResult 写入终态及结果
	SetResult(ctx context.Context, id string, status entity.JobStatus, result json.RawMessage, errMsg string) error

	// ListByProject 获取项目任务列表
	ListByProject(ctx context.Context, projectID string, pagination Pagination) (*PagedResult[*entity.PipelineJob], error)
}
