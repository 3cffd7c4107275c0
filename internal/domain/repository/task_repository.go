package repository

import (
	"context"

	"adjacent-api/internal/domain/entity"
)

// TaskRepository 看板任务仓储接口
type TaskRepository interface {
	// BulkCreate 批量插入，回填 ID
	BulkCreate(ctx context.Context, tasks []*entity.Task) error

	// ListByProject 获取项目任务列表
	ListByProject(ctx context.Context, projectID string, pagination Pagination) (*PagedResult[*entity.Task], error)
}

// ActivityRepository 智能体活动仓储接口
type ActivityRepository interface {
	// Create 记录一次活动
	Create(ctx context.Context, activity *entity.AgentActivity) error
}
