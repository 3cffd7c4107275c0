package postgres

import (
	"context"
	"fmt"

	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
)

// TaskRepository 看板任务仓储实现
type TaskRepository struct {
	client *Client
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(client *Client) *TaskRepository {
	return &TaskRepository{client: client}
}

// BulkCreate 批量插入，gorm 通过 RETURNING 回填 ID
func (r *TaskRepository) BulkCreate(ctx context.Context, tasks []*entity.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.BulkCreate")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(&tasks).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert tasks: %w", err)
	}
	return nil
}

// ListByProject 获取项目任务列表
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	ctx, span := tracer.Start(ctx, "postgres.TaskRepository.ListByProject")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.Task{}).Where("project_id = ?", projectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var tasks []*entity.Task
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&tasks).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return repository.NewPagedResult(tasks, total, pagination), nil
}

// ActivityRepository 智能体活动仓储实现
type ActivityRepository struct {
	client *Client
}

// NewActivityRepository 创建活动仓储
func NewActivityRepository(client *Client) *ActivityRepository {
	return &ActivityRepository{client: client}
}

// Create 记录一次活动
func (r *ActivityRepository) Create(ctx context.Context, activity *entity.AgentActivity) error {
	ctx, span := tracer.Start(ctx, "postgres.ActivityRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(activity).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}
