package repository

import (
	"context"

	"adjacent-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目
	GetByID(ctx context.Context, id string) (*entity.Project, error)
}

// ProfileRepository 用户资料仓储接口
type ProfileRepository interface {
	// GetByID 根据 ID 获取资料
	GetByID(ctx context.Context, id string) (*entity.Profile, error)

	// Upsert 创建或更新资料
	Upsert(ctx context.Context, profile *entity.Profile) error
}
