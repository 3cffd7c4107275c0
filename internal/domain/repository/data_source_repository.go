package repository

import (
	"context"

	"adjacent-api/internal/domain/entity"
)

// DataSourceFilter 流水线数据源筛选
type DataSourceFilter struct {
	// IDs 非空时只取指定数据源，忽略处理状态
	IDs []string
	// UnprocessedOnly 只取未处理的数据源
	UnprocessedOnly bool
}

// DataSourceRepository 项目数据源仓储接口
type DataSourceRepository interface {
	// Create 创建数据源
	Create(ctx context.Context, ds *entity.DataSource) error

	// ListForPipeline 获取参与流水线的数据源
	ListForPipeline(ctx context.Context, projectID string, filter DataSourceFilter) ([]*entity.DataSource, error)

	// MarkProcessed 标记为已处理
	MarkProcessed(ctx context.Context, ids []string) error
}
