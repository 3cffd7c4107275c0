package postgres

import (
	"context"
	"fmt"

	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
)

// DataSourceRepository 数据源仓储实现
type DataSourceRepository struct {
	client *Client
}

// NewDataSourceRepository 创建数据源仓储
func NewDataSourceRepository(client *Client) *DataSourceRepository {
	return &DataSourceRepository{client: client}
}

// Create 创建数据源
func (r *DataSourceRepository) Create(ctx context.Context, ds *entity.DataSource) error {
	ctx, span := tracer.Start(ctx, "postgres.DataSourceRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(ds).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create data source: %w", err)
	}
	return nil
}

// ListForPipeline 获取参与流水线的数据源，按创建时间升序
func (r *DataSourceRepository) ListForPipeline(ctx context.Context, projectID string, filter repository.DataSourceFilter) ([]*entity.DataSource, error) {
	ctx, span := tracer.Start(ctx, "postgres.DataSourceRepository.ListForPipeline")
	defer span.End()

	query := getDB(ctx, r.client.db).Where("project_id = ?", projectID)
	switch {
	case len(filter.IDs) > 0:
		query = query.Where("id IN ?", filter.IDs)
	case filter.UnprocessedOnly:
		query = query.Where("processed = ?", false)
	}

	var sources []*entity.DataSource
	if err := query.Order("created_at ASC").Find(&sources).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	return sources, nil
}

// MarkProcessed 标记为已处理
func (r *DataSourceRepository) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "postgres.DataSourceRepository.MarkProcessed")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(&entity.DataSource{}).Where("id IN ?", ids).Updates(map[string]interface{}{
		"processed":         true,
		"processing_status": entity.ProcessingCompleted,
	}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark data sources processed: %w", err)
	}
	return nil
}
