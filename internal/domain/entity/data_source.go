package entity

import (
	"time"

	wfmodel "adjacent-api/internal/workflow/model"
)

// ProcessingStatus 数据源处理状态
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// DataSource 项目知识库中的数据源（文档、录音、链接等）
type DataSource struct {
	ID               string           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID        string           `json:"project_id" gorm:"type:uuid;index;not null"`
	SourceType       string           `json:"source_type" gorm:"type:varchar(50);not null"`
	FileName         string           `json:"file_name,omitempty" gorm:"type:varchar(512)"`
	SourceURL        string           `json:"source_url,omitempty" gorm:"type:text"`
	Metadata         map[string]any   `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	ExtractedData    map[string]any   `json:"extracted_data,omitempty" gorm:"type:jsonb;serializer:json"`
	Processed        bool             `json:"processed" gorm:"default:false;index"`
	ProcessingStatus ProcessingStatus `json:"processing_status" gorm:"type:varchar(50);default:'pending'"`
	CreatedAt        time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (DataSource) TableName() string {
	return "project_data_sources"
}

// ExtractedText extracted_data.text 的内容
func (d *DataSource) ExtractedText() string {
	if d.ExtractedData == nil {
		return ""
	}
	s, _ := d.ExtractedData["text"].(string)
	return s
}

// DisplayName 依次取文件名、类型、地址
func (d *DataSource) DisplayName() string {
	for _, s := range []string{d.FileName, d.SourceType, d.SourceURL} {
		if s != "" {
			return s
		}
	}
	return "data"
}

// ToContext 转换为上下文汇总使用的快照
func (d *DataSource) ToContext() wfmodel.SourceContext {
	return wfmodel.SourceContext{
		ID:            d.ID,
		SourceType:    d.SourceType,
		FileName:      d.FileName,
		SourceURL:     d.SourceURL,
		Metadata:      d.Metadata,
		ExtractedData: d.ExtractedData,
	}
}
