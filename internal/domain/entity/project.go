// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// Project 项目实体
type Project struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   string         `json:"company_id,omitempty" gorm:"type:varchar(255);index"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Status      ProjectStatus  `json:"status" gorm:"type:varchar(50);default:'active'"`
	Settings    map[string]any `json:"settings,omitempty" gorm:"type:jsonb;serializer:json"`
	Metadata    map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedBy   string         `json:"created_by,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(companyID, name, description, createdBy string) *Project {
	return &Project{
		CompanyID:   companyID,
		Name:        name,
		Description: description,
		Status:      ProjectStatusActive,
		CreatedBy:   createdBy,
		Metadata:    map[string]any{},
	}
}

// ContextNote 项目补充说明，存放在 metadata.context
func (p *Project) ContextNote() string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	s, _ := p.Metadata["context"].(string)
	return strings.TrimSpace(s)
}
