package entity

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// TaskStatus 看板列
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// 任务来源，写入 metadata.source
const (
	TaskSourcePipeline = "pipeline-planning"
	TaskSourcePlanning = "planning-agent"
	TaskSourceStub     = "pipeline-stub"
)

// Task 看板任务
type Task struct {
	ID              string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID       string         `json:"project_id" gorm:"type:uuid;index;not null"`
	Title           string         `json:"title" gorm:"type:varchar(512);not null"`
	Description     *string        `json:"description" gorm:"type:text"`
	Status          TaskStatus     `json:"status" gorm:"type:varchar(50);default:'todo'"`
	Priority        string         `json:"priority" gorm:"type:varchar(20);default:'medium'"`
	AssigneeID      *string        `json:"assignee_id" gorm:"type:uuid"`
	DueDate         *time.Time     `json:"due_date" gorm:"type:date"`
	EstimatedEffort *float64       `json:"estimated_effort,omitempty"`
	ActualEffort    *float64       `json:"actual_effort,omitempty"`
	Dependencies    pq.StringArray `json:"dependencies" gorm:"type:text[]"`
	Metadata        map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedBy       string         `json:"created_by" gorm:"type:uuid;index"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// Owner metadata.owner，模型给出的负责人
func (t *Task) Owner() string {
	if t.Metadata == nil {
		return ""
	}
	s, _ := t.Metadata["owner"].(string)
	return s
}

// RawMetadata 便于测试比较的 metadata 序列化
func (t *Task) RawMetadata() json.RawMessage {
	b, _ := json.Marshal(t.Metadata)
	return b
}
