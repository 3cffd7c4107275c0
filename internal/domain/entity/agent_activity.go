package entity

import "time"

// ActivityType 活动类型
type ActivityType string

const (
	ActivityPipelineRun ActivityType = "pipeline_run"
	ActivityPlanningRun ActivityType = "planning_run"
)

// AgentActivity 智能体运行日志
type AgentActivity struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AgentID      *string        `json:"agent_id" gorm:"type:uuid"`
	ProjectID    string         `json:"project_id" gorm:"type:uuid;index;not null"`
	ActivityType ActivityType   `json:"activity_type" gorm:"type:varchar(50);not null"`
	Description  string         `json:"description" gorm:"type:text"`
	Data         map[string]any `json:"data,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AgentActivity) TableName() string {
	return "agent_activities"
}
