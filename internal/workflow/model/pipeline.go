package model

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// EntityType 抽取实体类型
type EntityType string

const (
	EntityObjective   EntityType = "objective"
	EntityDeliverable EntityType = "deliverable"
	EntityBlocker     EntityType = "blocker"
	EntityOwner       EntityType = "owner"
	EntityDeadline    EntityType = "deadline"
	EntityNote        EntityType = "note"
)

// ExtractedEntity 抽取阶段的产物，只供规划阶段消费
type ExtractedEntity struct {
	Type       EntityType     `json:"type"`
	Text       string         `json:"text"`
	Confidence *float64       `json:"confidence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Priority 任务优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// NormalizePriority 大小写不敏感，未知值归为 medium
func NormalizePriority(s string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p
	default:
		return PriorityMedium
	}
}

// CandidateTask 规划阶段校验通过的任务，Raw 保留模型给出的原始对象
type CandidateTask struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Owner       string          `json:"owner,omitempty"`
	DueDate     string          `json:"due_date,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// ActionType 编排阶段产出的动作类型
type ActionType string

const (
	ActionExtract ActionType = "extract"
	ActionPlan    ActionType = "plan"
)

// PipelineAction 编排模型给出的动作，字段均按宽松方式读取
type PipelineAction struct {
	Type  ActionType `json:"type"`
	Text  string     `json:"text"`
	Media []string   `json:"media,omitempty"`
}

// ExtractionResult 单个 extract 动作的结果，解析失败时 Parsed 为空
type ExtractionResult struct {
	Action PipelineAction `json:"action"`
	Raw    string         `json:"raw,omitempty"`
	Parsed *gjson.Result  `json:"-"`
	Error  string         `json:"error,omitempty"`
}

// HasContent 是否带有解析结果或非空原文
func (r ExtractionResult) HasContent() bool {
	return (r.Parsed != nil && r.Parsed.Exists()) || strings.TrimSpace(r.Raw) != ""
}

// PlanningInput 返回送入规划提示词的内容：有解析结果用解析结果，其次原文，
// 抽取失败时退回动作文本
func (r ExtractionResult) PlanningInput() json.RawMessage {
	if r.Parsed != nil && r.Parsed.Exists() {
		return json.RawMessage(r.Parsed.Raw)
	}
	text := r.Raw
	if strings.TrimSpace(text) == "" {
		text = r.Action.Text
	}
	b, _ := json.Marshal(text)
	return b
}

// MarshalJSON 附带 parsed 字段（原样 JSON 或 null）
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	type alias ExtractionResult
	var parsed json.RawMessage
	if r.Parsed != nil && r.Parsed.Exists() {
		parsed = json.RawMessage(r.Parsed.Raw)
	}
	return json.Marshal(struct {
		alias
		Parsed json.RawMessage `json:"parsed"`
	}{alias: alias(r), Parsed: parsed})
}

// SourceContext 参与上下文汇总的数据源快照
type SourceContext struct {
	ID            string
	SourceType    string
	FileName      string
	SourceURL     string
	Metadata      map[string]any
	ExtractedData map[string]any
}

// ProjectContext 上下文汇总所需的项目信息
type ProjectContext struct {
	CompanyID   string
	Name        string
	Description string
	Context     string
	Sources     []SourceContext
}
