package dto

import (
	"time"

	"adjacent-api/internal/domain/entity"
)

// TaskResponse 看板任务
type TaskResponse struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	AssigneeID  *string        `json:"assignee_id"`
	DueDate     *string        `json:"due_date"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ToTaskResponse 将领域实体转换为响应 DTO，due_date 输出为 YYYY-MM-DD
func ToTaskResponse(t *entity.Task) *TaskResponse {
	if t == nil {
		return nil
	}
	resp := &TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    t.Priority,
		AssigneeID:  t.AssigneeID,
		Metadata:    t.Metadata,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(time.DateOnly)
		resp.DueDate = &d
	}
	return resp
}

// ToTaskList 任务列表，空列表输出 []
func ToTaskList(tasks []*entity.Task) []*TaskResponse {
	out := make([]*TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToTaskResponse(t))
	}
	return out
}
