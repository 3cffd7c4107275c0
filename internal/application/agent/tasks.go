package agent

import (
	"encoding/json"
	"strings"

	"adjacent-api/internal/domain/entity"
	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
)

const untitledTask = "Untitled task"

// newTask 把校验过的候选任务转为看板任务
func newTask(projectID, profileID, source string, c wfmodel.CandidateTask) *entity.Task {
	meta := map[string]any{"source": source}
	if len(c.Raw) > 0 && source == entity.TaskSourcePipeline {
		meta["raw_data"] = json.RawMessage(c.Raw)
	}
	if owner := strings.TrimSpace(c.Owner); owner != "" {
		meta["owner"] = owner
	}

	t := &entity.Task{
		ProjectID: projectID,
		Title:     wfnode.FirstNonEmpty(strings.TrimSpace(c.Title), untitledTask),
		Status:    entity.TaskStatusTodo,
		Priority:  string(wfmodel.NormalizePriority(c.Priority)),
		DueDate:   wfnode.ParseDueDate(c.DueDate),
		Metadata:  meta,
		CreatedBy: profileID,
	}
	if d := strings.TrimSpace(c.Description); d != "" {
		t.Description = &d
	}
	return t
}

func newTasks(projectID, profileID, source string, candidates []wfmodel.CandidateTask) []*entity.Task {
	out := make([]*entity.Task, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, newTask(projectID, profileID, source, c))
	}
	return out
}

// stubTasks 模拟模式：每个数据源一条复核任务，第一条为 high
func stubTasks(projectID, profileID string, sources []*entity.DataSource) []*entity.Task {
	out := make([]*entity.Task, 0, len(sources))
	for i, ds := range sources {
		priority := wfmodel.PriorityMedium
		if i == 0 {
			priority = wfmodel.PriorityHigh
		}
		t := &entity.Task{
			ProjectID: projectID,
			Title:     "Stub Task: Review " + ds.DisplayName(),
			Status:    entity.TaskStatusTodo,
			Priority:  string(priority),
			Metadata:  map[string]any{"source": entity.TaskSourceStub, "data_source_id": ds.ID},
			CreatedBy: profileID,
		}
		if text := ds.ExtractedText(); text != "" {
			t.Description = &text
		}
		out = append(out, t)
	}
	return out
}

// mockPlanningTasks 规划接口模拟模式的固定任务
func mockPlanningTasks() []wfmodel.CandidateTask {
	return []wfmodel.CandidateTask{{
		Title:       "Mock: Review extracted doc A",
		Description: "Review the extracted content",
		Priority:    string(wfmodel.PriorityMedium),
	}}
}

func sourceIDs(sources []*entity.DataSource) []string {
	ids := make([]string, 0, len(sources))
	for _, ds := range sources {
		ids = append(ids, ds.ID)
	}
	return ids
}
