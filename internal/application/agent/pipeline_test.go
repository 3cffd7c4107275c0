package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjacent-api/internal/domain/entity"
	workflowport "adjacent-api/internal/workflow/port"
	apperrors "adjacent-api/pkg/errors"
)

const loginActions = `{"actions":[{"type":"extract","text":"Ship login page by Friday, owner Dana"}]}`

func TestRunPipelineEndToEnd(t *testing.T) {
	f := newFixture(t, false)
	src := f.store.addSource(&entity.DataSource{
		SourceType:    "document",
		FileName:      "notes.txt",
		ExtractedData: map[string]any{"text": "Ship login page by Friday, owner Dana"},
	})

	f.gateway.orchestrator = always(loginActions)
	f.gateway.extraction = always(`{"entities":[{"type":"deliverable","text":"login page"},{"type":"owner","text":"Dana"}]}`)
	f.gateway.planning = always(`[{"title":"Ship login page","priority":"HIGH","owner":"Dana","due_date":"2025-06-06"}]`)

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.False(t, res.Mock)

	task := res.Tasks[0]
	assert.Equal(t, "Ship login page", task.Title)
	assert.Equal(t, "high", task.Priority)
	assert.Equal(t, entity.TaskStatusTodo, task.Status)
	assert.Equal(t, testUser, task.CreatedBy)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2025-06-06", task.DueDate.Format("2006-01-02"))
	assert.Equal(t, entity.TaskSourcePipeline, task.Metadata["source"])
	assert.Equal(t, "Dana", task.Metadata["owner"])
	assert.Contains(t, task.Metadata, "raw_data")
	assert.NotEmpty(t, task.ID)

	require.Len(t, res.Extracted, 1)
	require.NotNil(t, res.Extracted[0].Parsed)
	assert.Equal(t, "login page", res.Extracted[0].Parsed.Get("entities.0.text").String())

	assert.True(t, src.Processed)
	require.Len(t, f.store.activities, 1)
	assert.Equal(t, entity.ActivityPipelineRun, f.store.activities[0].ActivityType)
	assert.Equal(t, 1, f.store.activities[0].Data["tasks_created"])

	plan := f.gateway.lastOf("planning")
	require.NotNil(t, plan)
	data := plan.Messages[len(plan.Messages)-1].Text
	assert.True(t, strings.HasPrefix(data, "DATA TO ANALYZE:"))
	assert.Contains(t, data, "login page")
}

func TestRunPipelineMockModeCreatesStubTasks(t *testing.T) {
	f := newFixture(t, true)
	f.store.addSource(&entity.DataSource{SourceType: "document", FileName: "spec.pdf", ExtractedData: map[string]any{"text": "body"}})
	f.store.addSource(&entity.DataSource{SourceType: "recording"})
	f.store.addSource(&entity.DataSource{SourceType: "document", FileName: "old.txt", Processed: true})

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.NoError(t, err)
	assert.True(t, res.Mock)
	assert.Zero(t, f.gateway.total())

	require.Len(t, res.Tasks, 2)
	assert.Equal(t, "Stub Task: Review spec.pdf", res.Tasks[0].Title)
	assert.Equal(t, "high", res.Tasks[0].Priority)
	require.NotNil(t, res.Tasks[0].Description)
	assert.Equal(t, "body", *res.Tasks[0].Description)
	assert.Equal(t, "Stub Task: Review recording", res.Tasks[1].Title)
	assert.Equal(t, "medium", res.Tasks[1].Priority)
	assert.Equal(t, entity.TaskSourceStub, res.Tasks[1].Metadata["source"])

	for _, ds := range f.store.sources {
		assert.True(t, ds.Processed, ds.ID)
	}
	require.Len(t, f.store.activities, 1)
	assert.Equal(t, true, f.store.activities[0].Data["mock"])
}

func TestRunPipelineNoSources(t *testing.T) {
	f := newFixture(t, false)
	f.store.addSource(&entity.DataSource{SourceType: "document", Processed: true})

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.NoError(t, err)
	assert.Empty(t, res.Tasks)
	assert.Equal(t, msgNoDataSources, res.Message)
	assert.Zero(t, f.gateway.total())
	assert.Empty(t, f.store.activities)
}

func TestRunPipelineExplicitSourceIDs(t *testing.T) {
	f := newFixture(t, false)
	f.store.addSource(&entity.DataSource{SourceType: "document", FileName: "a.txt"})
	picked := f.store.addSource(&entity.DataSource{SourceType: "document", FileName: "b.txt", Processed: true})

	f.gateway.orchestrator = always(`{"actions":[]}`)
	f.gateway.planning = always(`[{"title":"Review b"}]`)

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{
		ProjectID:     testProject,
		UserID:        testUser,
		DataSourceIDs: []string{picked.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)

	orch := f.gateway.lastOf("orchestrator")
	require.NotNil(t, orch)
	var prompt string
	for _, m := range orch.Messages {
		prompt += m.Text
	}
	assert.Contains(t, prompt, "b.txt")
	assert.NotContains(t, prompt, "a.txt")
	assert.False(t, f.store.sources[0].Processed)
}

func TestRunPipelineUnparseableOrchestratorFallsBackToContext(t *testing.T) {
	f := newFixture(t, false)
	f.store.addSource(&entity.DataSource{SourceType: "document", FileName: "roadmap.pptx"})

	f.gateway.orchestrator = always("I could not decide what to do.")
	f.gateway.planning = always(`Here you go: [{"title":"Review roadmap deck","priority":"low"}]`)

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "low", res.Tasks[0].Priority)
	assert.Zero(t, f.gateway.calls["extraction"])

	require.Len(t, res.Extracted, 1)
	require.NotNil(t, res.Extracted[0].Parsed)
	assert.Equal(t, "Data from project sources", res.Extracted[0].Parsed.Get("summary").String())
	assert.Equal(t, "roadmap.pptx", res.Extracted[0].Parsed.Get("items.0.file_name").String())
}

func TestRunPipelineExtractionFailureIsRecorded(t *testing.T) {
	f := newFixture(t, false)
	f.store.addSource(&entity.DataSource{SourceType: "document", FileName: "notes.txt"})

	f.gateway.orchestrator = always(`{"actions":[{"type":"extract","text":"first"},{"type":"plan","text":"skip"},{"type":"extract","text":"second"}]}`)
	f.gateway.extraction = func(n int) (string, error) {
		if n == 0 {
			return "", &workflowport.UpstreamError{Model: "12b", Status: http.StatusBadGateway, Body: "bad gateway"}
		}
		return "plain prose, no json", nil
	}
	f.gateway.planning = always(`[{"title":"Follow up"}]`)

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.NoError(t, err)
	require.Len(t, res.Extracted, 2)
	assert.Contains(t, res.Extracted[0].Error, "bad gateway")
	assert.Nil(t, res.Extracted[1].Parsed)
	assert.NotEmpty(t, res.Extracted[1].Raw)
	assert.Equal(t, 2, f.gateway.calls["extraction"])
	require.Len(t, res.Tasks, 1)
}

func TestRunPipelineAllExtractionsFailedPlansFromContext(t *testing.T) {
	f := newFixture(t, false)
	src := f.store.addSource(&entity.DataSource{
		SourceType:    "document",
		FileName:      "notes.txt",
		ExtractedData: map[string]any{"text": "Dana owns the login page"},
	})

	f.gateway.orchestrator = always(loginActions)
	f.gateway.extraction = func(int) (string, error) {
		return "", &workflowport.UpstreamError{Model: "12b", Status: http.StatusBadGateway, Body: "bad gateway"}
	}
	f.gateway.planning = always(`[{"title":"Ship login page"}]`)

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)

	require.Len(t, res.Extracted, 2)
	assert.NotEmpty(t, res.Extracted[0].Error)
	require.NotNil(t, res.Extracted[1].Parsed)
	assert.Equal(t, "notes.txt", res.Extracted[1].Parsed.Get("items.0.file_name").String())

	plan := f.gateway.lastOf("planning")
	require.NotNil(t, plan)
	data := plan.Messages[len(plan.Messages)-1].Text
	assert.Contains(t, data, "Ship login page by Friday, owner Dana")
	assert.Contains(t, data, "notes.txt")
	assert.True(t, src.Processed)
}

func TestRunPipelinePlanExhausted(t *testing.T) {
	f := newFixture(t, false)
	f.store.addSource(&entity.DataSource{SourceType: "document", FileName: "notes.txt"})

	f.gateway.orchestrator = always(loginActions)
	f.gateway.extraction = always(`{"entities":[]}`)
	f.gateway.planning = always("Sorry, here are some thoughts but no JSON.")

	_, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.Error(t, err)
	assert.Equal(t, 3, f.gateway.calls["planning"])

	var pe *PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StagePlan, pe.Stage)

	appErr := ToAppError(err)
	assert.Equal(t, apperrors.CodePlanValidationExhausted, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	assert.Equal(t, msgPipelineExhausted, appErr.Message)

	diag := DiagnosticOf(err)
	require.NotNil(t, diag)
	assert.Contains(t, diag.ModelOutput.String(), "no JSON")
	assert.Len(t, diag.ExtractedResults, 1)

	assert.Empty(t, f.store.tasks)
	assert.False(t, f.store.sources[0].Processed)
}

func TestRunPipelineMissingCredentialsAborts(t *testing.T) {
	f := newFixture(t, false)
	f.store.addSource(&entity.DataSource{SourceType: "document"})
	f.gateway.orchestrator = func(int) (string, error) {
		return "", &workflowport.ConfigurationError{Model: "nemotron-nano-9b"}
	}

	_, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.Error(t, err)

	var pe *PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StageOrchestrate, pe.Stage)
	assert.Equal(t, apperrors.CodeLLMConfigError, ToAppError(err).Code)
	assert.Equal(t, 1, f.gateway.total())
}

func TestRunPipelinePersistenceFailureKeepsSourcesUnprocessed(t *testing.T) {
	f := newFixture(t, false)
	f.store.addSource(&entity.DataSource{SourceType: "document"})
	f.store.insertErr = errors.New("connection reset")

	f.gateway.orchestrator = always(`{"actions":[]}`)
	f.gateway.planning = always(`[{"title":"Anything"}]`)

	_, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.Error(t, err)

	var persistErr *PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, apperrors.CodePersistenceError, ToAppError(err).Code)
	assert.False(t, f.store.sources[0].Processed)
	assert.Empty(t, f.store.activities)
}

func TestRunPipelineMarkProcessedFailureIsWarning(t *testing.T) {
	f := newFixture(t, true)
	f.store.addSource(&entity.DataSource{SourceType: "document"})
	f.store.markErr = errors.New("timeout")

	res, err := f.svc.RunPipeline(context.Background(), PipelineRequest{ProjectID: testProject, UserID: testUser})
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 1)
	assert.Len(t, f.store.activities, 1)
}

func TestRunPipelineAuthorization(t *testing.T) {
	tests := []struct {
		name string
		req  PipelineRequest
		code apperrors.ErrorCode
	}{
		{"no user", PipelineRequest{ProjectID: testProject}, apperrors.CodeUnauthorized},
		{"no project", PipelineRequest{UserID: testUser}, apperrors.CodeInvalidParam},
		{"unknown profile", PipelineRequest{ProjectID: testProject, UserID: "ghost"}, apperrors.CodeProfileNotFound},
		{"unknown project", PipelineRequest{ProjectID: "missing", UserID: testUser}, apperrors.CodeProjectNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			_, err := f.svc.RunPipeline(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, ToAppError(err).Code)
			assert.Zero(t, f.gateway.total())
		})
	}
}
