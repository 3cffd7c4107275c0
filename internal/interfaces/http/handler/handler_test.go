package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"adjacent-api/internal/application/agent"
	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/internal/interfaces/http/middleware"
	wfmodel "adjacent-api/internal/workflow/model"
	workflowport "adjacent-api/internal/workflow/port"
	"adjacent-api/internal/workflow/retry"
	apperrors "adjacent-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	extraction func(agent.ExtractionRequest) (*agent.AgentResponse, error)
	planning   func(agent.PlanningRequest) (*agent.PlanningResponse, error)
	pipeline   func(agent.PipelineRequest) (*agent.PipelineResult, error)
	submitted  []agent.PipelineRequest
}

func (f *fakeService) RunExtraction(_ context.Context, req agent.ExtractionRequest) (*agent.AgentResponse, error) {
	return f.extraction(req)
}

func (f *fakeService) RunOrchestrator(_ context.Context, req agent.OrchestratorRequest) (*agent.AgentResponse, error) {
	if req.Input == "" && req.Structured.ProjectID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("input or structured context required")
	}
	return &agent.AgentResponse{Model: agent.ModelLabelOrchestrator, Result: wfmodel.Response(`{"output":"ok"}`)}, nil
}

func (f *fakeService) RunPlanning(_ context.Context, req agent.PlanningRequest) (*agent.PlanningResponse, error) {
	return f.planning(req)
}

func (f *fakeService) RunPipeline(_ context.Context, req agent.PipelineRequest) (*agent.PipelineResult, error) {
	return f.pipeline(req)
}

func (f *fakeService) SubmitPipeline(_ context.Context, req agent.PipelineRequest) (*entity.PipelineJob, error) {
	f.submitted = append(f.submitted, req)
	return &entity.PipelineJob{ID: "job-1", Status: entity.JobStatusPending}, nil
}

func (f *fakeService) GetJob(_ context.Context, userID, jobID string) (*entity.PipelineJob, error) {
	if userID != "u1" || jobID != "job-1" {
		return nil, apperrors.ErrJobNotFound
	}
	return &entity.PipelineJob{ID: jobID, Status: entity.JobStatusCompleted, OutputResult: json.RawMessage(`{"tasks":[]}`)}, nil
}

func (f *fakeService) ListJobs(_ context.Context, _, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.PipelineJob], error) {
	jobs := []*entity.PipelineJob{{ID: "job-1", ProjectID: projectID, Status: entity.JobStatusRunning}}
	return repository.NewPagedResult(jobs, 1, p), nil
}

func (f *fakeService) ListTasks(_ context.Context, _, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	tasks := []*entity.Task{{ID: "t1", ProjectID: projectID, Title: "A", Status: entity.TaskStatusTodo}}
	return repository.NewPagedResult(tasks, 1, p), nil
}

func newTestEngine(svc AgentService, gw workflowport.ModelGateway) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Auth(middleware.AuthConfig{}))
	agents := NewAgentHandler(svc)
	jobs := NewJobHandler(svc)
	stream := NewStreamHandler(gw)
	r.POST("/v1/agents/run-extraction", agents.RunExtraction)
	r.POST("/v1/agents/run-orchestrator", agents.RunOrchestrator)
	r.POST("/v1/agents/run-planning", agents.RunPlanning)
	r.POST("/v1/agents/run-pipeline", agents.RunPipeline)
	r.POST("/v1/agents/chat/stream", stream.ChatStream)
	r.GET("/v1/jobs/:jid", jobs.GetJob)
	r.GET("/v1/projects/:pid/tasks", jobs.ListProjectTasks)
	r.GET("/v1/projects/:pid/jobs", jobs.ListProjectJobs)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.DevUserHeader, "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(middleware.DevUserHeader, "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRunExtractionHandler(t *testing.T) {
	svc := &fakeService{extraction: func(req agent.ExtractionRequest) (*agent.AgentResponse, error) {
		if req.Input == "" && len(req.Media) == 0 {
			return nil, apperrors.ErrInvalidParam.WithDetail("input or media required")
		}
		return &agent.AgentResponse{Model: agent.ModelLabelExtraction, Result: wfmodel.Response(`{"entities":[]}`)}, nil
	}}
	r := newTestEngine(svc, nil)

	w := post(r, "/v1/agents/run-extraction", `{"input":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.True(t, body.Get("ok").Bool())
	assert.Equal(t, "12b-vl", body.Get("model").String())
	assert.True(t, body.Get("result.entities").IsArray())

	w = post(r, "/v1/agents/run-extraction", `{"input":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "input or media required", gjson.Get(w.Body.String(), "detail").String())

	w = post(r, "/v1/agents/run-extraction", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunExtractionHandlerUpstreamFailure(t *testing.T) {
	svc := &fakeService{extraction: func(agent.ExtractionRequest) (*agent.AgentResponse, error) {
		return nil, agent.ToAppError(&workflowport.UpstreamError{Model: "12b", Status: 503, Body: "overloaded"})
	}}
	w := post(newTestEngine(svc, nil), "/v1/agents/run-extraction", `{"input":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "overloaded")
}

func TestRunOrchestratorHandler(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil)

	w := post(r, "/v1/agents/run-orchestrator", `{"projectId":"p1","meetings":[{"title":"sync"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9b", gjson.Get(w.Body.String(), "model").String())

	w = post(r, "/v1/agents/run-orchestrator", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunPlanningHandler(t *testing.T) {
	due := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	svc := &fakeService{planning: func(req agent.PlanningRequest) (*agent.PlanningResponse, error) {
		assert.Equal(t, "u1", req.UserID)
		assert.JSONEq(t, `{"entities":[]}`, string(req.ExtractedData))
		return &agent.PlanningResponse{Model: agent.ModelLabelExtraction, Tasks: []*entity.Task{
			{ID: "t1", Title: "Ship", Priority: "high", Status: entity.TaskStatusTodo, DueDate: &due},
		}}, nil
	}}

	w := post(newTestEngine(svc, nil), "/v1/agents/run-planning", `{"projectId":"p1","extractedData":{"entities":[]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.True(t, body.Get("ok").Bool())
	assert.Equal(t, "t1", body.Get("tasks.0.id").String())
	assert.Equal(t, "2025-06-06", body.Get("tasks.0.due_date").String())
}

func TestRunPipelineHandlerDiagnostic(t *testing.T) {
	extracted := []wfmodel.ExtractionResult{{Action: wfmodel.PipelineAction{Type: wfmodel.ActionExtract, Text: "notes"}, Raw: "x"}}
	svc := &fakeService{pipeline: func(agent.PipelineRequest) (*agent.PipelineResult, error) {
		return nil, &agent.PipelineError{
			Stage:       agent.StagePlan,
			Message:     "Planning model did not return parsable tasks",
			Err:         &retry.ValidationExhaustedError{Attempts: 3, LastRaw: wfmodel.Response(`{"choices":[{"message":{"content":"nope"}}]}`)},
			ModelOutput: wfmodel.Response(`{"choices":[{"message":{"content":"nope"}}]}`),
			Extracted:   extracted,
		}
	}}

	w := post(newTestEngine(svc, nil), "/v1/agents/run-pipeline", `{"projectId":"p1"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.Equal(t, "Planning model did not return parsable tasks", body.Get("error").String())
	assert.Equal(t, "nope", body.Get("modelOutput.choices.0.message.content").String())
	assert.Equal(t, "notes", body.Get("extractedResults.0.action.text").String())
}

func TestRunPipelineHandlerSuccessAndAsync(t *testing.T) {
	svc := &fakeService{pipeline: func(req agent.PipelineRequest) (*agent.PipelineResult, error) {
		assert.Equal(t, []string{"ds1"}, req.DataSourceIDs)
		return &agent.PipelineResult{Tasks: []*entity.Task{{ID: "t1", Title: "Stub"}}, Mock: true}, nil
	}}
	r := newTestEngine(svc, nil)

	w := post(r, "/v1/agents/run-pipeline", `{"projectId":"p1","data_source_ids":["ds1"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.True(t, body.Get("mock").Bool())
	assert.Len(t, body.Get("tasks").Array(), 1)

	w = post(r, "/v1/agents/run-pipeline", `{"projectId":"p1","async":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "job-1", gjson.Get(w.Body.String(), "job_id").String())
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "u1", svc.submitted[0].UserID)
}

func TestRunPipelineHandlerNotFound(t *testing.T) {
	svc := &fakeService{pipeline: func(agent.PipelineRequest) (*agent.PipelineResult, error) {
		return nil, apperrors.ErrProjectNotFound
	}}
	w := post(newTestEngine(svc, nil), "/v1/agents/run-pipeline", `{"projectId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "modelOutput").Exists())
}

func TestJobAndTaskHandlers(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil)

	w := get(r, "/v1/jobs/job-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", gjson.Get(w.Body.String(), "data.status").String())

	w = get(r, "/v1/jobs/other")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/v1/projects/p1/tasks?page=1&page_size=10")
	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.Equal(t, "t1", body.Get("data.0.id").String())
	assert.EqualValues(t, 1, body.Get("meta.total").Int())

	w = get(r, "/v1/projects/p1/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	body = gjson.Parse(w.Body.String())
	assert.Equal(t, "job-1", body.Get("data.0.id").String())
	assert.Equal(t, "running", body.Get("data.0.status").String())
}

type streamGateway struct {
	body string
	err  error
	req  *wfmodel.ModelRequest
}

func (g *streamGateway) Invoke(context.Context, *wfmodel.ModelRequest) (wfmodel.Response, error) {
	return nil, errors.New("not used")
}

func (g *streamGateway) Stream(_ context.Context, req *wfmodel.ModelRequest) (io.ReadCloser, error) {
	g.req = req
	if g.err != nil {
		return nil, g.err
	}
	return io.NopCloser(bytes.NewBufferString(g.body)), nil
}

func TestChatStreamRelaysBytes(t *testing.T) {
	gw := &streamGateway{body: "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n"}
	r := newTestEngine(&fakeService{}, gw)

	w := post(r, "/v1/agents/chat/stream", `{"model":"nvidia/nemotron-nano-12b-v2-vl","messages":[{"role":"user","content":"hello"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, gw.body, w.Body.String())
	require.NotNil(t, gw.req)
	assert.True(t, gw.req.Stream)
}

func TestChatStreamConfigurationError(t *testing.T) {
	gw := &streamGateway{err: &workflowport.ConfigurationError{Model: "m-12b"}}
	w := post(newTestEngine(&fakeService{}, gw), "/v1/agents/chat/stream", `{"model":"m-12b","messages":[{"role":"user","content":"hello"}]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "missing API key")

	w = post(newTestEngine(&fakeService{}, gw), "/v1/agents/chat/stream", `{"model":"m"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestReady(t *testing.T) {
	r := gin.New()
	ok := NewHealthHandler("1.0.0", stubChecker{}, stubChecker{})
	bad := NewHealthHandler("1.0.0", stubChecker{}, stubChecker{err: errors.New("connection refused")})
	r.GET("/ready", ok.Ready)
	r.GET("/ready-bad", bad.Ready)
	r.GET("/health", ok.Health)

	w := get(r, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/ready-bad")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", gjson.Get(w.Body.String(), "checks.redis.status").String())

	w = get(r, "/health")
	assert.Equal(t, "1.0.0", gjson.Get(w.Body.String(), "version").String())
}
