package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"adjacent-api/internal/config"
	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/internal/infrastructure/messaging"
	"adjacent-api/internal/workflow/chain"
	wfmodel "adjacent-api/internal/workflow/model"
	workflowprompt "adjacent-api/internal/workflow/prompt"
)

const (
	testUser    = "11111111-1111-1111-1111-111111111111"
	testProject = "22222222-2222-2222-2222-222222222222"
)

// routedGateway 按阶段返回预设输出
type routedGateway struct {
	mu       sync.Mutex
	calls    map[string]int
	requests []*wfmodel.ModelRequest

	orchestrator func(n int) (string, error)
	extraction   func(n int) (string, error)
	planning     func(n int) (string, error)
}

func stageOf(req *wfmodel.ModelRequest) string {
	if strings.Contains(req.Model, "9b") {
		return "orchestrator"
	}
	for _, m := range req.Messages {
		if strings.HasPrefix(m.Text, "DATA TO ANALYZE:") || strings.HasPrefix(m.Text, "EXTRACTED_DATA:") {
			return "planning"
		}
	}
	return "extraction"
}

func (g *routedGateway) Invoke(_ context.Context, req *wfmodel.ModelRequest) (wfmodel.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	stage := stageOf(req)
	g.requests = append(g.requests, req)
	n := g.calls[stage]
	g.calls[stage]++

	var fn func(int) (string, error)
	switch stage {
	case "orchestrator":
		fn = g.orchestrator
	case "planning":
		fn = g.planning
	default:
		fn = g.extraction
	}
	if fn == nil {
		return nil, fmt.Errorf("unexpected %s call", stage)
	}
	content, err := fn(n)
	if err != nil {
		return nil, err
	}
	b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": content}}}})
	return b, nil
}

func (g *routedGateway) Stream(context.Context, *wfmodel.ModelRequest) (io.ReadCloser, error) {
	return nil, errors.New("not supported")
}

func (g *routedGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *routedGateway) lastOf(stage string) *wfmodel.ModelRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.requests) - 1; i >= 0; i-- {
		if stageOf(g.requests[i]) == stage {
			return g.requests[i]
		}
	}
	return nil
}

func always(s string) func(int) (string, error) {
	return func(int) (string, error) { return s, nil }
}

type memStore struct {
	mu         sync.Mutex
	profiles   map[string]*entity.Profile
	projects   map[string]*entity.Project
	sources    []*entity.DataSource
	tasks      []*entity.Task
	activities []*entity.AgentActivity
	jobs       map[string]*entity.PipelineJob

	insertErr error
	markErr   error
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[string]*entity.Profile{testUser: {ID: testUser, Email: "pm@example.com"}},
		projects: map[string]*entity.Project{testProject: {
			ID:        testProject,
			CompanyID: "acme",
			Name:      "Login revamp",
			Metadata:  map[string]any{"context": "Q3 launch"},
		}},
		jobs: map[string]*entity.PipelineJob{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addSource(ds *entity.DataSource) *entity.DataSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ds.ID == "" {
		ds.ID = m.nextID("ds")
	}
	if ds.ProjectID == "" {
		ds.ProjectID = testProject
	}
	m.sources = append(m.sources, ds)
	return ds
}

func (m *memStore) repos() Repositories {
	return Repositories{
		Projects:   projectRepo{m},
		Profiles:   profileRepo{m},
		Sources:    sourceRepo{m},
		Tasks:      taskRepo{m},
		Activities: activityRepo{m},
		Jobs:       jobRepo{m},
		Transactor: noopTx{},
	}
}

type noopTx struct{}

func (noopTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type projectRepo struct{ m *memStore }

func (r projectRepo) Create(_ context.Context, p *entity.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.projects[p.ID] = p
	return nil
}

func (r projectRepo) GetByID(_ context.Context, id string) (*entity.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.projects[id], nil
}

type profileRepo struct{ m *memStore }

func (r profileRepo) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.profiles[id], nil
}

func (r profileRepo) Upsert(_ context.Context, p *entity.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.profiles[p.ID] = p
	return nil
}

type sourceRepo struct{ m *memStore }

func (r sourceRepo) Create(_ context.Context, ds *entity.DataSource) error {
	r.m.addSource(ds)
	return nil
}

func (r sourceRepo) ListForPipeline(_ context.Context, projectID string, f repository.DataSourceFilter) ([]*entity.DataSource, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range f.IDs {
		want[id] = true
	}
	var out []*entity.DataSource
	for _, ds := range r.m.sources {
		if ds.ProjectID != projectID {
			continue
		}
		if len(want) > 0 {
			if want[ds.ID] {
				out = append(out, ds)
			}
			continue
		}
		if f.UnprocessedOnly && ds.Processed {
			continue
		}
		out = append(out, ds)
	}
	return out, nil
}

func (r sourceRepo) MarkProcessed(_ context.Context, ids []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.markErr != nil {
		return r.m.markErr
	}
	for _, ds := range r.m.sources {
		for _, id := range ids {
			if ds.ID == id {
				ds.Processed = true
				ds.ProcessingStatus = entity.ProcessingCompleted
			}
		}
	}
	return nil
}

type taskRepo struct{ m *memStore }

func (r taskRepo) BulkCreate(_ context.Context, tasks []*entity.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.insertErr != nil {
		return r.m.insertErr
	}
	for _, t := range tasks {
		t.ID = r.m.nextID("task")
		t.CreatedAt = time.Now()
		r.m.tasks = append(r.m.tasks, t)
	}
	return nil
}

func (r taskRepo) ListByProject(_ context.Context, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*entity.Task
	for _, t := range r.m.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return repository.NewPagedResult(out, int64(len(out)), p), nil
}

type activityRepo struct{ m *memStore }

func (r activityRepo) Create(_ context.Context, a *entity.AgentActivity) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.activities = append(r.m.activities, a)
	return nil
}

type jobRepo struct{ m *memStore }

func (r jobRepo) Create(_ context.Context, j *entity.PipelineJob) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	j.ID = r.m.nextID("job")
	r.m.jobs[j.ID] = j
	return nil
}

func (r jobRepo) GetByID(_ context.Context, id string) (*entity.PipelineJob, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.jobs[id], nil
}

func (r jobRepo) MarkRunning(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.jobs[id].Start()
	return nil
}

func (r jobRepo) SetResult(_ context.Context, id string, status entity.JobStatus, result json.RawMessage, errMsg string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	j := r.m.jobs[id]
	j.Status, j.OutputResult, j.ErrorMessage = status, result, errMsg
	return nil
}

func (r jobRepo) ListByProject(_ context.Context, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.PipelineJob], error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*entity.PipelineJob
	for _, j := range r.m.jobs {
		if j.ProjectID == projectID {
			out = append(out, j)
		}
	}
	return repository.NewPagedResult(out, int64(len(out)), p), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	jobs   []*messaging.PipelineJobMessage
	events []*messaging.PipelineEventMessage
	err    error
}

func (p *fakePublisher) PublishPipelineJob(_ context.Context, job *messaging.PipelineJobMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.jobs = append(p.jobs, job)
	return "1-0", nil
}

func (p *fakePublisher) PublishPipelineEvent(_ context.Context, ev *messaging.PipelineEventMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return "1-1", nil
}

type fixture struct {
	store     *memStore
	gateway   *routedGateway
	publisher *fakePublisher
	svc       *Service
}

func newFixture(t *testing.T, mock bool) *fixture {
	t.Helper()
	cfg := &config.Config{LLM: config.LLMConfig{Mock: mock, InternalBaseURL: "http://api.internal"}}
	f := &fixture{store: newMemStore(), gateway: &routedGateway{}, publisher: &fakePublisher{}}

	prompts := workflowprompt.NewRegistry()
	settings := chain.DefaultSettings()
	chains := Chains{
		Orchestrator: chain.NewOrchestratorChain(f.gateway, prompts, settings),
		Extraction:   chain.NewExtractionChain(f.gateway, prompts, settings),
		Planning:     chain.NewPlanningChain(f.gateway, prompts, settings),
	}
	f.svc = NewService(cfg, f.store.repos(), chains, f.publisher)
	f.svc.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }
	return f
}
