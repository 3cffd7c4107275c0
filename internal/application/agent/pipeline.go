package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"

	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/internal/workflow/chain"
	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
	workflowprompt "adjacent-api/internal/workflow/prompt"
	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/metrics"
)

// PipelineRequest 流水线请求，DataSourceIDs 为空时处理全部未处理数据源
type PipelineRequest struct {
	ProjectID     string   `json:"project_id"`
	UserID        string   `json:"user_id"`
	DataSourceIDs []string `json:"data_source_ids,omitempty"`
}

// PipelineResult 流水线结果
type PipelineResult struct {
	Tasks     []*entity.Task             `json:"tasks"`
	Extracted []wfmodel.ExtractionResult `json:"extracted,omitempty"`
	Mock      bool                       `json:"mock,omitempty"`
	Message   string                     `json:"message,omitempty"`
}

// pipelineRun 单次运行的状态，在各节点间传递
type pipelineRun struct {
	Req     *PipelineRequest
	Profile *entity.Profile
	Project *entity.Project

	Sources    []*entity.DataSource
	Context    string
	Actions    []wfmodel.PipelineAction
	Extracted  []wfmodel.ExtractionResult
	Candidates []*entity.Task
	TaskSource string
	Result     *PipelineResult
	failure    *PipelineError
}

// finished 已得到结果（无数据源）或已失败
func (r *pipelineRun) finished() bool {
	return r.Result != nil || r.failure != nil
}

func (r *pipelineRun) fail(pe *PipelineError) (*pipelineRun, error) {
	if r.failure == nil {
		r.failure = pe
	}
	return nil, pe
}

type pipelineRunner struct {
	once     sync.Once
	runnable compose.Runnable[*pipelineRun, *pipelineRun]
	err      error
}

// RunPipeline 同步执行 COLLECT_CONTEXT → ORCHESTRATE → EXTRACT* → PLAN → PERSIST
func (s *Service) RunPipeline(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	profile, project, err := s.authorize(ctx, req.UserID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, project.ID)

	runnable, err := s.pipelineRunnable()
	if err != nil {
		return nil, err
	}

	mode := "live"
	if s.mock {
		mode = "mock"
	}

	run := &pipelineRun{Req: &req, Profile: profile, Project: project}
	out, err := runnable.Invoke(ctx, run)
	if err != nil {
		metrics.PipelineRunTotal.WithLabelValues(mode, "failed").Inc()
		if run.failure != nil {
			logger.Error(ctx, "pipeline failed", run.failure, "stage", run.failure.Stage)
			return nil, run.failure
		}
		return nil, err
	}

	status := "success"
	if len(out.Result.Tasks) == 0 {
		status = "empty"
	}
	metrics.PipelineRunTotal.WithLabelValues(mode, status).Inc()
	return out.Result, nil
}

func (s *Service) pipelineRunnable() (compose.Runnable[*pipelineRun, *pipelineRun], error) {
	s.pipeline.once.Do(func() {
		s.pipeline.runnable, s.pipeline.err = s.buildPipeline(context.Background())
		if s.pipeline.err != nil {
			s.pipeline.err = fmt.Errorf("compile pipeline: %w", s.pipeline.err)
		}
	})
	return s.pipeline.runnable, s.pipeline.err
}

func (s *Service) buildPipeline(ctx context.Context) (compose.Runnable[*pipelineRun, *pipelineRun], error) {
	c := compose.NewChain[*pipelineRun, *pipelineRun]()
	c.AppendLambda(compose.InvokableLambda(s.collect), compose.WithNodeName("pipeline.collect"))
	c.AppendLambda(compose.InvokableLambda(s.orchestrate), compose.WithNodeName("pipeline.orchestrate"))
	c.AppendLambda(compose.InvokableLambda(s.extract), compose.WithNodeName("pipeline.extract"))
	c.AppendLambda(compose.InvokableLambda(s.plan), compose.WithNodeName("pipeline.plan"))
	c.AppendLambda(compose.InvokableLambda(s.persist), compose.WithNodeName("pipeline.persist"))
	return c.Compile(ctx, compose.WithGraphName("pipeline"))
}

// collect 读取数据源并汇总上下文；模拟模式在此生成占位任务
func (s *Service) collect(ctx context.Context, run *pipelineRun) (*pipelineRun, error) {
	ctx = logger.WithContext(ctx, logger.StageKey, string(StageCollect))

	filter := repository.DataSourceFilter{IDs: run.Req.DataSourceIDs, UnprocessedOnly: true}
	if s.mock {
		filter.IDs = nil
	}
	sources, err := s.repos.Sources.ListForPipeline(ctx, run.Project.ID, filter)
	if err != nil {
		return run.fail(&PipelineError{Stage: StageCollect, Err: err})
	}
	run.Sources = sources

	if len(sources) == 0 {
		logger.Info(ctx, "no data sources to process")
		run.Result = &PipelineResult{Tasks: []*entity.Task{}, Message: msgNoDataSources}
		return run, nil
	}

	pc := wfmodel.ProjectContext{
		CompanyID:   run.Project.CompanyID,
		Name:        run.Project.Name,
		Description: run.Project.Description,
		Context:     run.Project.ContextNote(),
	}
	for _, ds := range sources {
		pc.Sources = append(pc.Sources, ds.ToContext())
	}
	run.Context = wfnode.BuildProjectContext(pc)

	if s.mock {
		run.Candidates = stubTasks(run.Project.ID, run.Profile.ID, sources)
		run.TaskSource = entity.TaskSourceStub
	}

	logger.Info(ctx, "context collected", "sources", len(sources), "context_runes", len([]rune(run.Context)))
	return run, nil
}

// orchestrate 编排模型给出动作列表，无法解析时视为零个动作
func (s *Service) orchestrate(ctx context.Context, run *pipelineRun) (*pipelineRun, error) {
	if run.finished() || run.Candidates != nil {
		return run, nil
	}
	ctx = logger.WithContext(ctx, logger.StageKey, string(StageOrchestrate))

	p := run.Project
	out, err := s.chains.Orchestrator.Invoke(ctx, &chain.OrchestratorInput{
		Project: &wfmodel.ProjectContext{
			CompanyID:   p.CompanyID,
			Name:        p.Name,
			Description: p.Description,
			Context:     p.ContextNote(),
		},
		FullContext: run.Context,
	})
	if err != nil {
		return run.fail(&PipelineError{Stage: StageOrchestrate, Err: err})
	}
	run.Actions = out.Actions
	logger.Info(ctx, "orchestrator proposed actions", "actions", len(out.Actions), "parsed", out.Parsed)
	return run, nil
}

// extract 依次处理 extract 动作；单个动作失败只记录，不中止
func (s *Service) extract(ctx context.Context, run *pipelineRun) (*pipelineRun, error) {
	if run.finished() || run.Candidates != nil {
		return run, nil
	}
	ctx = logger.WithContext(ctx, logger.StageKey, string(StageExtract))

	for _, act := range run.Actions {
		if act.Type != wfmodel.ActionExtract {
			continue
		}
		res, err := s.chains.Extraction.ExtractAction(ctx, act)
		if err != nil {
			return run.fail(&PipelineError{Stage: StageExtract, Err: err, Extracted: run.Extracted})
		}
		switch {
		case res.Error != "":
			metrics.ExtractionFailures.WithLabelValues("error").Inc()
			logger.Warn(ctx, "extraction action failed", "error", res.Error)
		case res.Parsed == nil:
			metrics.ExtractionFailures.WithLabelValues("parse").Inc()
			logger.Warn(ctx, "extraction output is not JSON", "raw", wfnode.TruncateByRunes(res.Raw, 300))
		}
		run.Extracted = append(run.Extracted, res)
	}

	if !slices.ContainsFunc(run.Extracted, wfmodel.ExtractionResult.HasContent) {
		run.Extracted = append(run.Extracted, sourcesAsExtraction(run.Context, run.Sources))
	}
	return run, nil
}

// sourcesAsExtraction 没有可用的抽取结果时，把完整上下文作为抽取结果交给规划
func sourcesAsExtraction(fullContext string, sources []*entity.DataSource) wfmodel.ExtractionResult {
	ctxs := make([]wfmodel.SourceContext, 0, len(sources))
	for _, ds := range sources {
		ctxs = append(ctxs, ds.ToContext())
	}
	b, _ := json.Marshal(map[string]any{
		"summary": "Data from project sources",
		"items":   wfnode.SourceBlocks(ctxs),
	})
	parsed := gjson.ParseBytes(b)
	return wfmodel.ExtractionResult{
		Action: wfmodel.PipelineAction{Type: wfmodel.ActionPlan, Text: "project context"},
		Raw:    fullContext,
		Parsed: &parsed,
	}
}

// plan 重试直到得到合法任务数组
func (s *Service) plan(ctx context.Context, run *pipelineRun) (*pipelineRun, error) {
	if run.finished() || run.Candidates != nil {
		return run, nil
	}
	ctx = logger.WithContext(ctx, logger.StageKey, string(StagePlan))

	out, err := s.chains.Planning.Invoke(ctx, &chain.PlanningInput{
		Prompt: workflowprompt.PromptPipelinePlanningV1,
		Data:   wfnode.BuildPlanningData(run.Extracted),
		Today:  s.now(),
	})
	if err != nil {
		return run.fail(planFailure(msgPipelineExhausted, err, run.Extracted))
	}
	run.Candidates = newTasks(run.Project.ID, run.Profile.ID, entity.TaskSourcePipeline, out.Tasks)
	run.TaskSource = entity.TaskSourcePipeline
	logger.Info(ctx, "planning produced tasks", "tasks", len(out.Tasks), "attempts", out.Attempts)
	return run, nil
}

// persist 写入任务后标记数据源并记录活动；后两步失败只告警
func (s *Service) persist(ctx context.Context, run *pipelineRun) (*pipelineRun, error) {
	if run.finished() {
		return run, nil
	}
	ctx = logger.WithContext(ctx, logger.StageKey, string(StagePersist))

	if err := s.insertTasks(ctx, run.Candidates); err != nil {
		return run.fail(&PipelineError{Stage: StagePersist, Err: err, Extracted: run.Extracted})
	}
	metrics.TasksCreated.WithLabelValues(run.TaskSource).Add(float64(len(run.Candidates)))

	var warnings *multierror.Error
	if err := s.repos.Sources.MarkProcessed(ctx, sourceIDs(run.Sources)); err != nil {
		warnings = multierror.Append(warnings, fmt.Errorf("mark sources processed: %w", err))
	}
	activity := &entity.AgentActivity{
		ProjectID:    run.Project.ID,
		ActivityType: entity.ActivityPipelineRun,
		Description:  "Orchestrator->Extraction->Planning run by " + run.Profile.ID,
		Data:         map[string]any{"tasks_created": len(run.Candidates), "mock": s.mock},
	}
	if err := s.repos.Activities.Create(ctx, activity); err != nil {
		warnings = multierror.Append(warnings, fmt.Errorf("log activity: %w", err))
	}
	if err := warnings.ErrorOrNil(); err != nil {
		logger.Warn(ctx, "pipeline tasks saved with follow-up failures", "error", err.Error())
	}

	run.Result = &PipelineResult{Tasks: run.Candidates, Extracted: run.Extracted, Mock: s.mock}
	logger.Info(ctx, "pipeline completed", "tasks_created", len(run.Candidates))
	return run, nil
}
