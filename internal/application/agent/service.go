// Package agent 提供抽取、编排、规划三个智能体及其组合流水线的应用服务
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"adjacent-api/internal/config"
	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/internal/infrastructure/messaging"
	"adjacent-api/internal/workflow/chain"
	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
	workflowprompt "adjacent-api/internal/workflow/prompt"
	apperrors "adjacent-api/pkg/errors"
	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/metrics"
)

// 接口返回的模型标签
const (
	ModelLabelOrchestrator = "9b"
	ModelLabelExtraction   = "12b-vl"
)

// Repositories 服务依赖的仓储
type Repositories struct {
	Projects   repository.ProjectRepository
	Profiles   repository.ProfileRepository
	Sources    repository.DataSourceRepository
	Tasks      repository.TaskRepository
	Activities repository.ActivityRepository
	Jobs       repository.JobRepository
	Transactor repository.Transactor
}

// Chains 三个阶段的工作流
type Chains struct {
	Orchestrator *chain.OrchestratorChain
	Extraction   *chain.ExtractionChain
	Planning     *chain.PlanningChain
}

// JobPublisher 异步任务与事件投递
type JobPublisher interface {
	PublishPipelineJob(ctx context.Context, job *messaging.PipelineJobMessage) (string, error)
	PublishPipelineEvent(ctx context.Context, ev *messaging.PipelineEventMessage) (string, error)
}

// Service 智能体应用服务
type Service struct {
	repos     Repositories
	chains    Chains
	publisher JobPublisher
	mock      bool
	baseURL   string
	now       func() time.Time

	pipeline pipelineRunner
}

// NewService 创建服务，publisher 为空时不支持异步运行
func NewService(cfg *config.Config, repos Repositories, chains Chains, publisher JobPublisher) *Service {
	return &Service{
		repos:     repos,
		chains:    chains,
		publisher: publisher,
		mock:      cfg.LLM.Mock,
		baseURL:   strings.TrimRight(cfg.LLM.InternalBaseURL, "/"),
		now:       time.Now,
	}
}

// ExtractionRequest 抽取请求
type ExtractionRequest struct {
	Input string
	Media []string
}

// AgentResponse 单次模型调用的结果，Result 为后端原始响应
type AgentResponse struct {
	Model  string
	Result wfmodel.Response
}

// RunExtraction 对文本与媒体做一次实体抽取
func (s *Service) RunExtraction(ctx context.Context, req ExtractionRequest) (*AgentResponse, error) {
	out, err := s.chains.Extraction.Invoke(ctx, &chain.ExtractionInput{Text: req.Input, Media: req.Media})
	if err != nil {
		if errors.Is(err, chain.ErrEmptyExtractionInput) {
			return nil, apperrors.ErrInvalidParam.WithDetail("input or media required")
		}
		return nil, ToAppError(err)
	}
	logger.Info(ctx, "extraction finished", "mode", out.Mode, "entities", len(out.Entities))
	return &AgentResponse{Model: ModelLabelExtraction, Result: out.Raw}, nil
}

// OrchestratorRequest Input 非空时优先使用，否则拼接结构化上下文
type OrchestratorRequest struct {
	Input      string
	Structured wfnode.StructuredInput
}

// RunOrchestrator 单独调用编排模型
func (s *Service) RunOrchestrator(ctx context.Context, req OrchestratorRequest) (*AgentResponse, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		input = wfnode.BuildStructuredInput(req.Structured)
	}
	if input == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("input or structured context required")
	}

	out, err := s.chains.Orchestrator.Invoke(ctx, &chain.OrchestratorInput{Input: input})
	if err != nil {
		return nil, ToAppError(err)
	}
	logger.Info(ctx, "orchestrator finished", "actions", len(out.Actions), "parsed", out.Parsed)
	return &AgentResponse{Model: ModelLabelOrchestrator, Result: out.Raw}, nil
}

// PlanningRequest 规划请求
type PlanningRequest struct {
	ProjectID     string
	UserID        string
	ExtractedData json.RawMessage
}

// PlanningResponse 规划结果，Tasks 为写入后的行
type PlanningResponse struct {
	Model string
	Tasks []*entity.Task
}

// RunPlanning 由抽取数据生成任务并写入看板
func (s *Service) RunPlanning(ctx context.Context, req PlanningRequest) (*PlanningResponse, error) {
	profile, project, err := s.authorize(ctx, req.UserID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	if s.mock {
		tasks := newTasks(project.ID, profile.ID, entity.TaskSourcePlanning, mockPlanningTasks())
		if err := s.insertTasks(ctx, tasks); err != nil {
			logger.Warn(ctx, "failed to insert mock planning tasks", "error", err)
		}
		return &PlanningResponse{Model: ModelLabelExtraction, Tasks: tasks}, nil
	}

	plan, err := s.chains.Planning.Invoke(ctx, &chain.PlanningInput{
		Prompt: workflowprompt.PromptPlanningV1,
		Data:   wfnode.IndentJSON(req.ExtractedData),
		Today:  s.now(),
	})
	if err != nil {
		return nil, planFailure("", err, nil)
	}

	tasks := newTasks(project.ID, profile.ID, entity.TaskSourcePlanning, plan.Tasks)
	if err := s.insertTasks(ctx, tasks); err != nil {
		return nil, err
	}
	metrics.TasksCreated.WithLabelValues(entity.TaskSourcePlanning).Add(float64(len(tasks)))
	logger.Info(ctx, "planning finished", "tasks", len(tasks), "attempts", plan.Attempts)
	return &PlanningResponse{Model: ModelLabelExtraction, Tasks: tasks}, nil
}

// ListTasks 项目看板任务
func (s *Service) ListTasks(ctx context.Context, userID, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.Task], error) {
	if _, _, err := s.authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}
	res, err := s.repos.Tasks.ListByProject(ctx, projectID, p)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list tasks")
	}
	return res, nil
}

// authorize 解析调用者资料与目标项目
func (s *Service) authorize(ctx context.Context, userID, projectID string) (*entity.Profile, *entity.Project, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, apperrors.ErrUnauthorized
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, nil, apperrors.ErrInvalidParam.WithDetail("projectId required")
	}

	profile, err := s.repos.Profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load profile")
	}
	if profile == nil {
		return nil, nil, apperrors.ErrProfileNotFound.WithDetail("User profile not found. Please refresh the page and try again.")
	}

	project, err := s.repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, nil, apperrors.ErrProjectNotFound
	}
	return profile, project, nil
}

// insertTasks 在一个事务中批量写入
func (s *Service) insertTasks(ctx context.Context, tasks []*entity.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	err := s.repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repos.Tasks.BulkCreate(ctx, tasks)
	})
	if err != nil {
		return &PersistenceError{Op: "insert tasks", Err: err}
	}
	return nil
}
