// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"adjacent-api/internal/application/agent"
	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/internal/interfaces/http/dto"
	"adjacent-api/pkg/logger"
)

// AgentService 处理器依赖的应用服务
type AgentService interface {
	RunExtraction(ctx context.Context, req agent.ExtractionRequest) (*agent.AgentResponse, error)
	RunOrchestrator(ctx context.Context, req agent.OrchestratorRequest) (*agent.AgentResponse, error)
	RunPlanning(ctx context.Context, req agent.PlanningRequest) (*agent.PlanningResponse, error)
	RunPipeline(ctx context.Context, req agent.PipelineRequest) (*agent.PipelineResult, error)
	SubmitPipeline(ctx context.Context, req agent.PipelineRequest) (*entity.PipelineJob, error)
	GetJob(ctx context.Context, userID, jobID string) (*entity.PipelineJob, error)
	ListJobs(ctx context.Context, userID, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.PipelineJob], error)
	ListTasks(ctx context.Context, userID, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.Task], error)
}

var _ AgentService = (*agent.Service)(nil)

// respondError 输出应用错误；流水线失败时附带诊断信息
func respondError(c *gin.Context, err error) {
	appErr := agent.ToAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), "request failed", err, "code", appErr.Code)
	}

	var pe *agent.PipelineError
	if errors.As(err, &pe) {
		if diag := agent.DiagnosticOf(err); diag != nil {
			dto.FailWithDiagnostic(c, appErr, diag.ModelOutput, diag.ExtractedResults)
			return
		}
	}
	dto.Fail(c, appErr)
}
