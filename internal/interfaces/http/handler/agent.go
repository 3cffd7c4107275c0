package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adjacent-api/internal/application/agent"
	"adjacent-api/internal/interfaces/http/dto"
	"adjacent-api/internal/interfaces/http/middleware"
)

// AgentHandler 智能体接口
type AgentHandler struct {
	svc AgentService
}

// NewAgentHandler 创建智能体处理器
func NewAgentHandler(svc AgentService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// RunExtraction 从文本与媒体中抽取实体
// @Summary 运行抽取智能体
// @Tags Agents
// @Accept json
// @Produce json
// @Param body body dto.RunExtractionRequest true "输入"
// @Success 200 {object} dto.ModelResultResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/agents/run-extraction [post]
func (h *AgentHandler) RunExtraction(c *gin.Context) {
	var req dto.RunExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	out, err := h.svc.RunExtraction(c.Request.Context(), agent.ExtractionRequest{Input: req.Input, Media: req.Media})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ModelResultResponse{OK: true, Model: out.Model, Result: out.Result})
}

// RunOrchestrator 调用编排模型
// @Summary 运行编排智能体
// @Tags Agents
// @Accept json
// @Produce json
// @Param body body dto.RunOrchestratorRequest true "输入"
// @Success 200 {object} dto.ModelResultResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/agents/run-orchestrator [post]
func (h *AgentHandler) RunOrchestrator(c *gin.Context) {
	var req dto.RunOrchestratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	out, err := h.svc.RunOrchestrator(c.Request.Context(), agent.OrchestratorRequest{
		Input:      req.Input,
		Structured: req.Structured(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ModelResultResponse{OK: true, Model: out.Model, Result: out.Result})
}

// RunPlanning 由抽取数据生成任务
// @Summary 运行规划智能体
// @Tags Agents
// @Accept json
// @Produce json
// @Param body body dto.RunPlanningRequest true "抽取数据"
// @Success 200 {object} dto.PlanningResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "模型输出无法通过校验"
// @Router /v1/agents/run-planning [post]
func (h *AgentHandler) RunPlanning(c *gin.Context) {
	var req dto.RunPlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	out, err := h.svc.RunPlanning(c.Request.Context(), agent.PlanningRequest{
		ProjectID:     req.ProjectID,
		UserID:        middleware.UserID(c),
		ExtractedData: req.ExtractedData,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PlanningResponse{OK: true, Model: out.Model, Tasks: dto.ToTaskList(out.Tasks)})
}

// RunPipeline 运行完整流水线
// @Summary 运行编排-抽取-规划流水线
// @Tags Agents
// @Accept json
// @Produce json
// @Param body body dto.RunPipelineRequest true "项目与数据源"
// @Success 200 {object} dto.PipelineResponse
// @Success 202 {object} dto.PipelineAcceptedResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "附带 modelOutput 与 extractedResults"
// @Router /v1/agents/run-pipeline [post]
func (h *AgentHandler) RunPipeline(c *gin.Context) {
	var req dto.RunPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	pipelineReq := agent.PipelineRequest{
		ProjectID:     req.ProjectID,
		UserID:        middleware.UserID(c),
		DataSourceIDs: req.DataSourceIDs,
	}

	if req.Async {
		job, err := h.svc.SubmitPipeline(c.Request.Context(), pipelineReq)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, dto.PipelineAcceptedResponse{OK: true, JobID: job.ID, Status: string(job.Status)})
		return
	}

	res, err := h.svc.RunPipeline(c.Request.Context(), pipelineReq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PipelineResponse{
		OK:        true,
		Tasks:     dto.ToTaskList(res.Tasks),
		Extracted: res.Extracted,
		Mock:      res.Mock,
		Message:   res.Message,
	})
}
