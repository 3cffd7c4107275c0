// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"adjacent-api/internal/interfaces/http/dto"
	"adjacent-api/internal/interfaces/http/middleware"
)

// JobHandler 异步任务与看板查询
type JobHandler struct {
	svc AgentService
}

// NewJobHandler 创建任务处理器
func NewJobHandler(svc AgentService) *JobHandler {
	return &JobHandler{svc: svc}
}

// GetJob 获取任务详情
// @Summary 获取异步流水线任务
// @Description 获取指定任务的状态与结果
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/jobs/{jid} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.svc.GetJob(c.Request.Context(), middleware.UserID(c), dto.BindJobID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToJobResponse(job))
}

// ListProjectTasks 项目看板任务列表
// @Summary 获取项目任务
// @Tags Tasks
// @Produce json
// @Param pid path string true "项目 ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.TaskResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/tasks [get]
func (h *JobHandler) ListProjectTasks(c *gin.Context) {
	result, err := h.svc.ListTasks(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c), dto.BindPage(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToTaskList(result.Items), dto.PageMetaOf(result))
}

// ListProjectJobs 项目异步任务列表
// @Summary 获取项目异步流水线任务
// @Tags Jobs
// @Produce json
// @Param pid path string true "项目 ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.JobResponse]
// @Router /v1/projects/{pid}/jobs [get]
func (h *JobHandler) ListProjectJobs(c *gin.Context) {
	result, err := h.svc.ListJobs(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c), dto.BindPage(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToJobList(result.Items), dto.PageMetaOf(result))
}
