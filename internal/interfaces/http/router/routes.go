// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"adjacent-api/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	agentHandler *handler.AgentHandler,
	jobHandler *handler.JobHandler,
	streamHandler *handler.StreamHandler,
) {
	// 智能体
	agents := v1.Group("/agents")
	{
		agents.POST("/run-extraction", agentHandler.RunExtraction)
		agents.POST("/run-orchestrator", agentHandler.RunOrchestrator)
		agents.POST("/run-planning", agentHandler.RunPlanning)
		agents.POST("/run-pipeline", agentHandler.RunPipeline)
		agents.POST("/chat/stream", streamHandler.ChatStream) // SSE
	}

	// 项目看板
	projects := v1.Group("/projects")
	{
		projects.GET("/:pid/tasks", jobHandler.ListProjectTasks)
		projects.GET("/:pid/jobs", jobHandler.ListProjectJobs)
	}

	// 异步任务
	jobs := v1.Group("/jobs")
	{
		jobs.GET("/:jid", jobHandler.GetJob)
	}
}
