package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"adjacent-api/internal/interfaces/http/dto"
	workflowport "adjacent-api/internal/workflow/port"
	apperrors "adjacent-api/pkg/errors"
	"adjacent-api/pkg/logger"
)

const streamChunkSize = 4 << 10

// StreamHandler 网关流式输出转发
type StreamHandler struct {
	gateway workflowport.ModelGateway
}

// NewStreamHandler 创建流式响应处理器
func NewStreamHandler(gateway workflowport.ModelGateway) *StreamHandler {
	return &StreamHandler{gateway: gateway}
}

// ChatStream 将后端 SSE 字节原样转发给客户端
// @Summary 流式对话转发
// @Tags Agents
// @Accept json
// @Produce text/event-stream
// @Param body body dto.ChatStreamRequest true "请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/agents/chat/stream [post]
func (h *StreamHandler) ChatStream(c *gin.Context) {
	var req dto.ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "model and messages are required")
		return
	}
	modelReq := req.ToModelRequest()
	if err := modelReq.Validate(); err != nil {
		dto.Fail(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	ctx := c.Request.Context()
	body, err := h.gateway.Stream(ctx, modelReq)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	buf := make([]byte, streamChunkSize)
	c.Stream(func(w io.Writer) bool {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return false
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				logger.Warn(ctx, "upstream stream interrupted", "error", readErr.Error())
			}
			return false
		}
		return true
	})
}
