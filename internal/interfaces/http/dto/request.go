// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strings"

	"github.com/gin-gonic/gin"

	"adjacent-api/internal/domain/repository"
)

// PageRequest 看板分页查询参数
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// BindPage 绑定分页参数；无法解析的值按缺省处理
func BindPage(c *gin.Context) repository.Pagination {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		req = PageRequest{}
	}
	return repository.NewPagination(req.Page, req.PageSize)
}

// BindProjectID 从 URI 读取项目 ID
func BindProjectID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("pid"))
}

// BindJobID 从 URI 读取任务 ID
func BindJobID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("jid"))
}
