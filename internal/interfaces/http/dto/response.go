// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"

	"adjacent-api/internal/domain/repository"
	wfmodel "adjacent-api/internal/workflow/model"
	apperrors "adjacent-api/pkg/errors"
)

// Response 统一响应结构
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse 错误响应结构。
// 智能体接口沿用 {error, modelOutput, extractedResults} 诊断格式，其余字段供排查使用。
type ErrorResponse struct {
	Error            string                     `json:"error"`
	Code             apperrors.ErrorCode        `json:"code,omitempty"`
	Detail           string                     `json:"detail,omitempty"`
	ModelOutput      wfmodel.Response           `json:"modelOutput,omitempty"`
	ExtractedResults []wfmodel.ExtractionResult `json:"extractedResults,omitempty"`
	TraceID          string                     `json:"trace_id,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(200, Response[T]{
		Code:    200,
		Message: "success",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// SuccessWithPage 返回带分页的成功响应
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	c.JSON(200, Response[T]{
		Code:    200,
		Message: "success",
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

// Fail 按应用错误码输出错误响应
func Fail(c *gin.Context, err *apperrors.AppError) {
	c.JSON(err.HTTPStatus, ErrorResponse{
		Error:   err.Message,
		Code:    err.Code,
		Detail:  err.Detail,
		TraceID: c.GetString("trace_id"),
	})
}

// FailWithDiagnostic 附带模型原始输出与已完成的抽取结果
func FailWithDiagnostic(c *gin.Context, err *apperrors.AppError, modelOutput wfmodel.Response, extracted []wfmodel.ExtractionResult) {
	c.JSON(err.HTTPStatus, ErrorResponse{
		Error:            err.Message,
		Code:             err.Code,
		Detail:           err.Detail,
		ModelOutput:      modelOutput,
		ExtractedResults: extracted,
		TraceID:          c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Fail(c, apperrors.ErrInvalidParam.WithDetail(message))
}

// PageMetaOf 由仓储分页结果生成分页元数据
func PageMetaOf[T any](r *repository.PagedResult[T]) *PageMeta {
	return &PageMeta{
		Page:       r.Page,
		PageSize:   r.PageSize,
		Total:      int(r.Total),
		TotalPages: r.TotalPages(),
	}
}
