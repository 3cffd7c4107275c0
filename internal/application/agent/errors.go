package agent

import (
	"errors"
	"fmt"

	wfmodel "adjacent-api/internal/workflow/model"
	workflowport "adjacent-api/internal/workflow/port"
	"adjacent-api/internal/workflow/retry"
	apperrors "adjacent-api/pkg/errors"
)

// Stage 流水线阶段
type Stage string

const (
	StageCollect     Stage = "collect_context"
	StageOrchestrate Stage = "orchestrate"
	StageExtract     Stage = "extract"
	StagePlan        Stage = "plan"
	StagePersist     Stage = "persist"
)

const (
	msgPipelineExhausted = "Planning model did not return parsable tasks"
	msgNoDataSources     = "No data sources found. Please add documents, repositories, or recordings to the Knowledge Hub first."
)

// PersistenceError 任务写入失败，不自动重试
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PipelineError 阶段失败，携带诊断用的模型原始输出与已完成的抽取结果
type PipelineError struct {
	Stage       Stage
	Message     string
	Err         error
	ModelOutput wfmodel.Response
	Extracted   []wfmodel.ExtractionResult
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Diagnostic 返回给调用方的诊断信息
type Diagnostic struct {
	ModelOutput      wfmodel.Response           `json:"modelOutput,omitempty"`
	ExtractedResults []wfmodel.ExtractionResult `json:"extractedResults,omitempty"`
}

// DiagnosticOf 从错误链中取出诊断信息，没有时返回 nil
func DiagnosticOf(err error) *Diagnostic {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		return nil
	}
	if len(pe.ModelOutput) == 0 && len(pe.Extracted) == 0 {
		return nil
	}
	return &Diagnostic{ModelOutput: pe.ModelOutput, ExtractedResults: pe.Extracted}
}

// planFailure 规划失败时附带最后一次模型输出
func planFailure(msg string, err error, extracted []wfmodel.ExtractionResult) *PipelineError {
	pe := &PipelineError{Stage: StagePlan, Message: msg, Err: err, Extracted: extracted}
	var exhausted *retry.ValidationExhaustedError
	if errors.As(err, &exhausted) {
		pe.ModelOutput = exhausted.LastRaw
	}
	return pe
}

// ToAppError 将领域错误映射为应用错误码
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var exhausted *retry.ValidationExhaustedError
	if errors.As(err, &exhausted) {
		msg := apperrors.ErrPlanValidationExhausted.Message
		var pe *PipelineError
		if errors.As(err, &pe) && pe.Message != "" {
			msg = pe.Message
		}
		return apperrors.Wrap(err, apperrors.CodePlanValidationExhausted, msg)
	}

	var cfgErr *workflowport.ConfigurationError
	if errors.As(err, &cfgErr) {
		return apperrors.Wrap(err, apperrors.CodeLLMConfigError, cfgErr.Error())
	}

	var upErr *workflowport.UpstreamError
	if errors.As(err, &upErr) {
		return apperrors.Wrap(err, apperrors.CodeLLMUpstreamError, upErr.Error())
	}

	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return apperrors.ErrPersistence.WithError(err).WithDetail(persistErr.Err.Error())
	}

	return apperrors.Wrap(err, apperrors.CodePipelineFailed, err.Error())
}
