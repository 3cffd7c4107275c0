package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/internal/infrastructure/messaging"
	apperrors "adjacent-api/pkg/errors"
	"adjacent-api/pkg/logger"
)

// jobFailure 失败任务保存的诊断结果
type jobFailure struct {
	Error string `json:"error"`
	Stage Stage  `json:"stage,omitempty"`
	*Diagnostic
}

// SubmitPipeline 创建异步任务并投递到队列
func (s *Service) SubmitPipeline(ctx context.Context, req PipelineRequest) (*entity.PipelineJob, error) {
	if s.publisher == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("async pipeline is not enabled")
	}
	if _, _, err := s.authorize(ctx, req.UserID, req.ProjectID); err != nil {
		return nil, err
	}

	params, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to encode job params")
	}
	job := entity.NewPipelineJob(req.ProjectID, req.UserID, params)
	if err := s.repos.Jobs.Create(ctx, job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create job")
	}

	_, err = s.publisher.PublishPipelineJob(ctx, &messaging.PipelineJobMessage{
		JobID:         job.ID,
		ProjectID:     req.ProjectID,
		UserID:        req.UserID,
		DataSourceIDs: req.DataSourceIDs,
	})
	if err != nil {
		if setErr := s.repos.Jobs.SetResult(ctx, job.ID, entity.JobStatusFailed, nil, err.Error()); setErr != nil {
			logger.Error(ctx, "failed to mark unqueued job failed", setErr, "job_id", job.ID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeQueueError, "failed to enqueue pipeline job")
	}

	logger.Info(ctx, "pipeline job queued", "job_id", job.ID)
	return job, nil
}

// GetJob 只返回调用者自己提交的任务
func (s *Service) GetJob(ctx context.Context, userID, jobID string) (*entity.PipelineJob, error) {
	job, err := s.repos.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load job")
	}
	if job == nil || job.RequestedBy != userID {
		return nil, apperrors.ErrJobNotFound
	}
	return job, nil
}

// ListJobs 项目下的异步任务，最新的在前
func (s *Service) ListJobs(ctx context.Context, userID, projectID string, p repository.Pagination) (*repository.PagedResult[*entity.PipelineJob], error) {
	if _, _, err := s.authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}
	res, err := s.repos.Jobs.ListByProject(ctx, projectID, p)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list jobs")
	}
	return res, nil
}

// ExecuteJob 由 worker 调用。流水线失败写入任务结果后视为已处理，
// 只有任务状态无法读写时返回错误以便消息重投。
func (s *Service) ExecuteJob(ctx context.Context, msg *messaging.PipelineJobMessage) error {
	ctx = logger.WithContext(ctx, logger.JobIDKey, msg.JobID)

	job, err := s.repos.Jobs.GetByID(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		logger.Warn(ctx, "job not found, dropping message")
		return nil
	}
	if job.Status.IsTerminal() {
		logger.Info(ctx, "job already finished, skipping", "status", job.Status)
		return nil
	}
	if err := s.repos.Jobs.MarkRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	res, runErr := s.RunPipeline(ctx, PipelineRequest{
		ProjectID:     msg.ProjectID,
		UserID:        msg.UserID,
		DataSourceIDs: msg.DataSourceIDs,
	})

	ev := &messaging.PipelineEventMessage{JobID: job.ID, ProjectID: msg.ProjectID}
	if runErr != nil {
		failure := jobFailure{Error: ToAppError(runErr).Message, Diagnostic: DiagnosticOf(runErr)}
		var pe *PipelineError
		if errors.As(runErr, &pe) {
			failure.Stage = pe.Stage
		}
		body, _ := json.Marshal(failure)
		if err := s.repos.Jobs.SetResult(ctx, job.ID, entity.JobStatusFailed, body, runErr.Error()); err != nil {
			return fmt.Errorf("store job failure: %w", err)
		}
		ev.Status, ev.Error = string(entity.JobStatusFailed), runErr.Error()
	} else {
		body, err := json.Marshal(s.jobOutput(job.ID, res))
		if err != nil {
			return fmt.Errorf("encode job result: %w", err)
		}
		if err := s.repos.Jobs.SetResult(ctx, job.ID, entity.JobStatusCompleted, body, ""); err != nil {
			return fmt.Errorf("store job result: %w", err)
		}
		ev.Status, ev.TasksCreated = string(entity.JobStatusCompleted), len(res.Tasks)
	}

	if s.publisher != nil {
		if _, err := s.publisher.PublishPipelineEvent(ctx, ev); err != nil {
			logger.Warn(ctx, "failed to publish pipeline event", "error", err)
		}
	}
	return nil
}

// AbandonJob 消息重试耗尽后调用，仍未结束的任务标记为失败
func (s *Service) AbandonJob(ctx context.Context, jobID string, cause error) error {
	job, err := s.repos.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil || job.Status.IsTerminal() {
		return nil
	}

	reason := "pipeline job abandoned after repeated failures"
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", reason, cause)
	}
	body, _ := json.Marshal(jobFailure{Error: reason})
	if err := s.repos.Jobs.SetResult(ctx, jobID, entity.JobStatusFailed, body, reason); err != nil {
		return fmt.Errorf("store job failure: %w", err)
	}

	if s.publisher != nil {
		ev := &messaging.PipelineEventMessage{JobID: jobID, ProjectID: job.ProjectID, Status: string(entity.JobStatusFailed), Error: reason}
		if _, err := s.publisher.PublishPipelineEvent(ctx, ev); err != nil {
			logger.Warn(ctx, "failed to publish pipeline event", "error", err)
		}
	}
	return nil
}

type jobOutput struct {
	*PipelineResult
	ResultURL string `json:"result_url,omitempty"`
}

func (s *Service) jobOutput(jobID string, res *PipelineResult) jobOutput {
	out := jobOutput{PipelineResult: res}
	if s.baseURL != "" {
		out.ResultURL = s.baseURL + "/v1/jobs/" + jobID
	}
	return out
}
