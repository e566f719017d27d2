package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"certforge/internal/errcode"
	"certforge/internal/generator"
	"certforge/internal/jobs"
	"certforge/internal/storage"
	"certforge/internal/tasks"
	"certforge/internal/workspace"
)

const fontFallbackMessage = "font loading failed, default font used"

type archiveUploader interface {
	UploadLocalFile(ctx context.Context, objectName, path, contentType string) error
}

type statusPublisher interface {
	Set(ctx context.Context, msg jobs.Message) error
}

// CertificateTaskHandler 负责消费证书批量生成任务。
type CertificateTaskHandler struct {
	generator *generator.Generator
	storage   archiveUploader
	status    statusPublisher
	jobsDir   string
	logger    *slog.Logger
}

// NewCertificateTaskHandler 创建任务处理器。jobsDir 下每个任务使用独立的子目录。
func NewCertificateTaskHandler(
	gen *generator.Generator,
	storage archiveUploader,
	status statusPublisher,
	jobsDir string,
	logger *slog.Logger,
) *CertificateTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateTaskHandler{
		generator: gen,
		storage:   storage,
		status:    status,
		jobsDir:   jobsDir,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *CertificateTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CertificateGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.JobID) == "" {
		log.Warn("task payload without job id, skipping task")
		return nil
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("job_id", payload.JobID),
	)
	log.Info("Starting certificate generation task...")

	jobDir := workspace.New(filepath.Join(h.jobsDir, payload.JobID))

	defer func() {
		if retErr == nil {
			h.cleanup(jobDir, log)
			return
		}
		// 输入错误不会重试；其他错误只在最后一次尝试后对外宣告失败。
		if !errcode.IsInputError(retErr) && !isFinalAsynqAttempt(ctx) {
			return
		}
		h.cleanup(jobDir, log)

		notify := jobs.Message{
			JobID:         payload.JobID,
			Status:        jobs.StatusError,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.Code(retErr),
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.status.Set(ctx, notify); err != nil {
			log.Error("publish job error notification failed", slog.Any("error", err))
		}
	}()

	if err := h.status.Set(ctx, jobs.Message{
		JobID:         payload.JobID,
		Status:        jobs.StatusProcessing,
		CorrelationID: payload.CorrelationID,
	}); err != nil {
		log.Warn("publish processing notification failed", slog.Any("error", err))
	}

	ws := workspace.New(filepath.Join(jobDir.Dir(), "output"))
	result, err := h.generator.Generate(ws, payload.SpreadsheetPath, payload.TemplatePath)
	if err != nil {
		if errcode.IsInputError(err) {
			log.Warn("certificate generation rejected input", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Error("certificate generation failed", slog.Any("error", err))
		return err
	}

	objectName := storage.ArchiveKey(payload.JobID)
	if err := h.storage.UploadLocalFile(ctx, objectName, result.ArchivePath, "application/zip"); err != nil {
		log.Error("upload archive to minio failed", slog.Any("error", err))
		return err
	}

	notify := jobs.Message{
		JobID:         payload.JobID,
		Status:        jobs.StatusCompleted,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Certificates:  len(result.Files),
		FontFallback:  result.FontFallback,
		ObjectKey:     objectName,
	}
	if result.FontFallback {
		notify.ErrorCode = errcode.ResourceMissing
		notify.ErrorMessage = fontFallbackMessage
	}
	if err := h.status.Set(ctx, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Certificate generation task completed successfully.",
		slog.Int("records", result.Records),
		slog.Int("certificates", len(result.Files)),
		slog.String("object", objectName),
	)
	return nil
}

func (h *CertificateTaskHandler) cleanup(ws *workspace.Workspace, log *slog.Logger) {
	if err := ws.Remove(); err != nil {
		log.Warn("remove job workspace failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
