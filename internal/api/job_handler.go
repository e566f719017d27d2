package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"certforge/internal/api/middleware"
	"certforge/internal/jobs"
	"certforge/internal/storage"
	"certforge/internal/tasks"
	"certforge/internal/workspace"
)

const (
	jobsPerWindow = 30
	jobRateWindow = time.Minute
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type jobStatusStore interface {
	Set(ctx context.Context, msg jobs.Message) error
	Get(ctx context.Context, jobID string) (*jobs.Message, error)
}

type archivePresigner interface {
	StatObject(ctx context.Context, objectKey string) error
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
}

// JobHandler 处理异步生成任务的提交、查询与下载。
type JobHandler struct {
	enqueuer  taskEnqueuer
	status    jobStatusStore
	presigner archivePresigner
	limiter   redisRateCounter
	scanner   Scanner
	jobsDir   string
}

// NewJobHandler 返回 JobHandler。presigner、limiter、scanner 可为 nil。
func NewJobHandler(
	enqueuer taskEnqueuer,
	status jobStatusStore,
	presigner archivePresigner,
	limiter redisRateCounter,
	scanner Scanner,
	jobsDir string,
) *JobHandler {
	return &JobHandler{
		enqueuer:  enqueuer,
		status:    status,
		presigner: presigner,
		limiter:   limiter,
		scanner:   scanner,
		jobsDir:   jobsDir,
	}
}

// CreateJob 保存上传文件并投递生成任务。
func (h *JobHandler) CreateJob(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	if h.limiter != nil {
		count, err := incrWithTTL(ctx, h.limiter, jobRateKey(c.ClientIP()), jobRateWindow)
		if err != nil {
			log.Warn("job rate counter unavailable", slog.Any("error", err))
		} else if count > jobsPerWindow {
			Error(c, http.StatusTooManyRequests, "too many jobs, try again later")
			return
		}
	}

	uploads, ok := readUploads(c)
	if !ok {
		BadRequest(c, msgBothRequired)
		return
	}

	jobID := uuid.NewString()
	correlationID := middleware.GetCorrelationID(c)
	log = log.With(slog.String("job_id", jobID))

	jobDir := workspace.New(filepath.Join(h.jobsDir, jobID))
	inputs := workspace.New(filepath.Join(jobDir.Dir(), "input"))
	spreadsheetPath, templatePath, err := stageUploads(c, inputs, h.scanner, uploads)
	if err != nil {
		log.Error("stage job uploads failed", slog.Any("error", err))
		_ = jobDir.Remove()
		respondUploadError(c, err)
		return
	}

	task, err := tasks.NewCertificateGenerateTask(tasks.CertificateGeneratePayload{
		JobID:           jobID,
		CorrelationID:   correlationID,
		SpreadsheetPath: spreadsheetPath,
		TemplatePath:    templatePath,
	})
	if err != nil {
		_ = jobDir.Remove()
		Internal(c, "failed to create task")
		return
	}

	// 先写入 queued 状态，Worker 的 processing 状态不会被覆盖。
	if err := h.status.Set(ctx, jobs.Message{
		JobID:         jobID,
		Status:        jobs.StatusQueued,
		CorrelationID: correlationID,
	}); err != nil {
		log.Error("store job status failed", slog.Any("error", err))
		_ = jobDir.Remove()
		Internal(c, "failed to create job")
		return
	}

	if _, err := h.enqueuer.EnqueueContext(ctx, task); err != nil {
		log.Error("enqueue certificate task failed", slog.Any("error", err))
		_ = jobDir.Remove()
		Internal(c, "failed to enqueue job")
		return
	}

	log.Info("certificate job enqueued")
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":         jobID,
		"correlation_id": correlationID,
	})
}

// GetJob 返回任务的最新状态。
func (h *JobHandler) GetJob(c *gin.Context) {
	msg, ok := h.loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DownloadJob 重定向到已完成任务压缩包的预签名地址。
func (h *JobHandler) DownloadJob(c *gin.Context) {
	if h.presigner == nil {
		Unavailable(c, "object storage is not configured")
		return
	}
	msg, ok := h.loadJob(c)
	if !ok {
		return
	}
	if msg.Status != jobs.StatusCompleted || msg.ObjectKey == "" {
		Conflict(c, "job is not completed")
		return
	}

	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()
	if err := h.presigner.StatObject(ctx, msg.ObjectKey); err != nil {
		if storage.IsNoSuchKey(err) {
			Error(c, http.StatusGone, "archive has expired")
			return
		}
		log.Error("stat archive failed", slog.Any("error", err))
		Internal(c, "failed to locate archive")
		return
	}

	url, err := h.presigner.GeneratePresignedURLWithParams(ctx, msg.ObjectKey, downloadURLTTL, attachmentParams())
	if err != nil {
		log.Error("generate presigned url failed", slog.Any("error", err))
		Internal(c, "failed to generate download url")
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *JobHandler) loadJob(c *gin.Context) (*jobs.Message, bool) {
	msg, err := h.status.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			NotFound(c, "job not found")
			return nil, false
		}
		middleware.LoggerFromContext(c).Error("load job status failed", slog.Any("error", err))
		Internal(c, "failed to load job")
		return nil, false
	}
	return msg, true
}
