package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"certforge/internal/api/middleware"
	"certforge/internal/generator"
	"certforge/internal/storage"
	"certforge/internal/workspace"
)

const downloadURLTTL = 15 * time.Minute

type archivePublisher interface {
	UploadLocalFile(ctx context.Context, objectName, path, contentType string) error
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
}

// CertificateHandler 处理同步上传生成与压缩包下载。
// inputs 与 outputs 分别是固定的 input/ 与 output/ 目录，同一时刻只有一次生成在使用它们。
type CertificateHandler struct {
	generator *generator.Generator
	inputs    *workspace.Workspace
	outputs   *workspace.Workspace
	scanner   Scanner
	publisher archivePublisher
}

// NewCertificateHandler 返回 CertificateHandler。scanner 与 publisher 可为 nil。
func NewCertificateHandler(gen *generator.Generator, inputs, outputs *workspace.Workspace, scanner Scanner, publisher archivePublisher) *CertificateHandler {
	return &CertificateHandler{
		generator: gen,
		inputs:    inputs,
		outputs:   outputs,
		scanner:   scanner,
		publisher: publisher,
	}
}

// Upload 保存名单与模板并同步生成全部证书。
func (h *CertificateHandler) Upload(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	uploads, ok := readUploads(c)
	if !ok {
		BadRequest(c, msgBothRequired)
		return
	}

	h.inputs.Acquire()
	defer h.inputs.Release()

	spreadsheetPath, templatePath, err := stageUploads(c, h.inputs, h.scanner, uploads)
	if err != nil {
		log.Error("stage uploads failed", slog.Any("error", err))
		respondUploadError(c, err)
		return
	}

	result, err := h.generator.Generate(h.outputs, spreadsheetPath, templatePath)
	if err != nil {
		_ = c.Error(err)
		GenerationFailed(c, err)
		return
	}

	resp := gin.H{
		"message":       msgGenerated,
		"zip":           "/download",
		"count":         len(result.Files),
		"font_fallback": result.FontFallback,
	}
	if h.publisher != nil {
		if url, err := h.publish(c.Request.Context(), result.ArchivePath); err != nil {
			// 发布失败不影响本地下载。
			log.Warn("publish archive failed", slog.Any("error", err))
		} else {
			resp["url"] = url
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CertificateHandler) publish(ctx context.Context, archivePath string) (string, error) {
	objectName := storage.ArchiveKey(uuid.NewString())
	if err := h.publisher.UploadLocalFile(ctx, objectName, archivePath, "application/zip"); err != nil {
		return "", err
	}
	return h.publisher.GeneratePresignedURLWithParams(ctx, objectName, downloadURLTTL, attachmentParams())
}

// Download 返回最近一次生成的压缩包。
func (h *CertificateHandler) Download(c *gin.Context) {
	h.outputs.Acquire()
	defer h.outputs.Release()

	path := h.outputs.Path(generator.ArchiveName)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		NotFound(c, msgNoCertificates)
		return
	}
	c.FileAttachment(path, generator.ArchiveName)
}

func attachmentParams() map[string]string {
	return map[string]string{
		"response-content-disposition": `attachment; filename="` + generator.ArchiveName + `"`,
		"response-content-type":        "application/zip",
	}
}
