package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"certforge/internal/errcode"
)

const (
	msgBothRequired   = "Both Excel and Template are required!"
	msgGenerated      = "Certificates generated successfully!"
	msgNoCertificates = "No certificates generated yet!"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string)  { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)    { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)    { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)    { Error(c, http.StatusInternalServerError, msg) }
func Unavailable(c *gin.Context, msg string) { Error(c, http.StatusServiceUnavailable, msg) }

// GenerationFailed 输出生成失败的响应：输入问题为 400，其余为 500。
func GenerationFailed(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errcode.IsInputError(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"error": "Error generating certificates: " + err.Error(),
		"code":  errcode.Code(err),
	})
}

// uploadError 区分调用方问题（文件被判定为恶意）与服务端问题。
type uploadError struct {
	status int
	msg    string
	err    error
}

func (e *uploadError) Error() string { return e.msg + ": " + e.err.Error() }

func (e *uploadError) Unwrap() error { return e.err }

func respondUploadError(c *gin.Context, err error) {
	var upErr *uploadError
	if errors.As(err, &upErr) {
		_ = c.Error(err)
		Error(c, upErr.status, upErr.msg)
		return
	}
	_ = c.Error(err)
	Internal(c, "failed to store uploaded files")
}
