package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"certforge/internal/generator"
	"certforge/internal/workspace"
)

// Deps 汇总路由所需的依赖。Redis 相关字段为 nil 时不注册异步任务接口。
type Deps struct {
	Generator *generator.Generator
	Inputs    *workspace.Workspace
	Outputs   *workspace.Workspace
	JobsDir   string
	Scanner   Scanner
	Storage   ArchiveStorage
	Enqueuer  taskEnqueuer
	Status    jobStatusStore
	Redis     JobRedis
	Logger    *slog.Logger
}

// ArchiveStorage publishes archives and presigns their download URLs.
type ArchiveStorage interface {
	archivePublisher
	archivePresigner
}

// JobRedis is the Redis surface used by the async job endpoints.
type JobRedis interface {
	redisRateCounter
	redisSubscriber
}

// RegisterRoutes 注册页面、同步生成与异步任务路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	registerWeb(router)

	var publisher archivePublisher
	var presigner archivePresigner
	if deps.Storage != nil {
		publisher, presigner = deps.Storage, deps.Storage
	}

	certHandler := NewCertificateHandler(deps.Generator, deps.Inputs, deps.Outputs, deps.Scanner, publisher)
	router.POST("/upload", certHandler.Upload)
	router.GET("/download", certHandler.Download)

	if deps.Enqueuer == nil || deps.Status == nil || deps.Redis == nil {
		return
	}

	jobHandler := NewJobHandler(deps.Enqueuer, deps.Status, presigner, deps.Redis, deps.Scanner, deps.JobsDir)
	wsHandler := NewWsHandler(deps.Redis, deps.Status, deps.Logger)

	v1 := router.Group("/v1")
	{
		jobsGroup := v1.Group("/jobs")
		jobsGroup.POST("", jobHandler.CreateJob)
		jobsGroup.GET("/:id", jobHandler.GetJob)
		jobsGroup.GET("/:id/download", jobHandler.DownloadJob)
		jobsGroup.GET("/:id/ws", wsHandler.HandleConnection)
	}
}
