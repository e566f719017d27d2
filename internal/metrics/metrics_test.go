package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationObserver(t *testing.T) {
	var obs Generation
	before := testutil.ToFloat64(certificatesRendered)
	obs.CertificateRendered()
	obs.CertificateRendered()
	assert.Equal(t, before+2, testutil.ToFloat64(certificatesRendered))

	fallbacks := testutil.ToFloat64(fontFallbacks)
	obs.FontFallback()
	assert.Equal(t, fallbacks+1, testutil.ToFloat64(fontFallbacks))

	obs.RunFinished("completed", 250*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(runDuration))
}

func TestAsynqMetricsMiddlewareOutcomes(t *testing.T) {
	results := []error{nil, errors.New("boom"), fmt.Errorf("bad input: %w", asynq.SkipRetry)}
	for _, want := range results {
		h := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
			return want
		}))
		err := h.ProcessTask(context.Background(), asynq.NewTask("test:task", nil))
		assert.Equal(t, want, err)
	}

	for _, outcome := range []string{"success", "retry", "rejected"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(taskProcessedTotal.WithLabelValues("test:task", outcome)), outcome)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(taskInProgress.WithLabelValues("test:task")))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for _, path := range []string{"/ping", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 1.0, testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "/ping", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))

	ObserveUpload("excel", 1024)
	ObserveUpload("excel", 0)
	assert.Equal(t, 1024.0, testutil.ToFloat64(uploadBytes.WithLabelValues("excel")))
}
