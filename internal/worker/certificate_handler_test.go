package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certforge/internal/errcode"
	"certforge/internal/generator"
	"certforge/internal/jobs"
	"certforge/internal/tasks"
	"certforge/internal/testutil"
)

type fakeUploader struct {
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) UploadLocalFile(_ context.Context, objectName, path, _ string) error {
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[objectName] = data
	return nil
}

type recordingStatus struct {
	messages []jobs.Message
}

func (r *recordingStatus) Set(_ context.Context, msg jobs.Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingStatus) last() jobs.Message {
	return r.messages[len(r.messages)-1]
}

type handlerFixture struct {
	handler  *CertificateTaskHandler
	uploader *fakeUploader
	status   *recordingStatus
	jobsDir  string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	jobsDir := filepath.Join(t.TempDir(), "jobs")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := generator.New(generator.Assets{
		NameFontPath:    filepath.Join(t.TempDir(), "missing-name.ttf"),
		DetailsFontPath: filepath.Join(t.TempDir(), "missing-details.ttf"),
	}, logger, nil)

	f := &handlerFixture{uploader: &fakeUploader{}, status: &recordingStatus{}, jobsDir: jobsDir}
	f.handler = NewCertificateTaskHandler(gen, f.uploader, f.status, jobsDir, logger)
	return f
}

func (f *handlerFixture) stageJob(t *testing.T, jobID string, rows ...[]string) tasks.CertificateGeneratePayload {
	t.Helper()
	inputDir := filepath.Join(f.jobsDir, jobID, "input")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))
	return tasks.CertificateGeneratePayload{
		JobID:           jobID,
		CorrelationID:   "corr-" + jobID,
		SpreadsheetPath: testutil.WriteWorkbook(t, inputDir, "data.xlsx", rows...),
		TemplatePath:    testutil.WriteTemplate(t, inputDir, 1800, 900),
	}
}

func newTask(t *testing.T, payload tasks.CertificateGeneratePayload) *asynq.Task {
	t.Helper()
	task, err := tasks.NewCertificateGenerateTask(payload)
	require.NoError(t, err)
	return task
}

func TestProcessTaskPublishesArchive(t *testing.T) {
	f := newHandlerFixture(t)
	payload := f.stageJob(t, "job-ok",
		testutil.Header,
		[]string{"Alice", "Go", "1", "Hackathon"},
		[]string{"Bob", "Rust", "2", "Hackathon"},
	)

	err := f.handler.ProcessTask(context.Background(), newTask(t, payload))
	require.NoError(t, err)

	assert.Contains(t, f.uploader.objects, "generated-certificates/job-ok/certificates.zip")
	require.Len(t, f.status.messages, 2)
	assert.Equal(t, jobs.StatusProcessing, f.status.messages[0].Status)

	done := f.status.last()
	assert.Equal(t, jobs.StatusCompleted, done.Status)
	assert.Equal(t, "corr-job-ok", done.CorrelationID)
	assert.Equal(t, 2, done.Certificates)
	assert.True(t, done.FontFallback)
	assert.Equal(t, errcode.ResourceMissing, done.ErrorCode)
	assert.Equal(t, "generated-certificates/job-ok/certificates.zip", done.ObjectKey)

	assert.NoDirExists(t, filepath.Join(f.jobsDir, "job-ok"))
}

func TestProcessTaskInputErrorSkipsRetry(t *testing.T) {
	f := newHandlerFixture(t)
	payload := f.stageJob(t, "job-bad",
		[]string{"Name", "Course"},
		[]string{"Alice", "Go"},
	)

	err := f.handler.ProcessTask(context.Background(), newTask(t, payload))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	var dataErr *errcode.DataFormatError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, []string{"Position", "Event"}, dataErr.Missing)

	failed := f.status.last()
	assert.Equal(t, jobs.StatusError, failed.Status)
	assert.Equal(t, errcode.DataFormat, failed.ErrorCode)
	assert.Contains(t, failed.ErrorMessage, "missing required columns")
	assert.Empty(t, f.uploader.objects)
	assert.NoDirExists(t, filepath.Join(f.jobsDir, "job-bad"))
}

func TestProcessTaskUploadFailureRetries(t *testing.T) {
	f := newHandlerFixture(t)
	f.uploader.err = errors.New("minio unavailable")
	payload := f.stageJob(t, "job-retry",
		testutil.Header,
		[]string{"Alice", "Go", "1", "Hackathon"},
	)

	err := f.handler.ProcessTask(context.Background(), newTask(t, payload))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	// 非最后一次尝试：不宣告失败，保留输入文件供重试使用。
	assert.Equal(t, jobs.StatusProcessing, f.status.last().Status)
	assert.FileExists(t, payload.SpreadsheetPath)
}

func TestProcessTaskMalformedPayload(t *testing.T) {
	f := newHandlerFixture(t)
	task := asynq.NewTask(tasks.TypeCertificateGenerate, []byte("{not json"))

	err := f.handler.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, f.status.messages)
}

func TestNewCertificateGenerateTask(t *testing.T) {
	payload := tasks.CertificateGeneratePayload{JobID: "abc", SpreadsheetPath: "in.xlsx", TemplatePath: "tpl.png"}
	task := newTask(t, payload)
	assert.Equal(t, tasks.TypeCertificateGenerate, task.Type())

	var decoded tasks.CertificateGeneratePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload, decoded)
}
