package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCertificateGenerate = "certificate:generate"
)

// CertificateGeneratePayload 描述一次异步生成所需的最小信息。
// 两个文件路径指向 API 已落盘的上传文件，Worker 与 API 需共享数据目录。
type CertificateGeneratePayload struct {
	JobID           string `json:"job_id"`
	CorrelationID   string `json:"correlation_id"`
	SpreadsheetPath string `json:"spreadsheet_path"`
	TemplatePath    string `json:"template_path"`
}

// NewCertificateGenerateTask 构造一个新的证书批量生成任务。
func NewCertificateGenerateTask(payload CertificateGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCertificateGenerate, data, asynq.MaxRetry(3), asynq.TaskID(payload.JobID)), nil
}
