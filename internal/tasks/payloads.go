package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeExport = "resume:export"
)

// ExportPayload 描述导出一份简历所需的信息。
type ExportPayload struct {
	OwnerID       string `json:"owner_id"`
	Collection    string `json:"collection"`
	ResumeID      string `json:"resume_id"`
	Format        string `json:"format"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportTask 构造一个新的简历导出任务。
func NewExportTask(p ExportPayload) (*asynq.Task, error) {
	if p.OwnerID == "" || p.ResumeID == "" || p.Collection == "" {
		return nil, fmt.Errorf("export task needs owner, collection and resume id")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeExport, payload), nil
}
