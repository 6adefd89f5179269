package worker

// ExportNotifyMessage 是通过 Redis Pub/Sub 转发给前端的导出结果。
// 注意：这里的字段名与前端解析保持一致。
type ExportNotifyMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	ResumeID      string `json:"resume_id"`
	Format        string `json:"format"`
	CorrelationID string `json:"correlation_id"`
	URL           string `json:"url,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// NotifyChannel is the per-owner channel the websocket handler forwards.
func NotifyChannel(ownerID string) string {
	return "user_notify:" + ownerID
}
