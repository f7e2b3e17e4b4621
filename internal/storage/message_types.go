package storage

import "time"

// ResumeUploadedMessage 简历上传事件，由上传接口发布、解析消费者消费
type ResumeUploadedMessage struct {
	SubmissionUUID   string    `json:"submission_uuid"`
	OriginalFilename string    `json:"original_filename"`
	FilePathOSS      string    `json:"file_path_oss"`          // MinIO中的对象路径
	RawFileMD5       string    `json:"raw_file_md5,omitempty"` // 处理失败时用于回滚去重记录
	UploadedAt       time.Time `json:"uploaded_at"`
}

// InterviewEventMessage 面试生命周期事件，经发件箱中继投递到通知交换机
type InterviewEventMessage struct {
	EventID       string    `json:"event_id"`
	InterviewID   uint      `json:"interview_id"`
	CandidateID   uint      `json:"candidate_id"`
	InterviewerID uint      `json:"interviewer_id"`
	Action        string    `json:"action"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}
