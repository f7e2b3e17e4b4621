package constants

const (
	// MaxResumeUploadBytes 简历上传大小上限
	MaxResumeUploadBytes = 10 << 20 // 10MB

	// ManualQuestionSource 手动录入题目的固定来源标记，
	// 前端据此区分AI生成与人工调整的题目
	ManualQuestionSource = "用户手动调整"

	// DefaultQuestionCount 面试计划默认题目数
	DefaultQuestionCount = 5
)

// AllowedResumeExtensions 允许上传的简历文件扩展名
var AllowedResumeExtensions = map[string]bool{
	".pdf": true,
}
