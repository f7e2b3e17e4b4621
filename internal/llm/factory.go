package llm

import (
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/pkg/ratelimit"
)

// NewModelForTask 按任务名创建带限流保护的模型客户端。
// 任务专用模型配置存在则优先，QPM限额从配置表按模型名匹配。
func NewModelForTask(cfg *config.Config, taskName string) (model.ToolCallingChatModel, error) {
	modelName := cfg.GetModelForTask(taskName)

	base, err := NewAliyunQwenChatModel(cfg.Aliyun.APIKey, modelName, cfg.Aliyun.APIURL)
	if err != nil {
		return nil, fmt.Errorf("创建任务 %s 的模型客户端失败: %w", taskName, err)
	}

	retryWait := time.Duration(cfg.Assistant.RetryWaitSeconds) * time.Second
	return ratelimit.NewLLMWithRateLimit(base, modelName, cfg.ModelQPMLimits, 0, cfg.Assistant.MaxRetries, retryWait), nil
}
