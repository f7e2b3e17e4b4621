package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"recruit-agent-go/internal/constants"
)

// RedisChatMemory 基于Redis List的会话历史，服务重启后会话可恢复。
// 每条消息序列化为JSON后RPush，按保留上限LTrim，按TTL过期。
type RedisChatMemory struct {
	client    *redis.Client
	keyFormat string
	ttl       time.Duration
	maxLen    int
}

var _ ChatMemory = (*RedisChatMemory)(nil)

// NewRedisChatMemory 创建Redis会话历史。
// keyFormat为带单个%s占位符的键模板（如constants.KeyAgentHistory），
// ttl为0时不过期，maxLen为0时不裁剪。
func NewRedisChatMemory(client *redis.Client, keyFormat string, ttl time.Duration, maxLen int) (*RedisChatMemory, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis客户端不能为空")
	}
	if keyFormat == "" {
		keyFormat = constants.KeyAgentHistory
	}
	return &RedisChatMemory{
		client:    client,
		keyFormat: keyFormat,
		ttl:       ttl,
		maxLen:    maxLen,
	}, nil
}

func (rcm *RedisChatMemory) buildKey(sessionID string) string {
	return fmt.Sprintf(rcm.keyFormat, sessionID)
}

// GetHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	key := rcm.buildKey(sessionID)

	serialized, err := rcm.client.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话 %s 的历史失败: %w", sessionID, err)
	}

	messages := make([]*schema.Message, 0, len(serialized))
	for _, s := range serialized {
		var msg schema.Message
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return nil, fmt.Errorf("反序列化会话 %s 的历史消息失败: %w", sessionID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessage 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("会话 %s 不能追加空消息", sessionID)
	}
	return rcm.AddMessages(ctx, sessionID, []*schema.Message{message})
}

// AddMessages 实现 ChatMemory 接口。
// RPush、LTrim和Expire在同一个事务管道中执行
func (rcm *RedisChatMemory) AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}

	serialized := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("会话 %s 不能批量追加空消息", sessionID)
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("序列化会话 %s 的消息失败: %w", sessionID, err)
		}
		serialized = append(serialized, data)
	}

	key := rcm.buildKey(sessionID)
	pipe := rcm.client.TxPipeline()
	pipe.RPush(ctx, key, serialized...)
	if rcm.maxLen > 0 {
		pipe.LTrim(ctx, key, int64(-rcm.maxLen), -1)
	}
	if rcm.ttl > 0 {
		pipe.Expire(ctx, key, rcm.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入会话 %s 的历史失败: %w", sessionID, err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	if err := rcm.client.Del(ctx, rcm.buildKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("清除会话 %s 的历史失败: %w", sessionID, err)
	}
	return nil
}
