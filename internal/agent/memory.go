package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// ChatMemory 会话历史存储接口。
// 会话不存在时 GetHistory 返回空切片而不是错误。
type ChatMemory interface {
	GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error)
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error
	AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error
	ClearHistory(ctx context.Context, sessionID string) error
}

// InMemoryChatMemory 进程内会话历史，非持久化，用于测试和单机场景
type InMemoryChatMemory struct {
	mu        sync.RWMutex
	histories map[string][]*schema.Message
	maxLen    int // 单会话保留的最大消息数，0表示不限
}

var _ ChatMemory = (*InMemoryChatMemory)(nil)

// NewInMemoryChatMemory 创建进程内会话历史
func NewInMemoryChatMemory(maxLen int) *InMemoryChatMemory {
	return &InMemoryChatMemory{
		histories: make(map[string][]*schema.Message),
		maxLen:    maxLen,
	}
}

// GetHistory 返回会话历史的副本，防止调用方修改内部存储
func (m *InMemoryChatMemory) GetHistory(_ context.Context, sessionID string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.histories[sessionID]
	cpy := make([]*schema.Message, len(history))
	copy(cpy, history)
	return cpy, nil
}

// AddMessage 追加一条消息
func (m *InMemoryChatMemory) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("会话 %s 不能追加空消息", sessionID)
	}
	return m.AddMessages(ctx, sessionID, []*schema.Message{message})
}

// AddMessages 批量追加消息，超出保留上限时丢弃最旧的
func (m *InMemoryChatMemory) AddMessages(_ context.Context, sessionID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("会话 %s 不能批量追加空消息", sessionID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.histories[sessionID], messages...)
	if m.maxLen > 0 && len(history) > m.maxLen {
		history = history[len(history)-m.maxLen:]
	}
	m.histories[sessionID] = history
	return nil
}

// ClearHistory 清空会话历史，会话不存在时静默成功
func (m *InMemoryChatMemory) ClearHistory(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.histories, sessionID)
	return nil
}
