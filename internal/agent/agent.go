package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"recruit-agent-go/internal/logger"
)

// AgentState Agent的运行状态
type AgentState int

const (
	AgentStateIdle AgentState = iota
	AgentStateRunning
	AgentStateFinished
	AgentStateError
)

func (s AgentState) String() string {
	switch s {
	case AgentStateIdle:
		return "IDLE"
	case AgentStateRunning:
		return "RUNNING"
	case AgentStateFinished:
		return "FINISHED"
	case AgentStateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Stepper 执行Agent的单个推理步骤。
// 返回该步的输出；给出最终答案时将Agent状态置为Finished。
type Stepper interface {
	Step(ctx context.Context, agent *BaseAgent) (string, error)
}

// BaseAgent 推理循环的载体，持有模型、记忆和单步执行器
type BaseAgent struct {
	Name         string
	SystemPrompt string
	State        AgentState
	CurrentStep  int
	MaxSteps     int
	ChatClient   model.ToolCallingChatModel
	Stepper      Stepper
	ChatMemory   ChatMemory
	SessionID    string
}

// NewBaseAgent 创建Agent。memory为空时退化为进程内记忆。
func NewBaseAgent(name, systemPrompt string, maxSteps int, client model.ToolCallingChatModel, stepper Stepper, memory ChatMemory, sessionID string) *BaseAgent {
	if memory == nil {
		memory = NewInMemoryChatMemory(0)
	}
	if maxSteps <= 0 {
		maxSteps = 5
	}
	return &BaseAgent{
		Name:         name,
		SystemPrompt: systemPrompt,
		State:        AgentStateIdle,
		MaxSteps:     maxSteps,
		ChatClient:   client,
		Stepper:      stepper,
		ChatMemory:   memory,
		SessionID:    sessionID,
	}
}

// Run 执行推理循环：记录用户输入，逐步调用Stepper直到得出最终答案或步数耗尽。
// 返回最后一步的输出作为给用户的回答。
func (ba *BaseAgent) Run(ctx context.Context, userInput string) (string, error) {
	if ba.State == AgentStateRunning {
		return "", fmt.Errorf("Agent %s (会话 %s) 已在运行中", ba.Name, ba.SessionID)
	}
	ba.State = AgentStateRunning
	ba.CurrentStep = 0

	if err := ba.ChatMemory.AddMessage(ctx, ba.SessionID, schema.UserMessage(userInput)); err != nil {
		ba.State = AgentStateError
		return "", fmt.Errorf("记录用户消息失败: %w", err)
	}

	var lastOutput string
	for i := 0; i < ba.MaxSteps; i++ {
		ba.CurrentStep = i + 1
		logger.Debug().
			Str("agent", ba.Name).
			Str("session_id", ba.SessionID).
			Int("step", ba.CurrentStep).
			Int("max_steps", ba.MaxSteps).
			Msg("执行推理步骤")

		output, err := ba.Stepper.Step(ctx, ba)
		if err != nil {
			ba.State = AgentStateError
			return "", fmt.Errorf("第 %d 步执行失败: %w", ba.CurrentStep, err)
		}
		lastOutput = output

		if ba.State == AgentStateFinished {
			logger.Info().
				Str("agent", ba.Name).
				Str("session_id", ba.SessionID).
				Int("steps", ba.CurrentStep).
				Msg("Agent得出最终答案")
			return lastOutput, nil
		}
	}

	// 步数耗尽仍未收敛，把最后一步的输出作为兜底回答
	ba.State = AgentStateFinished
	logger.Warn().
		Str("agent", ba.Name).
		Str("session_id", ba.SessionID).
		Int("max_steps", ba.MaxSteps).
		Msg("Agent达到最大步数仍未给出最终答案")
	return lastOutput, nil
}

// AddMessage 追加消息到当前会话历史
func (ba *BaseAgent) AddMessage(ctx context.Context, msg *schema.Message) error {
	return ba.ChatMemory.AddMessage(ctx, ba.SessionID, msg)
}

// GetHistory 获取当前会话历史
func (ba *BaseAgent) GetHistory(ctx context.Context) ([]*schema.Message, error) {
	return ba.ChatMemory.GetHistory(ctx, ba.SessionID)
}
