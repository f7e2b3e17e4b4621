package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/google/uuid"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
)

const defaultStepTimeout = 60 * time.Second

// 招聘助理的系统提示词
const recruitingSystemPrompt = `你是一个专业的智能招聘助手，目标是协助HR完成人才检索、岗位查询和面试准备。

工作规范：
1. 先搜索，再结论：用户提到具体的职位名称或候选人姓名时，必须先调用检索工具核实系统现状，严禁凭空假设系统中不存在该职位或候选人。
2. 基于事实回复：检索结果存在语义相近的条目（如"Java工程师"与"Java后端开发工程师"）时，判定为可能匹配并向用户确认，不要直接回复"未找到"。
3. 生成面试计划前，先通过检索确认候选人存在并取得其ID。
4. 回答使用中文，简洁专业。`

// Service 招聘助理对话服务。
// 每次对话基于会话历史构造一个Agent执行推理循环。
type Service struct {
	chatModel   model.ToolCallingChatModel
	memory      ChatMemory
	tools       map[string]tool.InvokableTool
	maxSteps    int
	stepTimeout time.Duration
}

// NewService 创建招聘助理服务。
// memoryBackend为redis且redis可用时使用Redis会话记忆，否则退化为进程内记忆。
func NewService(chatModel model.ToolCallingChatModel, memory ChatMemory, cfg *config.AgentConfig,
	candidates CandidateSearcher, jobs JobSearcher, planner PlanGenerator) *Service {

	tools := map[string]tool.InvokableTool{
		"search_candidates":       NewSearchCandidatesTool(candidates),
		"search_job_descriptions": NewSearchJobsTool(jobs),
		"generate_interview_plan": NewGenerateInterviewPlanTool(planner),
	}

	s := &Service{
		chatModel:   chatModel,
		memory:      memory,
		tools:       tools,
		maxSteps:    5,
		stepTimeout: defaultStepTimeout,
	}
	if cfg != nil {
		if cfg.MaxSteps > 0 {
			s.maxSteps = cfg.MaxSteps
		}
		s.stepTimeout = config.GetDuration(cfg.StepTimeout, defaultStepTimeout)
	}
	if s.memory == nil {
		s.memory = NewInMemoryChatMemory(0)
	}
	return s
}

// ChatResult 一次对话的结果
type ChatResult struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Chat 处理一轮用户对话。sessionID为空时开启新会话。
func (s *Service) Chat(ctx context.Context, sessionID, userInput string) (*ChatResult, error) {
	if userInput == "" {
		return nil, fmt.Errorf("消息内容不能为空")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	agent := NewBaseAgent(
		"recruiting-copilot",
		recruitingSystemPrompt,
		s.maxSteps,
		s.chatModel,
		NewReActStepper(s.tools),
		s.memory,
		sessionID,
	)

	// 整个推理循环共享一个超时预算
	runCtx, cancel := context.WithTimeout(ctx, s.stepTimeout*time.Duration(s.maxSteps))
	defer cancel()

	start := time.Now()
	answer, err := agent.Run(runCtx, userInput)
	if err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("招聘助理对话失败")
		return nil, err
	}

	logger.Info().
		Str("session_id", sessionID).
		Int("steps", agent.CurrentStep).
		Dur("elapsed", time.Since(start)).
		Msg("招聘助理对话完成")

	return &ChatResult{SessionID: sessionID, Answer: answer}, nil
}

// ClearSession 清空某个会话的历史
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	return s.memory.ClearHistory(ctx, sessionID)
}
