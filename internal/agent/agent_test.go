package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

// mockChatModel 按顺序返回预置响应
type mockChatModel struct {
	responses []*schema.Message
	calls     int
}

func (m *mockChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.calls >= len(m.responses) {
		return nil, fmt.Errorf("mock没有更多预置响应")
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func (m *mockChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported in mock")
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type fakeCandidateStore struct{}

func (fakeCandidateStore) ListCandidates(_ context.Context, filter storage.CandidateFilter) ([]models.Candidate, int64, error) {
	if filter.Keyword == "王" {
		return []models.Candidate{{
			ID:       1,
			Name:     "王小明",
			Position: "研发",
			Summary:  "三年后端开发经验",
			Status:   "none",
		}}, 1, nil
	}
	return nil, 0, nil
}

type fakeJobStore struct{}

func (fakeJobStore) SearchJobDescriptions(_ context.Context, keyword string, limit int) ([]models.JobDescription, error) {
	return []models.JobDescription{{ID: 10, Title: "Go后端工程师", Status: "active"}}, nil
}

type fakePlanner struct{}

func (fakePlanner) GeneratePlan(_ context.Context, req *types.PlanGenerateRequest) (*types.PlanGenerateResponse, error) {
	return &types.PlanGenerateResponse{
		Questions:          []types.Question{{Question: "请介绍GMP调度模型", Difficulty: "中等"}},
		EvaluationCriteria: []string{"并发编程能力"},
	}, nil
}

func newTestAgentService(responses ...*schema.Message) *Service {
	return NewService(
		&mockChatModel{responses: responses},
		NewInMemoryChatMemory(20),
		&config.AgentConfig{MaxSteps: 5, StepTimeout: "5s"},
		fakeCandidateStore{},
		fakeJobStore{},
		fakePlanner{},
	)
}

func TestInMemoryChatMemoryTrim(t *testing.T) {
	m := NewInMemoryChatMemory(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.AddMessage(ctx, "s1", schema.UserMessage(fmt.Sprintf("消息%d", i))))
	}

	history, err := m.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 3, "超出上限应丢弃最旧的消息")
	assert.Equal(t, "消息2", history[0].Content)
	assert.Equal(t, "消息4", history[2].Content)
}

func TestInMemoryChatMemoryIsolation(t *testing.T) {
	m := NewInMemoryChatMemory(0)
	ctx := context.Background()

	require.NoError(t, m.AddMessage(ctx, "s1", schema.UserMessage("你好")))

	history, err := m.GetHistory(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, history, "不同会话互不可见")

	require.NoError(t, m.ClearHistory(ctx, "s1"))
	history, err = m.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChatWithStructuredToolCall(t *testing.T) {
	s := newTestAgentService(
		// 第一步：模型决定调用候选人搜索工具
		&schema.Message{
			Role:    schema.Assistant,
			Content: "需要先检索人才库",
			ToolCalls: []schema.ToolCall{{
				ID:       "call_1",
				Function: schema.FunctionCall{Name: "search_candidates", Arguments: `{"keyword":"王"}`},
			}},
		},
		// 第二步：模型基于观察结果给出最终答案
		&schema.Message{
			Role:    schema.Assistant,
			Content: "Thought: 已获取检索结果\nAction: Final Answer\nAction Input: 人才库中找到了候选人王小明，三年后端开发经验。",
		},
	)

	result, err := s.Chat(context.Background(), "", "帮我找一下姓王的候选人")
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID, "空会话ID应自动分配")
	assert.Contains(t, result.Answer, "王小明")

	// 历史应包含用户消息、工具调用、观察结果和最终答案
	history, err := s.memory.GetHistory(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, schema.User, history[0].Role)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, schema.Tool, history[2].Role)
	assert.Contains(t, history[2].Content, "王小明", "观察结果应包含工具输出")
	assert.Equal(t, schema.Assistant, history[3].Role)
}

func TestChatTextOnlyFinalAnswer(t *testing.T) {
	s := newTestAgentService(&schema.Message{
		Role:    schema.Assistant,
		Content: "Thought: 这是问候，无需工具\nAction: Final Answer\nAction Input: 你好，我是招聘助理，可以帮你检索候选人和岗位。",
	})

	result, err := s.Chat(context.Background(), "session-1", "你好")
	require.NoError(t, err)
	assert.Equal(t, "session-1", result.SessionID)
	assert.Contains(t, result.Answer, "招聘助理")
}

func TestChatUnknownToolFallsBack(t *testing.T) {
	s := newTestAgentService(
		// 模型幻觉出未知工具，内容按文本解析后作为最终答案
		&schema.Message{
			Role:    schema.Assistant,
			Content: "抱歉，我直接回答：目前没有这个功能。",
			ToolCalls: []schema.ToolCall{{
				ID:       "call_x",
				Function: schema.FunctionCall{Name: "no_such_tool", Arguments: `{}`},
			}},
		},
	)

	result, err := s.Chat(context.Background(), "", "做点什么")
	require.NoError(t, err)
	assert.Contains(t, result.Answer, "没有这个功能")
}

func TestChatEmptyInput(t *testing.T) {
	s := newTestAgentService()
	_, err := s.Chat(context.Background(), "", "")
	require.Error(t, err)
}

func TestClearSession(t *testing.T) {
	s := newTestAgentService(&schema.Message{
		Role:    schema.Assistant,
		Content: "Action: Final Answer\nAction Input: 好的。",
	})

	result, err := s.Chat(context.Background(), "", "你好")
	require.NoError(t, err)

	require.NoError(t, s.ClearSession(context.Background(), result.SessionID))
	history, err := s.memory.GetHistory(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestParseTextOutput(t *testing.T) {
	rs := NewReActStepper(nil)

	tests := []struct {
		name        string
		in          string
		wantAction  string
		wantAnswer  string
		needsAction bool
	}{
		{
			name:       "最终答案",
			in:         "Thought: 可以直接回答\nAction: Final Answer\nAction Input: 答案内容",
			wantAction: "Final Answer",
			wantAnswer: "答案内容",
		},
		{
			name:        "工具行动",
			in:          "Thought: 需要检索\nAction: search_candidates\nAction Input: {\"keyword\":\"Go\"}",
			wantAction:  "search_candidates",
			needsAction: true,
		},
		{
			name:       "只有思考",
			in:         "Thought: 这个问题我知道答案",
			wantAction: "Final Answer",
			wantAnswer: "这个问题我知道答案",
		},
		{
			name:       "纯文本",
			in:         "直接的回答内容",
			wantAction: "Final Answer",
			wantAnswer: "直接的回答内容",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := rs.parseTextOutput(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, out.Action)
			assert.Equal(t, tt.needsAction, out.NeedsAction)
			if tt.wantAnswer != "" {
				assert.Equal(t, tt.wantAnswer, out.FinalAnswer)
			}
		})
	}
}

func TestSearchCandidatesTool(t *testing.T) {
	tool := NewSearchCandidatesTool(fakeCandidateStore{})

	info, err := tool.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "search_candidates", info.Name)

	out, err := tool.InvokableRun(context.Background(), `{"keyword":"王"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "王小明")

	out, err = tool.InvokableRun(context.Background(), `{"keyword":"不存在"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "没有匹配")
}

func TestGenerateInterviewPlanToolValidation(t *testing.T) {
	tool := NewGenerateInterviewPlanTool(fakePlanner{})

	_, err := tool.InvokableRun(context.Background(), `{"jd":"后端开发"}`)
	require.Error(t, err, "缺少candidate_id应报错")

	out, err := tool.InvokableRun(context.Background(), `{"candidate_id":1,"jd":"后端开发","count":1}`)
	require.NoError(t, err)
	assert.Contains(t, out, "GMP")
	assert.Contains(t, out, "evaluation_criteria")
}
