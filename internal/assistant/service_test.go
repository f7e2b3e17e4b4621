package assistant

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

// mockChatModel 返回预置响应的测试模型
type mockChatModel struct {
	responses []string
	calls     int
	lastReq   []*schema.Message
}

func (m *mockChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.lastReq = in
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		return nil, fmt.Errorf("mock没有更多预置响应")
	}
	return &schema.Message{Role: schema.Assistant, Content: m.responses[idx]}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported in mock")
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// mockCandidateStore 内存候选人查询
type mockCandidateStore struct {
	candidates map[uint]*models.Candidate
}

func (m *mockCandidateStore) GetCandidateByID(ctx context.Context, id uint) (*models.Candidate, error) {
	if c, ok := m.candidates[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestService(responses ...string) (*Service, *mockChatModel) {
	mock := &mockChatModel{responses: responses}
	store := &mockCandidateStore{candidates: map[uint]*models.Candidate{
		1: {
			ID:                1,
			Name:              "王小明",
			Position:          "研发",
			YearsOfExperience: 3,
			Education:         "本科",
			SkillsJSON:        models.StringToJSON(`["Go","MySQL","Redis"]`),
			ExperienceJSON:    models.StringToJSON(`["某公司 后端工程师"]`),
			Summary:           "三年后端开发经验",
		},
	}}
	return NewService(mock, store, &config.AssistantConfig{
		Temperature:       0.7,
		MaxTokens:         4096,
		GenerationTimeout: "5s",
		DefaultCount:      5,
	}), mock
}

const planJSON = `{
  "questions": [
    {"question": "请介绍Go的GMP调度模型", "purpose": "考察并发基础", "expected_answer": "G、M、P三者关系及调度流程", "difficulty": "中等", "category": "并发编程", "source": "JD要求熟悉Go并发"},
    {"question": "MySQL索引为什么用B+树", "purpose": "考察存储基础", "expected_answer": "磁盘IO与范围查询特性", "difficulty": "基础", "category": "数据库", "source": "简历提到MySQL"}
  ],
  "evaluation_criteria": ["并发编程能力", "数据库功底", "沟通表达"]
}`

func TestGeneratePlan(t *testing.T) {
	s, mock := newTestService(planJSON)

	resp, err := s.GeneratePlan(context.Background(), &types.PlanGenerateRequest{
		CandidateID: 1,
		JD:          "负责后端服务开发，要求熟悉Go并发编程",
		Count:       2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, "中等", resp.Questions[0].Difficulty)
	assert.Len(t, resp.EvaluationCriteria, 3)

	// 提示词应携带JD和候选人上下文
	require.Len(t, mock.lastReq, 2)
	assert.Equal(t, schema.System, mock.lastReq[0].Role)
	assert.Contains(t, mock.lastReq[1].Content, "熟悉Go并发编程")
	assert.Contains(t, mock.lastReq[1].Content, "王小明")
	assert.Contains(t, mock.lastReq[1].Content, "题目总数：2")
}

func TestGeneratePlanDefaultCount(t *testing.T) {
	s, mock := newTestService(planJSON)

	_, err := s.GeneratePlan(context.Background(), &types.PlanGenerateRequest{
		CandidateID: 1,
		JD:          "后端开发",
	})
	require.NoError(t, err)
	assert.Contains(t, mock.lastReq[1].Content, "题目总数：5", "未指定数量时使用默认值")
}

func TestGeneratePlanCandidateNotFound(t *testing.T) {
	s, _ := newTestService(planJSON)

	_, err := s.GeneratePlan(context.Background(), &types.PlanGenerateRequest{
		CandidateID: 99,
		JD:          "后端开发",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "查询候选人失败")
}

func TestGeneratePlanEmptyQuestions(t *testing.T) {
	s, _ := newTestService(`{"questions": [], "evaluation_criteria": []}`)

	_, err := s.GeneratePlan(context.Background(), &types.PlanGenerateRequest{
		CandidateID: 1,
		JD:          "后端开发",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未返回任何题目")
}

func TestRegenerateQuestion(t *testing.T) {
	s, mock := newTestService(`{
		"question": "请设计一个分布式限流方案",
		"purpose": "考察系统设计能力",
		"expected_answer": "令牌桶+Redis的集中式限流",
		"difficulty": "困难",
		"category": "系统设计",
		"source": "JD要求高并发经验"
	}`)

	q, err := s.RegenerateQuestion(context.Background(), &types.QuestionRegenerateRequest{
		CandidateID:      1,
		JD:               "高并发后端开发",
		OldQuestion:      "请介绍Go的GMP调度模型",
		Feedback:         "太基础了",
		ExcludeQuestions: []string{"请介绍Go的GMP调度模型"},
		Difficulty:       "困难",
	})
	require.NoError(t, err)
	assert.Equal(t, "请设计一个分布式限流方案", q.Question)
	assert.Equal(t, "困难", q.Difficulty)

	assert.Contains(t, mock.lastReq[1].Content, "太基础了")
	assert.Contains(t, mock.lastReq[1].Content, "待替换的原题目")
}

func TestCompleteManualQuestion(t *testing.T) {
	s, _ := newTestService(`{
		"question": "模型改写过的题目",
		"purpose": "考察项目经验",
		"expected_answer": "描述项目难点与解决方案",
		"difficulty": "中等",
		"category": "项目经验",
		"source": "模型自拟"
	}`)

	q, err := s.CompleteManualQuestion(context.Background(), &types.ManualQuestionCompleteRequest{
		CandidateID: 1,
		JD:          "后端开发",
		Question:    "讲讲你最有挑战的项目",
	})
	require.NoError(t, err)
	assert.Equal(t, "讲讲你最有挑战的项目", q.Question, "题目内容以用户输入为准")
	assert.Equal(t, constants.ManualQuestionSource, q.Source, "来源强制标记为人工调整")
	assert.Equal(t, "中等", q.Difficulty)
}

func TestRefreshCriteria(t *testing.T) {
	s, mock := newTestService(`{"evaluation_criteria": ["并发编程能力", "系统设计能力", "沟通表达"]}`)

	resp, err := s.RefreshCriteria(context.Background(), &types.CriteriaRefreshRequest{
		CandidateID: 1,
		JD:          "后端开发",
		Questions:   []string{"请设计一个分布式限流方案", "讲讲你最有挑战的项目"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.EvaluationCriteria, 3)
	assert.Contains(t, mock.lastReq[1].Content, "分布式限流方案")
}

func TestEvaluate(t *testing.T) {
	s, mock := newTestService(`{
		"technical_evaluation": "技术基础扎实，对Go并发模型理解深入。",
		"logical_evaluation": "回答有条理，能够抓住问题重点。",
		"communication_evaluation": "表达清晰，思路系统。",
		"comprehensive_suggestion": "面试结论：建议录用。核心优势：并发功底强。待提升点：分布式经验偏少。总结陈述：整体表现优秀。"
	}`)

	score := 4
	evaluation, err := s.Evaluate(context.Background(), &types.EvaluationRequest{
		CandidateID: 1,
		JD:          "后端开发",
		Performances: []types.QuestionPerformance{
			{Question: "请介绍Go的GMP调度模型", Answer: "G是协程，M是线程，P是处理器……", Score: &score},
			{Question: "MySQL索引为什么用B+树"},
		},
		OverallNotes: "整体表现稳定",
	})
	require.NoError(t, err)
	assert.Contains(t, evaluation.ComprehensiveSuggestion, "建议录用")

	prompt := mock.lastReq[1].Content
	assert.Contains(t, prompt, "第 1 题")
	assert.Contains(t, prompt, "评分：4")
	assert.Contains(t, prompt, "评分：未评分")
	assert.Contains(t, prompt, "整体表现稳定")
}

func TestSmartGenerateJD(t *testing.T) {
	s, _ := newTestService(`{
		"title": "资深Go后端工程师",
		"description": "【岗位职责】\n负责核心服务开发……\n【任职要求】\n3年以上Go经验……"
	}`)

	resp, err := s.SmartGenerateJD(context.Background(), &types.JDSmartGenerateRequest{
		Title:    "Go后端",
		Keywords: "高并发 微服务",
	})
	require.NoError(t, err)
	assert.Equal(t, "资深Go后端工程师", resp.Title)
	assert.Contains(t, resp.Description, "岗位职责")
}

func TestSmartGenerateJDEmptyInput(t *testing.T) {
	s, _ := newTestService()

	_, err := s.SmartGenerateJD(context.Background(), &types.JDSmartGenerateRequest{})
	require.Error(t, err)
}

func TestCallStructuredInvalidJSON(t *testing.T) {
	s, _ := newTestService("抱歉，我无法完成这个任务。")

	_, err := s.RefreshCriteria(context.Background(), &types.CriteriaRefreshRequest{
		CandidateID: 1,
		JD:          "后端开发",
		Questions:   []string{"题目"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON")
}
