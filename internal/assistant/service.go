package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/parser"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

const defaultGenerationTimeout = 90 * time.Second

// CandidateStore 候选人查询能力，由MySQL存储层提供
type CandidateStore interface {
	GetCandidateByID(ctx context.Context, id uint) (*models.Candidate, error)
}

// Service 面试助手，负责面试计划生成、单题调整、评分维度刷新、
// AI面试评价和岗位描述智能生成
type Service struct {
	llmModel     model.ToolCallingChatModel
	candidates   CandidateStore
	temperature  float32
	maxTokens    int
	timeout      time.Duration
	defaultCount int
}

// NewService 创建面试助手服务
func NewService(llmModel model.ToolCallingChatModel, candidates CandidateStore, cfg *config.AssistantConfig) *Service {
	s := &Service{
		llmModel:     llmModel,
		candidates:   candidates,
		temperature:  0.7,
		maxTokens:    4096,
		timeout:      defaultGenerationTimeout,
		defaultCount: constants.DefaultQuestionCount,
	}
	if cfg != nil {
		if cfg.Temperature > 0 {
			s.temperature = float32(cfg.Temperature)
		}
		if cfg.MaxTokens > 0 {
			s.maxTokens = cfg.MaxTokens
		}
		s.timeout = config.GetDuration(cfg.GenerationTimeout, defaultGenerationTimeout)
		if cfg.DefaultCount > 0 {
			s.defaultCount = cfg.DefaultCount
		}
	}
	return s
}

// creativeTemperature 重写类任务用略高的温度，避免新题与原题雷同
func (s *Service) creativeTemperature() float32 {
	t := s.temperature + 0.1
	if t > 1.0 {
		t = 1.0
	}
	return t
}

// callStructured 调用模型并把响应中的JSON解析到out。
// 模型层已带限流和重试，这里只负责超时控制和结果解析。
func (s *Service) callStructured(ctx context.Context, systemPrompt, userPrompt string, temperature float32, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: userPrompt},
	}

	start := time.Now()
	resp, err := s.llmModel.Generate(callCtx, messages,
		model.WithTemperature(temperature),
		model.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		return fmt.Errorf("调用模型失败: %w", err)
	}

	jsonStr := parser.ExtractJSON(resp.Content)
	if jsonStr == "" {
		return fmt.Errorf("未能从模型响应中提取JSON: %s", truncate(resp.Content, 200))
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("解析模型响应JSON失败: %w", err)
	}

	logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("response_len", len(resp.Content)).
		Msg("助手结构化生成完成")
	return nil
}

// candidateBrief 拼装提示词中的候选人上下文
func candidateBrief(c *models.Candidate, full bool) string {
	skills := jsonListToText(c.SkillsJSON)
	if skills == "" {
		skills = "未提及"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "姓名：%s\n", c.Name)
	fmt.Fprintf(&b, "职位分类：%s\n", c.Position)
	if full {
		fmt.Fprintf(&b, "工作年限：%.1f年\n", c.YearsOfExperience)
		fmt.Fprintf(&b, "教育背景：%s\n", c.Education)
	}
	fmt.Fprintf(&b, "核心技能：%s\n", skills)
	fmt.Fprintf(&b, "简历总结：%s\n", c.Summary)
	if full {
		fmt.Fprintf(&b, "工作经历：%s\n", string(c.ExperienceJSON))
	}
	return b.String()
}

// jsonListToText 把JSON数组列值转为顿号分隔的文本
func jsonListToText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return string(raw)
	}
	return strings.Join(items, "、")
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

const questionSchemaHint = `每道题目为JSON对象，字段：
- "question": 题目内容
- "purpose": 考察目的
- "expected_answer": 期望回答
- "difficulty": 难度等级，取值为 基础/中等/困难
- "category": 考察维度
- "source": 出题依据`

// GeneratePlan 根据JD和候选人画像生成一套面试计划
func (s *Service) GeneratePlan(ctx context.Context, req *types.PlanGenerateRequest) (*types.PlanGenerateResponse, error) {
	candidate, err := s.candidates.GetCandidateByID(ctx, req.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}

	count := req.Count
	if count <= 0 {
		count = s.defaultCount
	}

	difficultyText := "由你根据经验分配（建议包含基础、中等、困难）"
	if len(req.DifficultyDistribution) > 0 {
		difficultyText = mustJSON(req.DifficultyDistribution)
	}
	feedbackText := "无"
	if req.Feedback != "" {
		feedbackText = req.Feedback
	}
	excludeText := "无"
	if len(req.ExcludeQuestions) > 0 {
		excludeText = mustJSON(req.ExcludeQuestions)
	}

	systemPrompt := `你是一个资深的面试官助手。你的任务是根据提供的招聘JD和候选人简历，生成一套专业的面试题。
生成的题目需要满足以下要求：
1. **针对性**：题目必须结合JD的具体要求和候选人简历中的技能/项目经验。
2. **结构化**：每道题需要包含题目内容、考察目的、期望回答、难度等级、考察维度和出题依据。
3. **出题依据**：必须明确指出这道题是基于JD的哪项要求，还是基于候选人简历的哪个具体点出的。
4. **难度分布**：如果用户指定了难度分布，请严格遵守。
5. **反馈迭代**：如果提供了反馈原因（feedback），请在重新生成时针对性地改进，避免出现之前不符合要求的问题。
6. **评分维度**：提供3-5个针对该候选人和JD的核心评分维度。

输出必须是一个JSON对象，包含：
- "questions": 题目数组
- "evaluation_criteria": 评分维度字符串数组
` + questionSchemaHint

	userPrompt := fmt.Sprintf(`### 招聘JD内容：
%s

### 候选人简历信息：
%s

### 生成要求：
- 题目总数：%d
- 难度分布：%s
- 重新生成反馈（如有）：%s
- **必须排除的已有题目**：%s

请根据以上信息生成面试计划，只输出JSON。`,
		req.JD, candidateBrief(candidate, true), count, difficultyText, feedbackText, excludeText)

	var resp types.PlanGenerateResponse
	if err := s.callStructured(ctx, systemPrompt, userPrompt, s.temperature, &resp); err != nil {
		return nil, fmt.Errorf("生成面试计划失败: %w", err)
	}
	if len(resp.Questions) == 0 {
		return nil, fmt.Errorf("生成面试计划失败: 模型未返回任何题目")
	}

	logger.Info().
		Uint("candidate_id", req.CandidateID).
		Int("questions", len(resp.Questions)).
		Int("criteria", len(resp.EvaluationCriteria)).
		Msg("面试计划生成完成")
	return &resp, nil
}

// RegenerateQuestion 替换面试计划中的某一道题
func (s *Service) RegenerateQuestion(ctx context.Context, req *types.QuestionRegenerateRequest) (*types.Question, error) {
	candidate, err := s.candidates.GetCandidateByID(ctx, req.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}

	feedbackText := "这道题不合适，请重新生成一道"
	if req.Feedback != "" {
		feedbackText = req.Feedback
	}
	difficultyText := "与原题一致"
	if req.Difficulty != "" {
		difficultyText = req.Difficulty
	}
	excludeText := "无"
	if len(req.ExcludeQuestions) > 0 {
		excludeText = mustJSON(req.ExcludeQuestions)
	}

	systemPrompt := `你是一个资深的面试官助手。你的任务是替换面试计划中的某一道不合适的题目。
要求：
1. **替换性**：生成的新题目必须能够替换原题目，且不能与已有的其他题目重复。
2. **针对性**：根据用户提供的具体反馈（feedback）来改进这道题。
3. **结构化**：必须包含题目内容、考察目的、期望回答、难度等级、考察维度和出题依据。
4. **禁止重复**：严禁生成与排除列表中相似或相同的题目。

输出必须是单个题目的JSON对象。
` + questionSchemaHint

	userPrompt := fmt.Sprintf(`### 候选人信息：
%s

### 招聘JD内容：
%s

### 待替换的原题目：
%s

### 用户修改要求：
%s

### 期望难度：
%s

### 必须排除的已有题目（严禁重复）：
%s

请生成一道新的面试题，只输出JSON。`,
		candidateBrief(candidate, false), req.JD, req.OldQuestion, feedbackText, difficultyText, excludeText)

	var question types.Question
	if err := s.callStructured(ctx, systemPrompt, userPrompt, s.creativeTemperature(), &question); err != nil {
		return nil, fmt.Errorf("单题重新生成失败: %w", err)
	}
	if question.Question == "" {
		return nil, fmt.Errorf("单题重新生成失败: 模型未返回题目内容")
	}
	return &question, nil
}

// CompleteManualQuestion 为用户手动录入的题目补充元数据，
// 出题依据固定标记为人工调整
func (s *Service) CompleteManualQuestion(ctx context.Context, req *types.ManualQuestionCompleteRequest) (*types.Question, error) {
	candidate, err := s.candidates.GetCandidateByID(ctx, req.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}

	systemPrompt := `你是一个资深的面试官助手。用户手动输入了一个面试问题，你的任务是为这个题目补充完整的元数据。
要求：
1. **结构化**：必须包含题目内容（直接使用用户输入的）、考察目的、期望回答、难度等级、考察维度。
2. **针对性**：补充的考察目的和期望回答必须结合候选人的背景和JD的要求。

输出必须是单个题目的JSON对象。
` + questionSchemaHint

	userPrompt := fmt.Sprintf(`### 候选人信息：
%s

### 招聘JD内容：
%s

### 用户输入的题目内容：
%s

请根据以上信息，为该题目补充考察目的、期望回答、难度等级、考察维度，只输出JSON。`,
		candidateBrief(candidate, false), req.JD, req.Question)

	var question types.Question
	if err := s.callStructured(ctx, systemPrompt, userPrompt, s.temperature, &question); err != nil {
		return nil, fmt.Errorf("手动题目补充失败: %w", err)
	}

	// 题目内容以用户输入为准，来源强制标记
	question.Question = req.Question
	question.Source = constants.ManualQuestionSource
	return &question, nil
}

// RefreshCriteria 根据最新题目列表重新提取评分维度
func (s *Service) RefreshCriteria(ctx context.Context, req *types.CriteriaRefreshRequest) (*types.CriteriaRefreshResponse, error) {
	candidate, err := s.candidates.GetCandidateByID(ctx, req.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}

	systemPrompt := `你是一个资深的面试官助手。面试题目已经发生了调整，你的任务是根据最新的题目列表、候选人背景和JD要求，重新提取和优化面试的评分维度。
要求：
1. **关联性**：评分维度必须能够覆盖所有面试题目的核心考点。
2. **专业性**：维度描述要清晰、具体，方便面试官在面试过程中进行打分。
3. **精简**：提供3-5个核心评分维度。

输出必须是JSON对象，包含 "evaluation_criteria" 字符串数组。`

	userPrompt := fmt.Sprintf(`### 候选人信息：
%s

### 招聘JD内容：
%s

### 最新的面试题目列表：
%s

请根据以上信息，重新生成3-5个核心评分维度，只输出JSON。`,
		candidateBrief(candidate, false), req.JD, mustJSON(req.Questions))

	var resp types.CriteriaRefreshResponse
	if err := s.callStructured(ctx, systemPrompt, userPrompt, s.temperature, &resp); err != nil {
		return nil, fmt.Errorf("评分维度更新失败: %w", err)
	}
	if len(resp.EvaluationCriteria) == 0 {
		return nil, fmt.Errorf("评分维度更新失败: 模型未返回任何维度")
	}
	return &resp, nil
}

// Evaluate 根据面试表现记录生成结构化的AI评价
func (s *Service) Evaluate(ctx context.Context, req *types.EvaluationRequest) (*types.AIEvaluation, error) {
	candidate, err := s.candidates.GetCandidateByID(ctx, req.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}

	var performances strings.Builder
	for i, p := range req.Performances {
		answer := p.Answer
		if answer == "" {
			answer = "未记录"
		}
		notes := p.Notes
		if notes == "" {
			notes = "未记录"
		}
		score := "未评分"
		if p.Score != nil {
			score = fmt.Sprintf("%d", *p.Score)
		}
		fmt.Fprintf(&performances, "\n第 %d 题：%s\n候选人回答：%s\n面试官记录：%s\n评分：%s\n---", i+1, p.Question, answer, notes, score)
	}

	overallNotes := "无"
	if req.OverallNotes != "" {
		overallNotes = req.OverallNotes
	}

	systemPrompt := `你是一个资深的招聘专家和面试评估官。你的任务是根据面试过程中的问答记录、面试官的笔记以及招聘JD，对候选人进行全面、客观的评价。
评价需要涵盖以下几个维度：
1. **技术层面**：候选人对专业知识的掌握程度，解决问题的能力。
2. **逻辑表达**：候选人回答问题是否有条理，是否能够清晰地表达自己的观点。
3. **思路清晰度**：在面对复杂问题或压力面试时，候选人的思考过程是否清晰，是否有系统性的思维。
4. **综合建议**：这是最重要的部分。请严格按照以下格式输出：
    - **面试结论**：[建议录用 / 建议进入下一轮 / 不建议录用]
    - **核心优势**：列出2-3点候选人的突出优点。
    - **待提升点**：列出1-2点候选人需要改进或在后续面试中重点考察的点。
    - **总结陈述**：一句话概括候选人的整体表现。

要求：
- 评价要客观、专业，避免笼统的描述。
- 综合建议必须先给出结论，再列出优缺点。
- 字数适中，结构清晰。

输出必须是JSON对象，字段：
- "technical_evaluation": 技术层面评价
- "logical_evaluation": 逻辑表达评价
- "communication_evaluation": 沟通与思路清晰度评价
- "comprehensive_suggestion": 综合建议`

	userPrompt := fmt.Sprintf(`### 招聘JD内容：
%s

### 候选人信息：
姓名：%s
职位：%s

### 面试表现记录：
%s

### 面试官综合总结：
%s

请根据以上信息，给出详细的面试评价，只输出JSON。`,
		req.JD, candidate.Name, candidate.Position, performances.String(), overallNotes)

	var evaluation types.AIEvaluation
	if err := s.callStructured(ctx, systemPrompt, userPrompt, s.temperature, &evaluation); err != nil {
		return nil, fmt.Errorf("面试评价生成失败: %w", err)
	}
	return &evaluation, nil
}

// SmartGenerateJD 根据关键词或草稿智能生成完整的岗位描述
func (s *Service) SmartGenerateJD(ctx context.Context, req *types.JDSmartGenerateRequest) (*types.JDSmartGenerateResponse, error) {
	input := strings.TrimSpace(req.Title)
	if req.Keywords != "" {
		input = input + "\n" + req.Keywords
	}
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("岗位名称和关键词不能同时为空")
	}

	systemPrompt := `你是一个专业的HR招聘专家和资深文案策划。
你的任务是根据用户输入的片段、关键词或草稿，智能生成一份专业、标准且吸引人的职位描述（JD）。

具体要求：
1. 自动提取或归纳最准确的"职位名称"。
2. 将职位描述优化为Markdown格式，包含：【岗位职责】、【任职要求】、【加分项】（如有）、【福利待遇】（如能推测）。
3. 语言风格要专业且具有吸引力，符合现代互联网/专业职场标准。
4. 如果输入的内容很少，请基于职位常识进行合理的扩充和润色。
5. 必须返回JSON对象，包含 "title" 和 "description" 两个字段。`

	userPrompt := fmt.Sprintf(`### 用户输入的内容：
%s

请基于以上内容生成一份完美的JD，只输出JSON。`, input)

	var resp types.JDSmartGenerateResponse
	if err := s.callStructured(ctx, systemPrompt, userPrompt, s.creativeTemperature(), &resp); err != nil {
		return nil, fmt.Errorf("岗位描述生成失败: %w", err)
	}
	if resp.Description == "" {
		return nil, fmt.Errorf("岗位描述生成失败: 模型未返回描述内容")
	}
	return &resp, nil
}
