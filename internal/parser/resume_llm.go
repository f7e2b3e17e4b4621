package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"
)

// LLMProfileParser 使用LLM从简历文本中提取结构化的候选人画像
type LLMProfileParser struct {
	llmModel       model.ToolCallingChatModel
	maxRetries     int
	retryDelay     time.Duration
	callTimeout    time.Duration
	promptTemplate string
}

// ProfileParserOption 定义画像解析器的配置选项
type ProfileParserOption func(*LLMProfileParser)

// WithProfileMaxRetries 设置LLM调用最大重试次数
func WithProfileMaxRetries(n int) ProfileParserOption {
	return func(p *LLMProfileParser) {
		p.maxRetries = n
	}
}

// WithProfileCallTimeout 设置单次LLM调用超时
func WithProfileCallTimeout(d time.Duration) ProfileParserOption {
	return func(p *LLMProfileParser) {
		p.callTimeout = d
	}
}

// NewLLMProfileParser 创建简历画像解析器
func NewLLMProfileParser(llmModel model.ToolCallingChatModel, opts ...ProfileParserOption) *LLMProfileParser {
	p := &LLMProfileParser{
		llmModel:    llmModel,
		maxRetries:  2,
		retryDelay:  2 * time.Second,
		callTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.generatePromptTemplate()
	return p
}

func (p *LLMProfileParser) generatePromptTemplate() {
	p.promptTemplate = `你是一个专业的简历解析专家，负责从简历文本中提取候选人的结构化画像。

核心任务：
1. 提取基本信息：姓名、邮箱、电话。
2. 归纳教育背景：education填最高学历（如"本科"、"硕士"），education_summary用一句话概括学校和专业。
3. 提取技能：skills列出简历中明确出现的技术/专业技能；skill_tags给出3-6个概括性标签（如"后端开发"、"机器学习"）。
4. 归纳经历：experience_list每项用一句话概括一段工作、实习或项目经历，按时间倒序。
5. 职位分类：position给出候选人适合的职位方向（如"研发"、"算法"、"产品"、"财务"）。
6. 估算工作年限：years_of_experience根据工作和实习经历综合估算（数字，如0.5、3）。
7. 画像概括：summary用两三句话概括候选人的整体情况。
8. 解析完整度评分：parsing_score为0-100的整数，反映简历信息的完整程度（联系方式、教育、经历、技能齐全则高分）。

重要指令：
- 信息缺失时对应字段设为空字符串、空数组或0，请勿编造信息。
- 严禁根据项目经历推断正式工作年限，项目和实习按比例折算。
- 电话号码去掉空格和连字符，只保留数字和可能的国家码。

JSON输出格式规范：
{
  "name": "string",
  "email": "string",
  "phone": "string",
  "education": "string",
  "education_summary": "string",
  "skills": ["string"],
  "skill_tags": ["string"],
  "experience_list": ["string"],
  "summary": "string",
  "position": "string",
  "years_of_experience": 0,
  "parsing_score": 0
}

请严格按照上述JSON格式规范输出，不要包含任何解释性文字或Markdown标记。确保JSON的完整性和可解析性。
接下来，你将收到一份简历文本，请对其进行分析。`
}

// ParseProfile 解析简历文本，返回候选人画像
func (p *LLMProfileParser) ParseProfile(ctx context.Context, text string) (*types.CandidateProfile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("简历文本不能为空")
	}

	response, err := p.callLLM(ctx, p.promptTemplate, text)
	if err != nil {
		return nil, fmt.Errorf("LLM调用失败: %w", err)
	}

	profile, err := p.parseResponse(response)
	if err != nil {
		return nil, fmt.Errorf("解析LLM响应失败: %w", err)
	}
	return profile, nil
}

// callLLM 调用LLM处理提示词，对瞬时错误做指数退避重试
func (p *LLMProfileParser) callLLM(ctx context.Context, systemContent, userContent string) (string, error) {
	messages := []*einoschema.Message{
		{Role: einoschema.System, Content: systemContent},
		{Role: einoschema.User, Content: userContent},
	}

	retryDelay := p.retryDelay
	var response *einoschema.Message
	var err error

	for retry := 0; retry <= p.maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				logger.Debug().Int("retry", retry).Msg("重试简历画像LLM调用")
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		response, err = p.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break
		}

		if !isRetryableError(err) || retry >= p.maxRetries {
			return "", fmt.Errorf("LLM Generate failed: %w", err)
		}
	}

	return response.Content, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host")
}

// parseResponse 解析LLM响应为候选人画像
func (p *LLMProfileParser) parseResponse(response string) (*types.CandidateProfile, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		logger.Warn().Str("response", response).Msg("无法从LLM响应中提取有效的JSON")
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var profile types.CandidateProfile
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	profile.Phone = normalizePhone(profile.Phone)
	if profile.ParsingScore < 0 {
		profile.ParsingScore = 0
	}
	if profile.ParsingScore > 100 {
		profile.ParsingScore = 100
	}

	return &profile, nil
}

// normalizePhone 去掉电话号码中的空格和连字符
func normalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(phone)
}

// ExtractJSON 从文本中提取JSON，优先匹配```json代码块，回退到花括号配对
func ExtractJSON(text string) string {
	re := regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	matches := re.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
