package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"recruit-agent-go/internal/logger"
)

const (
	// DashScope的OpenAI兼容聊天接口
	defaultQwenAPIURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName = "qwen-plus"

	defaultRequestTimeout = 120 * time.Second
)

// AliyunQwenChatModel 通义千问聊天模型客户端，走DashScope的OpenAI兼容协议。
// 实现 model.ToolCallingChatModel，可直接交给Agent或助手服务使用。
type AliyunQwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	boundTools []openAITool
}

var _ model.ToolCallingChatModel = (*AliyunQwenChatModel)(nil)

// NewAliyunQwenChatModel 创建通义千问模型客户端。
// modelName和apiURL为空时使用默认值。
func NewAliyunQwenChatModel(apiKey, modelName, apiURL string) (*AliyunQwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultQwenAPIURL
	}

	return &AliyunQwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

// --- OpenAI兼容协议结构 ---

type openAITool struct {
	Type     string         `json:"type"` // 固定为 "function"
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	Tools       []openAITool      `json:"tools,omitempty"`
	Temperature *float32          `json:"temperature,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
}

type chatCompletionMessage struct {
	Role      string         `json:"role"`
	Content   *string        `json:"content"` // 存在tool_calls时可能为null
	ToolCalls []toolCallData `json:"tool_calls,omitempty"`
}

type toolCallData struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatCompletionChoice struct {
	Index        int                   `json:"index"`
	Message      chatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
}

// convertToolInfos 把eino的工具定义转为OpenAI兼容格式，
// 参数schema通过ParamsOneOf导出为OpenAPI v3再序列化。
func convertToolInfos(toolInfos []*schema.ToolInfo) ([]openAITool, error) {
	tools := make([]openAITool, 0, len(toolInfos))
	for _, ti := range toolInfos {
		if ti == nil {
			continue
		}

		fn := openAIFunction{
			Name:        ti.Name,
			Description: ti.Desc,
		}

		if ti.ParamsOneOf != nil {
			openAPISchema, err := ti.ParamsOneOf.ToOpenAPIV3()
			if err != nil {
				return nil, fmt.Errorf("导出工具 %s 的参数schema失败: %w", ti.Name, err)
			}
			raw, err := json.Marshal(openAPISchema)
			if err != nil {
				return nil, fmt.Errorf("序列化工具 %s 的参数schema失败: %w", ti.Name, err)
			}
			fn.Parameters = raw
		}

		tools = append(tools, openAITool{Type: "function", Function: fn})
	}
	return tools, nil
}

// filterMessages 过滤不应发给API的工具消息：
// 只有前一条助手消息携带了结构化tool_calls时，tool消息才是合法的响应；
// 否则它来自ReAct文本解析路径，观察结果已经写进了提示词。
func filterMessages(messages []*schema.Message) []*schema.Message {
	filtered := make([]*schema.Message, 0, len(messages))
	for i, msg := range messages {
		if msg.Role == schema.Tool && i > 0 {
			prev := messages[i-1]
			if prev.Role == schema.Assistant && len(prev.ToolCalls) == 0 {
				logger.Debug().
					Str("tool_call_id", msg.ToolCallID).
					Msg("前一条助手消息缺少tool_calls，跳过该工具消息")
				continue
			}
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

// Generate 实现 model.ToolCallingChatModel 接口
func (aq *AliyunQwenChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	commonOpts := model.GetCommonOptions(&model.Options{}, options...)

	modelName := aq.modelName
	if commonOpts.Model != nil && *commonOpts.Model != "" {
		modelName = *commonOpts.Model
	}

	reqPayload := chatCompletionRequest{
		Model:       modelName,
		Messages:    filterMessages(messages),
		Temperature: commonOpts.Temperature,
		MaxTokens:   commonOpts.MaxTokens,
	}

	if len(commonOpts.Tools) > 0 {
		tools, err := convertToolInfos(commonOpts.Tools)
		if err != nil {
			return nil, err
		}
		reqPayload.Tools = tools
	} else if len(aq.boundTools) > 0 {
		reqPayload.Tools = aq.boundTools
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, aq.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+aq.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := aq.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var apiResp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("反序列化API响应失败: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("API响应不包含任何选项")
	}

	choice := apiResp.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	result := &schema.Message{
		Role:    schema.RoleType(choice.Message.Role),
		Content: content,
	}
	if result.Role == "" {
		result.Role = schema.Assistant
	}

	if len(choice.Message.ToolCalls) > 0 {
		result.ToolCalls = make([]schema.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			result.ToolCalls[i] = schema.ToolCall{
				ID: tc.ID,
				Function: schema.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	logger.Debug().
		Str("model", modelName).
		Int("tool_calls", len(result.ToolCalls)).
		Dur("elapsed", time.Since(start)).
		Msg("通义千问调用完成")

	return result, nil
}

// Stream 实现 model.ToolCallingChatModel 接口。
// DashScope兼容接口的SSE流式暂未接入，降级为一次性生成后包装成单元素流。
func (aq *AliyunQwenChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := aq.Generate(ctx, messages, options...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 返回绑定了工具的新模型实例，原实例不受影响
func (aq *AliyunQwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	converted, err := convertToolInfos(tools)
	if err != nil {
		return nil, err
	}

	clone := *aq
	clone.boundTools = converted
	return &clone, nil
}
