package agent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"recruit-agent-go/internal/logger"
)

// parsedOutput 从模型响应中解析出的决策
type parsedOutput struct {
	Thought     string
	Action      string // 工具名或 "Final Answer"
	ActionInput string
	FinalAnswer string
	NeedsAction bool
	ToolCall    *schema.ToolCall // 结构化工具调用优先
	RawOutput   string
}

// ReActStepper 思考-行动-观察循环的单步执行器。
// 优先使用模型的结构化工具调用，回退到ReAct文本格式解析。
type ReActStepper struct {
	tools map[string]tool.InvokableTool
}

// NewReActStepper 创建ReAct步骤执行器
func NewReActStepper(tools map[string]tool.InvokableTool) *ReActStepper {
	return &ReActStepper{tools: tools}
}

// Step 实现 Stepper 接口：思考一次，然后执行工具或给出最终答案
func (rs *ReActStepper) Step(ctx context.Context, agent *BaseAgent) (string, error) {
	history, err := agent.GetHistory(ctx)
	if err != nil {
		return "", fmt.Errorf("获取会话历史失败: %w", err)
	}

	parsed, err := rs.think(ctx, agent, history)
	if err != nil {
		return "", fmt.Errorf("思考步骤失败: %w", err)
	}

	// 把模型的决策写入历史
	switch {
	case parsed.ToolCall != nil:
		if err := agent.AddMessage(ctx, &schema.Message{
			Role:      schema.Assistant,
			Content:   parsed.Thought,
			ToolCalls: []schema.ToolCall{*parsed.ToolCall},
		}); err != nil {
			return "", err
		}
	case parsed.NeedsAction:
		if err := agent.AddMessage(ctx, &schema.Message{Role: schema.Assistant, Content: parsed.RawOutput}); err != nil {
			return "", err
		}
	default:
		if err := agent.AddMessage(ctx, &schema.Message{Role: schema.Assistant, Content: parsed.FinalAnswer}); err != nil {
			return "", err
		}
	}

	if !parsed.NeedsAction {
		agent.State = AgentStateFinished
		return parsed.FinalAnswer, nil
	}

	observation := rs.act(ctx, parsed)
	logger.Debug().
		Str("session_id", agent.SessionID).
		Str("action", parsed.Action).
		Int("observation_len", len(observation)).
		Msg("工具执行完成")

	toolCallID := parsed.Action
	if parsed.ToolCall != nil {
		toolCallID = parsed.ToolCall.ID
	}
	if err := agent.AddMessage(ctx, &schema.Message{Role: schema.Tool, ToolCallID: toolCallID, Content: observation}); err != nil {
		return "", err
	}
	return observation, nil
}

// think 调用模型获取下一步决策
func (rs *ReActStepper) think(ctx context.Context, agent *BaseAgent, history []*schema.Message) (*parsedOutput, error) {
	toolInfos := make([]*schema.ToolInfo, 0, len(rs.tools))
	for name, t := range rs.tools {
		info, err := t.Info(ctx)
		if err != nil || info == nil {
			logger.Warn().Str("tool", name).Err(err).Msg("获取工具信息失败")
			continue
		}
		toolInfos = append(toolInfos, info)
	}

	prompt := rs.buildPrompt(ctx, agent, history)
	messages := []*schema.Message{{Role: schema.User, Content: prompt}}

	resp, err := agent.ChatClient.Generate(ctx, messages, model.WithTools(toolInfos))
	if err != nil {
		return nil, fmt.Errorf("模型调用失败: %w", err)
	}

	return rs.parseResponse(resp)
}

// parseResponse 优先处理结构化工具调用，否则回退到文本解析
func (rs *ReActStepper) parseResponse(resp *schema.Message) (*parsedOutput, error) {
	if len(resp.ToolCalls) > 0 {
		tc := resp.ToolCalls[0] // 每步只执行一个动作

		// 模型幻觉出的未知工具走文本回退，不终止Agent
		if _, ok := rs.tools[tc.Function.Name]; !ok {
			logger.Warn().Str("tool", tc.Function.Name).Msg("模型请求了未知工具，回退到文本解析")
			return rs.parseTextOutput(resp.Content)
		}

		return &parsedOutput{
			Thought:     strings.TrimSpace(resp.Content),
			Action:      tc.Function.Name,
			ActionInput: tc.Function.Arguments,
			NeedsAction: true,
			ToolCall:    &tc,
			RawOutput:   resp.Content,
		}, nil
	}
	return rs.parseTextOutput(resp.Content)
}

// buildPrompt 根据系统提示、可用工具和历史构建ReAct提示词
func (rs *ReActStepper) buildPrompt(ctx context.Context, agent *BaseAgent, history []*schema.Message) string {
	var b strings.Builder
	if agent.SystemPrompt != "" {
		b.WriteString(agent.SystemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("按以下格式回复：\n")
	b.WriteString("Thought: [一步一步分析问题，说明为什么选择某个工具或给出最终答案]\n")
	b.WriteString("Action: [工具名称，或给出最终答案时填 \"Final Answer\"]\n")
	b.WriteString("Action Input: [工具的JSON参数；Action是Final Answer时填最终回答内容]\n")
	b.WriteString("Observation: [系统填充的工具结果，请勿自行填写]\n")

	if len(rs.tools) > 0 {
		b.WriteString("\n可用的工具：\n")
		names := make([]string, 0, len(rs.tools))
		for name := range rs.tools {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			info, err := rs.tools[name].Info(ctx)
			if err == nil && info != nil {
				fmt.Fprintf(&b, "- %s: %s\n", name, info.Desc)
			} else {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
	}

	b.WriteString("\n对话历史：\n")
	for _, msg := range history {
		switch msg.Role {
		case schema.User:
			fmt.Fprintf(&b, "User: %s\n", msg.Content)
		case schema.Assistant:
			if len(msg.ToolCalls) > 0 {
				fmt.Fprintf(&b, "Thought: %s\n", msg.Content)
				for _, tc := range msg.ToolCalls {
					fmt.Fprintf(&b, "Action: %s\nAction Input: %s\n", tc.Function.Name, tc.Function.Arguments)
				}
			} else {
				fmt.Fprintf(&b, "%s\n", msg.Content)
			}
		case schema.Tool:
			fmt.Fprintf(&b, "Observation: %s\n", msg.Content)
		default:
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}
	b.WriteString("\nThought:")
	return b.String()
}

var (
	thoughtRegex     = regexp.MustCompile(`(?is)Thought:\s*(.*?)(?:\nAction:|$)`)
	actionRegex      = regexp.MustCompile(`(?is)Action:\s*(.*?)(?:\nAction Input:|$)`)
	inputRegex       = regexp.MustCompile(`(?is)Action Input:\s*(.*)`)
	finalAnswerRegex = regexp.MustCompile(`(?is)Action:\s*Final Answer(?:[\s\n]*Action Input:\s*(.*))?`)
)

// parseTextOutput 从纯文本中解析Thought/Action/Action Input
func (rs *ReActStepper) parseTextOutput(text string) (*parsedOutput, error) {
	text = strings.TrimSpace(text)
	out := parsedOutput{RawOutput: text}

	if matches := finalAnswerRegex.FindStringSubmatch(text); len(matches) > 0 {
		out.Action = "Final Answer"
		beforeAction := strings.Split(text, "Action:")[0]
		if tm := thoughtRegex.FindStringSubmatch(beforeAction); len(tm) > 1 {
			out.Thought = strings.TrimSpace(tm[1])
		} else {
			out.Thought = strings.TrimSpace(beforeAction)
		}
		if len(matches) > 1 && strings.TrimSpace(matches[1]) != "" {
			out.FinalAnswer = strings.TrimSpace(matches[1])
		} else {
			out.FinalAnswer = out.Thought
		}
		if out.FinalAnswer == "" {
			out.FinalAnswer = "（未能从模型响应中提取明确的回答）"
		}
		return &out, nil
	}

	if tm := thoughtRegex.FindStringSubmatch(text); len(tm) > 1 {
		out.Thought = strings.TrimSpace(tm[1])
	}
	if am := actionRegex.FindStringSubmatch(text); len(am) > 1 {
		out.Action = strings.TrimSpace(am[1])
	}
	if im := inputRegex.FindStringSubmatch(text); len(im) > 1 {
		out.ActionInput = strings.TrimSpace(im[1])
	}

	if out.Action == "" || strings.EqualFold(out.Action, "Final Answer") {
		// 没有行动或行动就是最终答案，把已有内容作为回答
		out.Action = "Final Answer"
		if out.ActionInput != "" {
			out.FinalAnswer = out.ActionInput
		} else if out.Thought != "" {
			out.FinalAnswer = out.Thought
		} else if text != "" {
			out.FinalAnswer = text
		} else {
			return nil, fmt.Errorf("未能从模型输出中解析出有效内容")
		}
		return &out, nil
	}

	out.NeedsAction = true
	return &out, nil
}

// act 执行工具并返回观察结果。
// 工具层面的失败作为观察结果反馈给模型，不终止推理循环。
func (rs *ReActStepper) act(ctx context.Context, parsed *parsedOutput) string {
	t, ok := rs.tools[parsed.Action]
	if !ok {
		return fmt.Sprintf("错误：找不到名为 %q 的工具。", parsed.Action)
	}

	args := parsed.ActionInput
	if parsed.ToolCall != nil {
		args = parsed.ToolCall.Function.Arguments
	}
	if args == "" {
		args = "{}"
	}

	output, err := t.InvokableRun(ctx, args)
	if err != nil {
		return fmt.Sprintf("工具 %q 执行出错: %v", parsed.Action, err)
	}
	return output
}
