package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/agent"
)

// AgentHandler 招聘智能体对话接口
type AgentHandler struct {
	svc *agent.Service
}

func NewAgentHandler(svc *agent.Service) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// agentChatRequest 智能体对话请求体
type agentChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Chat POST /agent/chat
func (h *AgentHandler) Chat(ctx context.Context, c *app.RequestContext) {
	var req agentChatRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondBadRequest(c, errors.New("消息不能为空"))
		return
	}
	result, err := h.svc.Chat(ctx, req.SessionID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, result)
}

// ClearSession DELETE /agent/sessions/:id
func (h *AgentHandler) ClearSession(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("id")
	if sessionID == "" {
		respondBadRequest(c, errors.New("会话ID不能为空"))
		return
	}
	if err := h.svc.ClearSession(ctx, sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"cleared": sessionID})
}
