package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/knowledge"
	"recruit-agent-go/internal/storage/models"
)

// KnowledgeHandler 知识库管理与问答接口
type KnowledgeHandler struct {
	svc *knowledge.Service
}

func NewKnowledgeHandler(svc *knowledge.Service) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

// knowledgeRequest 创建/更新知识条目的请求体
type knowledgeRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

func (r *knowledgeRequest) toModel(entry *models.Knowledge) error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Content) == "" {
		return errors.New("知识条目的标题和内容不能为空")
	}
	entry.Title = strings.TrimSpace(r.Title)
	entry.Content = r.Content
	entry.Category = r.Category
	tags, err := models.ToJSON(r.Tags)
	if err != nil {
		return err
	}
	entry.TagsJSON = tags
	return nil
}

// List GET /knowledge
func (h *KnowledgeHandler) List(ctx context.Context, c *app.RequestContext) {
	entries, err := h.svc.List(ctx, c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"items": entries, "total": len(entries)})
}

// Create POST /knowledge
func (h *KnowledgeHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req knowledgeRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	var entry models.Knowledge
	if err := req.toModel(&entry); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.Create(ctx, &entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusCreated, entry)
}

// Get GET /knowledge/:id
func (h *KnowledgeHandler) Get(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	entry, err := h.svc.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, entry)
}

// Update PUT /knowledge/:id
func (h *KnowledgeHandler) Update(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	entry, err := h.svc.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var req knowledgeRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.toModel(entry); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.Update(ctx, entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, entry)
}

// Delete DELETE /knowledge/:id
func (h *KnowledgeHandler) Delete(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"deleted": id})
}

// tipRequest 面试建议请求体
type tipRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Tip POST /knowledge/tip
func (h *KnowledgeHandler) Tip(ctx context.Context, c *app.RequestContext) {
	var req tipRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondBadRequest(c, errors.New("知识点标题不能为空"))
		return
	}
	tip, err := h.svc.GetTip(ctx, req.Title, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"tip": tip})
}

// chatRequest 知识库问答请求体
type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// Chat POST /knowledge/chat
func (h *KnowledgeHandler) Chat(ctx context.Context, c *app.RequestContext) {
	var req chatRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondBadRequest(c, errors.New("问题不能为空"))
		return
	}
	answer, err := h.svc.Chat(ctx, req.SessionID, req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, answer)
}
