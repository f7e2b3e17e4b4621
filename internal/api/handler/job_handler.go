package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/assistant"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

// JobHandler 岗位描述管理接口
type JobHandler struct {
	db        *storage.MySQL
	assistant *assistant.Service
}

func NewJobHandler(db *storage.MySQL, assistantSvc *assistant.Service) *JobHandler {
	return &JobHandler{db: db, assistant: assistantSvc}
}

// jobRequest 创建/更新岗位的请求体
type jobRequest struct {
	Title            string `json:"title"`
	Department       string `json:"department"`
	Location         string `json:"location"`
	Category         string `json:"category"`
	Description      string `json:"description"`
	RequirementCount int    `json:"requirement_count"`
	Status           string `json:"status"`
	CloseReason      string `json:"close_reason"`
}

func (r *jobRequest) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("岗位标题不能为空")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("岗位描述不能为空")
	}
	if r.RequirementCount < 0 {
		return errors.New("招聘名额不能为负数")
	}
	switch r.Status {
	case "", "active", "closed":
	default:
		return errors.New("非法的岗位状态: " + r.Status)
	}
	if r.CloseReason != "" && r.Status == "active" {
		return errors.New("关闭原因仅在岗位关闭时填写")
	}
	return nil
}

// List GET /job-descriptions
func (h *JobHandler) List(ctx context.Context, c *app.RequestContext) {
	if keyword := c.Query("keyword"); keyword != "" {
		jobs, err := h.db.SearchJobDescriptions(ctx, keyword, queryInt(c, "limit", 20))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(consts.StatusOK, utils.H{"items": jobs, "total": len(jobs)})
		return
	}

	jobs, err := h.db.ListJobDescriptions(ctx, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"items": jobs, "total": len(jobs)})
}

// Create POST /job-descriptions
func (h *JobHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req jobRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.validate(); err != nil {
		respondBadRequest(c, err)
		return
	}
	jd := models.JobDescription{
		Title:            strings.TrimSpace(req.Title),
		Department:       req.Department,
		Location:         req.Location,
		Category:         req.Category,
		Description:      req.Description,
		RequirementCount: req.RequirementCount,
		Status:           req.Status,
		CloseReason:      req.CloseReason,
	}
	if jd.Status == "" {
		jd.Status = "active"
	}
	if err := h.db.CreateJobDescription(ctx, &jd); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusCreated, jd)
}

// Get GET /job-descriptions/:id
func (h *JobHandler) Get(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	jd, err := h.db.GetJobDescriptionByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, jd)
}

// Update PUT /job-descriptions/:id
func (h *JobHandler) Update(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	jd, err := h.db.GetJobDescriptionByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var req jobRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.validate(); err != nil {
		respondBadRequest(c, err)
		return
	}
	jd.Title = strings.TrimSpace(req.Title)
	jd.Department = req.Department
	jd.Location = req.Location
	jd.Category = req.Category
	jd.Description = req.Description
	jd.RequirementCount = req.RequirementCount
	if req.Status != "" {
		jd.Status = req.Status
	}
	// 重新开放岗位时清掉历史关闭原因
	if jd.Status == "closed" {
		jd.CloseReason = req.CloseReason
	} else {
		jd.CloseReason = ""
	}
	if err := h.db.UpdateJobDescription(ctx, jd); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, jd)
}

// Delete DELETE /job-descriptions/:id
func (h *JobHandler) Delete(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.db.DeleteJobDescription(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"deleted": id})
}

// SmartGenerate POST /job-descriptions/smart-generate
// 根据标题和关键词让AI起草完整岗位描述
func (h *JobHandler) SmartGenerate(ctx context.Context, c *app.RequestContext) {
	var req types.JDSmartGenerateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondBadRequest(c, errors.New("岗位标题不能为空"))
		return
	}
	resp, err := h.assistant.SmartGenerateJD(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}
