package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/assistant"
	"recruit-agent-go/internal/interview"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
	"recruit-agent-go/internal/workflow"
)

// InterviewHandler 面试相关接口：生命周期、草稿和AI助手操作
type InterviewHandler struct {
	interviews *interview.Service
	assistant  *assistant.Service
}

// NewInterviewHandler 创建面试接口处理器
func NewInterviewHandler(interviews *interview.Service, assistantSvc *assistant.Service) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, assistant: assistantSvc}
}

// interviewView 面试记录的API视图，JSON列解码为结构化字段
type interviewView struct {
	ID                 uint                `json:"id"`
	CandidateID        uint                `json:"candidate_id"`
	CandidateName      string              `json:"candidate_name,omitempty"`
	InterviewerID      uint                `json:"interviewer_id"`
	InterviewerName    string              `json:"interviewer_name,omitempty"`
	JobID              *uint               `json:"job_id,omitempty"`
	JobTitle           string              `json:"job_title,omitempty"`
	Status             string              `json:"status"`
	HiringDecision     string              `json:"hiring_decision,omitempty"`
	Notes              string              `json:"notes,omitempty"`
	Questions          []types.Question    `json:"questions"`
	EvaluationCriteria []string            `json:"evaluation_criteria"`
	AIEvaluation       *types.AIEvaluation `json:"ai_evaluation,omitempty"`
	ResumeIndex        int                 `json:"resume_index"`
	InterviewTime      *time.Time          `json:"interview_time,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func toInterviewView(iv *models.Interview) interviewView {
	view := interviewView{
		ID:                 iv.ID,
		CandidateID:        iv.CandidateID,
		InterviewerID:      iv.InterviewerID,
		JobID:              iv.JobID,
		Status:             iv.Status,
		HiringDecision:     iv.HiringDecision,
		Notes:              iv.Notes,
		Questions:          []types.Question{},
		EvaluationCriteria: []string{},
		InterviewTime:      iv.InterviewTime,
		CreatedAt:          iv.CreatedAt,
		UpdatedAt:          iv.UpdatedAt,
	}
	if iv.Candidate != nil {
		view.CandidateName = iv.Candidate.Name
	}
	if iv.Interviewer != nil {
		view.InterviewerName = iv.Interviewer.Name
	}
	if iv.Job != nil {
		view.JobTitle = iv.Job.Title
	}
	if len(iv.QuestionsJSON) > 0 {
		if err := json.Unmarshal(iv.QuestionsJSON, &view.Questions); err != nil {
			logger.Warn().Err(err).Uint("interview_id", iv.ID).Msg("解码面试题目JSON失败")
		}
	}
	if len(iv.EvaluationCriteriaJSON) > 0 {
		if err := json.Unmarshal(iv.EvaluationCriteriaJSON, &view.EvaluationCriteria); err != nil {
			logger.Warn().Err(err).Uint("interview_id", iv.ID).Msg("解码评分维度JSON失败")
		}
	}
	if len(iv.AIEvaluationJSON) > 0 {
		var evaluation types.AIEvaluation
		if err := json.Unmarshal(iv.AIEvaluationJSON, &evaluation); err == nil {
			view.AIEvaluation = &evaluation
		}
	}
	// 前端据此定位到第一道未动过的题目，刷新后从中断处继续
	view.ResumeIndex = workflow.ResumeIndex(view.Questions)
	return view
}

// List GET /interviews
func (h *InterviewHandler) List(ctx context.Context, c *app.RequestContext) {
	filter := storage.InterviewFilter{
		Status:        c.Query("status"),
		InterviewerID: queryUint(c, "interviewer_id"),
		CandidateID:   queryUint(c, "candidate_id"),
		Limit:         queryInt(c, "limit", 20),
		Offset:        queryInt(c, "offset", 0),
	}
	interviews, total, err := h.interviews.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]interviewView, 0, len(interviews))
	for i := range interviews {
		views = append(views, toInterviewView(&interviews[i]))
	}
	c.JSON(consts.StatusOK, utils.H{"items": views, "total": total})
}

// Create POST /interviews
func (h *InterviewHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req interview.CreateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	iv, err := h.interviews.Create(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusCreated, toInterviewView(iv))
}

// Get GET /interviews/:id
func (h *InterviewHandler) Get(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	iv, err := h.interviews.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, toInterviewView(iv))
}

// Update PUT /interviews/:id
func (h *InterviewHandler) Update(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req interview.UpdateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	iv, err := h.interviews.Update(ctx, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, toInterviewView(iv))
}

// Delete DELETE /interviews/:id
func (h *InterviewHandler) Delete(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.interviews.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"deleted": id})
}

// Act POST /interviews/:id/action
func (h *InterviewHandler) Act(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req interview.ActionRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.Action == "" || req.ActorID == 0 {
		respondBadRequest(c, errors.New("action和actor_id不能为空"))
		return
	}
	iv, err := h.interviews.Act(ctx, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, toInterviewView(iv))
}

// SaveDraft PUT /interviews/:id/draft
func (h *InterviewHandler) SaveDraft(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req interview.DraftRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.interviews.SaveDraft(ctx, id, &req); err != nil {
		respondError(c, err)
		return
	}
	// 去抖窗口内受理即返回，真实落库由自动保存器完成
	c.JSON(consts.StatusAccepted, utils.H{"accepted": true})
}

// ---- AI 助手操作 ----

// GeneratePlan POST /interviews/generate
func (h *InterviewHandler) GeneratePlan(ctx context.Context, c *app.RequestContext) {
	var req types.PlanGenerateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	resp, err := h.assistant.GeneratePlan(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}

// RegenerateQuestion POST /interviews/regenerate-question
func (h *InterviewHandler) RegenerateQuestion(ctx context.Context, c *app.RequestContext) {
	var req types.QuestionRegenerateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	question, err := h.assistant.RegenerateQuestion(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, question)
}

// CompleteManualQuestion POST /interviews/complete-manual-question
func (h *InterviewHandler) CompleteManualQuestion(ctx context.Context, c *app.RequestContext) {
	var req types.ManualQuestionCompleteRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	question, err := h.assistant.CompleteManualQuestion(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, question)
}

// RefreshCriteria POST /interviews/refresh-criteria
func (h *InterviewHandler) RefreshCriteria(ctx context.Context, c *app.RequestContext) {
	var req types.CriteriaRefreshRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	resp, err := h.assistant.RefreshCriteria(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}

// evaluateRequest AI评价请求体
type evaluateRequest struct {
	InterviewID  uint   `json:"interview_id"`
	OverallNotes string `json:"overall_notes,omitempty"`
}

// Evaluate POST /interviews/evaluate
// 基于指定面试的当前题目表现生成并持久化AI评价
func (h *InterviewHandler) Evaluate(ctx context.Context, c *app.RequestContext) {
	var req evaluateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.InterviewID == 0 {
		respondBadRequest(c, errors.New("interview_id不能为空"))
		return
	}
	evaluation, err := h.interviews.Evaluate(ctx, req.InterviewID, req.OverallNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, evaluation)
}
