package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/workflow"
)

// CandidateHandler 候选人管理接口
type CandidateHandler struct {
	db *storage.MySQL
}

func NewCandidateHandler(db *storage.MySQL) *CandidateHandler {
	return &CandidateHandler{db: db}
}

// candidateView 候选人的API视图
type candidateView struct {
	ID                uint      `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Education         string    `json:"education,omitempty"`
	EducationSummary  string    `json:"education_summary,omitempty"`
	Skills            []string  `json:"skills"`
	SkillTags         []string  `json:"skill_tags"`
	Experience        []string  `json:"experience"`
	Summary           string    `json:"summary,omitempty"`
	Position          string    `json:"position,omitempty"`
	YearsOfExperience float64   `json:"years_of_experience"`
	Status            string    `json:"status"`
	JobID             *uint     `json:"job_id,omitempty"`
	JobTitle          string    `json:"job_title,omitempty"`
	ResumePathOSS     string    `json:"resume_path_oss,omitempty"`
	ParsingScore      int       `json:"parsing_score"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toCandidateView(cand *models.Candidate) candidateView {
	view := candidateView{
		ID:                cand.ID,
		Name:              cand.Name,
		Email:             cand.Email,
		Phone:             cand.Phone,
		Education:         cand.Education,
		EducationSummary:  cand.EducationSummary,
		Skills:            []string{},
		SkillTags:         []string{},
		Experience:        []string{},
		Summary:           cand.Summary,
		Position:          cand.Position,
		YearsOfExperience: cand.YearsOfExperience,
		Status:            cand.Status,
		JobID:             cand.JobID,
		ResumePathOSS:     cand.ResumePathOSS,
		ParsingScore:      cand.ParsingScore,
		CreatedAt:         cand.CreatedAt,
		UpdatedAt:         cand.UpdatedAt,
	}
	if cand.Job != nil {
		view.JobTitle = cand.Job.Title
	}
	if len(cand.SkillsJSON) > 0 {
		_ = json.Unmarshal(cand.SkillsJSON, &view.Skills)
	}
	if len(cand.SkillTagsJSON) > 0 {
		_ = json.Unmarshal(cand.SkillTagsJSON, &view.SkillTags)
	}
	if len(cand.ExperienceJSON) > 0 {
		_ = json.Unmarshal(cand.ExperienceJSON, &view.Experience)
	}
	return view
}

// candidateRequest 创建/更新候选人的请求体
type candidateRequest struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	Education         string   `json:"education"`
	EducationSummary  string   `json:"education_summary"`
	Skills            []string `json:"skills"`
	SkillTags         []string `json:"skill_tags"`
	Experience        []string `json:"experience"`
	Summary           string   `json:"summary"`
	Position          string   `json:"position"`
	YearsOfExperience float64  `json:"years_of_experience"`
}

func (r *candidateRequest) apply(cand *models.Candidate) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("候选人姓名不能为空")
	}
	cand.Name = strings.TrimSpace(r.Name)
	cand.Email = r.Email
	cand.Phone = r.Phone
	cand.Education = r.Education
	cand.EducationSummary = r.EducationSummary
	cand.Summary = r.Summary
	cand.Position = r.Position
	cand.YearsOfExperience = r.YearsOfExperience

	var err error
	if cand.SkillsJSON, err = models.ToJSON(r.Skills); err != nil {
		return err
	}
	if cand.SkillTagsJSON, err = models.ToJSON(r.SkillTags); err != nil {
		return err
	}
	cand.ExperienceJSON, err = models.ToJSON(r.Experience)
	return err
}

// List GET /candidates
func (h *CandidateHandler) List(ctx context.Context, c *app.RequestContext) {
	filter := storage.CandidateFilter{
		Status:   c.Query("status"),
		Position: c.Query("position"),
		Keyword:  c.Query("keyword"),
		Limit:    queryInt(c, "limit", 20),
		Offset:   queryInt(c, "offset", 0),
	}
	candidates, total, err := h.db.ListCandidates(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]candidateView, 0, len(candidates))
	for i := range candidates {
		views = append(views, toCandidateView(&candidates[i]))
	}
	c.JSON(consts.StatusOK, utils.H{"items": views, "total": total})
}

// Create POST /candidates
func (h *CandidateHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req candidateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	var cand models.Candidate
	if err := req.apply(&cand); err != nil {
		respondBadRequest(c, err)
		return
	}
	cand.Status = string(workflow.CandidateNone)
	if err := h.db.CreateCandidate(ctx, &cand); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusCreated, toCandidateView(&cand))
}

// Get GET /candidates/:id
func (h *CandidateHandler) Get(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	cand, err := h.db.GetCandidateByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, toCandidateView(cand))
}

// Update PUT /candidates/:id
// 仅更新画像字段；状态和岗位归属由面试生命周期驱动，不接受直接修改
func (h *CandidateHandler) Update(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	cand, err := h.db.GetCandidateByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var req candidateRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.apply(cand); err != nil {
		respondBadRequest(c, err)
		return
	}
	updates := map[string]interface{}{
		"name":                cand.Name,
		"email":               cand.Email,
		"phone":               cand.Phone,
		"education":           cand.Education,
		"education_summary":   cand.EducationSummary,
		"skills_json":         cand.SkillsJSON,
		"skill_tags_json":     cand.SkillTagsJSON,
		"experience_json":     cand.ExperienceJSON,
		"summary":             cand.Summary,
		"position":            cand.Position,
		"years_of_experience": cand.YearsOfExperience,
	}
	if err := h.db.UpdateCandidateFields(ctx, id, updates); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, toCandidateView(cand))
}

// Delete DELETE /candidates/:id
func (h *CandidateHandler) Delete(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.db.DeleteCandidate(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"deleted": id})
}
