package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
	"recruit-agent-go/internal/workflow"
)

var (
	ErrCandidateBusy     = errors.New("该候选人已有进行中的面试")
	ErrInterviewReadOnly = errors.New("该面试已进入终态，不允许修改")
	ErrDraftNotEditable  = errors.New("当前状态不允许编辑草稿")
	ErrEvaluationStage   = errors.New("只有面试中或待评价的面试可以生成AI评价")
)

// Repository 面试编排所需的持久化能力
type Repository interface {
	CreateInterview(ctx context.Context, interview *models.Interview) error
	GetInterviewByID(ctx context.Context, id uint) (*models.Interview, error)
	ListInterviews(ctx context.Context, filter storage.InterviewFilter) ([]models.Interview, int64, error)
	UpdateInterviewFields(ctx context.Context, id uint, updates map[string]interface{}) error
	SaveInterviewDraft(ctx context.Context, id uint, notes string, questionsJSON datatypes.JSON, decision string) error
	DeleteInterview(ctx context.Context, id uint) error
	FindActiveInterviewByCandidate(ctx context.Context, candidateID uint, activeStatuses []string) (*models.Interview, error)
	ApplyInterviewTransition(ctx context.Context, id uint, updates map[string]interface{}, outboxMsg *models.OutboxMessage) error
	GetCandidateByID(ctx context.Context, id uint) (*models.Candidate, error)
	UpdateCandidateFields(ctx context.Context, id uint, updates map[string]interface{}) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	AdjustJobHiredCount(ctx context.Context, id uint, delta int) error
}

// Evaluator AI面试评价能力，由面试助手服务提供
type Evaluator interface {
	Evaluate(ctx context.Context, req *types.EvaluationRequest) (*types.AIEvaluation, error)
}

// Service 面试生命周期编排：状态机判定、副作用执行、草稿去抖和事件投递
type Service struct {
	repo           Repository
	evaluator      Evaluator
	autosaver      *workflow.AutoSaver
	notifyExchange string
	notifyKey      string
}

// NewService 创建面试编排服务
func NewService(repo Repository, evaluator Evaluator, quiet time.Duration, mqCfg *config.RabbitMQConfig) *Service {
	s := &Service{
		repo:      repo,
		evaluator: evaluator,
	}
	if mqCfg != nil {
		s.notifyExchange = mqCfg.NotifyExchange
		s.notifyKey = mqCfg.NotifyKey
	}
	s.autosaver = workflow.NewAutoSaver(quiet, func(ctx context.Context, interviewID uint, d workflow.Draft) error {
		questionsJSON, err := models.ToJSON(d.Questions)
		if err != nil {
			return fmt.Errorf("序列化草稿题目失败: %w", err)
		}
		return repo.SaveInterviewDraft(ctx, interviewID, d.Notes, questionsJSON, string(d.HiringDecision))
	})
	return s
}

// Close 停止自动保存器并刷掉所有挂起草稿
func (s *Service) Close(ctx context.Context) error {
	return s.autosaver.Close(ctx)
}

// CreateRequest 创建面试的输入
type CreateRequest struct {
	CandidateID   uint       `json:"candidate_id"`
	InterviewerID uint       `json:"interviewer_id"`
	JobID         *uint      `json:"job_id,omitempty"`
	InterviewTime *time.Time `json:"interview_time,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Create 分配一场面试。同一候选人同一时刻只允许一条活跃面试。
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*models.Interview, error) {
	if req.CandidateID == 0 || req.InterviewerID == 0 {
		return nil, fmt.Errorf("候选人和面试官不能为空")
	}
	if _, err := s.repo.GetCandidateByID(ctx, req.CandidateID); err != nil {
		return nil, fmt.Errorf("候选人 %d 不存在: %w", req.CandidateID, err)
	}
	if _, err := s.repo.GetUserByID(ctx, req.InterviewerID); err != nil {
		return nil, fmt.Errorf("面试官 %d 不存在: %w", req.InterviewerID, err)
	}

	active, err := s.repo.FindActiveInterviewByCandidate(ctx, req.CandidateID, activeStatusStrings())
	if err != nil {
		return nil, fmt.Errorf("检查活跃面试失败: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("候选人 %d: %w", req.CandidateID, ErrCandidateBusy)
	}

	interview := &models.Interview{
		CandidateID:   req.CandidateID,
		InterviewerID: req.InterviewerID,
		JobID:         req.JobID,
		Status:        string(workflow.StatusPending),
		Notes:         req.Notes,
		InterviewTime: req.InterviewTime,
	}
	if err := s.repo.CreateInterview(ctx, interview); err != nil {
		return nil, fmt.Errorf("创建面试失败: %w", err)
	}

	logger.Info().
		Uint("interview_id", interview.ID).
		Uint("candidate_id", req.CandidateID).
		Uint("interviewer_id", req.InterviewerID).
		Msg("面试已分配")

	return s.repo.GetInterviewByID(ctx, interview.ID)
}

// Get 查询单场面试
func (s *Service) Get(ctx context.Context, id uint) (*models.Interview, error) {
	return s.repo.GetInterviewByID(ctx, id)
}

// List 按条件查询面试列表
func (s *Service) List(ctx context.Context, filter storage.InterviewFilter) ([]models.Interview, int64, error) {
	return s.repo.ListInterviews(ctx, filter)
}

// UpdateRequest 更新面试基础字段的输入
type UpdateRequest struct {
	Notes         *string    `json:"notes,omitempty"`
	InterviewTime *time.Time `json:"interview_time,omitempty"`
	JobID         *uint      `json:"job_id,omitempty"`
}

// Update 更新面试的基础字段，终态记录只读
func (s *Service) Update(ctx context.Context, id uint, req *UpdateRequest) (*models.Interview, error) {
	interview, err := s.repo.GetInterviewByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if workflow.Status(interview.Status).Terminal() {
		return nil, ErrInterviewReadOnly
	}

	updates := map[string]interface{}{}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.InterviewTime != nil {
		updates["interview_time"] = *req.InterviewTime
	}
	if req.JobID != nil {
		updates["job_id"] = *req.JobID
	}
	if err := s.repo.UpdateInterviewFields(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("更新面试失败: %w", err)
	}
	return s.repo.GetInterviewByID(ctx, id)
}

// Delete 删除面试记录并丢弃其挂起草稿
func (s *Service) Delete(ctx context.Context, id uint) error {
	s.autosaver.Discard(id)
	return s.repo.DeleteInterview(ctx, id)
}

// ActionRequest 触发一次生命周期动作的输入。
// Decision 是调用时的内存态结论，优先于已持久化的值。
type ActionRequest struct {
	Action      workflow.Action      `json:"action"`
	ActorID     uint                 `json:"actor_id"`
	Decision    workflow.Decision    `json:"decision,omitempty"`
	TargetJobID uint                 `json:"target_job_id,omitempty"`
	Plan        *types.InterviewPlan `json:"plan,omitempty"` // generate_plan 携带的完整计划
}

// Act 执行一次生命周期动作：先刷掉挂起草稿，再做纯迁移判定，最后执行副作用。
// 面试写入和发件箱消息在同一事务中；候选人写入尽力而为，失败以错误上抛但不回滚面试。
func (s *Service) Act(ctx context.Context, id uint, req *ActionRequest) (*models.Interview, error) {
	actor, err := s.repo.GetUserByID(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("操作用户 %d 不存在: %w", req.ActorID, err)
	}

	// 显式动作必须基于完整的当前状态，先同步刷掉去抖窗口里的草稿
	if _, err := s.autosaver.Flush(ctx, id); err != nil {
		return nil, fmt.Errorf("提交前刷新草稿失败: %w", err)
	}

	interview, err := s.repo.GetInterviewByID(ctx, id)
	if err != nil {
		return nil, err
	}

	decision := req.Decision
	if decision == workflow.DecisionNone {
		decision = workflow.Decision(interview.HiringDecision)
	}
	if !decision.Valid() {
		return nil, fmt.Errorf("非法的录用结论 %q", decision)
	}

	candidate, err := s.repo.GetCandidateByID(ctx, interview.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("候选人 %d 不存在: %w", interview.CandidateID, err)
	}

	result, err := workflow.Transition(workflow.Input{
		Status:   workflow.Status(interview.Status),
		Action:   req.Action,
		Actor:    workflow.Actor{ID: actor.ID, Role: workflow.Role(actor.Role)},
		Decision: decision,
		Candidate: workflow.CandidateView{
			Status: workflow.CandidateStatus(candidate.Status),
			JobID:  candidate.JobID,
		},
		TargetJobID: req.TargetJobID,
		Now:         time.Now(),
	})
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if string(result.Next) != interview.Status {
		updates["status"] = string(result.Next)
	}
	if req.Decision != workflow.DecisionNone {
		updates["hiring_decision"] = string(req.Decision)
	}

	candidateUpdates := map[string]interface{}{}
	var hiredCountDelta int
	var hiredCountJobID uint
	for _, effect := range result.Effects {
		switch e := effect.(type) {
		case workflow.SetCandidateStatus:
			candidateUpdates["status"] = string(e.Status)
			if e.Status == workflow.CandidateResigned && candidate.JobID != nil {
				hiredCountDelta = -1
				hiredCountJobID = *candidate.JobID
			}
		case workflow.SetCandidateJob:
			candidateUpdates["job_id"] = e.JobID
			hiredCountDelta = 1
			hiredCountJobID = e.JobID
		case workflow.SetInterviewTime:
			updates["interview_time"] = e.At
		case workflow.PersistPlan:
			if req.Plan == nil {
				return nil, fmt.Errorf("动作 %q 需要携带完整的面试计划", req.Action)
			}
			questionsJSON, err := models.ToJSON(req.Plan.Questions)
			if err != nil {
				return nil, fmt.Errorf("序列化面试题目失败: %w", err)
			}
			criteriaJSON, err := models.ToJSON(req.Plan.EvaluationCriteria)
			if err != nil {
				return nil, fmt.Errorf("序列化评分维度失败: %w", err)
			}
			updates["questions_json"] = questionsJSON
			updates["evaluation_criteria_json"] = criteriaJSON
		}
	}

	outboxMsg, err := s.buildEvent(interview, req.Action, result.Next)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ApplyInterviewTransition(ctx, id, updates, outboxMsg); err != nil {
		return nil, err
	}

	// 候选人写入在面试事务之外，失败不回滚面试状态
	if len(candidateUpdates) > 0 {
		if err := s.repo.UpdateCandidateFields(ctx, interview.CandidateID, candidateUpdates); err != nil {
			logger.Error().Err(err).
				Uint("interview_id", id).
				Uint("candidate_id", interview.CandidateID).
				Msg("候选人状态写入失败，面试状态已更新")
			return nil, fmt.Errorf("面试状态已更新，但候选人写入失败: %w", err)
		}
	}

	// 岗位在职人数随录用/离职增减，失败只记录不上抛
	if hiredCountDelta != 0 && hiredCountJobID != 0 {
		if err := s.repo.AdjustJobHiredCount(ctx, hiredCountJobID, hiredCountDelta); err != nil {
			logger.Warn().Err(err).
				Uint("job_id", hiredCountJobID).
				Int("delta", hiredCountDelta).
				Msg("更新岗位在职人数失败")
		}
	}

	logger.Info().
		Uint("interview_id", id).
		Str("action", string(req.Action)).
		Str("from", interview.Status).
		Str("to", string(result.Next)).
		Msg("面试状态迁移完成")

	return s.repo.GetInterviewByID(ctx, id)
}

// buildEvent 构造生命周期事件的发件箱消息
func (s *Service) buildEvent(interview *models.Interview, action workflow.Action, next workflow.Status) (*models.OutboxMessage, error) {
	if s.notifyExchange == "" {
		return nil, nil
	}
	event := storage.InterviewEventMessage{
		EventID:       uuid.NewString(),
		InterviewID:   interview.ID,
		CandidateID:   interview.CandidateID,
		InterviewerID: interview.InterviewerID,
		Action:        string(action),
		FromStatus:    interview.Status,
		ToStatus:      string(next),
		OccurredAt:    time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("序列化生命周期事件失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      fmt.Sprintf("%d", interview.ID),
		EventType:        "interview." + string(action),
		Payload:          string(payload),
		TargetExchange:   s.notifyExchange,
		TargetRoutingKey: s.notifyKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

// DraftRequest 一次草稿编辑，始终是完整快照
type DraftRequest struct {
	Notes          string            `json:"notes"`
	Questions      []types.Question  `json:"questions"`
	HiringDecision workflow.Decision `json:"hiring_decision"`
}

// SaveDraft 记录一次草稿编辑，由去抖器合并落库
func (s *Service) SaveDraft(ctx context.Context, id uint, req *DraftRequest) error {
	interview, err := s.repo.GetInterviewByID(ctx, id)
	if err != nil {
		return err
	}
	switch workflow.Status(interview.Status) {
	case workflow.StatusPreparing, workflow.StatusInProgress, workflow.StatusPendingDecision:
	default:
		return fmt.Errorf("状态 %q: %w", interview.Status, ErrDraftNotEditable)
	}
	if !req.HiringDecision.Valid() {
		return fmt.Errorf("非法的录用结论 %q", req.HiringDecision)
	}
	for i, q := range req.Questions {
		if q.Score != nil && (*q.Score < types.MinQuestionScore || *q.Score > types.MaxQuestionScore) {
			return fmt.Errorf("第 %d 题评分 %d 超出范围 [%d, %d]", i+1, *q.Score, types.MinQuestionScore, types.MaxQuestionScore)
		}
	}

	s.autosaver.Update(id, workflow.Draft{
		Notes:          req.Notes,
		Questions:      req.Questions,
		HiringDecision: req.HiringDecision,
	})
	return nil
}

// FlushDraft 立即把某场面试的挂起草稿落库
func (s *Service) FlushDraft(ctx context.Context, id uint) (bool, error) {
	return s.autosaver.Flush(ctx, id)
}

// Evaluate 基于当前题目表现生成AI评价并持久化。
// 仅在面试中/待评价阶段可用；生成失败不影响已有评价。
func (s *Service) Evaluate(ctx context.Context, id uint, overallNotes string) (*types.AIEvaluation, error) {
	if s.evaluator == nil {
		return nil, fmt.Errorf("AI评价服务未配置")
	}

	// 评价基于完整的当前状态，先刷掉挂起草稿
	if _, err := s.autosaver.Flush(ctx, id); err != nil {
		return nil, fmt.Errorf("评价前刷新草稿失败: %w", err)
	}

	interview, err := s.repo.GetInterviewByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch workflow.Status(interview.Status) {
	case workflow.StatusInProgress, workflow.StatusPendingDecision:
	default:
		return nil, fmt.Errorf("状态 %q: %w", interview.Status, ErrEvaluationStage)
	}

	var questions []types.Question
	if len(interview.QuestionsJSON) > 0 {
		if err := json.Unmarshal(interview.QuestionsJSON, &questions); err != nil {
			return nil, fmt.Errorf("解析面试题目失败: %w", err)
		}
	}
	performances := make([]types.QuestionPerformance, 0, len(questions))
	for _, q := range questions {
		performances = append(performances, types.QuestionPerformance{
			Question: q.Question,
			Answer:   q.Answer,
			Notes:    q.Notes,
			Score:    q.Score,
		})
	}

	jd := ""
	if interview.Job != nil {
		jd = interview.Job.Description
	}
	if overallNotes == "" {
		overallNotes = interview.Notes
	}

	evaluation, err := s.evaluator.Evaluate(ctx, &types.EvaluationRequest{
		CandidateID:  interview.CandidateID,
		JD:           jd,
		Performances: performances,
		OverallNotes: overallNotes,
	})
	if err != nil {
		return nil, err
	}

	evaluationJSON, err := models.ToJSON(evaluation)
	if err != nil {
		return nil, fmt.Errorf("序列化AI评价失败: %w", err)
	}
	if err := s.repo.UpdateInterviewFields(ctx, id, map[string]interface{}{
		"ai_evaluation_json": evaluationJSON,
	}); err != nil {
		return nil, fmt.Errorf("持久化AI评价失败: %w", err)
	}
	return evaluation, nil
}

func activeStatusStrings() []string {
	out := make([]string, 0, len(workflow.ActiveStatuses))
	for _, s := range workflow.ActiveStatuses {
		out = append(out, string(s))
	}
	return out
}
