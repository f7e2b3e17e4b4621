package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
	"recruit-agent-go/internal/workflow"
)

type fakeRepo struct {
	interviews map[uint]*models.Interview
	candidates map[uint]*models.Candidate
	users      map[uint]*models.User
	jobs       map[uint]*models.JobDescription
	outbox     []*models.OutboxMessage
	nextID     uint
	saveCalls  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		interviews: map[uint]*models.Interview{},
		candidates: map[uint]*models.Candidate{},
		users:      map[uint]*models.User{},
		jobs:       map[uint]*models.JobDescription{},
		nextID:     1,
	}
}

func (f *fakeRepo) CreateInterview(_ context.Context, interview *models.Interview) error {
	interview.ID = f.nextID
	f.nextID++
	f.interviews[interview.ID] = interview
	return nil
}

func (f *fakeRepo) GetInterviewByID(_ context.Context, id uint) (*models.Interview, error) {
	iv, ok := f.interviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *iv
	if c, ok := f.candidates[iv.CandidateID]; ok {
		copied.Candidate = c
	}
	if u, ok := f.users[iv.InterviewerID]; ok {
		copied.Interviewer = u
	}
	if iv.JobID != nil {
		if j, ok := f.jobs[*iv.JobID]; ok {
			copied.Job = j
		}
	}
	return &copied, nil
}

func (f *fakeRepo) ListInterviews(_ context.Context, filter storage.InterviewFilter) ([]models.Interview, int64, error) {
	var out []models.Interview
	for id := uint(1); id < f.nextID; id++ {
		iv, ok := f.interviews[id]
		if !ok {
			continue
		}
		if filter.InterviewerID != 0 && iv.InterviewerID != filter.InterviewerID {
			continue
		}
		if filter.Status != "" && iv.Status != filter.Status {
			continue
		}
		copied, _ := f.GetInterviewByID(context.Background(), id)
		out = append(out, *copied)
	}
	return out, int64(len(out)), nil
}

func applyUpdates(iv *models.Interview, updates map[string]interface{}) {
	for key, value := range updates {
		switch key {
		case "status":
			iv.Status = value.(string)
		case "hiring_decision":
			iv.HiringDecision = value.(string)
		case "notes":
			iv.Notes = value.(string)
		case "interview_time":
			t := value.(time.Time)
			iv.InterviewTime = &t
		case "questions_json":
			iv.QuestionsJSON = value.(datatypes.JSON)
		case "evaluation_criteria_json":
			iv.EvaluationCriteriaJSON = value.(datatypes.JSON)
		case "ai_evaluation_json":
			iv.AIEvaluationJSON = value.(datatypes.JSON)
		case "job_id":
			id := value.(uint)
			iv.JobID = &id
		}
	}
}

func (f *fakeRepo) UpdateInterviewFields(_ context.Context, id uint, updates map[string]interface{}) error {
	iv, ok := f.interviews[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyUpdates(iv, updates)
	return nil
}

func (f *fakeRepo) SaveInterviewDraft(_ context.Context, id uint, notes string, questionsJSON datatypes.JSON, decision string) error {
	iv, ok := f.interviews[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.saveCalls++
	iv.Notes = notes
	iv.QuestionsJSON = questionsJSON
	iv.HiringDecision = decision
	return nil
}

func (f *fakeRepo) DeleteInterview(_ context.Context, id uint) error {
	delete(f.interviews, id)
	return nil
}

func (f *fakeRepo) FindActiveInterviewByCandidate(_ context.Context, candidateID uint, activeStatuses []string) (*models.Interview, error) {
	for _, iv := range f.interviews {
		if iv.CandidateID != candidateID {
			continue
		}
		for _, s := range activeStatuses {
			if iv.Status == s {
				return iv, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeRepo) ApplyInterviewTransition(_ context.Context, id uint, updates map[string]interface{}, outboxMsg *models.OutboxMessage) error {
	iv, ok := f.interviews[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyUpdates(iv, updates)
	if outboxMsg != nil {
		f.outbox = append(f.outbox, outboxMsg)
	}
	return nil
}

func (f *fakeRepo) GetCandidateByID(_ context.Context, id uint) (*models.Candidate, error) {
	c, ok := f.candidates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeRepo) UpdateCandidateFields(_ context.Context, id uint, updates map[string]interface{}) error {
	c, ok := f.candidates[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			c.Status = value.(string)
		case "job_id":
			jobID := value.(uint)
			c.JobID = &jobID
		}
	}
	return nil
}

func (f *fakeRepo) AdjustJobHiredCount(_ context.Context, id uint, delta int) error {
	job, ok := f.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	job.CurrentHiredCount += delta
	if job.CurrentHiredCount < 0 {
		job.CurrentHiredCount = 0
	}
	return nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type fakeEvaluator struct {
	evaluation *types.AIEvaluation
	err        error
	lastReq    *types.EvaluationRequest
}

func (f *fakeEvaluator) Evaluate(_ context.Context, req *types.EvaluationRequest) (*types.AIEvaluation, error) {
	f.lastReq = req
	return f.evaluation, f.err
}

func mqCfg() *config.RabbitMQConfig {
	return &config.RabbitMQConfig{
		NotifyExchange: "recruit.notify.exchange",
		NotifyKey:      "interview.lifecycle",
	}
}

func newTestService(evaluator Evaluator) (*Service, *fakeRepo) {
	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, Username: "admin", Name: "管理员", Role: "admin"}
	repo.users[2] = &models.User{ID: 2, Username: "lily", Name: "李面试官", Role: "interviewer"}
	repo.candidates[10] = &models.Candidate{ID: 10, Name: "王小明", Status: "none"}
	repo.jobs[100] = &models.JobDescription{ID: 100, Title: "Go后端工程师", Description: "负责后端服务研发"}
	return NewService(repo, evaluator, 30*time.Millisecond, mqCfg()), repo
}

func seedInterview(repo *fakeRepo, status string) *models.Interview {
	jobID := uint(100)
	iv := &models.Interview{
		CandidateID:   10,
		InterviewerID: 2,
		JobID:         &jobID,
		Status:        status,
	}
	_ = repo.CreateInterview(context.Background(), iv)
	return iv
}

func TestCreateInterview(t *testing.T) {
	s, repo := newTestService(nil)

	iv, err := s.Create(context.Background(), &CreateRequest{CandidateID: 10, InterviewerID: 2})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusPending), iv.Status)

	// 同一候选人的第二条活跃面试应被拒绝
	_, err = s.Create(context.Background(), &CreateRequest{CandidateID: 10, InterviewerID: 2})
	require.ErrorIs(t, err, ErrCandidateBusy)

	// 终态后允许再次分配
	repo.interviews[iv.ID].Status = string(workflow.StatusCompleted)
	_, err = s.Create(context.Background(), &CreateRequest{CandidateID: 10, InterviewerID: 2})
	require.NoError(t, err)
}

func TestActAccept(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusPending))

	updated, err := s.Act(context.Background(), iv.ID, &ActionRequest{Action: workflow.ActionAccept, ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusAccepted), updated.Status)

	require.Len(t, repo.outbox, 1, "状态迁移应写入发件箱")
	assert.Equal(t, "interview.accept", repo.outbox[0].EventType)

	var event storage.InterviewEventMessage
	require.NoError(t, json.Unmarshal([]byte(repo.outbox[0].Payload), &event))
	assert.Equal(t, string(workflow.StatusPending), event.FromStatus)
	assert.Equal(t, string(workflow.StatusAccepted), event.ToStatus)
}

func TestActRoleDenied(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusPending))

	_, err := s.Act(context.Background(), iv.ID, &ActionRequest{Action: workflow.ActionAccept, ActorID: 1})
	require.ErrorIs(t, err, workflow.ErrRoleNotAllowed)
	assert.Equal(t, string(workflow.StatusPending), repo.interviews[iv.ID].Status, "拒绝的动作不应产生写入")
}

func TestActFinishUsesFlushedDraftDecision(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusInProgress))

	// 草稿里填了结论但还在去抖窗口内未落库
	require.NoError(t, s.SaveDraft(context.Background(), iv.ID, &DraftRequest{
		Notes:          "表现不错",
		HiringDecision: workflow.DecisionHire,
	}))

	updated, err := s.Act(context.Background(), iv.ID, &ActionRequest{Action: workflow.ActionFinish, ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusCompleted), updated.Status, "提交前应先刷草稿，结论已填则直接完成")
	assert.Equal(t, "表现不错", repo.interviews[iv.ID].Notes)
}

func TestActFinishWithoutDecision(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusInProgress))

	updated, err := s.Act(context.Background(), iv.ID, &ActionRequest{Action: workflow.ActionFinish, ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusPendingDecision), updated.Status)
	assert.Equal(t, "none", repo.candidates[10].Status, "结束面试后候选人恢复空闲")
}

func TestActGeneratePlanPersists(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusPreparing))

	plan := &types.InterviewPlan{
		Questions:          []types.Question{{Question: "介绍一下GMP模型", Difficulty: types.DifficultyMedium}},
		EvaluationCriteria: []string{"并发编程"},
	}
	_, err := s.Act(context.Background(), iv.ID, &ActionRequest{
		Action: workflow.ActionGeneratePlan, ActorID: 2, Plan: plan,
	})
	require.NoError(t, err)
	assert.Contains(t, string(repo.interviews[iv.ID].QuestionsJSON), "GMP")
	assert.Contains(t, string(repo.interviews[iv.ID].EvaluationCriteriaJSON), "并发编程")

	// 缺少计划时动作应失败
	_, err = s.Act(context.Background(), iv.ID, &ActionRequest{Action: workflow.ActionGeneratePlan, ActorID: 2})
	require.Error(t, err)
}

func TestActHire(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusCompleted))
	repo.interviews[iv.ID].HiringDecision = string(workflow.DecisionHire)

	_, err := s.Act(context.Background(), iv.ID, &ActionRequest{
		Action: workflow.ActionHire, ActorID: 1, TargetJobID: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "hired", repo.candidates[10].Status)
	require.NotNil(t, repo.candidates[10].JobID)
	assert.Equal(t, uint(100), *repo.candidates[10].JobID)
	assert.Equal(t, 1, repo.jobs[100].CurrentHiredCount, "录用后岗位在职人数+1")
}

func TestActResignAdjustsHiredCount(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusCompleted))
	jobID := uint(100)
	repo.candidates[10].Status = "hired"
	repo.candidates[10].JobID = &jobID
	repo.jobs[100].CurrentHiredCount = 1

	_, err := s.Act(context.Background(), iv.ID, &ActionRequest{Action: workflow.ActionResign, ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, "resigned", repo.candidates[10].Status)
	assert.Equal(t, 0, repo.jobs[100].CurrentHiredCount, "离职后岗位在职人数-1")
}

func TestActRehireResignedSameJob(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusCompleted))
	repo.interviews[iv.ID].HiringDecision = string(workflow.DecisionHire)
	jobID := uint(100)
	repo.candidates[10].Status = "resigned"
	repo.candidates[10].JobID = &jobID

	_, err := s.Act(context.Background(), iv.ID, &ActionRequest{
		Action: workflow.ActionHire, ActorID: 1, TargetJobID: 100,
	})
	require.ErrorIs(t, err, workflow.ErrResignedSameJob)

	// 换一个岗位则允许
	_, err = s.Act(context.Background(), iv.ID, &ActionRequest{
		Action: workflow.ActionHire, ActorID: 1, TargetJobID: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "hired", repo.candidates[10].Status)
}

func TestSaveDraftValidation(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusInProgress))

	badScore := 9
	err := s.SaveDraft(context.Background(), iv.ID, &DraftRequest{
		Questions: []types.Question{{Question: "q1", Score: &badScore}},
	})
	require.Error(t, err, "超出范围的评分应被拒绝")

	done := seedInterview(repo, string(workflow.StatusCompleted))
	err = s.SaveDraft(context.Background(), done.ID, &DraftRequest{Notes: "x"})
	require.ErrorIs(t, err, ErrDraftNotEditable)
}

func TestAutoSaveDebounce(t *testing.T) {
	s, repo := newTestService(nil)
	iv := seedInterview(repo, string(workflow.StatusInProgress))

	// 静默窗口内的多次编辑应合并为一次落库
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveDraft(context.Background(), iv.ID, &DraftRequest{
			Notes: fmt.Sprintf("第%d次编辑", i+1),
		}))
	}

	require.Eventually(t, func() bool {
		return repo.saveCalls == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "第3次编辑", repo.interviews[iv.ID].Notes)
}

func TestEvaluate(t *testing.T) {
	evaluator := &fakeEvaluator{evaluation: &types.AIEvaluation{
		TechnicalEvaluation:     "技术扎实",
		ComprehensiveSuggestion: "建议录用",
	}}
	s, repo := newTestService(evaluator)
	iv := seedInterview(repo, string(workflow.StatusInProgress))

	score := 4
	questionsJSON, _ := models.ToJSON([]types.Question{{Question: "介绍GMP", Answer: "讲解了调度器", Score: &score}})
	repo.interviews[iv.ID].QuestionsJSON = questionsJSON

	evaluation, err := s.Evaluate(context.Background(), iv.ID, "整体表现好")
	require.NoError(t, err)
	assert.Equal(t, "技术扎实", evaluation.TechnicalEvaluation)
	assert.Contains(t, string(repo.interviews[iv.ID].AIEvaluationJSON), "建议录用")

	require.NotNil(t, evaluator.lastReq)
	assert.Equal(t, "负责后端服务研发", evaluator.lastReq.JD, "JD应取自关联岗位")
	require.Len(t, evaluator.lastReq.Performances, 1)
	assert.Equal(t, "整体表现好", evaluator.lastReq.OverallNotes)
}

func TestEvaluateStageGate(t *testing.T) {
	s, repo := newTestService(&fakeEvaluator{evaluation: &types.AIEvaluation{}})
	iv := seedInterview(repo, string(workflow.StatusPreparing))

	_, err := s.Evaluate(context.Background(), iv.ID, "")
	require.ErrorIs(t, err, ErrEvaluationStage)
}

func TestEvaluateFailureKeepsPrior(t *testing.T) {
	s, repo := newTestService(&fakeEvaluator{err: fmt.Errorf("模型超时")})
	iv := seedInterview(repo, string(workflow.StatusPendingDecision))
	prior, _ := models.ToJSON(types.AIEvaluation{TechnicalEvaluation: "旧评价"})
	repo.interviews[iv.ID].AIEvaluationJSON = prior

	_, err := s.Evaluate(context.Background(), iv.ID, "")
	require.Error(t, err)
	assert.Contains(t, string(repo.interviews[iv.ID].AIEvaluationJSON), "旧评价", "失败不应覆盖已有评价")
}

func TestNotificationsAdmin(t *testing.T) {
	s, repo := newTestService(nil)
	seedInterview(repo, string(workflow.StatusPending))
	seedInterview(repo, string(workflow.StatusCompleted))

	notifications, err := s.Notifications(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.Contains(t, notifications[0].Content, "李面试官")
}

func TestNotificationsInterviewer(t *testing.T) {
	s, repo := newTestService(nil)
	seedInterview(repo, string(workflow.StatusPending))
	seedInterview(repo, string(workflow.StatusCompleted)) // 非待办，不出现在面试官视图

	notifications, err := s.Notifications(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Content, "王小明")
	assert.Equal(t, "时间待定", notifications[0].Time)
}
