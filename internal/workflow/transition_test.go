package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interviewer() Actor { return Actor{ID: 7, Role: RoleInterviewer} }
func admin() Actor       { return Actor{ID: 1, Role: RoleAdmin} }

// TestTransitionTable 覆盖所有合法的 (状态, 动作) 组合及其结果
func TestTransitionTable(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		in          Input
		wantNext    Status
		wantEffects []Effect
	}{
		{
			name:     "待处理状态接受邀请",
			in:       Input{Status: StatusPending, Action: ActionAccept, Actor: interviewer()},
			wantNext: StatusAccepted,
		},
		{
			name:     "待处理状态拒绝邀请",
			in:       Input{Status: StatusPending, Action: ActionReject, Actor: interviewer()},
			wantNext: StatusRejected,
		},
		{
			name:     "已接受状态进入准备",
			in:       Input{Status: StatusAccepted, Action: ActionStartPreparing, Actor: interviewer()},
			wantNext: StatusPreparing,
		},
		{
			name:        "准备中生成计划保持状态不变",
			in:          Input{Status: StatusPreparing, Action: ActionGeneratePlan, Actor: interviewer()},
			wantNext:    StatusPreparing,
			wantEffects: []Effect{PersistPlan{}},
		},
		{
			name:     "已接受状态直接开始面试",
			in:       Input{Status: StatusAccepted, Action: ActionStartInterview, Actor: interviewer(), Now: now},
			wantNext: StatusInProgress,
			wantEffects: []Effect{
				SetCandidateStatus{Status: CandidateInterviewing},
				SetInterviewTime{At: now},
			},
		},
		{
			name:     "准备中开始面试",
			in:       Input{Status: StatusPreparing, Action: ActionStartInterview, Actor: interviewer(), Now: now},
			wantNext: StatusInProgress,
			wantEffects: []Effect{
				SetCandidateStatus{Status: CandidateInterviewing},
				SetInterviewTime{At: now},
			},
		},
		{
			name:        "结束面试且结论已填则直接完成",
			in:          Input{Status: StatusInProgress, Action: ActionFinish, Actor: interviewer(), Decision: DecisionHire},
			wantNext:    StatusCompleted,
			wantEffects: []Effect{SetCandidateStatus{Status: CandidateNone}},
		},
		{
			name:        "结束面试但结论未填则进入待评价",
			in:          Input{Status: StatusInProgress, Action: ActionFinish, Actor: interviewer()},
			wantNext:    StatusPendingDecision,
			wantEffects: []Effect{SetCandidateStatus{Status: CandidateNone}},
		},
		{
			name:        "待评价状态补填结论后完成",
			in:          Input{Status: StatusPendingDecision, Action: ActionSaveDecision, Actor: interviewer(), Decision: DecisionReject},
			wantNext:    StatusCompleted,
			wantEffects: []Effect{SetCandidateStatus{Status: CandidateNone}},
		},
		{
			name: "管理员正式录用",
			in: Input{
				Status: StatusCompleted, Action: ActionHire, Actor: admin(),
				Decision: DecisionHire, TargetJobID: 42,
				Candidate: CandidateView{Status: CandidateNone},
			},
			wantNext: StatusCompleted,
			wantEffects: []Effect{
				SetCandidateStatus{Status: CandidateHired},
				SetCandidateJob{JobID: 42},
			},
		},
		{
			name: "结论为通过也允许录用",
			in: Input{
				Status: StatusCompleted, Action: ActionHire, Actor: admin(),
				Decision: DecisionPass, TargetJobID: 42,
				Candidate: CandidateView{Status: CandidateNone},
			},
			wantNext: StatusCompleted,
			wantEffects: []Effect{
				SetCandidateStatus{Status: CandidateHired},
				SetCandidateJob{JobID: 42},
			},
		},
		{
			name: "离职候选人可以录用到不同岗位",
			in: Input{
				Status: StatusCompleted, Action: ActionHire, Actor: admin(),
				Decision: DecisionHire, TargetJobID: 43,
				Candidate: CandidateView{Status: CandidateResigned, JobID: uintPtr(42)},
			},
			wantNext: StatusCompleted,
			wantEffects: []Effect{
				SetCandidateStatus{Status: CandidateHired},
				SetCandidateJob{JobID: 43},
			},
		},
		{
			name: "管理员登记离职",
			in: Input{
				Status: StatusCompleted, Action: ActionResign, Actor: admin(),
				Candidate: CandidateView{Status: CandidateHired, JobID: uintPtr(42)},
			},
			wantNext:    StatusCompleted,
			wantEffects: []Effect{SetCandidateStatus{Status: CandidateResigned}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNext, got.Next)
			assert.Equal(t, tt.wantEffects, got.Effects)
		})
	}
}

// TestTransitionRejectsInvalid 非法组合必须返回错误且不产生任何效果
func TestTransitionRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{
			name:    "面试中不能再接受邀请",
			in:      Input{Status: StatusInProgress, Action: ActionAccept, Actor: interviewer()},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "已完成的面试不能重新开始",
			in:      Input{Status: StatusCompleted, Action: ActionStartInterview, Actor: interviewer()},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "待处理状态不能直接结束",
			in:      Input{Status: StatusPending, Action: ActionFinish, Actor: interviewer()},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "已取消的面试不能生成计划",
			in:      Input{Status: StatusCancelled, Action: ActionGeneratePlan, Actor: interviewer()},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "补填结论时结论不能为空",
			in:      Input{Status: StatusPendingDecision, Action: ActionSaveDecision, Actor: interviewer()},
			wantErr: ErrDecisionRequired,
		},
		{
			name:    "录用需要管理员角色",
			in:      Input{Status: StatusCompleted, Action: ActionHire, Actor: interviewer(), Decision: DecisionHire},
			wantErr: ErrRoleNotAllowed,
		},
		{
			name:    "登记离职需要管理员角色",
			in:      Input{Status: StatusCompleted, Action: ActionResign, Actor: interviewer()},
			wantErr: ErrRoleNotAllowed,
		},
		{
			name:    "接受邀请需要面试官角色",
			in:      Input{Status: StatusPending, Action: ActionAccept, Actor: admin()},
			wantErr: ErrRoleNotAllowed,
		},
		{
			name: "不建议录用的结论不能录用",
			in: Input{
				Status: StatusCompleted, Action: ActionHire, Actor: admin(),
				Decision: DecisionReject, TargetJobID: 42,
			},
			wantErr: ErrDecisionNotHirable,
		},
		{
			name: "结论未填不能录用",
			in: Input{
				Status: StatusCompleted, Action: ActionHire, Actor: admin(),
				TargetJobID: 42,
			},
			wantErr: ErrDecisionNotHirable,
		},
		{
			name: "已录用的候选人不能重复录用",
			in: Input{
				Status: StatusCompleted, Action: ActionHire, Actor: admin(),
				Decision: DecisionHire, TargetJobID: 42,
				Candidate: CandidateView{Status: CandidateHired, JobID: uintPtr(42)},
			},
			wantErr: ErrAlreadyHired,
		},
		{
			name: "离职候选人不能回流到同一岗位",
			in: Input{
				Status: StatusCompleted, Action: ActionHire, Actor: admin(),
				Decision: DecisionHire, TargetJobID: 42,
				Candidate: CandidateView{Status: CandidateResigned, JobID: uintPtr(42)},
			},
			wantErr: ErrResignedSameJob,
		},
		{
			name: "未录用的候选人不能登记离职",
			in: Input{
				Status: StatusCompleted, Action: ActionResign, Actor: admin(),
				Candidate: CandidateView{Status: CandidateNone},
			},
			wantErr: ErrNotHired,
		},
		{
			name:    "未知动作",
			in:      Input{Status: StatusPending, Action: Action("teleport"), Actor: interviewer()},
			wantErr: ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.in)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, got.Effects)
			assert.Empty(t, got.Next)
		})
	}
}

// TestTransitionPure 相同输入重复调用结果一致
func TestTransitionPure(t *testing.T) {
	in := Input{Status: StatusInProgress, Action: ActionFinish, Actor: interviewer(), Decision: DecisionHire}

	first, err := Transition(in)
	require.NoError(t, err)
	second, err := Transition(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("unknown").Valid())

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusInProgress.Terminal())

	for _, s := range ActiveStatuses {
		assert.False(t, s.Terminal(), "活跃状态 %q 不应是终态", s)
	}
}

func uintPtr(v uint) *uint { return &v }
