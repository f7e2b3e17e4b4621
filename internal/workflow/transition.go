package workflow

import (
	"errors"
	"fmt"
	"time"
)

// 迁移判定失败的原因。调用方据此决定提示文案，状态机本身不产生任何写操作。
var (
	ErrInvalidTransition  = errors.New("当前状态不允许该操作")
	ErrRoleNotAllowed     = errors.New("当前角色无权执行该操作")
	ErrDecisionRequired   = errors.New("请先填写录用结论")
	ErrDecisionNotHirable = errors.New("该面试结论不支持录用")
	ErrAlreadyHired       = errors.New("候选人已处于录用状态")
	ErrNotHired           = errors.New("候选人不处于录用状态")
	ErrResignedSameJob    = errors.New("候选人已从该岗位离职，不能重新录用到同一岗位")
)

// Actor 执行动作的用户能力描述（显式传入，不从环境态读取）
type Actor struct {
	ID   uint
	Role Role
}

// CandidateView 迁移判定所需的候选人快照
type CandidateView struct {
	Status CandidateStatus
	JobID  *uint // 候选人当前关联的岗位；离职后保留，用于阻止回流到同一岗位
}

// Input 一次迁移判定的全部输入。
// Decision 必须取调用时的内存态结论而非最近一次持久化的值，
// 否则同一会话内未保存的结论编辑会被丢掉。
type Input struct {
	Status      Status
	Action      Action
	Actor       Actor
	Decision    Decision
	Candidate   CandidateView
	TargetJobID uint // ActionHire 的目标岗位ID
	Now         time.Time
}

// Effect 迁移要求的副作用写操作，由编排层依次执行。
// 状态机只声明"要写什么"，不关心怎么写。
type Effect interface {
	effect()
}

// SetCandidateStatus 更新候选人状态
type SetCandidateStatus struct {
	Status CandidateStatus
}

// SetCandidateJob 更新候选人关联的岗位
type SetCandidateJob struct {
	JobID uint
}

// SetInterviewTime 记录面试开始时间
type SetInterviewTime struct {
	At time.Time
}

// PersistPlan 持久化当前面试计划（题目+评分维度）
type PersistPlan struct{}

func (SetCandidateStatus) effect() {}
func (SetCandidateJob) effect()    {}
func (SetInterviewTime) effect()   {}
func (PersistPlan) effect()        {}

// Result 迁移判定结果
type Result struct {
	Next    Status
	Effects []Effect
}

// Transition 纯迁移函数：对 (当前状态, 动作, 角色) 给出下一状态和副作用清单。
// 不合法的组合返回错误且不产生任何效果。
func Transition(in Input) (Result, error) {
	switch in.Action {
	case ActionAccept:
		if err := requireRole(in, RoleInterviewer); err != nil {
			return Result{}, err
		}
		if in.Status != StatusPending {
			return Result{}, transitionErr(in)
		}
		return Result{Next: StatusAccepted}, nil

	case ActionReject:
		if err := requireRole(in, RoleInterviewer); err != nil {
			return Result{}, err
		}
		if in.Status != StatusPending {
			return Result{}, transitionErr(in)
		}
		return Result{Next: StatusRejected}, nil

	case ActionStartPreparing:
		if err := requireRole(in, RoleInterviewer); err != nil {
			return Result{}, err
		}
		if in.Status != StatusAccepted {
			return Result{}, transitionErr(in)
		}
		return Result{Next: StatusPreparing}, nil

	case ActionGeneratePlan:
		if err := requireRole(in, RoleInterviewer); err != nil {
			return Result{}, err
		}
		if in.Status != StatusPreparing {
			return Result{}, transitionErr(in)
		}
		// 生成计划不改变状态，只要求把题目和维度落库
		return Result{Next: StatusPreparing, Effects: []Effect{PersistPlan{}}}, nil

	case ActionStartInterview:
		if err := requireRole(in, RoleInterviewer); err != nil {
			return Result{}, err
		}
		if in.Status != StatusAccepted && in.Status != StatusPreparing {
			return Result{}, transitionErr(in)
		}
		return Result{
			Next: StatusInProgress,
			Effects: []Effect{
				SetCandidateStatus{Status: CandidateInterviewing},
				SetInterviewTime{At: in.Now},
			},
		}, nil

	case ActionFinish:
		if err := requireRole(in, RoleInterviewer); err != nil {
			return Result{}, err
		}
		if in.Status != StatusInProgress {
			return Result{}, transitionErr(in)
		}
		// 数据驱动的分支：结论已填则直接完成，否则进入待评价
		next := StatusPendingDecision
		if in.Decision != DecisionNone {
			next = StatusCompleted
		}
		return Result{
			Next:    next,
			Effects: []Effect{SetCandidateStatus{Status: CandidateNone}},
		}, nil

	case ActionSaveDecision:
		if err := requireRole(in, RoleInterviewer); err != nil {
			return Result{}, err
		}
		if in.Status != StatusPendingDecision {
			return Result{}, transitionErr(in)
		}
		if in.Decision == DecisionNone {
			return Result{}, ErrDecisionRequired
		}
		return Result{
			Next:    StatusCompleted,
			Effects: []Effect{SetCandidateStatus{Status: CandidateNone}},
		}, nil

	case ActionHire:
		if err := requireRole(in, RoleAdmin); err != nil {
			return Result{}, err
		}
		if in.Status != StatusCompleted {
			return Result{}, transitionErr(in)
		}
		if in.Decision != DecisionHire && in.Decision != DecisionPass {
			return Result{}, ErrDecisionNotHirable
		}
		if in.Candidate.Status == CandidateHired {
			return Result{}, ErrAlreadyHired
		}
		// 离职候选人不能回流到离职前的岗位，换岗位则允许
		if in.Candidate.Status == CandidateResigned &&
			in.Candidate.JobID != nil && *in.Candidate.JobID == in.TargetJobID {
			return Result{}, ErrResignedSameJob
		}
		return Result{
			Next: in.Status,
			Effects: []Effect{
				SetCandidateStatus{Status: CandidateHired},
				SetCandidateJob{JobID: in.TargetJobID},
			},
		}, nil

	case ActionResign:
		if err := requireRole(in, RoleAdmin); err != nil {
			return Result{}, err
		}
		if in.Candidate.Status != CandidateHired {
			return Result{}, ErrNotHired
		}
		return Result{
			Next:    in.Status,
			Effects: []Effect{SetCandidateStatus{Status: CandidateResigned}},
		}, nil
	}

	return Result{}, fmt.Errorf("未知的动作 %q: %w", in.Action, ErrInvalidTransition)
}

func requireRole(in Input, want Role) error {
	if in.Actor.Role != want {
		return fmt.Errorf("动作 %q 需要 %s 角色: %w", in.Action, want, ErrRoleNotAllowed)
	}
	return nil
}

func transitionErr(in Input) error {
	return fmt.Errorf("状态 %q 下不允许动作 %q: %w", in.Status, in.Action, ErrInvalidTransition)
}
