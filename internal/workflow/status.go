package workflow

// Status 面试生命周期状态（封闭枚举）
type Status string

const (
	StatusPending         Status = "pending"          // 待处理：已分配，等待面试官响应
	StatusAccepted        Status = "accepted"         // 已接受
	StatusPreparing       Status = "preparing"        // 准备中：生成/调整面试计划
	StatusRejected        Status = "rejected"         // 已拒绝
	StatusInProgress      Status = "in_progress"      // 面试中
	StatusPendingDecision Status = "pending_decision" // 面试结束，等待录用结论
	StatusCompleted       Status = "completed"        // 已完成
	StatusCancelled       Status = "cancelled"        // 已取消
)

// ActiveStatuses 非终态状态集合；同一候选人同一时刻最多有一条处于其中的面试记录
var ActiveStatuses = []Status{
	StatusPending, StatusAccepted, StatusPreparing, StatusInProgress, StatusPendingDecision,
}

// Valid 判断状态是否属于封闭枚举
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusPreparing, StatusRejected,
		StatusInProgress, StatusPendingDecision, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal 判断是否为终态（完成后记录只读，仅保留查询）
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CandidateStatus 候选人状态，由面试状态迁移的副作用驱动
type CandidateStatus string

const (
	CandidateNone         CandidateStatus = "none"         // 无进行中流程
	CandidateInterviewing CandidateStatus = "interviewing" // 面试中
	CandidateHired        CandidateStatus = "hired"        // 已录用
	CandidateRejected     CandidateStatus = "rejected"     // 已拒绝
	CandidateResigned     CandidateStatus = "resigned"     // 已离职
)

// Role 操作者角色
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleInterviewer Role = "interviewer"
)

// Decision 面试官的录用结论
type Decision string

const (
	DecisionNone   Decision = ""       // 尚未填写
	DecisionHire   Decision = "hire"   // 建议录用
	DecisionPass   Decision = "pass"   // 进入下一轮
	DecisionReject Decision = "reject" // 不建议录用
)

// Valid 判断结论是否合法（空值表示未填写，也视为合法）
func (d Decision) Valid() bool {
	switch d {
	case DecisionNone, DecisionHire, DecisionPass, DecisionReject:
		return true
	}
	return false
}

// Action 用户可触发的生命周期动作
type Action string

const (
	ActionAccept         Action = "accept"          // 面试官接受邀请
	ActionReject         Action = "reject"          // 面试官拒绝邀请
	ActionStartPreparing Action = "start_preparing" // 进入准备阶段
	ActionGeneratePlan   Action = "generate_plan"   // 生成/保存面试计划
	ActionStartInterview Action = "start_interview" // 开始面试
	ActionFinish         Action = "finish"          // 结束面试（是否已填结论决定去向）
	ActionSaveDecision   Action = "save_decision"   // 补填录用结论
	ActionHire           Action = "hire"            // 管理员正式录用（仅改候选人）
	ActionResign         Action = "resign"          // 管理员登记离职（仅改候选人）
)
