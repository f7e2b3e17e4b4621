package types

// 面试题目难度等级（与提示词约定保持一致，直接使用中文标签）
const (
	DifficultyBasic  = "基础"
	DifficultyMedium = "中等"
	DifficultyHard   = "困难"
)

// 题目评分的合法区间
const (
	MinQuestionScore = 1
	MaxQuestionScore = 5
)

// Question 面试计划中的单道题目（内嵌值对象，随Interview整体持久化）
type Question struct {
	Question       string `json:"question"`                  // 题目内容
	Purpose        string `json:"purpose"`                   // 考察目的
	ExpectedAnswer string `json:"expected_answer"`           // 期望回答
	Difficulty     string `json:"difficulty"`                // 难度等级：基础/中等/困难
	Category       string `json:"category"`                  // 考察维度
	Source         string `json:"source"`                    // 出题依据
	Answer         string `json:"answer,omitempty"`          // 候选人回答记录
	Notes          string `json:"notes,omitempty"`           // 面试官针对该题的记录
	Score          *int   `json:"score,omitempty"`           // 面试官评分 (1-5)
}

// Touched 判断该题目是否已被面试官处理过（打分或记录了笔记）
func (q Question) Touched() bool {
	return q.Score != nil || q.Notes != ""
}

// InterviewPlan 一套完整的面试计划
type InterviewPlan struct {
	Questions          []Question `json:"questions"`
	EvaluationCriteria []string   `json:"evaluation_criteria"`
}

// AIEvaluation AI生成的结构化面试评价
type AIEvaluation struct {
	TechnicalEvaluation     string `json:"technical_evaluation"`     // 技术层面评价
	LogicalEvaluation       string `json:"logical_evaluation"`       // 逻辑表达评价
	CommunicationEvaluation string `json:"communication_evaluation"` // 沟通表达评价
	ComprehensiveSuggestion string `json:"comprehensive_suggestion"` // 综合建议
}

// QuestionPerformance 单题的面试表现记录，作为AI评价请求的输入
type QuestionPerformance struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Score    *int   `json:"score,omitempty"`
}
