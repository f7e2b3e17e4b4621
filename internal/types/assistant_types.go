package types

// PlanGenerateRequest 智能生成面试计划的请求
type PlanGenerateRequest struct {
	CandidateID            uint           `json:"candidate_id"`
	JD                     string         `json:"jd"`
	Count                  int            `json:"count"`                             // 生成题目总数，默认5
	DifficultyDistribution map[string]int `json:"difficulty_distribution,omitempty"` // 如 {"基础": 2, "中等": 2, "困难": 1}
	Feedback               string         `json:"feedback,omitempty"`                // 重新生成的反馈原因
	ExcludeQuestions       []string       `json:"exclude_questions,omitempty"`       // 需要排除的已有题目，避免重复
}

// PlanGenerateResponse 面试计划生成结果
type PlanGenerateResponse struct {
	Questions          []Question `json:"questions"`
	EvaluationCriteria []string   `json:"evaluation_criteria"`
}

// QuestionRegenerateRequest 单题重新生成的请求
type QuestionRegenerateRequest struct {
	CandidateID      uint     `json:"candidate_id"`
	JD               string   `json:"jd"`
	OldQuestion      string   `json:"old_question"`                // 要替换的原题目内容
	Feedback         string   `json:"feedback,omitempty"`          // 针对这道题的修改要求
	ExcludeQuestions []string `json:"exclude_questions,omitempty"` // 需要排除的所有已有题目
	Difficulty       string   `json:"difficulty,omitempty"`        // 指定难度等级
}

// ManualQuestionCompleteRequest 手动录入题目后补充元数据的请求
type ManualQuestionCompleteRequest struct {
	CandidateID uint   `json:"candidate_id"`
	JD          string `json:"jd"`
	Question    string `json:"question"` // 用户手动输入的问题内容
}

// CriteriaRefreshRequest 根据最新题目列表刷新评分维度的请求
type CriteriaRefreshRequest struct {
	CandidateID uint     `json:"candidate_id"`
	JD          string   `json:"jd"`
	Questions   []string `json:"questions"` // 当前的面试题目列表
}

// CriteriaRefreshResponse 评分维度刷新结果
type CriteriaRefreshResponse struct {
	EvaluationCriteria []string `json:"evaluation_criteria"`
}

// EvaluationRequest AI面试评价的请求
type EvaluationRequest struct {
	CandidateID  uint                  `json:"candidate_id"`
	JD           string                `json:"jd"`
	Performances []QuestionPerformance `json:"performances"`
	OverallNotes string                `json:"overall_notes,omitempty"`
}

// JDSmartGenerateRequest 智能生成岗位描述的请求
type JDSmartGenerateRequest struct {
	Title    string `json:"title"`
	Keywords string `json:"keywords,omitempty"` // 岗位关键词或一句话要求
}

// JDSmartGenerateResponse 智能生成岗位描述的结果
type JDSmartGenerateResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CandidateProfile LLM从简历文本中解析出的候选人画像
type CandidateProfile struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	Education         string   `json:"education"`
	EducationSummary  string   `json:"education_summary"`
	Skills            []string `json:"skills"`
	SkillTags         []string `json:"skill_tags"`
	ExperienceList    []string `json:"experience_list"`
	Summary           string   `json:"summary"`
	Position          string   `json:"position"`            // 职位分类，如：研发、算法、财务
	YearsOfExperience float64  `json:"years_of_experience"` // 工作年限
	ParsingScore      int      `json:"parsing_score"`       // 简历解析完整度评分 0-100
}
