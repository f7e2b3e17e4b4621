package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User 系统用户表，角色为 admin 或 interviewer
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string    `gorm:"type:varchar(100);uniqueIndex:idx_users_username_unique;not null" json:"username"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Email      string    `gorm:"type:varchar(255)" json:"email"`
	Department string    `gorm:"type:varchar(255)" json:"department"`
	Role       string    `gorm:"type:varchar(50);not null;index:idx_users_role" json:"role"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// JobDescription 岗位描述表。
// CurrentHiredCount 随录用/离职副作用增减，RequirementCount 为招聘名额。
type JobDescription struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title             string    `gorm:"type:varchar(255);not null" json:"title"`
	Department        string    `gorm:"type:varchar(255)" json:"department"`
	Location          string    `gorm:"type:varchar(255)" json:"location"`
	Category          string    `gorm:"type:varchar(100);index:idx_jd_category" json:"category"`
	Description       string    `gorm:"type:text;not null" json:"description"`
	RequirementCount  int       `gorm:"type:int;default:0" json:"requirement_count"`
	CurrentHiredCount int       `gorm:"type:int;default:0" json:"current_hired_count"`
	Status            string    `gorm:"type:varchar(50);default:'active';index:idx_jd_status" json:"status"`
	CloseReason       string    `gorm:"type:varchar(255)" json:"close_reason,omitempty"`
	CreatedAt         time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt         time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (JobDescription) TableName() string {
	return "job_descriptions"
}

// Candidate 候选人主表。
// Status 由面试生命周期迁移的副作用驱动；JobID 在离职后保留，
// 用于阻止重新录用到同一岗位。
type Candidate struct {
	ID                uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Email             string         `gorm:"type:varchar(255);index:idx_candidates_email" json:"email"`
	Phone             string         `gorm:"type:varchar(50)" json:"phone"`
	Education         string         `gorm:"type:varchar(255)" json:"education"`
	EducationSummary  string         `gorm:"type:text" json:"education_summary"`
	SkillsJSON        datatypes.JSON `gorm:"type:json" json:"skills"` // []string
	SkillTagsJSON     datatypes.JSON `gorm:"type:json" json:"skill_tags"` // []string
	ExperienceJSON    datatypes.JSON `gorm:"type:json" json:"experience"` // []string
	Summary           string         `gorm:"type:text" json:"summary"`
	Position          string         `gorm:"type:varchar(100);index:idx_candidates_position" json:"position"`
	YearsOfExperience float64        `gorm:"type:float" json:"years_of_experience"`
	Status            string         `gorm:"type:varchar(50);default:'none';index:idx_candidates_status" json:"status"`
	JobID             *uint          `gorm:"index:idx_candidates_job_id" json:"job_id,omitempty"`
	ResumePathOSS     string         `gorm:"type:varchar(1024)" json:"resume_path_oss"`
	ResumeMD5         string         `gorm:"type:char(32);index:idx_candidates_resume_md5" json:"resume_md5"`
	ParsingScore      int            `gorm:"type:int;default:0" json:"parsing_score"`
	CreatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`

	Job *JobDescription `gorm:"foreignKey:JobID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"job,omitempty"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Interview 面试记录表。
// QuestionsJSON 内嵌每道题的评分和笔记，EvaluationCriteriaJSON 为维度列表，
// AIEvaluationJSON 为AI评价的四个段落。
type Interview struct {
	ID                     uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CandidateID            uint           `gorm:"not null;index:idx_interviews_candidate_id" json:"candidate_id"`
	InterviewerID          uint           `gorm:"not null;index:idx_interviews_interviewer_id" json:"interviewer_id"`
	JobID                  *uint          `gorm:"index:idx_interviews_job_id" json:"job_id,omitempty"`
	Status                 string         `gorm:"type:varchar(50);default:'pending';index:idx_interviews_status" json:"status"`
	HiringDecision         string         `gorm:"type:varchar(50);default:''" json:"hiring_decision,omitempty"`
	Notes                  string         `gorm:"type:text" json:"notes"`
	QuestionsJSON          datatypes.JSON `gorm:"type:json" json:"questions"` // []types.Question
	EvaluationCriteriaJSON datatypes.JSON `gorm:"type:json" json:"evaluation_criteria"` // []string
	AIEvaluationJSON       datatypes.JSON `gorm:"type:json" json:"ai_evaluation"` // types.AIEvaluation
	InterviewTime          *time.Time     `gorm:"type:datetime(6)" json:"interview_time,omitempty"`
	CreatedAt              time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime;index:idx_interviews_updated_at" json:"updated_at"`

	Candidate   *Candidate      `gorm:"foreignKey:CandidateID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"candidate,omitempty"`
	Interviewer *User           `gorm:"foreignKey:InterviewerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"interviewer,omitempty"`
	Job         *JobDescription `gorm:"foreignKey:JobID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"job,omitempty"`
}

func (Interview) TableName() string {
	return "interviews"
}

// Knowledge 知识库条目表
type Knowledge struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Category  string         `gorm:"type:varchar(100);index:idx_knowledge_category" json:"category"`
	TagsJSON  datatypes.JSON `gorm:"type:json" json:"tags"` // []string
	CreatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (Knowledge) TableName() string {
	return "knowledge_entries"
}

// ResumeSubmission 简历上传记录表，跟踪入库流水线的处理进度
type ResumeSubmission struct {
	SubmissionUUID   string    `gorm:"type:char(36);primaryKey" json:"submission_uuid"`
	CandidateID      *uint     `gorm:"index:idx_rs_candidate_id" json:"candidate_id,omitempty"`
	OriginalFilename string    `gorm:"type:varchar(255)" json:"original_filename"`
	FilePathOSS      string    `gorm:"type:varchar(1024)" json:"file_path_oss"`
	RawFileMD5       string    `gorm:"type:char(32);index:idx_rs_raw_file_md5" json:"raw_file_md5"`
	ProcessingStatus string    `gorm:"type:varchar(50);default:'PENDING_PARSING';index:idx_rs_processing_status" json:"processing_status"`
	ErrorMessage     string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"candidate,omitempty"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// 简历处理状态
const (
	SubmissionStatusPendingParsing = "PENDING_PARSING"
	SubmissionStatusParsing        = "PARSING"
	SubmissionStatusCompleted      = "COMPLETED"
	SubmissionStatusFailed         = "FAILED"
	SubmissionStatusDuplicate      = "DUPLICATE"
)

// StringToJSON 将字符串直接作为JSON列值
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// ToJSON 将任意可序列化值转换为JSON列值
func ToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
