package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

var mysqlTracer = otel.Tracer("recruit-agent-go/storage/mysql")

// GormTracingPlugin GORM插件，为数据库操作生成OpenTelemetry追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 在GORM操作之前开启span
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 在GORM操作之后结束span并记录结果
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// 未找到记录属于正常业务分支，不作为错误上报
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(
					attribute.String("error.type", "database_error"),
					attribute.String("error.message", db.Error.Error()),
				)
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并完成表结构迁移
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.User{},
		&models.JobDescription{},
		&models.Candidate{},
		&models.Interview{},
		&models.Knowledge{},
		&models.ResumeSubmission{},
		&models.OutboxMessage{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// ---- 面试 ----

// InterviewFilter 面试列表查询条件
type InterviewFilter struct {
	Status        string
	InterviewerID uint
	CandidateID   uint
	Limit         int
	Offset        int
}

// CreateInterview 创建面试记录
func (m *MySQL) CreateInterview(ctx context.Context, interview *models.Interview) error {
	return m.db.WithContext(ctx).Create(interview).Error
}

// GetInterviewByID 获取面试记录及其关联实体
func (m *MySQL) GetInterviewByID(ctx context.Context, id uint) (*models.Interview, error) {
	var interview models.Interview
	err := m.db.WithContext(ctx).
		Preload("Candidate").
		Preload("Interviewer").
		Preload("Job").
		First(&interview, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

// ListInterviews 按条件分页查询面试记录，按最近更新排序
func (m *MySQL) ListInterviews(ctx context.Context, filter InterviewFilter) ([]models.Interview, int64, error) {
	query := m.db.WithContext(ctx).Model(&models.Interview{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InterviewerID != 0 {
		query = query.Where("interviewer_id = ?", filter.InterviewerID)
	}
	if filter.CandidateID != 0 {
		query = query.Where("candidate_id = ?", filter.CandidateID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计面试数量失败: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var interviews []models.Interview
	err := query.Preload("Candidate").Preload("Interviewer").Preload("Job").
		Order("updated_at DESC").
		Find(&interviews).Error
	if err != nil {
		return nil, 0, err
	}
	return interviews, total, nil
}

// FindActiveInterviewByCandidate 查找候选人当前处于非终态的面试记录。
// 同一候选人同一时刻最多允许一条活跃面试，创建前用它做唯一性检查。
func (m *MySQL) FindActiveInterviewByCandidate(ctx context.Context, candidateID uint, activeStatuses []string) (*models.Interview, error) {
	var interview models.Interview
	err := m.db.WithContext(ctx).
		Where("candidate_id = ? AND status IN ?", candidateID, activeStatuses).
		First(&interview).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

// ApplyInterviewTransition 在同一事务中更新面试记录并写入发件箱消息，
// 保证状态变更和事件投递的最终一致
func (m *MySQL) ApplyInterviewTransition(ctx context.Context, id uint, updates map[string]interface{}, outboxMsg *models.OutboxMessage) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Interview{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("更新面试记录失败: %w", err)
			}
		}
		if outboxMsg != nil {
			if err := tx.Create(outboxMsg).Error; err != nil {
				return fmt.Errorf("写入发件箱消息失败: %w", err)
			}
		}
		return nil
	})
}

// UpdateInterviewFields 更新面试记录的多个字段
func (m *MySQL) UpdateInterviewFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Model(&models.Interview{}).Where("id = ?", id).Updates(updates).Error
}

// SaveInterviewDraft 持久化面试草稿：笔记、题目（含评分和笔记）和录用结论
func (m *MySQL) SaveInterviewDraft(ctx context.Context, id uint, notes string, questionsJSON datatypes.JSON, decision string) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveInterviewDraft",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.Int("interview.id", int(id)),
	)

	updates := map[string]interface{}{
		"notes":           notes,
		"questions_json":  questionsJSON,
		"hiring_decision": decision,
	}
	err := m.db.WithContext(ctx).Model(&models.Interview{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// DeleteInterview 删除面试记录
func (m *MySQL) DeleteInterview(ctx context.Context, id uint) error {
	return m.db.WithContext(ctx).Delete(&models.Interview{}, "id = ?", id).Error
}

// ---- 候选人 ----

// CandidateFilter 候选人列表查询条件
type CandidateFilter struct {
	Status   string
	Position string
	Keyword  string
	Limit    int
	Offset   int
}

// CreateCandidate 创建候选人
func (m *MySQL) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	return m.db.WithContext(ctx).Create(candidate).Error
}

// GetCandidateByID 获取候选人
func (m *MySQL) GetCandidateByID(ctx context.Context, id uint) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := m.db.WithContext(ctx).First(&candidate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

// ListCandidates 按条件分页查询候选人
func (m *MySQL) ListCandidates(ctx context.Context, filter CandidateFilter) ([]models.Candidate, int64, error) {
	query := m.db.WithContext(ctx).Model(&models.Candidate{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Position != "" {
		query = query.Where("position = ?", filter.Position)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("name LIKE ? OR summary LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计候选人数量失败: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var candidates []models.Candidate
	if err := query.Order("updated_at DESC").Find(&candidates).Error; err != nil {
		return nil, 0, err
	}
	return candidates, total, nil
}

// UpdateCandidateFields 更新候选人的多个字段
func (m *MySQL) UpdateCandidateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Model(&models.Candidate{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteCandidate 删除候选人
func (m *MySQL) DeleteCandidate(ctx context.Context, id uint) error {
	return m.db.WithContext(ctx).Delete(&models.Candidate{}, "id = ?", id).Error
}

// UpsertCandidateFromProfile 根据简历解析出的画像查找或创建候选人。
// 先按邮箱或电话匹配，命中则更新画像字段，否则创建新记录。
func (m *MySQL) UpsertCandidateFromProfile(ctx context.Context, profile *types.CandidateProfile, resumePath, resumeMD5 string) (*models.Candidate, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.UpsertCandidateFromProfile", trace.WithAttributes(
		attribute.String("candidate.email", profile.Email),
		attribute.String("candidate.phone", profile.Phone),
	))
	defer span.End()

	if profile.Email == "" && profile.Phone == "" {
		err := fmt.Errorf("邮箱和电话至少需要一个")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	skillsJSON, err := models.ToJSON(profile.Skills)
	if err != nil {
		return nil, fmt.Errorf("序列化技能列表失败: %w", err)
	}
	skillTagsJSON, err := models.ToJSON(profile.SkillTags)
	if err != nil {
		return nil, fmt.Errorf("序列化技能标签失败: %w", err)
	}
	experienceJSON, err := models.ToJSON(profile.ExperienceList)
	if err != nil {
		return nil, fmt.Errorf("序列化工作经历失败: %w", err)
	}

	var candidate models.Candidate
	query := m.db.WithContext(ctx).Model(&models.Candidate{})
	switch {
	case profile.Email != "" && profile.Phone != "":
		query = query.Where("email = ?", profile.Email).Or("phone = ?", profile.Phone)
	case profile.Email != "":
		query = query.Where("email = ?", profile.Email)
	default:
		query = query.Where("phone = ?", profile.Phone)
	}

	err = query.First(&candidate).Error
	if err == nil {
		span.SetAttributes(attribute.Bool("candidate.found", true), attribute.Int("candidate.id", int(candidate.ID)))
		updates := map[string]interface{}{
			"name":                profile.Name,
			"education":           profile.Education,
			"education_summary":   profile.EducationSummary,
			"skills_json":         skillsJSON,
			"skill_tags_json":     skillTagsJSON,
			"experience_json":     experienceJSON,
			"summary":             profile.Summary,
			"position":            profile.Position,
			"years_of_experience": profile.YearsOfExperience,
			"resume_path_oss":     resumePath,
			"resume_md5":          resumeMD5,
			"parsing_score":       profile.ParsingScore,
		}
		if updateErr := m.db.WithContext(ctx).Model(&candidate).Updates(updates).Error; updateErr != nil {
			span.RecordError(updateErr)
			span.SetStatus(codes.Error, "failed to update candidate")
			return nil, fmt.Errorf("更新候选人画像失败: %w", updateErr)
		}
		return &candidate, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query candidate")
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}

	span.SetAttributes(attribute.Bool("candidate.found", false))
	newCandidate := &models.Candidate{
		Name:              profile.Name,
		Email:             profile.Email,
		Phone:             profile.Phone,
		Education:         profile.Education,
		EducationSummary:  profile.EducationSummary,
		SkillsJSON:        skillsJSON,
		SkillTagsJSON:     skillTagsJSON,
		ExperienceJSON:    experienceJSON,
		Summary:           profile.Summary,
		Position:          profile.Position,
		YearsOfExperience: profile.YearsOfExperience,
		Status:            "none",
		ResumePathOSS:     resumePath,
		ResumeMD5:         resumeMD5,
		ParsingScore:      profile.ParsingScore,
	}
	if err := m.db.WithContext(ctx).Create(newCandidate).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create candidate")
		return nil, fmt.Errorf("创建新候选人失败: %w", err)
	}

	span.SetAttributes(attribute.Int("candidate.id", int(newCandidate.ID)))
	return newCandidate, nil
}

// ---- 岗位 ----

// CreateJobDescription 创建岗位描述
func (m *MySQL) CreateJobDescription(ctx context.Context, jd *models.JobDescription) error {
	return m.db.WithContext(ctx).Create(jd).Error
}

// GetJobDescriptionByID 获取岗位描述
func (m *MySQL) GetJobDescriptionByID(ctx context.Context, id uint) (*models.JobDescription, error) {
	var jd models.JobDescription
	if err := m.db.WithContext(ctx).First(&jd, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &jd, nil
}

// ListJobDescriptions 查询岗位描述列表
func (m *MySQL) ListJobDescriptions(ctx context.Context, status string) ([]models.JobDescription, error) {
	query := m.db.WithContext(ctx).Model(&models.JobDescription{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var jds []models.JobDescription
	if err := query.Order("updated_at DESC").Find(&jds).Error; err != nil {
		return nil, err
	}
	return jds, nil
}

// SearchJobDescriptions 按关键词在标题和描述中检索岗位。
// 不过滤状态，已停招岗位也返回，由调用方根据状态决定如何呈现
func (m *MySQL) SearchJobDescriptions(ctx context.Context, keyword string, limit int) ([]models.JobDescription, error) {
	if limit <= 0 {
		limit = 10
	}
	query := m.db.WithContext(ctx).Model(&models.JobDescription{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	var jds []models.JobDescription
	if err := query.Order("updated_at DESC").Limit(limit).Find(&jds).Error; err != nil {
		return nil, err
	}
	return jds, nil
}

// AdjustJobHiredCount 增减岗位的在职人数，录用+1、离职-1，下限为0
func (m *MySQL) AdjustJobHiredCount(ctx context.Context, id uint, delta int) error {
	return m.db.WithContext(ctx).Model(&models.JobDescription{}).
		Where("id = ?", id).
		Update("current_hired_count", gorm.Expr("GREATEST(current_hired_count + ?, 0)", delta)).Error
}

// UpdateJobDescription 更新岗位描述
func (m *MySQL) UpdateJobDescription(ctx context.Context, jd *models.JobDescription) error {
	return m.db.WithContext(ctx).Save(jd).Error
}

// DeleteJobDescription 删除岗位描述
func (m *MySQL) DeleteJobDescription(ctx context.Context, id uint) error {
	return m.db.WithContext(ctx).Delete(&models.JobDescription{}, "id = ?", id).Error
}

// ---- 用户 ----

// GetUserByID 获取用户
func (m *MySQL) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := m.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 按用户名获取用户
func (m *MySQL) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := m.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers 查询用户列表，可按角色过滤
func (m *MySQL) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	query := m.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var users []models.User
	if err := query.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser 创建用户
func (m *MySQL) CreateUser(ctx context.Context, user *models.User) error {
	return m.db.WithContext(ctx).Create(user).Error
}

// ---- 知识库 ----

// CreateKnowledge 创建知识库条目
func (m *MySQL) CreateKnowledge(ctx context.Context, entry *models.Knowledge) error {
	return m.db.WithContext(ctx).Create(entry).Error
}

// GetKnowledgeByID 获取知识库条目
func (m *MySQL) GetKnowledgeByID(ctx context.Context, id uint) (*models.Knowledge, error) {
	var entry models.Knowledge
	if err := m.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListKnowledge 查询知识库条目，可按分类过滤
func (m *MySQL) ListKnowledge(ctx context.Context, category string) ([]models.Knowledge, error) {
	query := m.db.WithContext(ctx).Model(&models.Knowledge{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var entries []models.Knowledge
	if err := query.Order("updated_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SearchKnowledgeByKeyword 按关键词在标题和内容中检索知识库条目，
// 作为向量检索不可用时的回退
func (m *MySQL) SearchKnowledgeByKeyword(ctx context.Context, keyword string, limit int) ([]models.Knowledge, error) {
	if limit <= 0 {
		limit = 5
	}
	like := "%" + keyword + "%"
	var entries []models.Knowledge
	err := m.db.WithContext(ctx).
		Where("title LIKE ? OR content LIKE ?", like, like).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateKnowledge 更新知识库条目
func (m *MySQL) UpdateKnowledge(ctx context.Context, entry *models.Knowledge) error {
	return m.db.WithContext(ctx).Save(entry).Error
}

// DeleteKnowledge 删除知识库条目
func (m *MySQL) DeleteKnowledge(ctx context.Context, id uint) error {
	return m.db.WithContext(ctx).Delete(&models.Knowledge{}, "id = ?", id).Error
}

// ---- 简历上传 ----

// CreateResumeSubmission 创建简历上传记录
func (m *MySQL) CreateResumeSubmission(ctx context.Context, submission *models.ResumeSubmission) error {
	return m.db.WithContext(ctx).Create(submission).Error
}

// UpdateSubmissionStatus 更新简历处理状态
func (m *MySQL) UpdateSubmissionStatus(ctx context.Context, submissionUUID string, status string, errorMessage string) error {
	updates := map[string]interface{}{"processing_status": status}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	return m.db.WithContext(ctx).Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).Updates(updates).Error
}

// GetResumeSubmissionByUUID 查询简历处理流水
func (m *MySQL) GetResumeSubmissionByUUID(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error) {
	var submission models.ResumeSubmission
	if err := m.db.WithContext(ctx).First(&submission, "submission_uuid = ?", submissionUUID).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// BindSubmissionCandidate 将简历上传记录关联到候选人
func (m *MySQL) BindSubmissionCandidate(ctx context.Context, submissionUUID string, candidateID uint) error {
	return m.db.WithContext(ctx).Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).Update("candidate_id", candidateID).Error
}

// ---- 发件箱 ----

// EnqueueOutboxMessage 在给定事务中写入发件箱消息，
// 与业务写入保持同一事务以保证最终一致的投递
func (m *MySQL) EnqueueOutboxMessage(tx *gorm.DB, msg *models.OutboxMessage) error {
	db := m.db
	if tx != nil {
		db = tx
	}
	return db.Create(msg).Error
}

// Transaction 在事务中执行回调
func (m *MySQL) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
