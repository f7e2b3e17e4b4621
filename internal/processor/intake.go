package processor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

// SubmissionStore 简历入库流水线需要的MySQL能力
type SubmissionStore interface {
	CreateResumeSubmission(ctx context.Context, submission *models.ResumeSubmission) error
	UpdateSubmissionStatus(ctx context.Context, submissionUUID string, status string, errorMessage string) error
	BindSubmissionCandidate(ctx context.Context, submissionUUID string, candidateID uint) error
	UpsertCandidateFromProfile(ctx context.Context, profile *types.CandidateProfile, resumePath, resumeMD5 string) (*models.Candidate, error)
}

// ResumeObjectStore 简历文件的对象存储能力
type ResumeObjectStore interface {
	UploadResumeStreaming(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)
}

// MD5Deduper 基于文件MD5的重复上传检测
type MD5Deduper interface {
	CheckAndAddResumeMD5(ctx context.Context, md5Hex string) (bool, error)
	RemoveResumeMD5(ctx context.Context, md5Hex string) error
	BindResumeMD5Candidate(ctx context.Context, md5Hex string, candidateID uint) error
	GetResumeMD5Candidate(ctx context.Context, md5Hex string) (string, error)
}

// EventPublisher 上传事件发布能力
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
}

// IntakeService 简历上传入口：对象存储落盘、MD5去重、登记流水并发布解析事件
type IntakeService struct {
	store    SubmissionStore
	objects  ResumeObjectStore
	deduper  MD5Deduper
	events   EventPublisher
	exchange string
	key      string
}

// NewIntakeService 创建简历上传服务。
// deduper或events为nil时相应能力降级（不去重/不发布，流水停留在待解析状态）。
func NewIntakeService(store SubmissionStore, objects ResumeObjectStore, deduper MD5Deduper,
	events EventPublisher, mqCfg *config.RabbitMQConfig) *IntakeService {

	s := &IntakeService{
		store:   store,
		objects: objects,
		deduper: deduper,
		events:  events,
	}
	if mqCfg != nil {
		s.exchange = mqCfg.ResumeEventsExchange
		s.key = mqCfg.ResumeUploadedKey
	}
	return s
}

// UploadResult 一次上传的受理结果
type UploadResult struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
	CandidateID    uint   `json:"candidate_id,omitempty"` // 重复上传时回填已有候选人
}

// Upload 受理一份简历上传。
// 文件先落对象存储再查重，保证重复判定基于完整文件的MD5。
func (s *IntakeService) Upload(ctx context.Context, originalFilename string, reader io.Reader, fileSize int64) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if !constants.AllowedResumeExtensions[ext] {
		return nil, fmt.Errorf("不支持的文件类型 %q，目前仅支持PDF", ext)
	}
	if fileSize <= 0 || fileSize > constants.MaxResumeUploadBytes {
		return nil, fmt.Errorf("文件大小 %d 超出限制（上限 %d 字节）", fileSize, constants.MaxResumeUploadBytes)
	}

	submissionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成提交UUID失败: %w", err)
	}
	submissionUUID := submissionID.String()

	objectKey, md5Hex, err := s.objects.UploadResumeStreaming(ctx, submissionUUID, ext, reader, fileSize)
	if err != nil {
		return nil, fmt.Errorf("上传简历到对象存储失败: %w", err)
	}

	submission := &models.ResumeSubmission{
		SubmissionUUID:   submissionUUID,
		OriginalFilename: originalFilename,
		FilePathOSS:      objectKey,
		RawFileMD5:       md5Hex,
		ProcessingStatus: models.SubmissionStatusPendingParsing,
	}

	if s.deduper != nil {
		exists, err := s.deduper.CheckAndAddResumeMD5(ctx, md5Hex)
		if err != nil {
			logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("简历MD5查重失败，按非重复继续")
		} else if exists {
			return s.acceptDuplicate(ctx, submission, md5Hex)
		}
	}

	if err := s.store.CreateResumeSubmission(ctx, submission); err != nil {
		s.rollbackMD5(ctx, md5Hex)
		return nil, fmt.Errorf("登记简历流水失败: %w", err)
	}

	if err := s.publishUploaded(ctx, submission); err != nil {
		s.rollbackMD5(ctx, md5Hex)
		if updateErr := s.store.UpdateSubmissionStatus(ctx, submissionUUID, models.SubmissionStatusFailed, err.Error()); updateErr != nil {
			logger.Error().Err(updateErr).Str("submission_uuid", submissionUUID).Msg("标记上传失败状态失败")
		}
		return nil, fmt.Errorf("发布简历解析事件失败: %w", err)
	}

	logger.Info().
		Str("submission_uuid", submissionUUID).
		Str("filename", originalFilename).
		Int64("size", fileSize).
		Msg("简历上传受理成功")

	return &UploadResult{SubmissionUUID: submissionUUID, Status: models.SubmissionStatusPendingParsing}, nil
}

// acceptDuplicate 登记一条重复上传流水，尽量回填已有候选人
func (s *IntakeService) acceptDuplicate(ctx context.Context, submission *models.ResumeSubmission, md5Hex string) (*UploadResult, error) {
	submission.ProcessingStatus = models.SubmissionStatusDuplicate

	var candidateID uint
	if idStr, err := s.deduper.GetResumeMD5Candidate(ctx, md5Hex); err == nil && idStr != "" {
		if parsed, err := strconv.ParseUint(idStr, 10, 64); err == nil {
			candidateID = uint(parsed)
			submission.CandidateID = &candidateID
		}
	}

	if err := s.store.CreateResumeSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("登记重复简历流水失败: %w", err)
	}

	logger.Info().
		Str("submission_uuid", submission.SubmissionUUID).
		Str("md5", md5Hex).
		Uint("candidate_id", candidateID).
		Msg("检测到重复简历上传")

	return &UploadResult{
		SubmissionUUID: submission.SubmissionUUID,
		Status:         models.SubmissionStatusDuplicate,
		CandidateID:    candidateID,
	}, nil
}

func (s *IntakeService) publishUploaded(ctx context.Context, submission *models.ResumeSubmission) error {
	if s.events == nil || s.exchange == "" {
		logger.Warn().Str("submission_uuid", submission.SubmissionUUID).Msg("消息队列未配置，简历停留在待解析状态")
		return nil
	}
	msg := storage.ResumeUploadedMessage{
		SubmissionUUID:   submission.SubmissionUUID,
		OriginalFilename: submission.OriginalFilename,
		FilePathOSS:      submission.FilePathOSS,
		RawFileMD5:       submission.RawFileMD5,
		UploadedAt:       time.Now(),
	}
	return s.events.PublishJSON(ctx, s.exchange, s.key, msg, true)
}

func (s *IntakeService) rollbackMD5(ctx context.Context, md5Hex string) {
	if s.deduper == nil {
		return
	}
	if err := s.deduper.RemoveResumeMD5(ctx, md5Hex); err != nil {
		logger.Warn().Err(err).Str("md5", md5Hex).Msg("回滚简历MD5去重记录失败")
	}
}
