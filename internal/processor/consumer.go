package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

const defaultProcessTimeout = 5 * time.Minute

// TextExtractor 简历文件的文本提取能力
type TextExtractor interface {
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)
}

// ProfileParser 简历文本的结构化解析能力
type ProfileParser interface {
	ParseProfile(ctx context.Context, text string) (*types.CandidateProfile, error)
}

// ParseConsumer 简历解析消费者：取文件、抽文本、LLM解析画像并落库
type ParseConsumer struct {
	store          SubmissionStore
	objects        ResumeObjectStore
	deduper        MD5Deduper
	extractor      TextExtractor
	profiles       ProfileParser
	queue          string
	prefetch       int
	processTimeout time.Duration
}

// NewParseConsumer 创建简历解析消费者
func NewParseConsumer(store SubmissionStore, objects ResumeObjectStore, deduper MD5Deduper,
	extractor TextExtractor, profiles ProfileParser, mqCfg *config.RabbitMQConfig) *ParseConsumer {

	c := &ParseConsumer{
		store:          store,
		objects:        objects,
		deduper:        deduper,
		extractor:      extractor,
		profiles:       profiles,
		prefetch:       10,
		processTimeout: defaultProcessTimeout,
	}
	if mqCfg != nil {
		c.queue = mqCfg.ResumeParsingQueue
		if mqCfg.PrefetchCount > 0 {
			c.prefetch = mqCfg.PrefetchCount
		}
	}
	return c
}

// Start 在RabbitMQ上启动消费循环，返回停止信号通道
func (c *ParseConsumer) Start(rabbit *storage.RabbitMQ) (chan<- struct{}, error) {
	if rabbit == nil {
		return nil, fmt.Errorf("RabbitMQ客户端不能为空")
	}
	if c.queue == "" {
		return nil, fmt.Errorf("简历解析队列未配置")
	}
	return rabbit.StartConsumer(c.queue, c.prefetch, c.HandleMessage)
}

// HandleMessage 处理一条上传事件。
// 业务失败会记录到流水后确认消息，只有无法解码的消息直接丢弃。
func (c *ParseConsumer) HandleMessage(data []byte) bool {
	var msg storage.ResumeUploadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Warn().Err(err).Msg("简历上传事件解码失败，丢弃消息")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.processTimeout)
	defer cancel()

	if err := c.process(ctx, &msg); err != nil {
		logger.Error().Err(err).Str("submission_uuid", msg.SubmissionUUID).Msg("简历解析失败")
		c.markFailed(ctx, &msg, err)
	}
	return true
}

// process 执行一份简历的完整解析流程
func (c *ParseConsumer) process(ctx context.Context, msg *storage.ResumeUploadedMessage) error {
	start := time.Now()

	if err := c.store.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, models.SubmissionStatusParsing, ""); err != nil {
		return fmt.Errorf("标记解析中状态失败: %w", err)
	}

	fileBytes, err := c.objects.GetResumeFile(ctx, msg.FilePathOSS)
	if err != nil {
		return fmt.Errorf("下载简历文件失败: %w", err)
	}

	text, _, err := c.extractor.ExtractTextFromBytes(ctx, fileBytes, msg.FilePathOSS)
	if err != nil {
		return fmt.Errorf("提取简历文本失败: %w", err)
	}

	profile, err := c.profiles.ParseProfile(ctx, text)
	if err != nil {
		return fmt.Errorf("解析候选人画像失败: %w", err)
	}

	candidate, err := c.store.UpsertCandidateFromProfile(ctx, profile, msg.FilePathOSS, msg.RawFileMD5)
	if err != nil {
		return fmt.Errorf("写入候选人失败: %w", err)
	}

	if err := c.store.BindSubmissionCandidate(ctx, msg.SubmissionUUID, candidate.ID); err != nil {
		return fmt.Errorf("绑定流水与候选人失败: %w", err)
	}
	if err := c.store.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, models.SubmissionStatusCompleted, ""); err != nil {
		return fmt.Errorf("标记解析完成状态失败: %w", err)
	}

	// 登记MD5到候选人的映射，后续重复上传可以直接回填
	if c.deduper != nil && msg.RawFileMD5 != "" {
		if err := c.deduper.BindResumeMD5Candidate(ctx, msg.RawFileMD5, candidate.ID); err != nil {
			logger.Warn().Err(err).Str("md5", msg.RawFileMD5).Msg("登记MD5候选人映射失败")
		}
	}

	logger.Info().
		Str("submission_uuid", msg.SubmissionUUID).
		Uint("candidate_id", candidate.ID).
		Str("candidate_name", profile.Name).
		Dur("elapsed", time.Since(start)).
		Msg("简历解析完成")

	return nil
}

// markFailed 记录失败状态并释放MD5去重记录，允许用户修复后重新上传
func (c *ParseConsumer) markFailed(ctx context.Context, msg *storage.ResumeUploadedMessage, cause error) {
	if err := c.store.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, models.SubmissionStatusFailed, cause.Error()); err != nil {
		logger.Error().Err(err).Str("submission_uuid", msg.SubmissionUUID).Msg("标记解析失败状态失败")
	}
	if c.deduper != nil && msg.RawFileMD5 != "" {
		if err := c.deduper.RemoveResumeMD5(ctx, msg.RawFileMD5); err != nil {
			logger.Warn().Err(err).Str("md5", msg.RawFileMD5).Msg("回滚简历MD5去重记录失败")
		}
	}
}
