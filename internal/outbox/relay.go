package outbox

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 10
	defaultMaxAttempts  = 5
)

// MessageRelay 轮询outbox表并将待投递的消息发布到消息代理。
// 业务写入与消息落库在同一个数据库事务中完成，投递由中继异步进行。
type MessageRelay struct {
	db           *gorm.DB
	publisher    *storage.RabbitMQ
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	done         chan struct{}
	tracer       trace.Tracer
}

// NewMessageRelay 创建消息中继，cfg为nil时使用默认参数
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ, cfg *config.OutboxConfig) *MessageRelay {
	r := &MessageRelay{
		db:           db,
		publisher:    publisher,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		maxAttempts:  defaultMaxAttempts,
		done:         make(chan struct{}),
		tracer:       otel.Tracer("recruit-agent-go/outbox"),
	}
	if cfg != nil {
		r.pollInterval = config.GetDuration(cfg.PollInterval, defaultPollInterval)
		if cfg.BatchSize > 0 {
			r.batchSize = cfg.BatchSize
		}
		if cfg.MaxAttempts > 0 {
			r.maxAttempts = cfg.MaxAttempts
		}
	}
	return r
}

// Start 启动后台轮询
func (r *MessageRelay) Start() {
	logger.Info().
		Dur("poll_interval", r.pollInterval).
		Int("batch_size", r.batchSize).
		Msg("发件箱中继已启动")
	ticker := time.NewTicker(r.pollInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				logger.Info().Msg("发件箱中继已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					logger.Error().Err(err).Msg("处理待投递消息失败")
				}
			}
		}
	}()
}

// Stop 优雅地停止消息中继
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages 获取并处理一批待投递消息。
// FOR UPDATE SKIP LOCKED 跳过已被其他实例锁定的行，支持水平扩展。
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		logger.Error().Err(err).Msg("查询待投递的发件箱消息失败")
		return err
	}

	// 空轮询不创建Span，直接提交
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	logger.Debug().Int("count", len(messages)).Msg("获取到待投递消息")

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true, // 持久化投递
		)

		if err != nil {
			logger.Warn().
				Err(err).
				Uint64("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retry_count", msg.RetryCount+1).
				Msg("发布发件箱消息失败")
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= r.maxAttempts {
				msg.Status = models.OutboxStatusFailed
			}
		} else {
			msg.Status = models.OutboxStatusSent
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 更新失败则整个事务回滚，消息在下一轮被重新拾取
		if err := tx.Save(&msg).Error; err != nil {
			logger.Error().Err(err).Uint64("message_id", msg.ID).Msg("更新发件箱消息状态失败")
			return err
		}
	}

	return tx.Commit().Error
}
