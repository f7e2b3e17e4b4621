package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"recruit-agent-go/internal/agent"
	"recruit-agent-go/internal/api/handler"
	"recruit-agent-go/internal/api/router"
	"recruit-agent-go/internal/assistant"
	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/interview"
	"recruit-agent-go/internal/knowledge"
	"recruit-agent-go/internal/llm"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/outbox"
	"recruit-agent-go/internal/parser"
	"recruit-agent-go/internal/processor"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/tracing"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	// 1. 加载配置并初始化日志
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置文件失败")
	}
	logger.Init(cfg.Logger)
	logger.Logger = logger.Logger.With().Str("app", "recruit-agent").Logger()
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	ctx := context.Background()

	// 2. 链路追踪（可选）
	var shutdownTracing func(context.Context) error
	if cfg.Tracing.Enabled {
		shutdownTracing, err = tracing.InitProvider(ctx, tracing.Options{
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化链路追踪失败")
		}
		logger.Info().Str("endpoint", cfg.Tracing.Endpoint).Msg("链路追踪已启用")
	}

	// 3. 存储层
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	if storageManager.RabbitMQ != nil {
		if err := storageManager.RabbitMQ.SetupTopology(); err != nil {
			logger.Fatal().Err(err).Msg("声明RabbitMQ拓扑失败")
		}
	}

	// 4. 按任务创建LLM客户端
	assistantModel, err := llm.NewModelForTask(cfg, "assistant")
	if err != nil {
		logger.Fatal().Err(err).Msg("创建面试助手模型失败")
	}
	agentModel, err := llm.NewModelForTask(cfg, "agent")
	if err != nil {
		logger.Fatal().Err(err).Msg("创建招聘助理模型失败")
	}
	knowledgeModel, err := llm.NewModelForTask(cfg, "knowledge")
	if err != nil {
		logger.Fatal().Err(err).Msg("创建知识库问答模型失败")
	}
	parseModel, err := llm.NewModelForTask(cfg, "resume_parse")
	if err != nil {
		logger.Fatal().Err(err).Msg("创建简历解析模型失败")
	}

	// 5. 业务服务
	mysql := storageManager.MySQL

	assistantSvc := assistant.NewService(assistantModel, mysql, &cfg.Assistant)

	agentMemory := buildAgentMemory(cfg, storageManager)
	agentSvc := agent.NewService(agentModel, agentMemory, &cfg.Agent, mysql, mysql, assistantSvc)

	knowledgeSvc := knowledge.NewService(mysql, knowledgeVectors(storageManager), knowledgeEmbedder(cfg),
		knowledgeModel, buildKnowledgeMemory(storageManager), &cfg.Knowledge)
	if err := knowledgeSvc.EnsureSeedData(ctx); err != nil {
		logger.Warn().Err(err).Msg("初始化知识库种子数据失败")
	}

	autoSaveQuiet := config.GetDuration(cfg.Assistant.AutoSaveQuiet, 2*time.Second)
	interviewSvc := interview.NewService(mysql, assistantSvc, autoSaveQuiet, &cfg.RabbitMQ)

	// 6. 简历入库流水线
	var objects storage.ObjectStorage
	if storageManager.MinIO != nil {
		objects = storageManager.MinIO
	}
	var deduper processor.MD5Deduper
	if storageManager.Redis != nil {
		deduper = storageManager.Redis
	}
	var events processor.EventPublisher
	if storageManager.RabbitMQ != nil {
		events = storageManager.RabbitMQ
	}
	intakeSvc := processor.NewIntakeService(mysql, objects, deduper, events, &cfg.RabbitMQ)

	var stopConsumer chan<- struct{}
	if storageManager.RabbitMQ != nil && objects != nil {
		extractor, err := parser.NewEinoPDFTextExtractor(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化PDF文本提取器失败")
		}
		consumer := processor.NewParseConsumer(mysql, objects, deduper, extractor,
			parser.NewLLMProfileParser(parseModel), &cfg.RabbitMQ)
		stopConsumer, err = consumer.Start(storageManager.RabbitMQ)
		if err != nil {
			logger.Fatal().Err(err).Msg("启动简历解析消费者失败")
		}
		logger.Info().Str("queue", cfg.RabbitMQ.ResumeParsingQueue).Msg("简历解析消费者已启动")
	} else {
		logger.Warn().Msg("对象存储或消息队列未就绪，简历解析流水线未启动")
	}

	// 7. 发件箱中继：面试生命周期事件的异步投递
	var relay *outbox.MessageRelay
	if storageManager.RabbitMQ != nil {
		relay = outbox.NewMessageRelay(mysql.DB(), storageManager.RabbitMQ, &cfg.Outbox)
		relay.Start()
	} else {
		logger.Warn().Msg("消息队列未就绪，发件箱中继未启动")
	}

	// 8. HTTP服务
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(tracer, server.WithHostPorts(cfg.Server.Address))
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, &router.Handlers{
		Interview: handler.NewInterviewHandler(interviewSvc, assistantSvc),
		Candidate: handler.NewCandidateHandler(mysql),
		Job:       handler.NewJobHandler(mysql, assistantSvc),
		User:      handler.NewUserHandler(mysql),
		Knowledge: handler.NewKnowledgeHandler(knowledgeSvc),
		Agent:     handler.NewAgentHandler(agentSvc),
		Resume:    handler.NewResumeHandler(intakeSvc, mysql, objects),
		Dashboard: handler.NewDashboardHandler(interviewSvc),
	})

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务已启动")

	// 9. 等待终止信号后优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP服务器关闭失败")
	}
	if stopConsumer != nil {
		close(stopConsumer)
	}
	if relay != nil {
		relay.Stop()
	}
	// 落掉所有未保存的面试草稿
	if err := interviewSvc.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("刷写面试草稿失败")
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("关闭链路追踪失败")
		}
	}

	logger.Info().Msg("优雅退出完成")
}

// buildAgentMemory 按配置选择招聘助理的会话记忆后端
func buildAgentMemory(cfg *config.Config, s *storage.Storage) agent.ChatMemory {
	if cfg.Agent.MemoryBackend == "redis" && s.Redis != nil {
		ttl := time.Duration(cfg.Agent.SessionTTLHour) * time.Hour
		memory, err := agent.NewRedisChatMemory(s.Redis.Client, constants.KeyAgentHistory, ttl, cfg.Agent.HistoryMaxLen)
		if err == nil {
			return memory
		}
		logger.Warn().Err(err).Msg("创建Redis会话记忆失败，退化为进程内记忆")
	}
	return agent.NewInMemoryChatMemory(cfg.Agent.HistoryMaxLen)
}

// buildKnowledgeMemory 知识库问答的会话记忆，Redis不可用时退化为进程内记忆
func buildKnowledgeMemory(s *storage.Storage) agent.ChatMemory {
	if s.Redis != nil {
		memory, err := agent.NewRedisChatMemory(s.Redis.Client, constants.KeyKnowledgeHistory,
			s.Redis.GetChatHistoryTTL(), s.Redis.GetChatHistoryMaxTurns())
		if err == nil {
			return memory
		}
		logger.Warn().Err(err).Msg("创建知识库会话记忆失败，退化为进程内记忆")
	}
	return agent.NewInMemoryChatMemory(0)
}

// knowledgeVectors 向量库可选，未配置时知识问答退化为关键词检索
func knowledgeVectors(s *storage.Storage) storage.VectorDatabase {
	if s.Qdrant != nil {
		return s.Qdrant
	}
	return nil
}

// knowledgeEmbedder 创建知识向量化的Embedder，失败时返回nil由服务降级
func knowledgeEmbedder(cfg *config.Config) embedding.Embedder {
	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		logger.Warn().Err(err).Msg("创建向量化客户端失败，知识库将不做向量同步")
		return nil
	}
	return embedder
}
