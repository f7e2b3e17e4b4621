package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"recruit-agent-go/internal/agent"
	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
)

const (
	defaultChatTimeout = 60 * time.Second
	defaultTopK        = 3

	greetingAnswer = "你好！我是您的智能 HR 助手，有什么可以帮您的吗？"

	hrSystemPrompt = `你是一个专业的HR知识库助手，负责回答面试官关于招聘、面试和人才评估的问题。
回答要求：
1. 优先基于下方知识库参考内容作答，引用时保持原意。
2. 参考内容没有覆盖的部分，可以结合HR领域常识补充，但要明确说明。
3. 使用中文回答，结构清晰、简洁专业。`
)

// KnowledgeStore 知识库条目的持久化能力
type KnowledgeStore interface {
	CreateKnowledge(ctx context.Context, entry *models.Knowledge) error
	GetKnowledgeByID(ctx context.Context, id uint) (*models.Knowledge, error)
	ListKnowledge(ctx context.Context, category string) ([]models.Knowledge, error)
	SearchKnowledgeByKeyword(ctx context.Context, keyword string, limit int) ([]models.Knowledge, error)
	UpdateKnowledge(ctx context.Context, entry *models.Knowledge) error
	DeleteKnowledge(ctx context.Context, id uint) error
}

// Service 知识库服务：条目维护、向量同步和基于检索的问答。
// 向量库不可用时问答自动退化为MySQL关键词检索。
type Service struct {
	store          KnowledgeStore
	vectors        storage.VectorDatabase
	embedder       embedding.Embedder
	chatModel      model.ToolCallingChatModel
	memory         agent.ChatMemory
	topK           int
	scoreThreshold float64
	chatTimeout    time.Duration
}

// NewService 创建知识库服务。vectors、embedder和memory允许为nil，相应能力降级。
func NewService(store KnowledgeStore, vectors storage.VectorDatabase, embedder embedding.Embedder,
	chatModel model.ToolCallingChatModel, memory agent.ChatMemory, cfg *config.KnowledgeConfig) *Service {

	s := &Service{
		store:       store,
		vectors:     vectors,
		embedder:    embedder,
		chatModel:   chatModel,
		memory:      memory,
		topK:        defaultTopK,
		chatTimeout: defaultChatTimeout,
	}
	if cfg != nil {
		if cfg.RetrieveTopK > 0 {
			s.topK = cfg.RetrieveTopK
		}
		s.scoreThreshold = cfg.ScoreThreshold
		s.chatTimeout = config.GetDuration(cfg.ChatTimeout, defaultChatTimeout)
	}
	if s.memory == nil {
		s.memory = agent.NewInMemoryChatMemory(10)
	}
	return s
}

// ChatAnswer 一次知识库问答的结果
type ChatAnswer struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	SourceIDs []string `json:"source_ids"`
}

// Create 创建知识库条目并同步向量
func (s *Service) Create(ctx context.Context, entry *models.Knowledge) error {
	if entry.Title == "" || entry.Content == "" {
		return fmt.Errorf("知识条目的标题和内容不能为空")
	}
	if err := s.store.CreateKnowledge(ctx, entry); err != nil {
		return fmt.Errorf("创建知识条目失败: %w", err)
	}
	s.syncVector(ctx, entry)
	return nil
}

// Get 获取单个知识库条目
func (s *Service) Get(ctx context.Context, id uint) (*models.Knowledge, error) {
	return s.store.GetKnowledgeByID(ctx, id)
}

// List 列出知识库条目，可按分类过滤
func (s *Service) List(ctx context.Context, category string) ([]models.Knowledge, error) {
	return s.store.ListKnowledge(ctx, category)
}

// Update 更新知识库条目并重建向量
func (s *Service) Update(ctx context.Context, entry *models.Knowledge) error {
	if entry.ID == 0 {
		return fmt.Errorf("更新知识条目需要ID")
	}
	if err := s.store.UpdateKnowledge(ctx, entry); err != nil {
		return fmt.Errorf("更新知识条目失败: %w", err)
	}
	s.syncVector(ctx, entry)
	return nil
}

// Delete 删除知识库条目及其向量
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeleteKnowledge(ctx, id); err != nil {
		return fmt.Errorf("删除知识条目失败: %w", err)
	}
	if s.vectors != nil {
		if err := s.vectors.DeleteKnowledgeVector(ctx, id); err != nil {
			logger.Warn().Err(err).Uint("knowledge_id", id).Msg("删除知识向量失败")
		}
	}
	return nil
}

// GetTip 针对一条知识生成面试官建议
func (s *Service) GetTip(ctx context.Context, title, content string) (string, error) {
	if title == "" && content == "" {
		return "", fmt.Errorf("标题和内容不能都为空")
	}

	ctx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	prompt := fmt.Sprintf("针对以下招聘知识点，为面试官提供一条简短、专业的面试建议。\n知识点标题：%s\n知识点内容：%s", title, content)
	resp, err := s.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("生成面试建议失败: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Chat 基于知识库回答问题。sessionID为空时开启新会话。
func (s *Service) Chat(ctx context.Context, sessionID, question string) (*ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("问题内容不能为空")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// 问候直接回复，不消耗检索和模型调用
	if isGreeting(question) {
		return &ChatAnswer{SessionID: sessionID, Answer: greetingAnswer, SourceIDs: []string{}}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	docs := s.retrieve(ctx, question)
	sourceIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		sourceIDs = append(sourceIDs, d.ID)
	}

	history, err := s.memory.GetHistory(ctx, sessionID)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("读取知识库会话历史失败")
		history = nil
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(hrSystemPrompt+"\n\n"+buildContext(docs)))
	messages = append(messages, history...)
	messages = append(messages, schema.UserMessage(question))

	start := time.Now()
	resp, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("知识库问答失败: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)

	if err := s.memory.AddMessages(ctx, sessionID, []*schema.Message{
		schema.UserMessage(question),
		schema.AssistantMessage(answer, nil),
	}); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("写入知识库会话历史失败")
	}

	logger.Info().
		Str("session_id", sessionID).
		Int("sources", len(sourceIDs)).
		Dur("elapsed", time.Since(start)).
		Msg("知识库问答完成")

	return &ChatAnswer{SessionID: sessionID, Answer: answer, SourceIDs: sourceIDs}, nil
}

// retrievedDoc 一条命中的知识内容
type retrievedDoc struct {
	ID      string
	Title   string
	Content string
}

// retrieve 先走向量检索，不可用或无结果时回退关键词检索
func (s *Service) retrieve(ctx context.Context, question string) []retrievedDoc {
	if docs := s.vectorSearch(ctx, question); len(docs) > 0 {
		return docs
	}

	entries, err := s.store.SearchKnowledgeByKeyword(ctx, question, s.topK)
	if err != nil {
		logger.Warn().Err(err).Msg("知识库关键词检索失败")
		return nil
	}
	docs := make([]retrievedDoc, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, retrievedDoc{
			ID:      fmt.Sprintf("%d", e.ID),
			Title:   e.Title,
			Content: e.Content,
		})
	}
	return docs
}

func (s *Service) vectorSearch(ctx context.Context, question string) []retrievedDoc {
	if s.vectors == nil || s.embedder == nil {
		return nil
	}

	embeddings, err := s.embedder.EmbedStrings(ctx, []string{question})
	if err != nil || len(embeddings) == 0 {
		logger.Warn().Err(err).Msg("问题向量化失败，回退关键词检索")
		return nil
	}

	results, err := s.vectors.SearchKnowledge(ctx, embeddings[0], s.topK, s.scoreThreshold)
	if err != nil {
		logger.Warn().Err(err).Msg("知识向量检索失败，回退关键词检索")
		return nil
	}

	docs := make([]retrievedDoc, 0, len(results))
	for _, r := range results {
		doc := retrievedDoc{
			ID:      payloadString(r.Payload, "knowledge_id"),
			Title:   payloadString(r.Payload, "title"),
			Content: payloadString(r.Payload, "content"),
		}
		if doc.Content == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// syncVector 将条目写入向量库，失败只告警不影响主流程
func (s *Service) syncVector(ctx context.Context, entry *models.Knowledge) {
	if s.vectors == nil || s.embedder == nil {
		return
	}

	text := fmt.Sprintf("标题: %s\n内容: %s", entry.Title, entry.Content)
	embeddings, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil || len(embeddings) == 0 {
		logger.Warn().Err(err).Uint("knowledge_id", entry.ID).Msg("知识条目向量化失败")
		return
	}

	payload := map[string]interface{}{
		"knowledge_id": fmt.Sprintf("%d", entry.ID),
		"title":        entry.Title,
		"category":     entry.Category,
		"content":      entry.Content,
	}
	if _, err := s.vectors.UpsertKnowledgeVector(ctx, entry.ID, embeddings[0], payload); err != nil {
		logger.Warn().Err(err).Uint("knowledge_id", entry.ID).Msg("写入知识向量失败")
	}
}

func buildContext(docs []retrievedDoc) string {
	if len(docs) == 0 {
		return "### 知识库参考内容：\n（未检索到相关内容，请基于HR领域常识回答并说明。）"
	}
	var b strings.Builder
	b.WriteString("### 知识库参考内容：\n")
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "标题: %s\n内容: %s", d.Title, d.Content)
	}
	return b.String()
}

var greetings = map[string]struct{}{
	"你好": {}, "您好": {}, "你好呀": {}, "在吗": {},
	"早上好": {}, "下午好": {}, "晚上好": {},
	"hi": {}, "hello": {}, "hey": {},
}

func isGreeting(question string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(question), "!！。.~"))
	_, ok := greetings[normalized]
	return ok
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
