package knowledge

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/gorm"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
)

// mockChatModel 按顺序返回预置响应并记录请求
type mockChatModel struct {
	responses []string
	calls     int
	lastReq   []*schema.Message
}

func (m *mockChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.lastReq = in
	if m.calls >= len(m.responses) {
		return nil, fmt.Errorf("mock没有更多预置响应")
	}
	resp := m.responses[m.calls]
	m.calls++
	return schema.AssistantMessage(resp, nil), nil
}

func (m *mockChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported in mock")
}

func (m *mockChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// fakeKnowledgeStore 进程内知识库存储
type fakeKnowledgeStore struct {
	entries map[uint]*models.Knowledge
	nextID  uint
}

func newFakeKnowledgeStore() *fakeKnowledgeStore {
	return &fakeKnowledgeStore{entries: map[uint]*models.Knowledge{}, nextID: 1}
}

func (f *fakeKnowledgeStore) CreateKnowledge(_ context.Context, entry *models.Knowledge) error {
	entry.ID = f.nextID
	f.nextID++
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeKnowledgeStore) GetKnowledgeByID(_ context.Context, id uint) (*models.Knowledge, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return entry, nil
}

func (f *fakeKnowledgeStore) ListKnowledge(_ context.Context, category string) ([]models.Knowledge, error) {
	var out []models.Knowledge
	for id := uint(1); id < f.nextID; id++ {
		entry, ok := f.entries[id]
		if !ok {
			continue
		}
		if category != "" && entry.Category != category {
			continue
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (f *fakeKnowledgeStore) SearchKnowledgeByKeyword(_ context.Context, keyword string, limit int) ([]models.Knowledge, error) {
	var out []models.Knowledge
	for id := uint(1); id < f.nextID; id++ {
		entry, ok := f.entries[id]
		if !ok {
			continue
		}
		if keyword == "" || strings.Contains(entry.Title+entry.Content, keyword) {
			out = append(out, *entry)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeKnowledgeStore) UpdateKnowledge(_ context.Context, entry *models.Knowledge) error {
	if _, ok := f.entries[entry.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeKnowledgeStore) DeleteKnowledge(_ context.Context, id uint) error {
	delete(f.entries, id)
	return nil
}

// fakeVectorDB 记录写删操作并返回预置检索结果
type fakeVectorDB struct {
	upserts       map[uint]map[string]interface{}
	deleted       []uint
	searchResults []storage.SearchResult
	searchErr     error
}

func newFakeVectorDB() *fakeVectorDB {
	return &fakeVectorDB{upserts: map[uint]map[string]interface{}{}}
}

func (f *fakeVectorDB) UpsertKnowledgeVector(_ context.Context, knowledgeID uint, _ []float64, payload map[string]interface{}) (string, error) {
	f.upserts[knowledgeID] = payload
	return fmt.Sprintf("point-%d", knowledgeID), nil
}

func (f *fakeVectorDB) DeleteKnowledgeVector(_ context.Context, knowledgeID uint) error {
	f.deleted = append(f.deleted, knowledgeID)
	return nil
}

func (f *fakeVectorDB) SearchKnowledge(_ context.Context, _ []float64, _ int, _ float64) ([]storage.SearchResult, error) {
	return f.searchResults, f.searchErr
}

// fakeEmbedder 返回固定向量
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

func newTestService(chatModel *mockChatModel, vectors *fakeVectorDB) (*Service, *fakeKnowledgeStore) {
	store := newFakeKnowledgeStore()
	var vdb storage.VectorDatabase
	if vectors != nil {
		vdb = vectors
	}
	s := NewService(store, vdb, &fakeEmbedder{}, chatModel, nil, &config.KnowledgeConfig{
		RetrieveTopK:   3,
		ScoreThreshold: 0.3,
		ChatTimeout:    "5s",
	})
	return s, store
}

func TestCreateSyncsVector(t *testing.T) {
	vectors := newFakeVectorDB()
	s, _ := newTestService(&mockChatModel{}, vectors)

	entry := &models.Knowledge{Title: "薪酬谈判要点", Content: "先了解市场分位值再出价。", Category: "通用标准"}
	require.NoError(t, s.Create(context.Background(), entry))
	require.NotZero(t, entry.ID)

	payload, ok := vectors.upserts[entry.ID]
	require.True(t, ok, "创建后应写入向量")
	assert.Equal(t, "薪酬谈判要点", payload["title"])
	assert.Equal(t, fmt.Sprintf("%d", entry.ID), payload["knowledge_id"])
}

func TestCreateRejectsEmpty(t *testing.T) {
	s, _ := newTestService(&mockChatModel{}, nil)
	err := s.Create(context.Background(), &models.Knowledge{Title: "只有标题"})
	require.Error(t, err)
}

func TestDeleteRemovesVector(t *testing.T) {
	vectors := newFakeVectorDB()
	s, _ := newTestService(&mockChatModel{}, vectors)

	entry := &models.Knowledge{Title: "t", Content: "c"}
	require.NoError(t, s.Create(context.Background(), entry))
	require.NoError(t, s.Delete(context.Background(), entry.ID))
	assert.Contains(t, vectors.deleted, entry.ID)
}

func TestEnsureSeedData(t *testing.T) {
	s, store := newTestService(&mockChatModel{}, nil)

	require.NoError(t, s.EnsureSeedData(context.Background()))
	entries, err := store.ListKnowledge(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// 再次调用不应重复写入
	require.NoError(t, s.EnsureSeedData(context.Background()))
	entries, err = store.ListKnowledge(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestChatGreetingShortCircuit(t *testing.T) {
	chat := &mockChatModel{}
	s, _ := newTestService(chat, nil)

	answer, err := s.Chat(context.Background(), "", "你好")
	require.NoError(t, err)
	assert.Contains(t, answer.Answer, "HR 助手")
	assert.Empty(t, answer.SourceIDs)
	assert.Zero(t, chat.calls, "问候不应调用模型")
	assert.NotEmpty(t, answer.SessionID)
}

func TestChatWithVectorRetrieval(t *testing.T) {
	vectors := newFakeVectorDB()
	vectors.searchResults = []storage.SearchResult{{
		ID:    "point-1",
		Score: 0.9,
		Payload: map[string]interface{}{
			"knowledge_id": "1",
			"title":        "行为面试 (STAR原则) 评价标准",
			"content":      "S T A R 四要素。",
		},
	}}
	chat := &mockChatModel{responses: []string{"STAR原则指情境、任务、行动、结果四要素。"}}
	s, _ := newTestService(chat, vectors)

	answer, err := s.Chat(context.Background(), "session-1", "STAR原则是什么")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, answer.SourceIDs)
	assert.Contains(t, answer.Answer, "STAR")

	// 系统消息应携带检索到的参考内容
	require.NotEmpty(t, chat.lastReq)
	assert.Equal(t, schema.System, chat.lastReq[0].Role)
	assert.Contains(t, chat.lastReq[0].Content, "知识库参考内容")
	assert.Contains(t, chat.lastReq[0].Content, "STAR原则")
}

func TestChatFallsBackToKeywordSearch(t *testing.T) {
	vectors := newFakeVectorDB()
	vectors.searchErr = fmt.Errorf("向量库不可用")
	chat := &mockChatModel{responses: []string{"JVM调优建议。"}}
	s, store := newTestService(chat, vectors)

	require.NoError(t, store.CreateKnowledge(context.Background(), &models.Knowledge{
		Title: "JVM调优", Content: "G1与ZGC的选择。",
	}))

	answer, err := s.Chat(context.Background(), "session-1", "JVM调优")
	require.NoError(t, err)
	require.Len(t, answer.SourceIDs, 1)
	assert.Contains(t, chat.lastReq[0].Content, "G1与ZGC")
}

func TestChatKeepsHistory(t *testing.T) {
	chat := &mockChatModel{responses: []string{"第一轮回答。", "第二轮回答。"}}
	s, _ := newTestService(chat, nil)

	first, err := s.Chat(context.Background(), "", "招聘流程有哪些环节")
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), first.SessionID, "第二个环节具体怎么做")
	require.NoError(t, err)

	// 第二轮请求应包含第一轮的问答历史
	require.Len(t, chat.lastReq, 4)
	assert.Equal(t, "招聘流程有哪些环节", chat.lastReq[1].Content)
	assert.Equal(t, "第一轮回答。", chat.lastReq[2].Content)
	assert.Equal(t, "第二个环节具体怎么做", chat.lastReq[3].Content)
}

func TestChatEmptyQuestion(t *testing.T) {
	s, _ := newTestService(&mockChatModel{}, nil)
	_, err := s.Chat(context.Background(), "", "  ")
	require.Error(t, err)
}

func TestGetTip(t *testing.T) {
	chat := &mockChatModel{responses: []string{"建议追问候选人在项目中的具体角色。"}}
	s, _ := newTestService(chat, nil)

	tip, err := s.GetTip(context.Background(), "行为面试", "STAR原则四要素。")
	require.NoError(t, err)
	assert.Contains(t, tip, "追问")
	require.Len(t, chat.lastReq, 1)
	assert.Contains(t, chat.lastReq[0].Content, "行为面试")

	_, err = s.GetTip(context.Background(), "", "")
	require.Error(t, err)
}
