package storage_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/storage"
)

func newQdrantStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func existingCollectionResponse(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"result": {"config": {"params": {"vectors": {"size": 1024, "distance": "Cosine"}}}}}`))
}

// TestQdrant_NewQdrant 测试Qdrant客户端初始化
func TestQdrant_NewQdrant(t *testing.T) {
	server := newQdrantStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_collection" && r.Method == "GET" {
			existingCollectionResponse(w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_collection",
		Dimension:  1024,
	}

	client, err := storage.NewQdrant(cfg,
		storage.WithDistanceMetric("Cosine"),
		storage.WithHTTPTimeout(5*time.Second))

	require.NoError(t, err, "应该成功创建Qdrant客户端")
	require.NotNil(t, client, "客户端不应为nil")
}

// TestQdrant_NewQdrant_CreatesMissingCollection 集合不存在时应自动创建
func TestQdrant_NewQdrant_CreatesMissingCollection(t *testing.T) {
	created := false
	server := newQdrantStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_collection" && r.Method == "GET" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Path == "/collections/test_collection" && r.Method == "PUT" {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			vectors := body["vectors"].(map[string]interface{})
			assert.Equal(t, float64(1024), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
			created = true
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": true, "status": "ok"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_collection",
		Dimension:  1024,
	}

	_, err := storage.NewQdrant(cfg)
	require.NoError(t, err)
	assert.True(t, created, "应发送创建集合请求")
}

// TestQdrant_UpsertKnowledgeVector 测试写入知识向量
func TestQdrant_UpsertKnowledgeVector(t *testing.T) {
	var upserted struct {
		Points []struct {
			ID      string                 `json:"id"`
			Vector  []float64              `json:"vector"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"points"`
	}
	server := newQdrantStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_collection" && r.Method == "GET" {
			existingCollectionResponse(w)
			return
		}
		if r.URL.Path == "/collections/test_collection/points" && r.Method == "PUT" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"operation_id": 1, "status": "completed"}, "status": "ok", "time": 0.001}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_collection",
		Dimension:  1024,
	}
	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	embedding := make([]float64, 1024)
	for i := range embedding {
		embedding[i] = float64(i) / 1024.0
	}

	pointID, err := client.UpsertKnowledgeVector(context.Background(), 42, embedding, map[string]interface{}{
		"title":    "STAR法则",
		"category": "面试技巧",
	})
	require.NoError(t, err, "写入向量应成功")
	assert.Equal(t, storage.KnowledgePointID(42), pointID, "点ID应由知识ID确定性生成")

	require.Len(t, upserted.Points, 1)
	assert.Equal(t, pointID, upserted.Points[0].ID)
	assert.Equal(t, "STAR法则", upserted.Points[0].Payload["title"])
	assert.Equal(t, float64(42), upserted.Points[0].Payload["knowledge_id"])

	// 同一知识ID重复写入应得到同一个点ID
	pointID2, err := client.UpsertKnowledgeVector(context.Background(), 42, embedding, nil)
	require.NoError(t, err)
	assert.Equal(t, pointID, pointID2)
}

// TestQdrant_UpsertKnowledgeVector_DimensionMismatch 向量维度不匹配应报错
func TestQdrant_UpsertKnowledgeVector_DimensionMismatch(t *testing.T) {
	server := newQdrantStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_collection" && r.Method == "GET" {
			existingCollectionResponse(w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_collection",
		Dimension:  1024,
	}
	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	_, err = client.UpsertKnowledgeVector(context.Background(), 1, make([]float64, 8), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "维度")
}

// TestQdrant_SearchKnowledge 测试向量搜索
func TestQdrant_SearchKnowledge(t *testing.T) {
	var searchReq map[string]interface{}
	server := newQdrantStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_collection" && r.Method == "GET" {
			existingCollectionResponse(w)
			return
		}
		if r.URL.Path == "/collections/test_collection/points/search" && r.Method == "POST" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&searchReq))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": [
					{
						"id": "point-1",
						"score": 0.92,
						"payload": {"knowledge_id": 7, "title": "行为面试提问技巧", "category": "面试技巧"}
					}
				],
				"status": "ok",
				"time": 0.001
			}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_collection",
		Dimension:  1024,
	}
	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	queryVector := make([]float64, 1024)
	for i := range queryVector {
		queryVector[i] = float64(i) / 1024.0
	}

	results, err := client.SearchKnowledge(context.Background(), queryVector, 5, 0.6)
	require.NoError(t, err, "向量搜索应成功")
	require.Len(t, results, 1)
	assert.Equal(t, "point-1", results[0].ID)
	assert.InDelta(t, 0.92, float64(results[0].Score), 0.01)
	assert.Equal(t, "行为面试提问技巧", results[0].Payload["title"])

	assert.Equal(t, float64(5), searchReq["limit"])
	assert.Equal(t, 0.6, searchReq["score_threshold"])
}

// TestQdrant_DeleteKnowledgeVector 测试删除知识向量
func TestQdrant_DeleteKnowledgeVector(t *testing.T) {
	var deleteReq struct {
		Points []string `json:"points"`
	}
	server := newQdrantStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_collection" && r.Method == "GET" {
			existingCollectionResponse(w)
			return
		}
		if r.URL.Path == "/collections/test_collection/points/delete" && r.Method == "POST" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&deleteReq))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"status": "completed"}, "status": "ok", "time": 0.001}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_collection",
		Dimension:  1024,
	}
	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	require.NoError(t, client.DeleteKnowledgeVector(context.Background(), 7))
	require.Len(t, deleteReq.Points, 1)
	assert.Equal(t, storage.KnowledgePointID(7), deleteReq.Points[0])
}
