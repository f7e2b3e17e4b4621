package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-agent-go/internal/config"
)

func TestNewAliyunEmbedder(t *testing.T) {
	_, err := NewAliyunEmbedder("", config.EmbeddingConfig{})
	require.Error(t, err, "缺少API密钥应报错")

	embedder, err := NewAliyunEmbedder("test-key", config.EmbeddingConfig{Dimensions: 1024})
	require.NoError(t, err)
	assert.Equal(t, 1024, embedder.GetDimensions())
}

func TestEmbedStrings(t *testing.T) {
	var gotReq aliyunEmbeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "embedding": [0.1, 0.2, 0.3], "index": 0},
				{"object": "embedding", "embedding": [0.4, 0.5, 0.6], "index": 1}
			],
			"model": "text-embedding-v3",
			"usage": {"prompt_tokens": 8, "total_tokens": 8}
		}`))
	}))
	defer server.Close()

	embedder, err := NewAliyunEmbedder("test-key", config.EmbeddingConfig{
		Model:      "text-embedding-v3",
		Dimensions: 3,
		BaseURL:    server.URL,
	})
	require.NoError(t, err)

	embeddings, err := embedder.EmbedStrings(context.Background(), []string{"面试技巧", "招聘流程"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.InDelta(t, 0.1, embeddings[0][0], 0.001)
	assert.InDelta(t, 0.6, embeddings[1][2], 0.001)

	assert.Equal(t, "text-embedding-v3", gotReq.Model)
	assert.Equal(t, 3, gotReq.Dimensions)
}

func TestEmbedStringsEmptyInput(t *testing.T) {
	embedder, err := NewAliyunEmbedder("test-key", config.EmbeddingConfig{})
	require.NoError(t, err)

	embeddings, err := embedder.EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, embeddings)
}

func TestEmbedStringsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Invalid API key", "type": "invalid_request_error", "code": "invalid_api_key"}`))
	}))
	defer server.Close()

	embedder, err := NewAliyunEmbedder("bad-key", config.EmbeddingConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = embedder.EmbedStrings(context.Background(), []string{"文本"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}
