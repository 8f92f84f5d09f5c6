package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aidoc/backend-go/internal/errors"
)

// fakeEmbeddingServer 模拟OpenAI兼容的/embeddings端点
func fakeEmbeddingServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		embedding := make([]float32, dims)
		for i := range embedding {
			embedding[i] = float32(i) / float32(dims)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":%s}],"model":"mxbai-embed-large"}`,
			mustJSON(t, embedding))
	}))
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestOpenAIEmbedderEmbed(t *testing.T) {
	server := fakeEmbeddingServer(t, 1024)
	defer server.Close()

	embedder := NewOpenAIEmbedder(EmbedderOptions{
		BaseURL:    server.URL,
		APIKey:     "ollama",
		Dimensions: 1024,
	})
	require.True(t, embedder.Ready())
	assert.Equal(t, 1024, embedder.Dimensions())

	vec, err := embedder.Embed(context.Background(), "тестовый текст")
	require.NoError(t, err)
	assert.Len(t, vec, 1024)
}

func TestOpenAIEmbedderDimensionMismatch(t *testing.T) {
	// 端点返回768维，网关要求1024维
	server := fakeEmbeddingServer(t, 768)
	defer server.Close()

	embedder := NewOpenAIEmbedder(EmbedderOptions{
		BaseURL:    server.URL,
		Dimensions: 1024,
	})

	_, err := embedder.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingUnavailable))
}

func TestOpenAIEmbedderEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	embedder := NewOpenAIEmbedder(EmbedderOptions{BaseURL: server.URL})

	_, err := embedder.Embed(context.Background(), "text")
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeEmbeddingUnavailable, appErr.Code)
	assert.True(t, appErr.Retryable())
}

func TestOpenAIEmbedderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	embedder := NewOpenAIEmbedder(EmbedderOptions{
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	})

	_, err := embedder.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingUnavailable))
}

func TestOpenAIEmbedderEmptyText(t *testing.T) {
	server := fakeEmbeddingServer(t, 1024)
	defer server.Close()

	embedder := NewOpenAIEmbedder(EmbedderOptions{BaseURL: server.URL})

	_, err := embedder.Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.False(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingUnavailable))
}

func TestNewOpenAIEmbedderWithoutBaseURL(t *testing.T) {
	embedder := NewOpenAIEmbedder(EmbedderOptions{})
	assert.False(t, embedder.Ready())

	_, err := embedder.Embed(context.Background(), "text")
	assert.Error(t, err)
}
