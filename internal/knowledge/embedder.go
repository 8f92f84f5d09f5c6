package knowledge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/aidoc/backend-go/internal/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder 定义文本向量化接口
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// OpenAIEmbedder 调用OpenAI兼容的Embedding端点（Ollama /v1同样适用）。
// 网关内部不做重试，超时或维度不符时返回EMBEDDING_UNAVAILABLE，
// 重试策略由上层的任务重投递承担。
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// EmbedderOptions 向量化网关配置
type EmbedderOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewOpenAIEmbedder 创建嵌入向量生成器
func NewOpenAIEmbedder(opts EmbedderOptions) Embedder {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return &NoopEmbedder{}
	}
	if opts.Model == "" {
		opts.Model = "mxbai-embed-large"
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		dimensions: opts.Dimensions,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("text is empty")
	}
	if e.client == nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingUnavailable, "embedding client not initialized")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingUnavailable, "embedding request failed").WithCause(err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingUnavailable, "embedding response empty")
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != e.dimensions {
		// 维度不符说明模型配置错了，写进库里会污染检索
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingUnavailable, "embedding dimensionality mismatch").
			WithDetails(map[string]int{"expected": e.dimensions, "got": len(embedding)})
	}

	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
