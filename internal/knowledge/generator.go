package knowledge

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Generator 定义文本生成接口
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Ready() bool
}

// NoopGenerator 默认占位实现
type NoopGenerator struct{}

func (n *NoopGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("generation provider not configured")
}

func (n *NoopGenerator) Ready() bool {
	return false
}

// OpenAIGenerator 调用OpenAI兼容的Chat Completions端点。
// temperature固定为0，同一上下文下回答可复现。
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// GeneratorOptions 生成网关配置
type GeneratorOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAIGenerator 创建文本生成器
func NewOpenAIGenerator(opts GeneratorOptions) Generator {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return &NoopGenerator{}
	}
	if opts.Model == "" {
		opts.Model = "llama3.1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", errors.New("generation client not initialized")
	}

	// go-openai的omitempty会丢弃0值，用最小正数表示temperature=0
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generation response empty")
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Ready() bool {
	return g.client != nil
}
