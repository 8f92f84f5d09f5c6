package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aidoc/backend-go/internal/knowledge"
	"github.com/aidoc/backend-go/internal/logger"
	"go.uber.org/zap"
)

// 用户可见的两个固定文案。检索管道对调用方只暴露这两种失败表现，
// 内部错误细节只进日志。
const (
	NoRelevantInfoMessage = "No relevant information found in the documents."
	GenericErrorMessage   = "An error occurred while processing your request. Please try again later."
)

const contextDelimiter = "\n---\n"

// promptTemplate 生成模型的指令模板：只允许使用提供的上下文作答，
// 按配置语言回答，日期/数字/术语原样保留，中立语气。
const promptTemplate = `You are a professional document analyst. Your task is to give precise answers based strictly on the provided context.

### INSTRUCTIONS:
1. Answer ONLY in %s.
2. Use ONLY the context provided below. Do not use external knowledge.
3. If the answer is present, keep it concise, structured and to the point.
4. If the context mentions dates, figures or specific terms, reproduce them verbatim.
5. Maintain a neutral, business-like tone.

### CONTEXT:
%s

### QUESTION:
%s

### ANSWER:
`

// AskService 检索问答管道：embed(question) → 最近邻检索 → 上下文拼装 →
// 提示词构造 → 生成模型调用。只读，不产生任何持久化状态变更。
type AskService struct {
	store     knowledge.VectorStore
	embedder  knowledge.Embedder
	generator knowledge.Generator
	topK      int
	language  string
}

// NewAskService 创建问答管道
func NewAskService(
	store knowledge.VectorStore,
	embedder knowledge.Embedder,
	generator knowledge.Generator,
	topK int,
	language string,
) *AskService {
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}
	if language == "" {
		language = "Russian"
	}
	return &AskService{
		store:     store,
		embedder:  embedder,
		generator: generator,
		topK:      topK,
		language:  language,
	}
}

// Answer 回答一个问题。documentID非nil时将检索范围限制在单个文档。
// 永远不向调用方返回错误：任何内部失败都转换成固定的通用文案。
func (s *AskService) Answer(ctx context.Context, question, userID string, documentID *uint) string {
	answer, err := s.answer(ctx, question, userID, documentID)
	if err != nil {
		logger.Error("Ask pipeline failed",
			zap.String("user_id", userID),
			zap.Error(err))
		metricQuestions.WithLabelValues("error").Inc()
		return GenericErrorMessage
	}
	return answer
}

func (s *AskService) answer(ctx context.Context, question, userID string, documentID *uint) (string, error) {
	questionVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}

	passages, err := s.store.NearestNeighbors(ctx, knowledge.NeighborQuery{
		Embedding:  questionVector,
		UserID:     userID,
		DocumentID: documentID,
		K:          s.topK,
	})
	if err != nil {
		return "", fmt.Errorf("nearest neighbor search: %w", err)
	}

	if len(passages) == 0 {
		logger.Info("No matching chunks for question", zap.String("user_id", userID))
		metricQuestions.WithLabelValues("no_context").Inc()
		return NoRelevantInfoMessage, nil
	}

	// 按检索排名顺序拼装上下文
	contextBlock := strings.Join(passages, contextDelimiter)
	prompt := fmt.Sprintf(promptTemplate, s.language, contextBlock, question)

	logger.Info("Context retrieved, generating answer",
		zap.String("user_id", userID),
		zap.Int("passages", len(passages)))

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	metricQuestions.WithLabelValues("answered").Inc()
	return answer, nil
}
