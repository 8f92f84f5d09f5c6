package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aidoc/backend-go/internal/errors"
	"github.com/aidoc/backend-go/internal/knowledge"
)

// fakeGenerator 回显收到的提示词或返回固定回答
type fakeGenerator struct {
	answer     string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) Ready() bool { return true }

func TestAskAnswerHappyPath(t *testing.T) {
	store := newFakeVectorStore()
	store.neighbors = []string{"первый фрагмент", "второй фрагмент", "третий фрагмент"}
	generator := &fakeGenerator{answer: "Сводка по документам."}

	service := NewAskService(store, &fakeEmbedder{vector: []float32{0.1}}, generator, 15, "Russian")

	answer := service.Answer(context.Background(), "О чем документы?", "user-1", nil)
	assert.Equal(t, "Сводка по документам.", answer)

	// 上下文按检索顺序拼装，分隔符固定
	assert.Contains(t, generator.lastPrompt, "первый фрагмент\n---\nвторой фрагмент\n---\nтретий фрагмент")
	assert.Contains(t, generator.lastPrompt, "О чем документы?")
	assert.Contains(t, generator.lastPrompt, "Answer ONLY in Russian.")
}

func TestAskAnswerNoMatchingChunks(t *testing.T) {
	store := newFakeVectorStore()
	store.neighbors = nil
	generator := &fakeGenerator{answer: "should not be called"}

	service := NewAskService(store, &fakeEmbedder{vector: []float32{0.1}}, generator, 15, "Russian")

	answer := service.Answer(context.Background(), "Вопрос без контекста?", "user-1", nil)
	assert.Equal(t, NoRelevantInfoMessage, answer)
	// 无上下文时不调用生成模型
	assert.Empty(t, generator.lastPrompt)
}

func TestAskAnswerEmbeddingFailure(t *testing.T) {
	store := newFakeVectorStore()
	embedder := &fakeEmbedder{vector: []float32{0.1}, failAt: 1}
	generator := &fakeGenerator{answer: "unused"}

	service := NewAskService(store, embedder, generator, 15, "Russian")

	// 内部失败不向调用方泄漏，只返回固定文案
	answer := service.Answer(context.Background(), "Вопрос?", "user-1", nil)
	assert.Equal(t, GenericErrorMessage, answer)
}

func TestAskAnswerGenerationFailure(t *testing.T) {
	store := newFakeVectorStore()
	store.neighbors = []string{"фрагмент"}
	generator := &fakeGenerator{err: errors.New("model endpoint unreachable")}

	service := NewAskService(store, &fakeEmbedder{vector: []float32{0.1}}, generator, 15, "Russian")

	answer := service.Answer(context.Background(), "Вопрос?", "user-1", nil)
	assert.Equal(t, GenericErrorMessage, answer)
}

func TestAskAnswerRetrievalFailureIsContained(t *testing.T) {
	store := &failingNeighborStore{fakeVectorStore: newFakeVectorStore()}
	generator := &fakeGenerator{answer: "unused"}

	service := NewAskService(store, &fakeEmbedder{vector: []float32{0.1}}, generator, 15, "Russian")

	answer := service.Answer(context.Background(), "Вопрос?", "user-1", nil)
	assert.Equal(t, GenericErrorMessage, answer)
}

// failingNeighborStore 检索报错的存储
type failingNeighborStore struct {
	*fakeVectorStore
}

func (f *failingNeighborStore) NearestNeighbors(ctx context.Context, query knowledge.NeighborQuery) ([]string, error) {
	return nil, apperrors.NewSystemError(apperrors.ErrCodeRetrievalFailure, "query failed")
}

func TestAskAnswerDocumentScope(t *testing.T) {
	store := &capturingStore{fakeVectorStore: newFakeVectorStore()}
	store.neighbors = []string{"фрагмент"}
	generator := &fakeGenerator{answer: "ответ"}

	service := NewAskService(store, &fakeEmbedder{vector: []float32{0.5}}, generator, 7, "Russian")

	docID := uint(42)
	answer := service.Answer(context.Background(), "Вопрос?", "user-1", &docID)
	assert.Equal(t, "ответ", answer)

	require.NotNil(t, store.lastQuery.DocumentID)
	assert.Equal(t, uint(42), *store.lastQuery.DocumentID)
	assert.Equal(t, "user-1", store.lastQuery.UserID)
	assert.Equal(t, 7, store.lastQuery.K)
}

// capturingStore 记录最近一次检索参数
type capturingStore struct {
	*fakeVectorStore
	lastQuery knowledge.NeighborQuery
}

func (c *capturingStore) NearestNeighbors(ctx context.Context, query knowledge.NeighborQuery) ([]string, error) {
	c.lastQuery = query
	return c.fakeVectorStore.NearestNeighbors(ctx, query)
}

func TestNewAskServiceDefaults(t *testing.T) {
	service := NewAskService(newFakeVectorStore(), &fakeEmbedder{vector: []float32{0.1}}, &fakeGenerator{}, 0, "")
	assert.Equal(t, 15, service.topK)
	assert.Equal(t, "Russian", service.language)
}

func TestPromptTemplateStructure(t *testing.T) {
	store := newFakeVectorStore()
	store.neighbors = []string{"контекст"}
	generator := &fakeGenerator{answer: "ответ"}

	service := NewAskService(store, &fakeEmbedder{vector: []float32{0.1}}, generator, 15, "English")
	service.Answer(context.Background(), "Q?", "user-1", nil)

	prompt := generator.lastPrompt
	assert.True(t, strings.Contains(prompt, "### CONTEXT:"))
	assert.True(t, strings.Contains(prompt, "### QUESTION:"))
	assert.True(t, strings.Contains(prompt, "### ANSWER:"))
	assert.Contains(t, prompt, "Answer ONLY in English.")
	// 指令部分先于上下文，回答锚点在最后
	assert.Less(t, strings.Index(prompt, "### CONTEXT:"), strings.Index(prompt, "### QUESTION:"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(prompt), "### ANSWER:"))
}
