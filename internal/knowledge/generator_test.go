package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGeneratorGenerate(t *testing.T) {
	var gotModel string
	var gotPrompt string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel, _ = req["model"].(string)
		if messages, ok := req["messages"].([]interface{}); ok && len(messages) > 0 {
			if msg, ok := messages[0].(map[string]interface{}); ok {
				gotPrompt, _ = msg["content"].(string)
			}
		}
		// temperature必须出现在请求体里，不能被omitempty丢掉
		_, hasTemperature := req["temperature"]
		assert.True(t, hasTemperature)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Ответ на вопрос."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	generator := NewOpenAIGenerator(GeneratorOptions{
		BaseURL: server.URL,
		Model:   "llama3.1",
	})
	require.True(t, generator.Ready())

	answer, err := generator.Generate(context.Background(), "Вопрос?")
	require.NoError(t, err)
	assert.Equal(t, "Ответ на вопрос.", answer)
	assert.Equal(t, "llama3.1", gotModel)
	assert.Equal(t, "Вопрос?", gotPrompt)
}

func TestOpenAIGeneratorEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	generator := NewOpenAIGenerator(GeneratorOptions{BaseURL: server.URL})

	_, err := generator.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestOpenAIGeneratorEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	generator := NewOpenAIGenerator(GeneratorOptions{BaseURL: server.URL})

	_, err := generator.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestNewOpenAIGeneratorWithoutBaseURL(t *testing.T) {
	generator := NewOpenAIGenerator(GeneratorOptions{})
	assert.False(t, generator.Ready())

	_, err := generator.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}
