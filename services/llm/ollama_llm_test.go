package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Both backends must satisfy the chat-only client interface.
var (
	_ LLMClient = (*OllamaClient)(nil)
	_ LLMClient = (*OpenAIClient)(nil)
)

func TestBuildOptions_Defaults(t *testing.T) {
	options := buildOptions(GenerationParams{})

	assert.Equal(t, float32(0.2), options["temperature"])
	assert.Equal(t, 20, options["top_k"])
	assert.Equal(t, float32(0.9), options["top_p"])
	assert.Equal(t, 8192, options["num_predict"])
	assert.NotContains(t, options, "stop")
}

func TestBuildOptions_CallerOverrides(t *testing.T) {
	temperature := float32(0.7)
	topK := 40
	topP := float32(0.95)
	maxTokens := 512

	options := buildOptions(GenerationParams{
		Temperature: &temperature,
		TopK:        &topK,
		TopP:        &topP,
		MaxTokens:   &maxTokens,
		Stop:        []string{"</answer>"},
	})

	assert.Equal(t, float32(0.7), options["temperature"])
	assert.Equal(t, 40, options["top_k"])
	assert.Equal(t, float32(0.95), options["top_p"])
	assert.Equal(t, 512, options["num_predict"])
	assert.Equal(t, []string{"</answer>"}, options["stop"])
}
