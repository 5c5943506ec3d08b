package factory

import (
	"fmt"

	"koios-rag-be/pkg/llm"
	"koios-rag-be/pkg/llm/ollama"
	"koios-rag-be/pkg/llm/openai"
)

// NewLLMProvider builds an LLMProvider from config values.
// Supported providers: "openai" (any OpenAI-compatible server), "ollama".
func NewLLMProvider(provider, model, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch provider {
	case "openai", "lmstudio":
		return openai.NewOpenAIProvider(baseURL, apiKey, model), nil
	case "ollama":
		return ollama.NewOllamaProvider(baseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
}
