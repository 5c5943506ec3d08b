package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"koios-rag-be/pkg/llm"
)

// NoContextMarker is injected into the generation prompt when no retrieval
// path produced usable context.
const NoContextMarker = "No additional context provided. Answer based on your internal knowledge."

const generateSystemPrompt = `You are a helpful assistant. Answer the user's question using the provided context. If the context does not contain the answer, say so honestly instead of inventing facts. Keep answers concise and direct.

Context:
%s`

// Generator produces the final answer from the question, history and
// whatever context the search nodes collected.
type Generator struct {
	llmProvider llm.LLMProvider
	opts        []llm.Option
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger, opts ...llm.Option) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		opts:        opts,
		logger:      logger,
	}
}

func (g *Generator) Generate(ctx context.Context, state *GraphState) (string, error) {
	contextBlock := strings.TrimSpace(state.Context)
	if contextBlock == "" {
		contextBlock = NoContextMarker
	}

	messages := make([]llm.Message, 0, len(state.History)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(generateSystemPrompt, contextBlock),
	})
	messages = append(messages, state.History...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: state.Question})

	response, err := g.llmProvider.Chat(ctx, messages, g.opts...)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	answer := strings.TrimSpace(response)
	g.logger.Printf("[GENERATE] Produced %d chars", len(answer))
	return answer, nil
}
