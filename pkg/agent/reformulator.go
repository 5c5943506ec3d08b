package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"koios-rag-be/pkg/llm"
)

const contextualizeSystemPrompt = `Given a chat history and the latest user question which might reference context in the chat history, formulate a standalone question which can be understood without the chat history. Do NOT answer the question, just reformulate it if needed and otherwise return it as is.`

const webQuerySystemPrompt = `You rewrite user questions into concise web search queries. Keep the query short and keyword-focused.

Respond with ONLY valid JSON: {"query": "the search query"}`

// Reformulator rewrites questions: into standalone form for retrieval, and
// into keyword queries for web search.
type Reformulator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewReformulator(llmProvider llm.LLMProvider, logger *log.Logger) *Reformulator {
	return &Reformulator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Contextualize turns a follow-up question into a standalone one using the
// chat history. With no history the question passes through untouched.
func (r *Reformulator) Contextualize(ctx context.Context, question string, history []llm.Message) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: contextualizeSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	response, err := r.llmProvider.Chat(ctx, messages, llm.WithTemperature(0.0))
	if err != nil {
		return "", fmt.Errorf("contextualize call failed: %w", err)
	}

	standalone := strings.TrimSpace(response)
	if standalone == "" {
		return question, nil
	}

	r.logger.Printf("[REFORMULATE] Standalone question: %s", standalone)
	return standalone, nil
}

// ForWebSearch produces a keyword query for a search engine from the current
// question alone. A malformed model response falls back to the raw question.
func (r *Reformulator) ForWebSearch(ctx context.Context, question string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: webQuerySystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}

	response, err := r.llmProvider.Chat(ctx, messages,
		llm.WithTemperature(0.0),
		llm.WithJSONResponse(),
	)
	if err != nil {
		return "", fmt.Errorf("web query reformulation failed: %w", err)
	}

	query, err := r.parseQuery(response)
	if err != nil {
		r.logger.Printf("[WARN] Web query parsing failed, using raw question: %v", err)
		return question, nil
	}

	r.logger.Printf("[REFORMULATE] Web query: %s", query)
	return query, nil
}

func (r *Reformulator) parseQuery(response string) (string, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return "", fmt.Errorf("no JSON found in response")
	}

	var parsed struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		return "", fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	query := strings.TrimSpace(parsed.Query)
	if query == "" {
		return "", fmt.Errorf("empty query in response")
	}
	return query, nil
}
