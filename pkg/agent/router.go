package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"koios-rag-be/pkg/llm"
)

// Decision is the routing verdict for a question.
type Decision string

const (
	DecisionDocSearch Decision = "doc_search"
	DecisionWebSearch Decision = "web_search"
	DecisionGenerate  Decision = "generate"
)

const routerSystemPrompt = `You are an expert at routing a user question to the right data source.

doc_search: the question is about topics covered by the internal document collection, or it is unclear where the answer lives. This is the safe default.
web_search: the question needs current events, recent facts, or anything time-sensitive that a static document collection cannot answer.
generate: the question is conversational (greetings, thanks, chit-chat) or asks about the conversation itself, and needs no external knowledge.

Respond with ONLY valid JSON: {"decision": "doc_search"} or {"decision": "web_search"} or {"decision": "generate"}`

// Router classifies a question into one of the three routing decisions
// with a deterministic LLM call.
type Router struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewRouter(llmProvider llm.LLMProvider, logger *log.Logger) *Router {
	return &Router{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Route returns the decision for the question alone; history plays no part
// in classification. A malformed or unexpected model response falls back to
// doc_search; a provider failure is fatal and propagates.
func (r *Router) Route(ctx context.Context, question string) (Decision, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: routerSystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}

	response, err := r.llmProvider.Chat(ctx, messages,
		llm.WithTemperature(0.0),
		llm.WithJSONResponse(),
	)
	if err != nil {
		return "", fmt.Errorf("router call failed: %w", err)
	}

	decision, err := r.parseDecision(response)
	if err != nil {
		r.logger.Printf("[WARN] Router parsing failed, defaulting to doc_search: %v", err)
		return DecisionDocSearch, nil
	}

	r.logger.Printf("[ROUTER] Decision: %s", decision)
	return decision, nil
}

func (r *Router) parseDecision(response string) (Decision, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return "", fmt.Errorf("no JSON found in response")
	}

	var parsed struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		return "", fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	switch Decision(strings.ToLower(strings.TrimSpace(parsed.Decision))) {
	case DecisionDocSearch:
		return DecisionDocSearch, nil
	case DecisionWebSearch:
		return DecisionWebSearch, nil
	case DecisionGenerate:
		return DecisionGenerate, nil
	default:
		return "", fmt.Errorf("unknown decision %q", parsed.Decision)
	}
}
