package agent

import (
	"koios-rag-be/pkg/llm"
)

// GraphState is the mutable state threaded through the workflow nodes.
// Each node reads what it needs and writes its result back.
type GraphState struct {
	Question    string        // the user's current question
	History     []llm.Message // prior conversation turns, oldest first
	Context     string        // retrieved context (TOON documents or web results)
	SearchQuery string        // reformulated query for web search
	Generation  string        // final answer
}
