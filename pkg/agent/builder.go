package agent

import (
	"log"

	"koios-rag-be/pkg/llm"
	"koios-rag-be/pkg/retrieval"
	"koios-rag-be/pkg/websearch"

	"golang.org/x/time/rate"
)

// WorkflowConfig carries the per-request knobs. Zero values fall back to the
// provider defaults.
type WorkflowConfig struct {
	Model                string
	Temperature          float64
	EnableInternetSearch bool
}

// WorkflowBuilder holds the long-lived dependencies and assembles a Workflow
// per request so model and temperature overrides stay request-scoped.
type WorkflowBuilder struct {
	llmProvider llm.LLMProvider
	retriever   retrieval.Retriever
	webPrimary  websearch.SearchProvider
	webFallback websearch.SummaryProvider
	limiter     *rate.Limiter
	topK        int
	logger      *log.Logger
}

func NewWorkflowBuilder(
	llmProvider llm.LLMProvider,
	retriever retrieval.Retriever,
	webPrimary websearch.SearchProvider,
	webFallback websearch.SummaryProvider,
	limiter *rate.Limiter,
	logger *log.Logger,
) *WorkflowBuilder {
	return &WorkflowBuilder{
		llmProvider: llmProvider,
		retriever:   retriever,
		webPrimary:  webPrimary,
		webFallback: webFallback,
		limiter:     limiter,
		logger:      logger,
	}
}

// WithTopK sets the retrieval depth for every workflow this builder
// assembles.
func (b *WorkflowBuilder) WithTopK(k int) *WorkflowBuilder {
	b.topK = k
	return b
}

func (b *WorkflowBuilder) Build(cfg WorkflowConfig) *Workflow {
	genOpts := []llm.Option{llm.WithTemperature(cfg.Temperature)}
	if cfg.Model != "" {
		genOpts = append(genOpts, llm.WithModel(cfg.Model))
	}

	router := NewRouter(b.llmProvider, b.logger)
	reformulator := NewReformulator(b.llmProvider, b.logger)
	search := NewSearchOrchestrator(b.retriever, reformulator, b.webPrimary, b.webFallback, b.limiter, b.logger).
		WithTopK(b.topK)
	generator := NewGenerator(b.llmProvider, b.logger, genOpts...)

	return NewWorkflow(router, reformulator, search, generator, cfg.EnableInternetSearch, b.logger)
}

// BuildGenerator assembles a standalone generator for requests that bring
// their own context and skip the routing graph.
func (b *WorkflowBuilder) BuildGenerator(cfg WorkflowConfig) *Generator {
	genOpts := []llm.Option{llm.WithTemperature(cfg.Temperature)}
	if cfg.Model != "" {
		genOpts = append(genOpts, llm.WithModel(cfg.Model))
	}
	return NewGenerator(b.llmProvider, b.logger, genOpts...)
}
