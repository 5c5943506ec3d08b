package agent

import (
	"context"
	"fmt"
	"log"
)

// Node identifies a step of the decision graph. Transitions are fixed in
// Workflow.step; adding a node means extending the switch there.
type Node int

const (
	NodeRoute Node = iota
	NodeDocSearch
	NodeTransformQuery
	NodeWebSearch
	NodeGenerate
	NodeEnd
)

func (n Node) String() string {
	switch n {
	case NodeRoute:
		return "route"
	case NodeDocSearch:
		return "doc_search"
	case NodeTransformQuery:
		return "transform_query"
	case NodeWebSearch:
		return "web_search"
	case NodeGenerate:
		return "generate"
	case NodeEnd:
		return "end"
	default:
		return fmt.Sprintf("node(%d)", int(n))
	}
}

// Workflow wires the nodes into the question-answering graph:
//
//	route -> doc_search | transform_query | generate
//	doc_search -> transform_query (empty context, internet on) | generate
//	transform_query -> web_search -> generate
type Workflow struct {
	router               *Router
	reformulator         *Reformulator
	search               *SearchOrchestrator
	generator            *Generator
	enableInternetSearch bool
	logger               *log.Logger
}

func NewWorkflow(
	router *Router,
	reformulator *Reformulator,
	search *SearchOrchestrator,
	generator *Generator,
	enableInternetSearch bool,
	logger *log.Logger,
) *Workflow {
	return &Workflow{
		router:               router,
		reformulator:         reformulator,
		search:               search,
		generator:            generator,
		enableInternetSearch: enableInternetSearch,
		logger:               logger,
	}
}

// Run executes the graph until NodeEnd and returns the state with
// Generation filled in. Provider failures abort the run.
func (w *Workflow) Run(ctx context.Context, state *GraphState) (*GraphState, error) {
	node := NodeRoute
	for node != NodeEnd {
		next, err := w.step(ctx, node, state)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node, err)
		}
		w.logger.Printf("[WORKFLOW] %s -> %s", node, next)
		node = next
	}
	return state, nil
}

func (w *Workflow) step(ctx context.Context, node Node, state *GraphState) (Node, error) {
	switch node {
	case NodeRoute:
		decision, err := w.router.Route(ctx, state.Question)
		if err != nil {
			return NodeEnd, err
		}
		if decision == DecisionWebSearch && !w.enableInternetSearch {
			// The model is not trusted with the internet toggle.
			w.logger.Printf("[WORKFLOW] Internet search disabled, downgrading to doc_search")
			decision = DecisionDocSearch
		}
		switch decision {
		case DecisionWebSearch:
			return NodeTransformQuery, nil
		case DecisionGenerate:
			return NodeGenerate, nil
		default:
			return NodeDocSearch, nil
		}

	case NodeDocSearch:
		docContext, err := w.search.DocSearch(ctx, state.Question, state.History)
		if err != nil {
			return NodeEnd, err
		}
		state.Context = docContext
		if docContext == "" && w.enableInternetSearch {
			return NodeTransformQuery, nil
		}
		return NodeGenerate, nil

	case NodeTransformQuery:
		query, err := w.reformulator.ForWebSearch(ctx, state.Question)
		if err != nil {
			return NodeEnd, err
		}
		state.SearchQuery = query
		return NodeWebSearch, nil

	case NodeWebSearch:
		state.Context = w.search.WebSearch(ctx, state.SearchQuery)
		return NodeGenerate, nil

	case NodeGenerate:
		generation, err := w.generator.Generate(ctx, state)
		if err != nil {
			return NodeEnd, err
		}
		state.Generation = generation
		return NodeEnd, nil

	default:
		return NodeEnd, fmt.Errorf("unknown node %s", node)
	}
}
