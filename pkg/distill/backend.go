// Package distill reduces a snapshot of labeled news items to a small set of
// categorized, meaning-deduplicated results through a two-stage LLM pipeline
// with ordered backend fallback.
package distill

import (
	"context"
	"fmt"
)

// Backend is one model capability the pipeline can call. Concrete backends
// are interchangeable; the pipeline tries them in configured priority order.
type Backend interface {
	Name() string
	// Run submits a system prompt and input document and returns the raw
	// model text, expected to be a JSON document.
	Run(ctx context.Context, systemPrompt, userInput string) (string, error)
}

// HTTPError is an API-level backend failure, kept distinguishable from
// generic errors for reporting.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s", e.Status, e.Detail)
}

// ExhaustedError aggregates per-backend failure messages for a stage in
// which every configured backend failed. The pipeline aborts at that stage;
// no partial result is produced.
type ExhaustedError struct {
	Stage    string
	Messages []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all backends failed at stage %q (%d errors)", e.Stage, len(e.Messages))
}
