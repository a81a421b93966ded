// Package rag defines the contracts for the retrieval-augmented generation
// backend. The pipeline only depends on these two interfaces; the concrete
// client lives alongside them.
package rag

import (
	"context"
	"fmt"
)

// Snippet is one retrieved context chunk.
type Snippet struct {
	Source  string
	Section string
	Text    string
}

// Retriever searches the corpus for context relevant to a query. When filter
// is non-empty, only snippets whose source matches the filter are returned.
type Retriever interface {
	Search(ctx context.Context, query, filter string, maxResults int) ([]Snippet, error)
}

// Generator produces text from a prompt. When structured is true the returned
// text must be valid JSON matching the shape requested by the prompt, or the
// call is treated as failed by the caller.
type Generator interface {
	Complete(ctx context.Context, prompt string, structured bool, temperature float64) (string, error)
}

// RetrievalError wraps a failed backend search.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval failed: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError wraps a failed or unparseable generation call.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }
