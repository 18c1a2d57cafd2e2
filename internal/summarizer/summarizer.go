// Package summarizer wraps the natural-language collaborator that restates a
// report's computed statistics. Summaries are best-effort enrichment: callers
// must treat every error as recoverable and fall back to templated text.
package summarizer

import "context"

// Summarizer turns a deterministic plain-text statistics block into a short
// natural-language restatement. Implementations must never add facts that are
// not present in the input.
type Summarizer interface {
	// Summarize returns the restatement or an error the caller downgrades to
	// a fallback. An empty result is reported as an error, never as success.
	Summarize(ctx context.Context, statsText string) (string, error)

	// Name identifies the backing provider for logs.
	Name() string
}

// Static returns a fixed summary on every call. Used in tests and local runs
// without an LLM endpoint.
type Static struct {
	Text string
}

func (s Static) Summarize(context.Context, string) (string, error) {
	return s.Text, nil
}

func (Static) Name() string { return "static" }
