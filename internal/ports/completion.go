package ports

import (
	"context"
	"time"
)

// CompletionRequest is a single prompt sent to a language model.
type CompletionRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
	// Timeout bounds the call independently of any transport default. Zero means no extra bound.
	Timeout time.Duration
}

type CompletionPort interface {
	// Complete returns the raw model text. It must honour ctx and req.Timeout.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Model identifies the backing model for observability.
	Model() string
}
