// Package observability ships per-call invocation facts to logs and BigQuery.
package observability

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

// LogRecorder writes one structured line per invocation.
type LogRecorder struct {
	log zerolog.Logger
}

func NewLogRecorder(log zerolog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(_ context.Context, inv domain.Invocation) {
	ev := r.log.Info()
	if inv.Error != "" {
		ev = r.log.Warn().Str("error", inv.Error)
	}
	ev.Str("request_id", inv.RequestID).
		Str("operation", inv.Operation).
		Str("status", string(inv.Status)).
		Str("model", inv.Model).
		Dur("latency", inv.Latency).
		Str("input", inv.InputSummary).
		Str("output", inv.OutputSummary).
		Msg("invocation")
}

// Multi fans an invocation out to every recorder.
type Multi []ports.RecorderPort

func (m Multi) Record(ctx context.Context, inv domain.Invocation) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, inv)
		}
	}
}

// Nop discards invocations.
type Nop struct{}

func (Nop) Record(context.Context, domain.Invocation) {}
