package ports

import (
	"context"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

// RecorderPort receives one invocation record per public operation.
type RecorderPort interface {
	Record(ctx context.Context, inv domain.Invocation)
}
