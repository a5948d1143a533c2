package ports

import (
	"context"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

// SaveMeta is the caller-supplied context stored next to a transaction.
type SaveMeta struct {
	UserID string
	Source string
}

type TransactionStore interface {
	Save(ctx context.Context, tx domain.ExtractedTransaction, meta SaveMeta) (string, error)
	CategoryTotals(ctx context.Context) (map[string]float64, error)
}
