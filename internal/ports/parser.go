package ports

import "github.com/cp25sy5-modjot/expense-extractor/internal/domain"

type ParserPort interface {
	// Extract runs the heuristic rules for mode over text; absent fields stay zero.
	Extract(text string, mode domain.Mode) domain.PartialRecord
	// ParseLine reads a short expense entry such as "Uber 4500".
	ParseLine(text string) (domain.LineExpense, bool)
}
