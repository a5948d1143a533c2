package commands

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/usecase"
)

var errNoAmount = errors.New("no amount found")

type lineExtractor interface {
	ExtractFromLine(ctx context.Context, text string) (domain.LineExpense, bool)
}

func newLineCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "line <text...>",
		Short: "Parse a short chat entry such as \"Uber 4500\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			ex := usecase.NewExtractor(nil, nil,
				usecase.WithTaxonomy(cfg.Taxonomy()),
				usecase.WithLogger(log),
			)
			return runLine(cmd.Context(), cmd.OutOrStdout(), ex, strings.Join(args, " "))
		},
	}
}

func runLine(ctx context.Context, w io.Writer, ex lineExtractor, text string) error {
	line, ok := ex.ExtractFromLine(ctx, text)
	if !ok {
		return errNoAmount
	}
	enc := json.NewEncoder(w)
	return enc.Encode(struct {
		Merchant string  `json:"merchant"`
		Amount   float64 `json:"amount"`
	}{line.Merchant, line.Amount})
}
