package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cp25sy5-modjot/expense-extractor/internal/app"
	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

type documentExtractor interface {
	ExtractFromDocument(ctx context.Context, source string) domain.ExtractedTransaction
	ExtractFromImage(ctx context.Context, image []byte) domain.ExtractedTransaction
}

func newDocumentCommand(opts *rootOptions) *cobra.Command {
	var noLLM bool

	cmd := &cobra.Command{
		Use:   "document <source>",
		Short: "Extract a transaction from a receipt image",
		Long: "Source is a file path, data URI, base64 string, http(s) URL or gs:// URI.\n" +
			"The result is printed as JSON even when extraction degrades.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			p, err := app.Build(cmd.Context(), cfg, log, app.Options{NoCompletion: noLLM})
			if err != nil {
				return err
			}
			defer p.Close()

			return runDocument(cmd.Context(), cmd.OutOrStdout(), p, args[0])
		},
	}
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "skip the completion model and use heuristics only")

	return cmd
}

func runDocument(ctx context.Context, w io.Writer, ex documentExtractor, source string) error {
	var tx domain.ExtractedTransaction
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		data, err := os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("reading %s: %w", source, err)
		}
		tx = ex.ExtractFromImage(ctx, data)
	} else {
		tx = ex.ExtractFromDocument(ctx, source)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tx)
}
