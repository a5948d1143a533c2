// Package app builds the extraction pipeline and its collaborators from
// configuration. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/gcs"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/gemini"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/observability"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/ocr"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/ollama"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/openai"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/tesseract"
	"github.com/cp25sy5-modjot/expense-extractor/internal/config"
	"github.com/cp25sy5-modjot/expense-extractor/internal/intake"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
	"github.com/cp25sy5-modjot/expense-extractor/internal/usecase"
)

// Pipeline is a configured extractor plus the clients it owns.
type Pipeline struct {
	*usecase.Extractor
	closers []func() error
}

// Close releases every client opened by Build.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	return errors.Join(errs...)
}

type Options struct {
	// NoCompletion forces the heuristic path regardless of configuration.
	NoCompletion bool
}

func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*Pipeline, error) {
	p := &Pipeline{}

	engine, err := NewOCR(cfg, log)
	if err != nil {
		return nil, err
	}

	var completion ports.CompletionPort
	if !opts.NoCompletion {
		if completion, err = NewCompletion(ctx, cfg, log); err != nil {
			return nil, err
		}
	}

	loaderOpts := []intake.Option{
		intake.WithMinWidth(cfg.OCR.MinWidth),
		intake.WithFetcher(intake.NewHTTPFetcher(&http.Client{Timeout: intake.DefaultFetchTimeout}, intake.DefaultMaxBytes)),
	}
	if cfg.OCR.GCSEnabled {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		p.closers = append(p.closers, client.Close)
		loaderOpts = append(loaderOpts, intake.WithFetcher(gcs.NewFetcher(client, intake.DefaultMaxBytes)))
	}

	recorders := observability.Multi{observability.NewLogRecorder(log)}
	if cfg.BigQuery.Project != "" {
		client, err := bigquery.NewClient(ctx, cfg.BigQuery.Project)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("create bigquery client: %w", err)
		}
		p.closers = append(p.closers, client.Close)
		recorders = append(recorders, observability.NewBigQueryRecorder(client, cfg.BigQuery.Dataset, cfg.BigQuery.Table, log))
	}

	p.Extractor = usecase.NewExtractor(engine, completion,
		usecase.WithTaxonomy(cfg.Taxonomy()),
		usecase.WithLoader(intake.NewLoader(log, loaderOpts...)),
		usecase.WithRecorder(recorders),
		usecase.WithLogger(log),
		usecase.WithDefaultCurrency(cfg.DefaultCurrency),
		usecase.WithCompletionTimeout(cfg.Completion.Timeout),
		usecase.WithMaxTokens(cfg.Completion.MaxTokens),
		usecase.WithMinOCRChars(cfg.OCR.MinChars),
		usecase.WithOCRWorkers(cfg.OCR.Workers),
	)
	return p, nil
}

func NewOCR(cfg *config.Config, log zerolog.Logger) (ports.OCRPort, error) {
	switch cfg.OCR.Provider {
	case config.ProviderTesseract:
		return tesseract.New(cfg.OCR.Languages...), nil
	case config.ProviderTyphoon:
		return ocr.NewTyphoonOCR(cfg.OCR.TyphoonURL, cfg.OCR.TyphoonKey, log), nil
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.OCR.Provider)
	}
}

// NewCompletion returns nil for the "none" provider.
func NewCompletion(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.CompletionPort, error) {
	c := cfg.Completion
	switch c.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOllama:
		host := c.OllamaHost
		if c.BaseURL != "" {
			host = c.BaseURL
		}
		return ollama.NewOllamaAdapter(host, c.Model, log), nil
	case config.ProviderOpenAI:
		return openai.New(c.APIKey, c.BaseURL, c.Model), nil
	case config.ProviderGemini:
		client, err := gemini.New(ctx, c.APIKey, c.BaseURL, c.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", c.Provider)
	}
}
