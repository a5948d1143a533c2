package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/ocr"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/ollama"
	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/openai"
	"github.com/cp25sy5-modjot/expense-extractor/internal/config"
	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

func TestNewCompletion(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		provider string
		model    string
		check    func(t *testing.T, got any)
	}{
		{config.ProviderNone, "", func(t *testing.T, got any) { assert.Nil(t, got) }},
		{config.ProviderOllama, "", func(t *testing.T, got any) {
			require.IsType(t, &ollama.OllamaAdapter{}, got)
			assert.Equal(t, ollama.DefaultModel, got.(*ollama.OllamaAdapter).Model())
		}},
		{config.ProviderOpenAI, "gpt-4o-mini", func(t *testing.T, got any) {
			require.IsType(t, &openai.Client{}, got)
			assert.Equal(t, "gpt-4o-mini", got.(*openai.Client).Model())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := config.Default()
			cfg.Completion.Provider = tt.provider
			cfg.Completion.Model = tt.model

			got, err := NewCompletion(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			if got == nil {
				tt.check(t, nil)
				return
			}
			tt.check(t, got)
		})
	}

	cfg := config.Default()
	cfg.Completion.Provider = "bard"
	_, err := NewCompletion(ctx, cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown completion provider")
}

func TestNewOCR(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Provider = config.ProviderTyphoon
	cfg.OCR.TyphoonKey = "key"

	got, err := NewOCR(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ocr.TyphoonOCR{}, got)

	cfg.OCR.Provider = "abbyy"
	_, err = NewOCR(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestBuildHeuristicOnly(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Provider = config.ProviderTyphoon
	cfg.OCR.TyphoonKey = "key"
	cfg.DefaultCurrency = "USD"

	p, err := Build(context.Background(), cfg, zerolog.Nop(), Options{NoCompletion: true})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "USD", p.DefaultCurrency())
	line, ok := p.ExtractFromLine(context.Background(), "Uber 4500")
	require.True(t, ok)
	assert.Equal(t, domain.LineExpense{Merchant: "Uber", Amount: 4500}, line)
}
