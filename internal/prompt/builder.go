package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

const (
	DefaultMaxTokens         = 500
	DefaultCategoryMaxTokens = 10
	DefaultTimeout           = 30 * time.Second
)

// Builder renders structuring and categorization prompts. It shares its
// taxonomy with the normalizer so the two cannot disagree on categories.
type Builder struct {
	taxonomy        domain.Taxonomy
	defaultCurrency string
	timeout         time.Duration
	maxTokens       int
}

func NewBuilder(taxonomy domain.Taxonomy, defaultCurrency string, timeout time.Duration) *Builder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &Builder{
		taxonomy:        taxonomy,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		timeout:         timeout,
		maxTokens:       DefaultMaxTokens,
	}
}

// WithMaxTokens returns a copy using n as the completion token bound.
func (b *Builder) WithMaxTokens(n int) *Builder {
	c := *b
	if n > 0 {
		c.maxTokens = n
	}
	return &c
}

func (b *Builder) Timeout() time.Duration { return b.timeout }

// Build returns the structuring prompt for ocrText.
func (b *Builder) Build(ocrText string) string {
	cats := b.taxonomy.Names()
	return fmt.Sprintf(
		`You are a receipt data extraction system. Respond with ONLY one JSON object on a single line. No markdown, no code fences, no explanation.

OUTPUT JSON SCHEMA (no other keys):
{"merchant":string,"amount":number,"currency":string,"date":string|null,"items":[string],"category":string,"description":string}

RULES:
- merchant: the business or store name. Never "Unknown" or empty if any name is visible.
- amount: the TOTAL paid, as a positive number without symbols or thousands separators.
- currency: 3-letter ISO code. %s
- date: YYYY-MM-DD if visible, otherwise null (the JSON literal, not a string).
- items: purchased product names only, at most %d, each a short string. Never totals, VAT, tax, cash, change or thank-you lines.
- category: MUST be exactly one of: %s. Never invent new categories. Use "%s" when unsure.
- description: one short sentence about the purchase.
- All strings double-quoted. amount is a number, not a string.

OCR TEXT:
%s`,
		b.currencyRules(),
		domain.MaxItems,
		strings.Join(cats, ", "),
		domain.FallbackCategory,
		Clean(ocrText),
	)
}

// Request wraps Build in a deterministic, bounded completion request.
func (b *Builder) Request(ocrText string) ports.CompletionRequest {
	return ports.CompletionRequest{
		Prompt:      b.Build(ocrText),
		Temperature: 0,
		MaxTokens:   b.maxTokens,
		Timeout:     b.timeout,
	}
}

// CategoryPrompt asks for a single category name for a logged expense.
func (b *Builder) CategoryPrompt(merchant, description string) string {
	return fmt.Sprintf(
		`Classify the transaction into ONE category.
Merchant: %s
Description: %s
Categories: %s
Respond with ONLY the category name. If unsure, respond %s.`,
		strings.TrimSpace(merchant),
		strings.TrimSpace(description),
		strings.Join(b.taxonomy.Names(), ", "),
		domain.FallbackCategory,
	)
}

func (b *Builder) CategoryRequest(merchant, description string) ports.CompletionRequest {
	return ports.CompletionRequest{
		Prompt:      b.CategoryPrompt(merchant, description),
		Temperature: 0,
		MaxTokens:   DefaultCategoryMaxTokens,
		Timeout:     b.timeout,
	}
}

func (b *Builder) currencyRules() string {
	return fmt.Sprintf(`Detect it from symbols or words: ₦ or "naira" = NGN, $ = USD, € = EUR, £ = GBP. If no currency is visible use %s.`, b.defaultCurrency)
}
