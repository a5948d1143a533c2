package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/parser"
	"github.com/cp25sy5-modjot/expense-extractor/internal/decoder"
	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/intake"
	"github.com/cp25sy5-modjot/expense-extractor/internal/normalizer"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
	"github.com/cp25sy5-modjot/expense-extractor/internal/prompt"
)

const (
	DefaultOCRWorkers  = 3
	DefaultMinOCRChars = 10

	OpExtractDocument = "extract_document"
	OpExtractImage    = "extract_image"
	OpExtractLine     = "extract_line"
	OpExtractText     = "extract_text"
	OpCategorize      = "categorize"

	heuristicModel = "heuristic"
)

// ImageLoader turns caller input into OCR-ready image bytes.
type ImageLoader interface {
	Prepare(ctx context.Context, source string) ([]byte, error)
	PrepareBytes(raw []byte) ([]byte, error)
}

// Extractor runs the extraction pipeline. Public operations never return
// errors: every failure resolves to a valid record and a status.
type Extractor struct {
	ocr        ports.OCRPort
	completion ports.CompletionPort
	parser     ports.ParserPort
	loader     ImageLoader
	recorder   ports.RecorderPort
	log        zerolog.Logger

	taxonomy          domain.Taxonomy
	defaultCurrency   string
	completionTimeout time.Duration
	maxTokens         int
	minOCRChars       int

	prompts    *prompt.Builder
	normalizer *normalizer.Normalizer

	ocrSem chan struct{} // limit OCR concurrency
}

type Option func(*Extractor)

func WithTaxonomy(t domain.Taxonomy) Option { return func(e *Extractor) { e.taxonomy = t } }
func WithParser(p ports.ParserPort) Option { return func(e *Extractor) { e.parser = p } }
func WithLoader(l ImageLoader) Option { return func(e *Extractor) { e.loader = l } }
func WithRecorder(r ports.RecorderPort) Option { return func(e *Extractor) { e.recorder = r } }
func WithLogger(l zerolog.Logger) Option { return func(e *Extractor) { e.log = l } }
func WithDefaultCurrency(code string) Option { return func(e *Extractor) { e.defaultCurrency = code } }
func WithCompletionTimeout(d time.Duration) Option { return func(e *Extractor) { e.completionTimeout = d } }
func WithMaxTokens(n int) Option { return func(e *Extractor) { e.maxTokens = n } }
func WithMinOCRChars(n int) Option { return func(e *Extractor) { e.minOCRChars = n } }

func WithOCRWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.ocrSem = make(chan struct{}, n)
		}
	}
}

// NewExtractor wires the pipeline. completion may be nil, in which case every
// document goes through the heuristic path.
func NewExtractor(ocr ports.OCRPort, completion ports.CompletionPort, opts ...Option) *Extractor {
	e := &Extractor{
		ocr:             ocr,
		completion:      completion,
		log:             zerolog.Nop(),
		taxonomy:        domain.DefaultTaxonomy(),
		defaultCurrency: domain.DefaultCurrency,
		minOCRChars:     DefaultMinOCRChars,
		ocrSem:          make(chan struct{}, DefaultOCRWorkers),
	}
	for _, o := range opts {
		o(e)
	}
	if e.parser == nil {
		e.parser = parser.NewRulesParser(e.taxonomy)
	}
	if e.loader == nil {
		e.loader = intake.NewLoader(e.log)
	}
	e.prompts = prompt.NewBuilder(e.taxonomy, e.defaultCurrency, e.completionTimeout).WithMaxTokens(e.maxTokens)
	e.normalizer = normalizer.New(e.taxonomy, e.defaultCurrency, e.log)
	return e
}

func (e *Extractor) Taxonomy() domain.Taxonomy { return e.taxonomy }

func (e *Extractor) DefaultCurrency() string { return e.normalizer.DefaultCurrency() }

// ExtractFromDocument runs the full pipeline over a data URI, base64 string
// or remote URI.
func (e *Extractor) ExtractFromDocument(ctx context.Context, source string) domain.ExtractedTransaction {
	return e.extract(ctx, OpExtractDocument, describeSource(source), func() ([]byte, error) {
		return e.loader.Prepare(ctx, source)
	})
}

// ExtractFromImage runs the full pipeline over encoded image bytes.
func (e *Extractor) ExtractFromImage(ctx context.Context, image []byte) domain.ExtractedTransaction {
	return e.extract(ctx, OpExtractImage, fmt.Sprintf("image %d bytes", len(image)), func() ([]byte, error) {
		return e.loader.PrepareBytes(image)
	})
}

// ExtractFromLine parses a short chat entry such as "Uber 4500". The second
// result is false when the text holds no plausible amount.
func (e *Extractor) ExtractFromLine(ctx context.Context, text string) (domain.LineExpense, bool) {
	start := time.Now()
	line, ok := e.parser.ParseLine(text)

	inv := domain.Invocation{
		RequestID:    uuid.NewString(),
		Operation:    OpExtractLine,
		Status:       domain.StatusOK,
		Model:        heuristicModel,
		InputSummary: fmt.Sprintf("line %d chars", len([]rune(text))),
	}
	if ok {
		inv.OutputSummary = fmt.Sprintf("%s %.2f", line.Merchant, line.Amount)
	} else {
		inv.Status = domain.StatusEmpty
		inv.OutputSummary = "no amount"
	}
	e.record(ctx, inv, start)
	return line, ok
}

// LineTransaction turns a parsed chat line and its category into a normalized
// record. The line came from the heuristic path, so the status is degraded.
func (e *Extractor) LineTransaction(line domain.LineExpense, category string) domain.ExtractedTransaction {
	return e.normalizer.Normalize(map[string]any{
		"merchant": line.Merchant,
		"amount":   line.Amount,
		"category": category,
	}, domain.StatusDegraded)
}

// ExtractText runs intake and OCR only. Unlike the other operations it
// reports stage failures, for callers that only want the raw text.
func (e *Extractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	start := time.Now()
	inv := domain.Invocation{
		RequestID:    uuid.NewString(),
		Operation:    OpExtractText,
		Status:       domain.StatusOK,
		InputSummary: fmt.Sprintf("image %d bytes", len(image)),
	}

	text, err := e.ocrStage(ctx, func() ([]byte, error) { return e.loader.PrepareBytes(image) })
	if err != nil {
		inv.Status = domain.StatusEmpty
		inv.Error = err.Error()
	}
	inv.OutputSummary = fmt.Sprintf("text %d chars", len(text))
	e.record(ctx, inv, start)
	return text, err
}

// Categorize asks the completion capability for one taxonomy category. Any
// failure falls back to the keyword hint and then to the fallback category.
func (e *Extractor) Categorize(ctx context.Context, merchant, description string) string {
	start := time.Now()
	inv := domain.Invocation{
		RequestID:    uuid.NewString(),
		Operation:    OpCategorize,
		Status:       domain.StatusOK,
		Model:        e.modelName(),
		InputSummary: fmt.Sprintf("merchant %q", truncate(merchant, 40)),
	}

	hint := e.parser.Extract(merchant+" "+description, domain.ModeSingleLine).Category

	category := domain.FallbackCategory
	raw, err := e.complete(ctx, e.prompts.CategoryRequest(merchant, description))
	switch {
	case err != nil:
		inv.Status = domain.StatusDegraded
		inv.Error = err.Error()
		inv.Model = heuristicModel
		if hint != "" {
			category = hint
		}
	default:
		answer := strings.Trim(strings.TrimSpace(raw), ".\"'")
		category = e.taxonomy.Match(answer)
		if category == domain.FallbackCategory && !strings.EqualFold(answer, domain.FallbackCategory) && hint != "" {
			category = hint
		}
	}

	inv.OutputSummary = category
	e.record(ctx, inv, start)
	return category
}

func (e *Extractor) extract(ctx context.Context, op, input string, prepare func() ([]byte, error)) domain.ExtractedTransaction {
	start := time.Now()
	reqID := uuid.NewString()
	log := e.log.With().Str("request_id", reqID).Str("operation", op).Logger()

	text, err := e.ocrStage(ctx, prepare)

	var tx domain.ExtractedTransaction
	if err == nil {
		tx, err = e.structure(ctx, text)
	}

	model := e.modelName()
	switch kind := domain.KindOf(err); kind {
	case "":
	case domain.KindInvalidSource, domain.KindOCRFailure:
		log.Warn().Err(err).Msg("no text extracted; returning empty record")
		tx = e.normalizer.Normalize(nil, domain.StatusEmpty)
		model = ""
	case domain.KindCompletionUnavailable, domain.KindCompletionTimeout, domain.KindDecodeFailure:
		log.Warn().Err(err).Str("kind", string(kind)).Msg("falling back to heuristic extraction")
		tx = e.heuristic(text)
		model = heuristicModel
	default:
		log.Error().Err(err).Msg("unexpected pipeline error")
		tx = e.normalizer.Normalize(nil, domain.StatusEmpty)
	}

	inv := domain.Invocation{
		RequestID:     reqID,
		Operation:     op,
		Status:        tx.Status,
		Model:         model,
		InputSummary:  input,
		OutputSummary: fmt.Sprintf("%s %.2f %s", tx.Merchant, tx.Amount, tx.Currency),
	}
	if err != nil {
		inv.Error = err.Error()
	}
	e.record(ctx, inv, start)
	return tx
}

// ocrStage prepares the image and runs OCR on the bounded pool.
func (e *Extractor) ocrStage(ctx context.Context, prepare func() ([]byte, error)) (string, error) {
	img, err := prepare()
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.NewStageError(domain.KindInvalidSource, err)
		}
		return "", err
	}
	if e.ocr == nil {
		return "", domain.NewStageError(domain.KindOCRFailure, errors.New("no OCR engine configured"))
	}

	select {
	case e.ocrSem <- struct{}{}:
	case <-ctx.Done():
		return "", domain.NewStageError(domain.KindOCRFailure, ctx.Err())
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		// the slot is held until the engine returns, even if the caller gave up
		defer func() { <-e.ocrSem }()
		t, err := e.ocr.ExtractText(ctx, img)
		done <- result{t, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		return "", domain.NewStageError(domain.KindOCRFailure, ctx.Err())
	}

	if r.err != nil {
		return "", domain.NewStageError(domain.KindOCRFailure, r.err)
	}
	if n := countNonSpace(r.text); n < e.minOCRChars {
		return "", domain.NewStageError(domain.KindOCRFailure, fmt.Errorf("ocr returned %d characters", n))
	}
	return r.text, nil
}

// structure runs prompt, completion, decoding and normalization.
func (e *Extractor) structure(ctx context.Context, text string) (domain.ExtractedTransaction, error) {
	raw, err := e.complete(ctx, e.prompts.Request(text))
	if err != nil {
		return domain.ExtractedTransaction{}, err
	}
	res, err := decoder.Decode(raw)
	if err != nil {
		return domain.ExtractedTransaction{}, err
	}
	e.log.Debug().Str("strategy", string(res.Strategy)).Msg("decoded completion")
	return e.normalizer.Normalize(res.Object, domain.StatusOK), nil
}

func (e *Extractor) complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if e.completion == nil {
		return "", domain.NewStageError(domain.KindCompletionUnavailable, nil)
	}

	cctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	raw, err := e.completion.Complete(cctx, req)
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded):
		return "", domain.NewStageError(domain.KindCompletionTimeout, err)
	default:
		return "", domain.NewStageError(domain.KindCompletionUnavailable, err)
	}
}

func (e *Extractor) heuristic(text string) domain.ExtractedTransaction {
	if strings.TrimSpace(text) == "" {
		return e.normalizer.Normalize(nil, domain.StatusEmpty)
	}
	rec := e.parser.Extract(text, domain.ModeReceipt)
	if rec.Empty() {
		return e.normalizer.Normalize(nil, domain.StatusEmpty)
	}
	return e.normalizer.Normalize(rec.Candidate(), domain.StatusDegraded)
}

func (e *Extractor) record(ctx context.Context, inv domain.Invocation, start time.Time) {
	if e.recorder == nil {
		return
	}
	inv.Latency = time.Since(start)
	inv.At = start.UTC()
	e.recorder.Record(ctx, inv)
}

func (e *Extractor) modelName() string {
	if e.completion == nil {
		return heuristicModel
	}
	return e.completion.Model()
}

func describeSource(source string) string {
	s := strings.TrimSpace(source)
	switch {
	case strings.HasPrefix(s, "data:"):
		return fmt.Sprintf("data-uri %d chars", len(s))
	case strings.HasPrefix(s, "gs://"), strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		return "uri " + truncate(s, 120)
	default:
		return fmt.Sprintf("base64 %d chars", len(s))
	}
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
