// Package intake turns caller-supplied image sources into OCR-ready bytes.
package intake

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

const (
	DefaultMinWidth     = 800
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxBytes     = 20 << 20

	// DefaultMaxPixels bounds the dimensions a source image may declare.
	DefaultMaxPixels = 50_000_000
	// DefaultMaxOutputPixels bounds the upscaled image handed to OCR.
	DefaultMaxOutputPixels = 16_000_000
)

// Loader resolves data URIs, base64 strings and remote URIs into images. Remote
// URIs are delegated to the first fetcher that supports them.
type Loader struct {
	fetchers        []ports.SourceFetcher
	minWidth        int
	maxPixels       int
	maxOutputPixels int
	fetchTimeout    time.Duration
	log             zerolog.Logger
}

type Option func(*Loader)

func WithFetcher(f ports.SourceFetcher) Option {
	return func(l *Loader) { l.fetchers = append(l.fetchers, f) }
}

func WithMinWidth(px int) Option {
	return func(l *Loader) {
		if px > 0 {
			l.minWidth = px
		}
	}
}

// WithPixelBudget sets the largest decoded image and the largest
// preprocessed image, both in pixels.
func WithPixelBudget(decoded, output int) Option {
	return func(l *Loader) {
		if decoded > 0 {
			l.maxPixels = decoded
		}
		if output > 0 {
			l.maxOutputPixels = output
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.fetchTimeout = d
		}
	}
}

func NewLoader(log zerolog.Logger, opts ...Option) *Loader {
	l := &Loader{
		minWidth:        DefaultMinWidth,
		maxPixels:       DefaultMaxPixels,
		maxOutputPixels: DefaultMaxOutputPixels,
		fetchTimeout:    DefaultFetchTimeout,
		log:             log,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func invalid(format string, args ...any) error {
	return domain.NewStageError(domain.KindInvalidSource, fmt.Errorf(format, args...))
}

// Load resolves source and decodes it. Every failure is an invalid-source error.
func (l *Loader) Load(ctx context.Context, source string) (image.Image, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, invalid("empty source")
	}

	if strings.HasPrefix(source, "data:") {
		comma := strings.Index(source, ",")
		if comma < 0 || !strings.Contains(source[:comma], ";base64") {
			return nil, invalid("malformed data URI")
		}
		raw, err := decodeBase64(source[comma+1:])
		if err != nil {
			return nil, invalid("data URI payload: %w", err)
		}
		return l.Decode(raw)
	}

	for _, f := range l.fetchers {
		if !f.Supports(source) {
			continue
		}
		fctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
		raw, err := f.Fetch(fctx, source)
		if err != nil {
			return nil, invalid("fetch %s: %w", redact(source), err)
		}
		l.log.Debug().Str("source", redact(source)).Int("bytes", len(raw)).Msg("fetched image")
		return l.Decode(raw)
	}

	if strings.Contains(source, "://") {
		return nil, invalid("unsupported source scheme %q", redact(source))
	}

	raw, err := decodeBase64(source)
	if err != nil {
		return nil, invalid("not base64: %w", err)
	}
	return l.Decode(raw)
}

// Decode reads encoded image bytes in any registered format. The header is
// checked against the pixel budget before any pixel data is allocated.
func (l *Loader) Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, invalid("empty image payload")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, invalid("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, invalid("image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(l.maxPixels) {
		return nil, invalid("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, l.maxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, invalid("decode image: %w", err)
	}
	l.log.Debug().Str("format", format).Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).Msg("decoded image")
	return img, nil
}

// Preprocess converts img to grayscale, upscales narrow images towards the
// minimum width with Lanczos resampling and returns PNG bytes. The upscale is
// clamped so the result stays within the output pixel budget.
func (l *Loader) Preprocess(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, invalid("nil image")
	}
	out := imaging.Grayscale(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	if target := upscaleWidth(w, h, l.minWidth, l.maxOutputPixels); target > w {
		out = imaging.Resize(out, target, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// upscaleWidth returns the width to resize a w x h image to, keeping the
// aspect ratio: minWidth at most, and never more than maxPixels in total.
func upscaleWidth(w, h, minWidth, maxPixels int) int {
	if w <= 0 || h <= 0 || w >= minWidth {
		return w
	}
	target := minWidth
	if int64(target)*int64(target)*int64(h) > int64(maxPixels)*int64(w) {
		// largest width t with t * (t*h/w) <= maxPixels
		target = int(math.Sqrt(float64(maxPixels) * float64(w) / float64(h)))
	}
	return max(target, w)
}

// Prepare is Load followed by Preprocess.
func (l *Loader) Prepare(ctx context.Context, source string) ([]byte, error) {
	img, err := l.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return l.Preprocess(img)
}

// PrepareBytes is Decode followed by Preprocess.
func (l *Loader) PrepareBytes(raw []byte) ([]byte, error) {
	img, err := l.Decode(raw)
	if err != nil {
		return nil, err
	}
	return l.Preprocess(img)
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, errors.New("empty payload")
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// redact keeps logs free of query strings, which often carry signed tokens.
func redact(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		return uri[:i]
	}
	return uri
}
