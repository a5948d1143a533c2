package ports

import "context"

type OCRPort interface {
	// Returns extracted text from encoded image bytes (PNG after preprocessing).
	ExtractText(ctx context.Context, image []byte) (string, error)
}
