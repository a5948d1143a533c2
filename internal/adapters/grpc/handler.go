package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/logger"
)

// Pipeline is the subset of the extractor the transport needs.
type Pipeline interface {
	ExtractFromDocument(ctx context.Context, source string) domain.ExtractedTransaction
	ExtractFromImage(ctx context.Context, image []byte) domain.ExtractedTransaction
	ExtractFromLine(ctx context.Context, text string) (domain.LineExpense, bool)
	ExtractText(ctx context.Context, image []byte) (string, error)
	Categorize(ctx context.Context, merchant, description string) string
}

type Handler struct {
	pipeline Pipeline
}

func NewHandler(p Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func (h *Handler) Check(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "expense-extractor"
	}
	return &HealthCheckResponse{Healthy: true, Message: "OK: " + name}, nil
}

func (h *Handler) ExtractText(ctx context.Context, req *ExtractTextRequest) (*ExtractTextResponse, error) {
	if len(req.ImageData) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image_data is empty")
	}

	txt, err := h.pipeline.ExtractText(ctx, req.ImageData)
	switch {
	case err == nil:
		return &ExtractTextResponse{ExtractedText: txt}, nil
	case errors.Is(err, domain.ErrInvalidSource):
		return nil, status.Errorf(codes.InvalidArgument, "invalid image: %v", err)
	default:
		logger.FromContext(ctx).Error().Err(err).Msg("OCR error")
		// OCR is external infrastructure
		return nil, status.Errorf(codes.Unavailable, "ocr failed: %v", err)
	}
}

func (h *Handler) ExtractDocument(ctx context.Context, req *ExtractDocumentRequest) (*domain.ExtractedTransaction, error) {
	var tx domain.ExtractedTransaction
	switch {
	case len(req.ImageData) > 0:
		tx = h.pipeline.ExtractFromImage(ctx, req.ImageData)
	case strings.TrimSpace(req.Source) != "":
		tx = h.pipeline.ExtractFromDocument(ctx, req.Source)
	default:
		return nil, status.Error(codes.InvalidArgument, "image_data and source are both empty")
	}
	return &tx, nil
}

func (h *Handler) ExtractLine(ctx context.Context, req *ExtractLineRequest) (*ExtractLineResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, status.Error(codes.InvalidArgument, "text is empty")
	}
	line, ok := h.pipeline.ExtractFromLine(ctx, req.Text)
	if !ok {
		return &ExtractLineResponse{Found: false}, nil
	}
	return &ExtractLineResponse{Found: true, Merchant: line.Merchant, Amount: line.Amount}, nil
}

func (h *Handler) Categorize(ctx context.Context, req *CategorizeRequest) (*CategorizeResponse, error) {
	if strings.TrimSpace(req.Merchant) == "" && strings.TrimSpace(req.Description) == "" {
		return nil, status.Error(codes.InvalidArgument, "merchant and description are both empty")
	}
	return &CategorizeResponse{Category: h.pipeline.Categorize(ctx, req.Merchant, req.Description)}, nil
}
