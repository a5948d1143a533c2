package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

type fakePipeline struct {
	document func(ctx context.Context, source string) domain.ExtractedTransaction
	image    func(ctx context.Context, image []byte) domain.ExtractedTransaction
	line     func(ctx context.Context, text string) (domain.LineExpense, bool)
	text     func(ctx context.Context, image []byte) (string, error)
	category func(ctx context.Context, merchant, description string) string
}

func (f *fakePipeline) ExtractFromDocument(ctx context.Context, source string) domain.ExtractedTransaction {
	return f.document(ctx, source)
}

func (f *fakePipeline) ExtractFromImage(ctx context.Context, image []byte) domain.ExtractedTransaction {
	return f.image(ctx, image)
}

func (f *fakePipeline) ExtractFromLine(ctx context.Context, text string) (domain.LineExpense, bool) {
	return f.line(ctx, text)
}

func (f *fakePipeline) ExtractText(ctx context.Context, image []byte) (string, error) {
	return f.text(ctx, image)
}

func (f *fakePipeline) Categorize(ctx context.Context, merchant, description string) string {
	return f.category(ctx, merchant, description)
}

func dial(t *testing.T, p Pipeline) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterExtractorServer(s, NewHandler(p))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestJSONCodec(t *testing.T) {
	c := JSONCodec{}
	b, err := c.Marshal(&ExtractLineRequest{Text: "Uber 4500"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Uber 4500"}`, string(b))

	var out ExtractLineRequest
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, "Uber 4500", out.Text)
	assert.Equal(t, "json", c.Name())
}

func TestCheck(t *testing.T) {
	conn := dial(t, &fakePipeline{})

	resp := &HealthCheckResponse{}
	require.NoError(t, conn.Invoke(context.Background(), FullMethod("Check"), &HealthCheckRequest{}, resp))
	assert.True(t, resp.Healthy)
	assert.Equal(t, "OK: expense-extractor", resp.Message)
}

func TestExtractDocument(t *testing.T) {
	date := "2024-01-15"
	var gotSource string
	var gotImage []byte
	tx := domain.ExtractedTransaction{
		Merchant: "Shoprite",
		Amount:   14.03,
		Currency: "NGN",
		Date:     &date,
		Items:    []string{"Bread"},
		Category: "Food",
		Status:   domain.StatusOK,
	}
	p := &fakePipeline{
		document: func(_ context.Context, source string) domain.ExtractedTransaction {
			gotSource = source
			return tx
		},
		image: func(_ context.Context, image []byte) domain.ExtractedTransaction {
			gotImage = image
			return tx
		},
	}
	conn := dial(t, p)
	ctx := context.Background()

	resp := &domain.ExtractedTransaction{}
	require.NoError(t, conn.Invoke(ctx, FullMethod("ExtractDocument"), &ExtractDocumentRequest{Source: "gs://b/r.png"}, resp))
	assert.Equal(t, "gs://b/r.png", gotSource)
	assert.Equal(t, tx, *resp)

	resp = &domain.ExtractedTransaction{}
	require.NoError(t, conn.Invoke(ctx, FullMethod("ExtractDocument"), &ExtractDocumentRequest{ImageData: []byte{1, 2, 3}}, resp))
	assert.Equal(t, []byte{1, 2, 3}, gotImage)

	err := conn.Invoke(ctx, FullMethod("ExtractDocument"), &ExtractDocumentRequest{}, &domain.ExtractedTransaction{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		req  *ExtractTextRequest
		err  error
		code codes.Code
	}{
		{"ok", &ExtractTextRequest{ImageData: []byte("img")}, nil, codes.OK},
		{"empty", &ExtractTextRequest{}, nil, codes.InvalidArgument},
		{"bad image", &ExtractTextRequest{ImageData: []byte("img")}, domain.NewStageError(domain.KindInvalidSource, nil), codes.InvalidArgument},
		{"engine down", &ExtractTextRequest{ImageData: []byte("img")}, domain.NewStageError(domain.KindOCRFailure, errors.New("boom")), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, &fakePipeline{
				text: func(context.Context, []byte) (string, error) {
					if tt.err != nil {
						return "", tt.err
					}
					return "TOTAL 500", nil
				},
			})
			resp := &ExtractTextResponse{}
			err := conn.Invoke(context.Background(), FullMethod("ExtractText"), tt.req, resp)
			assert.Equal(t, tt.code, status.Code(err))
			if tt.code == codes.OK {
				assert.Equal(t, "TOTAL 500", resp.ExtractedText)
			}
		})
	}
}

func TestExtractLine(t *testing.T) {
	conn := dial(t, &fakePipeline{
		line: func(_ context.Context, text string) (domain.LineExpense, bool) {
			if text == "hello" {
				return domain.LineExpense{}, false
			}
			return domain.LineExpense{Merchant: "Uber", Amount: 4500}, true
		},
	})
	ctx := context.Background()

	resp := &ExtractLineResponse{}
	require.NoError(t, conn.Invoke(ctx, FullMethod("ExtractLine"), &ExtractLineRequest{Text: "Uber 4500"}, resp))
	assert.Equal(t, ExtractLineResponse{Found: true, Merchant: "Uber", Amount: 4500}, *resp)

	resp = &ExtractLineResponse{}
	require.NoError(t, conn.Invoke(ctx, FullMethod("ExtractLine"), &ExtractLineRequest{Text: "hello"}, resp))
	assert.False(t, resp.Found)

	err := conn.Invoke(ctx, FullMethod("ExtractLine"), &ExtractLineRequest{Text: "  "}, &ExtractLineResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCategorize(t *testing.T) {
	conn := dial(t, &fakePipeline{
		category: func(_ context.Context, merchant, description string) string {
			if merchant == "Uber" {
				return "Transport"
			}
			return domain.FallbackCategory
		},
	})
	ctx := context.Background()

	resp := &CategorizeResponse{}
	require.NoError(t, conn.Invoke(ctx, FullMethod("Categorize"), &CategorizeRequest{Merchant: "Uber"}, resp))
	assert.Equal(t, "Transport", resp.Category)

	err := conn.Invoke(ctx, FullMethod("Categorize"), &CategorizeRequest{}, &CategorizeResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRegisterExtractorServerServices(t *testing.T) {
	s := grpc.NewServer()
	RegisterExtractorServer(s, NewHandler(&fakePipeline{}))

	info := s.GetServiceInfo()
	require.Contains(t, info, ServiceName)
	assert.Len(t, info, 1)
	assert.Len(t, info[ServiceName].Methods, 5)
}
