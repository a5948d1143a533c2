package grpcserver

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/cp25sy5-modjot/expense-extractor/internal/logger"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/expense.v1.ExtractorService/ExtractLine"}

func TestLogUnary(t *testing.T) {
	buf := &bytes.Buffer{}
	icpt := LogUnary(zerolog.New(buf))

	resp, err := icpt(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		logger.FromContext(ctx).Info().Msg("inside handler")
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Contains(t, buf.String(), `"method":"/expense.v1.ExtractorService/ExtractLine"`)
	assert.Contains(t, buf.String(), `"code":"OK"`)
	assert.Contains(t, buf.String(), `"message":"inside handler"`)

	buf.Reset()
	_, err = icpt(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "text is empty")
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"code":"InvalidArgument"`)
}

func TestRecoverUnary(t *testing.T) {
	buf := &bytes.Buffer{}
	_, err := RecoverUnary(zerolog.New(buf))(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, buf.String(), "panic in grpc handler")
}

func TestServerHealth(t *testing.T) {
	s := New("127.0.0.1:0", zerolog.Nop())
	addr, err := s.Listen()
	require.NoError(t, err)

	go func() { _ = s.Start() }()
	defer s.Stop()

	conn, err := grpc.NewClient(addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 20*time.Millisecond)
}
