package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

const ServiceName = "expense.v1.ExtractorService"

type ExtractorServiceServer interface {
	Check(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
	ExtractText(context.Context, *ExtractTextRequest) (*ExtractTextResponse, error)
	ExtractDocument(context.Context, *ExtractDocumentRequest) (*domain.ExtractedTransaction, error)
	ExtractLine(context.Context, *ExtractLineRequest) (*ExtractLineResponse, error)
	Categorize(context.Context, *CategorizeRequest) (*CategorizeResponse, error)
}

// ServiceDesc describes ExtractorService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: unary("Check", ExtractorServiceServer.Check)},
		{MethodName: "ExtractText", Handler: unary("ExtractText", ExtractorServiceServer.ExtractText)},
		{MethodName: "ExtractDocument", Handler: unary("ExtractDocument", ExtractorServiceServer.ExtractDocument)},
		{MethodName: "ExtractLine", Handler: unary("ExtractLine", ExtractorServiceServer.ExtractLine)},
		{MethodName: "Categorize", Handler: unary("Categorize", ExtractorServiceServer.Categorize)},
	},
	Streams: []grpc.StreamDesc{},
}

// FullMethod returns "/expense.v1.ExtractorService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](method string, call func(ExtractorServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractorServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterExtractorServer registers the extractor service. Reflection is not
// registered: the service has no protobuf file descriptor to describe.
func RegisterExtractorServer(s *grpc.Server, impl ExtractorServiceServer) {
	s.RegisterService(&ServiceDesc, impl)
}
