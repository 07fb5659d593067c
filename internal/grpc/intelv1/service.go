// Package intelv1 describes the intelligence.v1.IntelligenceCore gRPC service.
// Messages are protobuf well-known types so no generated code is required.
package intelv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "intelligence.v1.IntelligenceCore"

const (
	FullMethodGetSummary     = "/" + ServiceName + "/GetSummary"
	FullMethodGetDrift       = "/" + ServiceName + "/GetDrift"
	FullMethodGetPerformance = "/" + ServiceName + "/GetPerformance"
	FullMethodQuerySignals   = "/" + ServiceName + "/QuerySignals"
	FullMethodRunCycle       = "/" + ServiceName + "/RunCycle"
	FullMethodListSystems    = "/" + ServiceName + "/ListSystems"
	FullMethodListPatterns   = "/" + ServiceName + "/ListPatterns"
)

// IntelligenceCoreServer is the server API for the IntelligenceCore service.
type IntelligenceCoreServer interface {
	GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDrift(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPerformance(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	QuerySignals(context.Context, *structpb.Struct) (*structpb.Value, error)
	RunCycle(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSystems(context.Context, *emptypb.Empty) (*structpb.Value, error)
	ListPatterns(context.Context, *emptypb.Empty) (*structpb.Value, error)
}

// UnimplementedIntelligenceCoreServer can be embedded to satisfy the interface.
type UnimplementedIntelligenceCoreServer struct{}

func (UnimplementedIntelligenceCoreServer) GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSummary not implemented")
}

func (UnimplementedIntelligenceCoreServer) GetDrift(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDrift not implemented")
}

func (UnimplementedIntelligenceCoreServer) GetPerformance(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPerformance not implemented")
}

func (UnimplementedIntelligenceCoreServer) QuerySignals(context.Context, *structpb.Struct) (*structpb.Value, error) {
	return nil, status.Error(codes.Unimplemented, "method QuerySignals not implemented")
}

func (UnimplementedIntelligenceCoreServer) RunCycle(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RunCycle not implemented")
}

func (UnimplementedIntelligenceCoreServer) ListSystems(context.Context, *emptypb.Empty) (*structpb.Value, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSystems not implemented")
}

func (UnimplementedIntelligenceCoreServer) ListPatterns(context.Context, *emptypb.Empty) (*structpb.Value, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPatterns not implemented")
}

// ServiceDesc is the grpc.ServiceDesc for the IntelligenceCore service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IntelligenceCoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetSummary", newEmpty, func(s IntelligenceCoreServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.GetSummary(ctx, in)
		}),
		unaryMethod("GetDrift", newEmpty, func(s IntelligenceCoreServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.GetDrift(ctx, in)
		}),
		unaryMethod("GetPerformance", newEmpty, func(s IntelligenceCoreServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.GetPerformance(ctx, in)
		}),
		unaryMethod("QuerySignals", newStruct, func(s IntelligenceCoreServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.QuerySignals(ctx, in)
		}),
		unaryMethod("RunCycle", newEmpty, func(s IntelligenceCoreServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.RunCycle(ctx, in)
		}),
		unaryMethod("ListSystems", newEmpty, func(s IntelligenceCoreServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.ListSystems(ctx, in)
		}),
		unaryMethod("ListPatterns", newEmpty, func(s IntelligenceCoreServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.ListPatterns(ctx, in)
		}),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterIntelligenceCoreServer registers srv with the gRPC registrar.
func RegisterIntelligenceCoreServer(s grpc.ServiceRegistrar, srv IntelligenceCoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }

func newStruct() *structpb.Struct { return &structpb.Struct{} }

func unaryMethod[Req proto.Message](
	name string,
	newReq func() Req,
	call func(IntelligenceCoreServer, context.Context, Req) (proto.Message, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IntelligenceCoreServer), ctx, req.(Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}
