// Package rpc serves the engine over gRPC. Messages are google.protobuf.Struct
// so no generated code is needed; field names match the HTTP JSON bodies.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gacha.v1.Engine"

// EngineServer is the server API for gacha.v1.Engine.
type EngineServer interface {
	CreatePlayer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Draw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Forge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Odds(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(EngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Engine_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreatePlayer", Handler: unaryHandler("CreatePlayer", EngineServer.CreatePlayer)},
		{MethodName: "Draw", Handler: unaryHandler("Draw", EngineServer.Draw)},
		{MethodName: "Forge", Handler: unaryHandler("Forge", EngineServer.Forge)},
		{MethodName: "Stats", Handler: unaryHandler("Stats", EngineServer.Stats)},
		{MethodName: "Odds", Handler: unaryHandler("Odds", EngineServer.Odds)},
	},
	Metadata: "gacha/v1/engine.proto",
}

func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&Engine_ServiceDesc, srv)
}
