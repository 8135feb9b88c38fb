package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/gacha-forge/internal/audit"
	"github.com/xtding233/gacha-forge/internal/service"
	"github.com/xtding233/gacha-forge/internal/store"
	"github.com/xtding233/gacha-forge/internal/token"
)

// Server adapts service.Service to EngineServer.
type Server struct {
	svc *service.Service
}

var _ EngineServer = (*Server)(nil)

func NewServer(svc *service.Service) *Server { return &Server{svc: svc} }

// NewGRPCServer returns a grpc.Server with the engine registered and access
// logging installed.
func NewGRPCServer(svc *service.Service, log *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(AccessLog(log))}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterEngineServer(gs, NewServer(svc))
	return gs
}

func (s *Server) CreatePlayer(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.svc.CreatePlayer(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(p)
}

func (s *Server) Draw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(in, "player_id")
	if err != nil {
		return nil, err
	}
	n := 1
	if v, ok := in.GetFields()["n"]; ok {
		n = int(v.GetNumberValue())
	}
	res, err := s.svc.Draw(ctx, id, n)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func (s *Server) Forge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(in, "player_id")
	if err != nil {
		return nil, err
	}
	item, err := requireString(in, "item_id")
	if err != nil {
		return nil, err
	}
	f := in.GetFields()
	res, err := s.svc.Forge(ctx, id, item, f["protect"].GetBoolValue(), f["auto"].GetBoolValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func (s *Server) Stats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(in, "player_id")
	if err != nil {
		return nil, err
	}
	scope, err := audit.ParseScope(in.GetFields()["scope"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rep, err := s.svc.Stats(ctx, id, scope)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(rep)
}

func (s *Server) Odds(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encode(s.svc.Odds())
}

func requireString(in *structpb.Struct, key string) (string, error) {
	v := in.GetFields()[key].GetStringValue()
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

// encode goes through the JSON form so RPC replies carry the same field
// names as HTTP bodies.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps service errors onto gRPC codes.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrItemNotFound):
		code = codes.NotFound
	case errors.Is(err, service.ErrBusy):
		code = codes.Aborted
	case errors.Is(err, token.ErrInsufficientTokens), errors.Is(err, service.ErrNoProtection):
		code = codes.FailedPrecondition
	case errors.Is(err, service.ErrInvalidCount):
		code = codes.InvalidArgument
	}
	return status.Error(code, err.Error())
}

// AccessLog emits one "grpc.access" record per unary call. A nil logger
// makes it a pass-through.
func AccessLog(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if log == nil {
			return resp, err
		}
		code := status.Code(err)
		lvl := slog.LevelInfo
		switch code {
		case codes.OK:
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			lvl = slog.LevelError
		default:
			lvl = slog.LevelWarn
		}
		log.LogAttrs(ctx, lvl, "grpc.access",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}
