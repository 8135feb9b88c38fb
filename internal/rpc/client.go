package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls gacha.v1.Engine.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePlayer(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreatePlayer", nil, opts...)
}

func (c *Client) Draw(ctx context.Context, playerID string, n int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Draw", map[string]any{"player_id": playerID, "n": n}, opts...)
}

func (c *Client) Forge(ctx context.Context, playerID, itemID string, protect, auto bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Forge", map[string]any{
		"player_id": playerID,
		"item_id":   itemID,
		"protect":   protect,
		"auto":      auto,
	}, opts...)
}

func (c *Client) Stats(ctx context.Context, playerID, scope string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Stats", map[string]any{"player_id": playerID, "scope": scope}, opts...)
}

func (c *Client) Odds(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Odds", nil, opts...)
}
