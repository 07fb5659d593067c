package intelv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the IntelligenceCore service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens a plaintext connection to addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return grpc.NewClient(addr, opts...)
}

func (c *Client) GetSummary(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodGetSummary, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDrift(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodGetDrift, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPerformance(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodGetPerformance, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// QuerySignals sends the query fields system, start, end, limit, offset and
// sortOrder as a Struct.
func (c *Client) QuerySignals(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, FullMethodQuerySignals, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RunCycle(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodRunCycle, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListSystems(ctx context.Context, opts ...grpc.CallOption) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, FullMethodListSystems, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPatterns(ctx context.Context, opts ...grpc.CallOption) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, FullMethodListPatterns, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
