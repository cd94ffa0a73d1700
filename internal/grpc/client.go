package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

// Client is a thin typed client for neowatch.v1.NEOService.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection. Close is a no-op for it.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) ListNEOs(ctx context.Context, pageIndex, pageSize int) (*models.Page, error) {
	out := new(models.Page)
	if err := c.cc.Invoke(ctx, listNEOsMethod, &ListNEOsRequest{PageIndex: pageIndex, PageSize: pageSize}, out, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetNEO(ctx context.Context, id string) (*models.NEO, error) {
	out := new(models.NEO)
	if err := c.cc.Invoke(ctx, getNEOMethod, &GetNEORequest{ID: id}, out, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSelection(ctx context.Context) (*models.Selection, error) {
	out := new(models.Selection)
	if err := c.cc.Invoke(ctx, getSelectionMethod, &GetSelectionRequest{}, out, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StreamLiveMetrics(ctx context.Context, req *StreamLiveMetricsRequest) (grpc.ServerStreamingClient[models.LiveMetricsSnapshot], error) {
	stream, err := c.cc.NewStream(ctx, &NEOServiceDesc.Streams[0], streamLiveMetricsMethod, grpc.ForceCodec(jsonCodec{}))
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[StreamLiveMetricsRequest, models.LiveMetricsSnapshot]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
