package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

const (
	serviceName = "neowatch.v1.NEOService"

	listNEOsMethod          = "/" + serviceName + "/ListNEOs"
	getNEOMethod            = "/" + serviceName + "/GetNEO"
	getSelectionMethod      = "/" + serviceName + "/GetSelection"
	streamLiveMetricsMethod = "/" + serviceName + "/StreamLiveMetrics"
)

type ListNEOsRequest struct {
	PageIndex int `json:"page_index"`
	PageSize  int `json:"page_size"`
}

type GetNEORequest struct {
	ID string `json:"id"`
}

type GetSelectionRequest struct{}

type StreamLiveMetricsRequest struct {
	// MaxSnapshots ends the stream after that many snapshots; 0 streams until
	// the client goes away.
	MaxSnapshots int `json:"max_snapshots,omitempty"`
}

// NEOServiceServer is the server API for neowatch.v1.NEOService.
type NEOServiceServer interface {
	ListNEOs(context.Context, *ListNEOsRequest) (*models.Page, error)
	GetNEO(context.Context, *GetNEORequest) (*models.NEO, error)
	GetSelection(context.Context, *GetSelectionRequest) (*models.Selection, error)
	StreamLiveMetrics(*StreamLiveMetricsRequest, grpc.ServerStreamingServer[models.LiveMetricsSnapshot]) error
}

func RegisterNEOServiceServer(s grpc.ServiceRegistrar, srv NEOServiceServer) {
	s.RegisterService(&NEOServiceDesc, srv)
}

var NEOServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*NEOServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListNEOs", Handler: listNEOsHandler},
		{MethodName: "GetNEO", Handler: getNEOHandler},
		{MethodName: "GetSelection", Handler: getSelectionHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamLiveMetrics",
			Handler:       streamLiveMetricsHandler,
			ServerStreams: true,
		},
	},
}

func listNEOsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListNEOsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NEOServiceServer).ListNEOs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listNEOsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NEOServiceServer).ListNEOs(ctx, req.(*ListNEOsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getNEOHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetNEORequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NEOServiceServer).GetNEO(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getNEOMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NEOServiceServer).GetNEO(ctx, req.(*GetNEORequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSelectionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSelectionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NEOServiceServer).GetSelection(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSelectionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NEOServiceServer).GetSelection(ctx, req.(*GetSelectionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func streamLiveMetricsHandler(srv any, stream grpc.ServerStream) error {
	in := new(StreamLiveMetricsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(NEOServiceServer).StreamLiveMetrics(in, &grpc.GenericServerStream[StreamLiveMetricsRequest, models.LiveMetricsSnapshot]{ServerStream: stream})
}
