package grpc

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mr1hm/go-neo-watch/internal/config"
	"github.com/mr1hm/go-neo-watch/internal/models"
	"github.com/mr1hm/go-neo-watch/internal/selection"
)

type NEOService interface {
	ListNEOs(ctx context.Context, pageIndex, pageSize int) models.Page
	GetNEODetails(ctx context.Context, id string) *models.NEO
}

type MetricsSource interface {
	Current() models.LiveMetricsSnapshot
	Subscribe() (uint64, <-chan models.LiveMetricsSnapshot)
	Unsubscribe(id uint64)
}

type Server struct {
	neos       NEOService
	store      *selection.Store
	live       MetricsSource
	grpcServer *grpc.Server
}

var _ NEOServiceServer = (*Server)(nil)

// NewServer registers the service on a new grpc.Server. opts are appended
// after the JSON codec option.
func NewServer(neos NEOService, store *selection.Store, live MetricsSource, opts ...grpc.ServerOption) *Server {
	s := &Server{
		neos:  neos,
		store: store,
		live:  live,
	}
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(jsonCodec{})}, opts...)
	s.grpcServer = grpc.NewServer(opts...)
	RegisterNEOServiceServer(s.grpcServer, s)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	slog.Info("gRPC server listening", "addr", addr)
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

func (s *Server) ListNEOs(ctx context.Context, req *ListNEOsRequest) (*models.Page, error) {
	if req.PageIndex < 0 {
		return nil, status.Error(codes.InvalidArgument, "page_index must be non-negative")
	}
	if req.PageSize < 0 || req.PageSize > config.MaxPageSize {
		return nil, status.Errorf(codes.InvalidArgument, "page_size must be between 1 and %d", config.MaxPageSize)
	}

	page := s.neos.ListNEOs(ctx, req.PageIndex, req.PageSize)
	return &page, nil
}

func (s *Server) GetNEO(ctx context.Context, req *GetNEORequest) (*models.NEO, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	n := s.neos.GetNEODetails(ctx, req.ID)
	if n == nil {
		return nil, status.Errorf(codes.NotFound, "no data for neo %s", req.ID)
	}
	return n, nil
}

func (s *Server) GetSelection(ctx context.Context, req *GetSelectionRequest) (*models.Selection, error) {
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "selection store not configured")
	}
	sel := s.store.Snapshot()
	return &sel, nil
}

// StreamLiveMetrics sends the current snapshot and then every published one.
func (s *Server) StreamLiveMetrics(req *StreamLiveMetricsRequest, stream grpc.ServerStreamingServer[models.LiveMetricsSnapshot]) error {
	id, ch := s.live.Subscribe()
	defer s.live.Unsubscribe(id)

	slog.Info("client subscribed to live metrics", "subscriber_id", id)

	sent := 0
	send := func(snap models.LiveMetricsSnapshot) (bool, error) {
		if err := stream.Send(&snap); err != nil {
			slog.Error("failed to send live metrics", "error", err, "subscriber_id", id)
			return false, err
		}
		sent++
		return req.MaxSnapshots > 0 && sent >= req.MaxSnapshots, nil
	}

	current := s.live.Current()
	last := current.Sequence
	if done, err := send(current); done || err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			slog.Info("client disconnected from live metrics", "subscriber_id", id)
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			if snap.Sequence <= last {
				continue
			}
			last = snap.Sequence
			if done, err := send(snap); done || err != nil {
				return err
			}
		}
	}
}
