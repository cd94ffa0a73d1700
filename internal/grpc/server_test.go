package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/mr1hm/go-neo-watch/internal/models"
	"github.com/mr1hm/go-neo-watch/internal/neo"
	"github.com/mr1hm/go-neo-watch/internal/observability"
	"github.com/mr1hm/go-neo-watch/internal/selection"
)

type mockNEOs struct {
	records map[string]models.NEO
}

func (m *mockNEOs) ListNEOs(ctx context.Context, pageIndex, pageSize int) models.Page {
	items := []models.NEO{}
	for _, n := range m.records {
		items = append(items, n)
	}
	return models.Page{Items: items, TotalCount: len(items), PageIndex: pageIndex, PageSize: pageSize, Source: models.SourceUpstream}
}

func (m *mockNEOs) GetNEODetails(ctx context.Context, id string) *models.NEO {
	n, ok := m.records[id]
	if !ok {
		return nil
	}
	return &n
}

type mockLive struct {
	ch           chan models.LiveMetricsSnapshot
	unsubscribed chan uint64
}

func (m *mockLive) Current() models.LiveMetricsSnapshot {
	return models.LiveMetricsSnapshot{Sequence: 5, FPS: 150}
}

func (m *mockLive) Subscribe() (uint64, <-chan models.LiveMetricsSnapshot) {
	return 9, m.ch
}

func (m *mockLive) Unsubscribe(id uint64) {
	m.unsubscribed <- id
}

type testEnv struct {
	client    *Client
	store     *selection.Store
	live      *mockLive
	collector *observability.Collector
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	return setupTestServerWith(t, &mockNEOs{records: map[string]models.NEO{"2000433": {ID: "2000433", Name: "Eros"}}})
}

func setupTestServerWith(t *testing.T, neos NEOService) *testEnv {
	t.Helper()

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	env := &testEnv{
		store:     selection.NewStore(),
		live:      &mockLive{ch: make(chan models.LiveMetricsSnapshot, 4), unsubscribed: make(chan uint64, 1)},
		collector: collector,
	}
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(neos, env.store, env.live, grpc.UnaryInterceptor(collector.UnaryServerInterceptor()))
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	env.client = NewClient(conn)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		env.store.Close()
	})
	return env
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestListNEOs(t *testing.T) {
	env := setupTestServer(t)

	page, err := env.client.ListNEOs(testContext(t), 1, 10)
	if err != nil {
		t.Fatalf("ListNEOs: %v", err)
	}
	if page.PageIndex != 1 || page.PageSize != 10 || len(page.Items) != 1 {
		t.Errorf("unexpected page %+v", page)
	}
	if page.Items[0].Name != "Eros" {
		t.Errorf("expected Eros, got %s", page.Items[0].Name)
	}

	if got := testutil.ToFloat64(env.collector.RPCRequests.WithLabelValues("NEOService", "ListNEOs", "OK")); got != 1 {
		t.Errorf("grpc_requests_total = %v, want 1", got)
	}
}

func TestListNEOs_PastEndOfFallback(t *testing.T) {
	svc := neo.NewService(neo.NewClient("http://127.0.0.1:1", "", time.Second), nil, neo.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	env := setupTestServerWith(t, svc)

	for _, index := range []int{3, math.MaxInt / 2, math.MaxInt} {
		page, err := env.client.ListNEOs(testContext(t), index, 3)
		if err != nil {
			t.Fatalf("ListNEOs(%d): %v", index, err)
		}
		if len(page.Items) != 0 || page.TotalCount != 8 {
			t.Errorf("ListNEOs(%d): got %d items, total %d", index, len(page.Items), page.TotalCount)
		}
		if page.Source != models.SourceFallback {
			t.Errorf("ListNEOs(%d): source %q", index, page.Source)
		}
	}
}

func TestListNEOs_InvalidArgument(t *testing.T) {
	env := setupTestServer(t)

	for _, args := range [][2]int{{-1, 10}, {0, 101}, {0, -5}} {
		_, err := env.client.ListNEOs(testContext(t), args[0], args[1])
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("ListNEOs%v: expected InvalidArgument, got %v", args, err)
		}
	}
}

func TestGetNEO(t *testing.T) {
	env := setupTestServer(t)

	n, err := env.client.GetNEO(testContext(t), "2000433")
	if err != nil {
		t.Fatalf("GetNEO: %v", err)
	}
	if n.Name != "Eros" {
		t.Errorf("expected Eros, got %s", n.Name)
	}

	_, err = env.client.GetNEO(testContext(t), "missing")
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	_, err = env.client.GetNEO(testContext(t), "")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestGetSelection(t *testing.T) {
	env := setupTestServer(t)
	env.store.SetImpactCoordinates(&models.Coordinates{Lat: 10, Lng: 20})
	env.store.SetSimulationStep(models.StepImpact)

	sel, err := env.client.GetSelection(testContext(t))
	if err != nil {
		t.Fatalf("GetSelection: %v", err)
	}
	if sel.ImpactCoordinates == nil || sel.ImpactCoordinates.Lng != 20 {
		t.Errorf("unexpected coordinates %+v", sel.ImpactCoordinates)
	}
	if sel.SimulationStep != models.StepImpact {
		t.Errorf("expected step impact, got %s", sel.SimulationStep)
	}
}

func TestStreamLiveMetrics(t *testing.T) {
	env := setupTestServer(t)

	env.live.ch <- models.LiveMetricsSnapshot{Sequence: 4}
	env.live.ch <- models.LiveMetricsSnapshot{Sequence: 6, FPS: 121}

	stream, err := env.client.StreamLiveMetrics(testContext(t), &StreamLiveMetricsRequest{MaxSnapshots: 2})
	if err != nil {
		t.Fatalf("StreamLiveMetrics: %v", err)
	}

	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if first.Sequence != 5 || first.FPS != 150 {
		t.Errorf("expected current snapshot first, got %+v", first)
	}

	second, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if second.Sequence != 6 || second.FPS != 121 {
		t.Errorf("expected sequence 6 (older one skipped), got %+v", second)
	}

	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF after max snapshots, got %v", err)
	}

	select {
	case id := <-env.live.unsubscribed:
		if id != 9 {
			t.Errorf("expected subscriber 9 released, got %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not unsubscribe")
	}
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	if c.Name() != "json" {
		t.Errorf("expected codec name json, got %s", c.Name())
	}

	b, err := c.Marshal(&GetNEORequest{ID: "42"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"id":"42"}` {
		t.Errorf("unexpected encoding %s", b)
	}
}
