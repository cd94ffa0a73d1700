package livemetrics

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-neo-watch/internal/models"
	"github.com/mr1hm/go-neo-watch/internal/selection"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingRecorder struct {
	mu       sync.Mutex
	triggers []string
	subs     int
}

func (r *countingRecorder) RecordLiveTick(trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, trigger)
}

func (r *countingRecorder) SetLiveSubscribers(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = n
}

func newTestGenerator(store *selection.Store, interval time.Duration, rec Recorder) *Generator {
	return NewGenerator(store, Options{
		Interval: interval,
		Rand:     rand.New(rand.NewPCG(42, 42)),
		Recorder: rec,
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
}

func (g *Generator) running() bool {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	return g.stop != nil
}

func receive(t *testing.T, ch <-chan models.LiveMetricsSnapshot) models.LiveMetricsSnapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "channel closed")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return models.LiveMetricsSnapshot{}
	}
}

func TestGenerator_FirstSubscriberGetsInitialSnapshot(t *testing.T) {
	g := newTestGenerator(nil, time.Hour, nil)
	defer g.Close()

	id, ch := g.Subscribe()
	defer g.Unsubscribe(id)

	s := receive(t, ch)
	assert.EqualValues(t, 1, s.Sequence)
	assert.False(t, s.GeneratedAt.IsZero())
}

func TestGenerator_Ticks(t *testing.T) {
	g := newTestGenerator(nil, 5*time.Millisecond, nil)
	defer g.Close()

	id, ch := g.Subscribe()
	defer g.Unsubscribe(id)

	var last uint64
	for i := 0; i < 4; i++ {
		s := receive(t, ch)
		assert.Greater(t, s.Sequence, last)
		last = s.Sequence
	}
}

func TestGenerator_SubscribersShareSnapshot(t *testing.T) {
	store := selection.NewStore()
	defer store.Close()
	g := newTestGenerator(store, time.Hour, nil)
	defer g.Close()

	idA, a := g.Subscribe()
	defer g.Unsubscribe(idA)
	idB, b := g.Subscribe()
	defer g.Unsubscribe(idB)

	initial := receive(t, a)
	assert.Equal(t, "N/A", initial.ImpactLocation)

	store.SetImpactCoordinates(&models.Coordinates{Lat: 1.5, Lng: 2.25})

	fromA := receive(t, a)
	fromB := receive(t, b)
	assert.Equal(t, fromA, fromB)
	assert.Equal(t, "1.50°, 2.25°", fromA.ImpactLocation)
	assert.Equal(t, initial.Sequence+1, fromA.Sequence)
}

func TestGenerator_RegeneratesOnAsteroidChange(t *testing.T) {
	store := selection.NewStore()
	defer store.Close()
	rec := &countingRecorder{}
	g := newTestGenerator(store, time.Hour, rec)
	defer g.Close()

	id, ch := g.Subscribe()
	defer g.Unsubscribe(id)
	receive(t, ch)

	store.SetSelectedAsteroid(&models.AsteroidSummary{ID: "x", DiameterMeters: 100, VelocityKmPerSec: 10, IsHazardous: true})

	s := receive(t, ch)
	assert.InDelta(t, 100.0, s.EnergyMT, 1e-9)
	assert.GreaterOrEqual(t, s.CollisionProbability, 0.0001)

	rec.mu.Lock()
	assert.Equal(t, []string{TriggerInitial, TriggerSelection}, rec.triggers)
	assert.Equal(t, 1, rec.subs)
	rec.mu.Unlock()
}

func TestGenerator_IgnoresSimulationPhaseChanges(t *testing.T) {
	store := selection.NewStore()
	defer store.Close()
	g := newTestGenerator(store, time.Hour, nil)
	defer g.Close()

	id, ch := g.Subscribe()
	defer g.Unsubscribe(id)
	receive(t, ch)

	store.SetSimulationStep(models.StepResults)
	store.SetSimulationActive(true)

	select {
	case s := <-ch:
		t.Fatalf("unexpected snapshot %d", s.Sequence)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGenerator_StopsWithLastSubscriber(t *testing.T) {
	store := selection.NewStore()
	defer store.Close()
	rec := &countingRecorder{}
	g := newTestGenerator(store, time.Millisecond, rec)
	defer g.Close()

	assert.False(t, g.running())

	id1, _ := g.Subscribe()
	id2, _ := g.Subscribe()
	assert.True(t, g.running())
	assert.Equal(t, 2, g.SubscriberCount())

	g.Unsubscribe(id1)
	assert.True(t, g.running())

	g.Unsubscribe(id2)
	assert.False(t, g.running())
	assert.Equal(t, 0, g.SubscriberCount())

	rec.mu.Lock()
	assert.Equal(t, 0, rec.subs)
	rec.mu.Unlock()

	// unknown ids are ignored
	g.Unsubscribe(id2)
	assert.False(t, g.running())

	// restarts on demand
	id3, ch := g.Subscribe()
	assert.True(t, g.running())
	receive(t, ch)
	g.Unsubscribe(id3)
	assert.False(t, g.running())
}

func TestGenerator_Current(t *testing.T) {
	g := newTestGenerator(nil, time.Hour, nil)
	defer g.Close()

	first := g.Current()
	assert.EqualValues(t, 1, first.Sequence)
	assert.Equal(t, first, g.Current())

	id, ch := g.Subscribe()
	defer g.Unsubscribe(id)
	published := receive(t, ch)
	assert.Equal(t, published, g.Current())
}

func TestGenerator_CurrentRefreshesWithoutSubscribers(t *testing.T) {
	store := selection.NewStore()
	defer store.Close()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(store, Options{
		Interval: 2 * time.Second,
		Rand:     rand.New(rand.NewPCG(7, 7)),
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Now:      func() time.Time { return now },
	})
	defer g.Close()

	first := g.Current()
	assert.Equal(t, "N/A", first.ImpactLocation)

	now = now.Add(time.Second)
	assert.Equal(t, first, g.Current(), "snapshot is reused within the interval")

	now = now.Add(time.Second)
	ticked := g.Current()
	assert.Greater(t, ticked.Sequence, first.Sequence)
	assert.Equal(t, now, ticked.GeneratedAt)

	store.SetSelectedAsteroid(&models.AsteroidSummary{ID: "x", DiameterMeters: 100, VelocityKmPerSec: 10, IsHazardous: true})
	store.SetImpactCoordinates(&models.Coordinates{Lat: 10, Lng: 20})

	selected := g.Current()
	assert.Greater(t, selected.Sequence, ticked.Sequence)
	assert.Equal(t, "10.00°, 20.00°", selected.ImpactLocation)
	assert.InDelta(t, 100.0, selected.EnergyMT, 1e-9)
	assert.GreaterOrEqual(t, selected.CollisionProbability, 0.0001)
	assert.Equal(t, selected, g.Current())

	store.SetSimulationStep(models.StepImpact)
	assert.Equal(t, selected, g.Current(), "phase changes do not regenerate")
	assert.False(t, g.running())
}

func TestGenerator_Close(t *testing.T) {
	g := newTestGenerator(nil, time.Millisecond, nil)

	_, ch := g.Subscribe()
	g.Close()
	assert.False(t, g.running())

	for range ch {
	}

	_, late := g.Subscribe()
	_, ok := <-late
	assert.False(t, ok)

	g.Close()
}
