package livemetrics

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mr1hm/go-neo-watch/internal/broadcast"
	"github.com/mr1hm/go-neo-watch/internal/models"
	"github.com/mr1hm/go-neo-watch/internal/selection"
)

const DefaultInterval = 2 * time.Second

const (
	TriggerInitial   = "initial"
	TriggerTick      = "tick"
	TriggerSelection = "selection"
)

// Recorder receives generator telemetry. A nil Recorder is allowed.
type Recorder interface {
	RecordLiveTick(trigger string)
	SetLiveSubscribers(n int)
}

type Options struct {
	Interval   time.Duration
	BufferSize int
	Rand       *rand.Rand
	Recorder   Recorder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Generator runs a single loop shared by all subscribers. The loop and its
// ticker only exist while at least one subscriber is registered.
type Generator struct {
	store    *selection.Store
	interval time.Duration
	out      *broadcast.Broadcaster[models.LiveMetricsSnapshot]
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	// mu guards the generation state.
	mu      sync.Mutex
	rng     *rand.Rand
	seq     uint64
	current *models.LiveMetricsSnapshot
	basis   seed
	looping bool

	// runMu serializes loop start and stop.
	runMu  sync.Mutex
	subs   int
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

// NewGenerator creates a generator seeded from store. A nil store behaves as
// an empty selection.
func NewGenerator(store *selection.Store, opts Options) *Generator {
	g := &Generator{
		store:    store,
		interval: opts.Interval,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		now:      opts.Now,
		rng:      opts.Rand,
	}
	if g.interval <= 0 {
		g.interval = DefaultInterval
	}
	if opts.BufferSize < 1 {
		opts.BufferSize = 4
	}
	g.out = broadcast.New[models.LiveMetricsSnapshot](opts.BufferSize)
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

// Subscribe registers a subscriber and starts the loop if it is the first.
// On a closed generator the returned channel is already closed.
func (g *Generator) Subscribe() (uint64, <-chan models.LiveMetricsSnapshot) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	id, ch := g.out.Subscribe()
	if g.closed {
		return id, ch
	}

	g.subs++
	g.setSubscribers(g.subs)
	if g.subs == 1 {
		g.start()
	}
	return id, ch
}

// Unsubscribe removes a subscriber and stops the loop once none are left.
func (g *Generator) Unsubscribe(id uint64) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	if !g.out.Unsubscribe(id) {
		return
	}
	g.subs--
	g.setSubscribers(g.subs)
	if g.subs == 0 {
		g.halt()
	}
}

// Current returns the latest snapshot. While the loop is stopped it
// regenerates on demand once the snapshot is an interval old or the
// selected asteroid or impact coordinates have changed since it was drawn.
// It does not notify subscribers.
func (g *Generator) Current() models.LiveMetricsSnapshot {
	sel := g.selection()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil || (!g.looping && g.outdatedLocked(sel)) {
		g.generateLocked(sel)
	}
	return *g.current
}

func (g *Generator) outdatedLocked(sel models.Selection) bool {
	return g.now().Sub(g.current.GeneratedAt) >= g.interval || seedOf(sel) != g.basis
}

func (g *Generator) SubscriberCount() int {
	return g.out.SubscriberCount()
}

// Close stops the loop and closes every subscriber channel.
func (g *Generator) Close() {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.halt()
	g.out.Close()
	g.subs = 0
	g.setSubscribers(0)
}

// start must be called with runMu held.
func (g *Generator) start() {
	stop := make(chan struct{})
	done := make(chan struct{})
	g.stop, g.done = stop, done

	var (
		watchID uint64
		changes <-chan selection.Change
	)
	if g.store != nil {
		watchID, changes = g.store.Watch()
	}

	g.mu.Lock()
	g.looping = true
	g.mu.Unlock()

	g.publish(TriggerInitial)
	g.logger.Debug("live metrics loop started", "interval", g.interval)

	go func() {
		defer close(done)
		if g.store != nil {
			defer g.store.Unwatch(watchID)
		}
		g.run(stop, changes)
	}()
}

// halt must be called with runMu held.
func (g *Generator) halt() {
	if g.stop == nil {
		return
	}
	close(g.stop)
	<-g.done
	g.stop, g.done = nil, nil

	g.mu.Lock()
	g.looping = false
	g.mu.Unlock()
	g.logger.Debug("live metrics loop stopped")
}

func (g *Generator) run(stop <-chan struct{}, changes <-chan selection.Change) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.publish(TriggerTick)
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if c.Field == selection.FieldAsteroid || c.Field == selection.FieldCoordinates {
				g.publish(TriggerSelection)
			}
		}
	}
}

func (g *Generator) publish(trigger string) {
	sel := g.selection()

	g.mu.Lock()
	snap := g.generateLocked(sel)
	g.mu.Unlock()

	g.out.Broadcast(snap)
	if g.recorder != nil {
		g.recorder.RecordLiveTick(trigger)
	}
}

func (g *Generator) generateLocked(sel models.Selection) models.LiveMetricsSnapshot {
	snap := Generate(g.rng, sel)
	g.seq++
	snap.Sequence = g.seq
	snap.GeneratedAt = g.now().UTC()
	g.current = &snap
	g.basis = seedOf(sel)
	return snap
}

// seed is the part of a selection a snapshot is drawn from.
type seed struct {
	asteroid    models.AsteroidSummary
	hasAsteroid bool
	coords      models.Coordinates
	hasCoords   bool
}

func seedOf(sel models.Selection) seed {
	var k seed
	if sel.SelectedAsteroid != nil {
		k.asteroid, k.hasAsteroid = *sel.SelectedAsteroid, true
	}
	if sel.ImpactCoordinates != nil {
		k.coords, k.hasCoords = *sel.ImpactCoordinates, true
	}
	return k
}

func (g *Generator) selection() models.Selection {
	if g.store == nil {
		return models.Selection{SimulationStep: models.StepSelection}
	}
	return g.store.Snapshot()
}

func (g *Generator) setSubscribers(n int) {
	if g.recorder != nil {
		g.recorder.SetLiveSubscribers(n)
	}
}
