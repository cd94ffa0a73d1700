// Package selection holds the dashboard's shared user selection: the chosen
// asteroid, the impact coordinates and the simulation phase.
package selection

import (
	"context"
	"sync"

	"github.com/mr1hm/go-neo-watch/internal/broadcast"
	"github.com/mr1hm/go-neo-watch/internal/models"
)

type Field string

const (
	FieldAsteroid         Field = "selected_asteroid"
	FieldCoordinates      Field = "impact_coordinates"
	FieldSimulationActive Field = "is_simulation_active"
	FieldSimulationStep   Field = "simulation_step"
)

// Change is published after every write.
type Change struct {
	Field Field
	State models.Selection
}

// Store is a plain read/write store. Writes are not validated and nothing is
// derived from them.
type Store struct {
	mu        sync.RWMutex
	asteroid  *models.AsteroidSummary
	coords    *models.Coordinates
	active    bool
	step      models.SimulationStep
	listeners *broadcast.Broadcaster[Change]
}

func NewStore() *Store {
	return &Store{
		step:      models.StepSelection,
		listeners: broadcast.New[Change](16),
	}
}

func (s *Store) SelectedAsteroid() *models.AsteroidSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSummary(s.asteroid)
}

func (s *Store) SetSelectedAsteroid(a *models.AsteroidSummary) {
	s.write(FieldAsteroid, func() { s.asteroid = cloneSummary(a) })
}

func (s *Store) ImpactCoordinates() *models.Coordinates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCoords(s.coords)
}

func (s *Store) SetImpactCoordinates(c *models.Coordinates) {
	s.write(FieldCoordinates, func() { s.coords = cloneCoords(c) })
}

func (s *Store) SimulationActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) SetSimulationActive(active bool) {
	s.write(FieldSimulationActive, func() { s.active = active })
}

func (s *Store) SimulationStep() models.SimulationStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

func (s *Store) SetSimulationStep(step models.SimulationStep) {
	s.write(FieldSimulationStep, func() { s.step = step })
}

// Snapshot returns a copy of all four fields read under one lock.
func (s *Store) Snapshot() models.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Watch subscribes to changes. Notifications are dropped for watchers that
// fall more than a few writes behind.
func (s *Store) Watch() (uint64, <-chan Change) {
	return s.listeners.Subscribe()
}

func (s *Store) Unwatch(id uint64) {
	s.listeners.Unsubscribe(id)
}

// Close ends all watches.
func (s *Store) Close() {
	s.listeners.Close()
}

func (s *Store) write(field Field, apply func()) {
	s.mu.Lock()
	apply()
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.listeners.Broadcast(Change{Field: field, State: state})
}

func (s *Store) snapshotLocked() models.Selection {
	return models.Selection{
		SelectedAsteroid:   cloneSummary(s.asteroid),
		ImpactCoordinates:  cloneCoords(s.coords),
		IsSimulationActive: s.active,
		SimulationStep:     s.step,
	}
}

func cloneSummary(a *models.AsteroidSummary) *models.AsteroidSummary {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func cloneCoords(c *models.Coordinates) *models.Coordinates {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

type ctxKey struct{}

// WithStore makes s available to everything downstream of ctx.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the store installed by WithStore. Calling it on a
// context without a store is a programming error and panics.
func FromContext(ctx context.Context) *Store {
	s, ok := ctx.Value(ctxKey{}).(*Store)
	if !ok || s == nil {
		panic("selection: FromContext called without a store; wrap the context with WithStore")
	}
	return s
}
