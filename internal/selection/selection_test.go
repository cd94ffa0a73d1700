package selection

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStore_InitialValues(t *testing.T) {
	s := NewStore()
	defer s.Close()

	if s.SelectedAsteroid() != nil {
		t.Error("expected no selected asteroid")
	}
	if s.ImpactCoordinates() != nil {
		t.Error("expected no impact coordinates")
	}
	if s.SimulationActive() {
		t.Error("expected simulation inactive")
	}
	if s.SimulationStep() != models.StepSelection {
		t.Errorf("expected step selection, got %s", s.SimulationStep())
	}
}

func TestStore_ReadAfterWrite(t *testing.T) {
	s := NewStore()
	defer s.Close()

	apophis := &models.AsteroidSummary{ID: "2000001", Name: "Apophis", DiameterMeters: 370, VelocityKmPerSec: 12.6, IsHazardous: true}
	s.SetSelectedAsteroid(apophis)
	if got := s.SelectedAsteroid(); got == nil || got.ID != "2000001" {
		t.Errorf("expected Apophis, got %+v", got)
	}

	s.SetImpactCoordinates(&models.Coordinates{Lat: 40.41, Lng: -3.70})
	if got := s.ImpactCoordinates(); got == nil || got.Lat != 40.41 || got.Lng != -3.70 {
		t.Errorf("unexpected coordinates %+v", got)
	}

	s.SetSimulationActive(true)
	if !s.SimulationActive() {
		t.Error("expected simulation active")
	}

	s.SetSimulationStep(models.StepResults)
	if s.SimulationStep() != models.StepResults {
		t.Errorf("expected step results, got %s", s.SimulationStep())
	}

	s.SetSelectedAsteroid(nil)
	if s.SelectedAsteroid() != nil {
		t.Error("expected asteroid cleared")
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	defer s.Close()

	in := &models.Coordinates{Lat: 1, Lng: 2}
	s.SetImpactCoordinates(in)
	in.Lat = 99

	out := s.ImpactCoordinates()
	if out.Lat != 1 {
		t.Errorf("store aliased caller memory: lat=%v", out.Lat)
	}
	out.Lng = 99
	if s.ImpactCoordinates().Lng != 2 {
		t.Error("store returned internal pointer")
	}
}

func TestStore_WatchPublishesChanges(t *testing.T) {
	s := NewStore()
	defer s.Close()

	id, ch := s.Watch()
	defer s.Unwatch(id)

	s.SetImpactCoordinates(&models.Coordinates{Lat: 10, Lng: 20})

	select {
	case c := <-ch:
		if c.Field != FieldCoordinates {
			t.Errorf("expected field %s, got %s", FieldCoordinates, c.Field)
		}
		if c.State.ImpactCoordinates == nil || c.State.ImpactCoordinates.Lat != 10 {
			t.Errorf("unexpected state %+v", c.State)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for change")
	}
}

func TestFromContext(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ctx := WithStore(context.Background(), s)
	if FromContext(ctx) != s {
		t.Error("expected the provided store")
	}
}

func TestFromContext_PanicsWithoutProvider(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic outside provider")
		}
	}()
	FromContext(context.Background())
}
