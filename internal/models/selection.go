package models

import "fmt"

type SimulationStep string

const (
	StepSelection  SimulationStep = "selection"
	StepImpact     SimulationStep = "impact"
	StepSimulation SimulationStep = "simulation"
	StepResults    SimulationStep = "results"
)

func ParseSimulationStep(s string) (SimulationStep, error) {
	switch step := SimulationStep(s); step {
	case StepSelection, StepImpact, StepSimulation, StepResults:
		return step, nil
	default:
		return "", fmt.Errorf("unknown simulation step: %q", s)
	}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AsteroidSummary is the reduced asteroid view the dashboard panels share.
type AsteroidSummary struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	DiameterMeters   float64 `json:"diameter_m"`
	VelocityKmPerSec float64 `json:"velocity_km_s"`
	IsHazardous      bool    `json:"is_hazardous"`
	Diameter         string  `json:"diameter,omitempty"`
	Velocity         string  `json:"velocity,omitempty"`
	ApproachDate     string  `json:"approach_date,omitempty"`
	MissDistance     string  `json:"miss_distance,omitempty"`
}

func SummaryFromNEO(n *NEO) AsteroidSummary {
	s := AsteroidSummary{
		ID:             n.ID,
		Name:           n.Name,
		DiameterMeters: n.AverageDiameter(),
		IsHazardous:    n.IsPotentiallyHazardous,
		Diameter:       n.Diameter,
		Velocity:       n.Velocity,
		MissDistance:   n.MissDistance,
	}
	if n.VelocityKmPerSec != nil {
		s.VelocityKmPerSec = *n.VelocityKmPerSec
	}
	if n.CloseApproachDate != nil {
		s.ApproachDate = n.CloseApproachDate.String()
	}
	return s
}

type Selection struct {
	SelectedAsteroid   *AsteroidSummary `json:"selected_asteroid"`
	ImpactCoordinates  *Coordinates     `json:"impact_coordinates"`
	IsSimulationActive bool             `json:"is_simulation_active"`
	SimulationStep     SimulationStep   `json:"simulation_step"`
}
