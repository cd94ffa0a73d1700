// Package livemetrics produces the synthetic telemetry shown on the dashboard
// monitor panels.
package livemetrics

import (
	"fmt"
	"math/rand/v2"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

// Generate draws one snapshot. Every field is independent of any earlier
// snapshot; only the selection seeds diameter, velocity, hazard and location.
// Sequence and GeneratedAt are left for the caller.
func Generate(r *rand.Rand, sel models.Selection) models.LiveMetricsSnapshot {
	var (
		diameter  float64
		velocity  float64
		hazardous bool
	)
	if a := sel.SelectedAsteroid; a != nil {
		diameter = a.DiameterMeters
		velocity = a.VelocityKmPerSec
		hazardous = a.IsHazardous
	} else {
		diameter = r.Float64()*1000 + 100
		velocity = r.Float64()*20 + 5
		hazardous = r.Float64() < 0.3
	}

	averageAltitude := between(r, 2000, 1000)

	var collision float64
	if hazardous {
		collision = r.Float64()*0.001 + 0.0001
	} else {
		collision = r.Float64() * 0.0001
	}

	return models.LiveMetricsSnapshot{
		TrackingObjects: between(r, 20, 50),
		AverageAltitude: averageAltitude,
		CurrentAltitude: between(r, 300, 500),

		ContainmentProtocols: between(r, 5, 20),
		DamageReduction:      between(r, 20, 30),

		CollisionProbability: collision,
		ImpactLocation:       impactLocation(sel.ImpactCoordinates),

		TrainingIterations: between(r, 1000, 2000),
		ModelAccuracy:      r.Float64()*5 + 95,

		PatternRecognition: r.Float64()*10 + 90,
		DataMiningActive:   r.Float64() < 0.7,

		RenderedObjects: between(r, 400, 200),
		FPS:             between(r, 120, 60),

		ProcessedQueries: between(r, 4000, 2000),
		ResponseTime:     r.Float64()*0.1 + 0.05,

		EnergyMT:     diameter * velocity * 0.1,
		DistanceKm:   float64(averageAltitude),
		VelocityKmh:  velocity * 3600,
		TimeToImpact: between(r, 10, 30),
	}
}

// between returns an int in lo..lo+n-1 inclusive.
func between(r *rand.Rand, lo, n int) int {
	return lo + r.IntN(n)
}

func impactLocation(c *models.Coordinates) string {
	if c == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f°, %.2f°", c.Lat, c.Lng)
}
