package models

import "time"

// LiveMetricsSnapshot is one tick of synthetic dashboard telemetry. Snapshots
// are independent of each other.
type LiveMetricsSnapshot struct {
	Sequence    uint64    `json:"sequence"`
	GeneratedAt time.Time `json:"generated_at"`

	// orbital
	TrackingObjects int `json:"tracking_objects"`
	AverageAltitude int `json:"average_altitude"`
	CurrentAltitude int `json:"current_altitude"`

	// mitigation
	ContainmentProtocols int `json:"containment_protocols"`
	DamageReduction      int `json:"damage_reduction"`

	// impact
	CollisionProbability float64 `json:"collision_probability"`
	ImpactLocation       string  `json:"impact_location"`

	// model
	TrainingIterations int     `json:"training_iterations"`
	ModelAccuracy      float64 `json:"model_accuracy"`

	// data
	PatternRecognition float64 `json:"pattern_recognition"`
	DataMiningActive   bool    `json:"data_mining_active"`

	// visualization
	RenderedObjects int `json:"rendered_objects"`
	FPS             int `json:"fps"`

	// explanation
	ProcessedQueries int     `json:"processed_queries"`
	ResponseTime     float64 `json:"response_time"`

	// threat monitors
	EnergyMT     float64 `json:"energy_mt"`
	DistanceKm   float64 `json:"distance_km"`
	VelocityKmh  float64 `json:"velocity_kmh"`
	TimeToImpact int     `json:"time_to_impact"`
}
