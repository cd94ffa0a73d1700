package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type RiskCategory string

const (
	RiskLow      RiskCategory = "Low"
	RiskModerate RiskCategory = "Moderate"
	RiskHigh     RiskCategory = "High"
	RiskCritical RiskCategory = "Critical"
)

const (
	CompositionMetallic     = "Metallic"
	CompositionMixed        = "Mixed"
	CompositionRocky        = "Rocky"
	CompositionCarbonaceous = "Carbonaceous"
)

// Page sources
const (
	SourceUpstream = "upstream"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Date is a calendar day encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON and UnmarshalJSON shadow the promoted time.Time methods.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

type NEO struct {
	ID                     string   `json:"id" yaml:"id"`
	Name                   string   `json:"name" yaml:"name"`
	DiameterMinMeters      *float64 `json:"diameter_min_m" yaml:"diameter_min_m"`
	DiameterMaxMeters      *float64 `json:"diameter_max_m" yaml:"diameter_max_m"`
	IsPotentiallyHazardous bool     `json:"is_potentially_hazardous" yaml:"is_potentially_hazardous"`
	AbsoluteMagnitudeH     *float64 `json:"absolute_magnitude_h" yaml:"absolute_magnitude_h"`

	CloseApproachDate *Date    `json:"close_approach_date" yaml:"close_approach_date"`
	MissDistanceKm    *float64 `json:"miss_distance_km" yaml:"miss_distance_km"`
	VelocityKmPerSec  *float64 `json:"velocity_km_s" yaml:"velocity_km_s"`

	// Derived at transform time.
	RiskScore            float64      `json:"risk_score" yaml:"risk_score"`
	RiskCategory         RiskCategory `json:"risk_category" yaml:"risk_category"`
	ImpactEnergyMegatons float64      `json:"impact_energy_mt" yaml:"impact_energy_mt"`
	CraterDiameterKm     float64      `json:"crater_diameter_km" yaml:"crater_diameter_km"`
	DamageRadiusKm       float64      `json:"damage_radius_km" yaml:"damage_radius_km"`
	CompositionEstimate  string       `json:"composition_estimate" yaml:"composition_estimate"`
	ImpactProbability    float64      `json:"impact_probability" yaml:"impact_probability"`

	// Display strings for cards and the detail modal.
	Diameter     string `json:"diameter" yaml:"diameter,omitempty"`
	Velocity     string `json:"velocity" yaml:"velocity,omitempty"`
	MissDistance string `json:"miss_distance" yaml:"miss_distance,omitempty"`
	Density      string `json:"density" yaml:"density,omitempty"`
}

// AverageDiameter returns the mean of the diameter bounds in meters, or 0 when
// either bound is unknown.
func (n *NEO) AverageDiameter() float64 {
	if n.DiameterMinMeters == nil || n.DiameterMaxMeters == nil {
		return 0
	}
	return (*n.DiameterMinMeters + *n.DiameterMaxMeters) / 2
}

type Page struct {
	Items      []NEO  `json:"items"`
	TotalCount int    `json:"total_count"`
	PageIndex  int    `json:"page_index"`
	PageSize   int    `json:"page_size"`
	Source     string `json:"source"`
}
