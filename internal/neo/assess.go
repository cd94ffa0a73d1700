package neo

import (
	"fmt"
	"math"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

const (
	// assumed bulk density in kg/m³
	assumedDensity     = 2500.0
	joulesPerMegaton   = 4.184e15
	craterScale        = 20.0
	craterExponent     = 0.8
	damageRadiusFactor = 4.0

	hazardousImpactProbability = 0.0001
)

// Physical holds the source fields every derived metric is computed from.
type Physical struct {
	DiameterMinMeters  *float64
	DiameterMaxMeters  *float64
	VelocityKmPerSec   *float64
	MissDistanceKm     *float64
	AbsoluteMagnitudeH *float64
	Hazardous          bool
}

type Assessment struct {
	AverageDiameter      float64
	RiskScore            float64
	RiskCategory         models.RiskCategory
	MassKg               float64
	ImpactEnergyMegatons float64
	CraterDiameterKm     float64
	DamageRadiusKm       float64
	CompositionEstimate  string
	ImpactProbability    float64
}

// Assess computes all derived fields. It is a pure function of p.
func Assess(p Physical) Assessment {
	avg := AverageDiameter(p.DiameterMinMeters, p.DiameterMaxMeters)
	velocity := valueOr(p.VelocityKmPerSec, 0)
	score := RiskScore(avg, velocity, p.MissDistanceKm, p.Hazardous)
	crater := CraterDiameterKm(avg)

	a := Assessment{
		AverageDiameter:      avg,
		RiskScore:            score,
		RiskCategory:         CategoryFor(score),
		MassKg:               Mass(avg),
		ImpactEnergyMegatons: ImpactEnergyMegatons(avg, velocity),
		CraterDiameterKm:     crater,
		DamageRadiusKm:       crater * damageRadiusFactor,
		CompositionEstimate:  CompositionFor(p.AbsoluteMagnitudeH),
	}
	if p.Hazardous {
		a.ImpactProbability = hazardousImpactProbability
	}
	return a
}

func AverageDiameter(lo, hi *float64) float64 {
	if lo == nil || hi == nil {
		return 0
	}
	return (*lo + *hi) / 2
}

// RiskScore sums size (max 40), speed (max 30), proximity (max 30) and a
// hazard bonus of 20, clamped to [0,100]. An unknown miss distance scores no
// proximity points.
func RiskScore(avgDiameter, velocityKmS float64, missDistanceKm *float64, hazardous bool) float64 {
	score := math.Min(avgDiameter/100, 40)
	score += math.Min(velocityKmS/2, 30)
	if missDistanceKm != nil {
		score += math.Max(0, 30-*missDistanceKm/1_000_000)
	}
	if hazardous {
		score += 20
	}
	return math.Max(0, math.Min(score, 100))
}

func CategoryFor(score float64) models.RiskCategory {
	switch {
	case score >= 80:
		return models.RiskCritical
	case score >= 60:
		return models.RiskHigh
	case score >= 30:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// Mass of a sphere of the given diameter at the assumed density.
func Mass(diameterMeters float64) float64 {
	if diameterMeters <= 0 {
		return 0
	}
	r := diameterMeters / 2
	return (4.0 / 3.0) * math.Pi * r * r * r * assumedDensity
}

func ImpactEnergyMegatons(diameterMeters, velocityKmS float64) float64 {
	if diameterMeters <= 0 || velocityKmS <= 0 {
		return 0
	}
	v := velocityKmS * 1000
	return 0.5 * Mass(diameterMeters) * v * v / joulesPerMegaton
}

func CraterDiameterKm(diameterMeters float64) float64 {
	if diameterMeters <= 0 {
		return 0
	}
	return craterScale * math.Pow(diameterMeters/1000, craterExponent)
}

func DamageRadiusKm(diameterMeters float64) float64 {
	return CraterDiameterKm(diameterMeters) * damageRadiusFactor
}

// CompositionFor buckets by absolute magnitude H. Unknown H is treated as
// the faintest bucket.
func CompositionFor(h *float64) string {
	switch {
	case h == nil:
		return models.CompositionCarbonaceous
	case *h < 16:
		return models.CompositionMetallic
	case *h < 18:
		return models.CompositionMixed
	case *h < 20:
		return models.CompositionRocky
	default:
		return models.CompositionCarbonaceous
	}
}

func DensityFor(h *float64) string {
	switch {
	case h == nil:
		return "1500 kg/m³"
	case *h < 16:
		return "5000 kg/m³"
	case *h < 18:
		return "3000 kg/m³"
	case *h < 20:
		return "2500 kg/m³"
	default:
		return "1500 kg/m³"
	}
}

func formatDiameter(avg float64) string {
	if avg >= 1000 {
		return fmt.Sprintf("%.1f km", avg/1000)
	}
	return fmt.Sprintf("%.0f m", avg)
}

func formatVelocity(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f km/s", *v)
}

func formatMissDistance(km *float64) string {
	if km == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1fk km", *km/1000)
}

// withDisplay fills any empty display strings from the source fields.
func withDisplay(n models.NEO) models.NEO {
	if n.Diameter == "" {
		n.Diameter = formatDiameter(n.AverageDiameter())
	}
	if n.Velocity == "" {
		n.Velocity = formatVelocity(n.VelocityKmPerSec)
	}
	if n.MissDistance == "" {
		n.MissDistance = formatMissDistance(n.MissDistanceKm)
	}
	if n.Density == "" {
		n.Density = DensityFor(n.AbsoluteMagnitudeH)
	}
	return n
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
