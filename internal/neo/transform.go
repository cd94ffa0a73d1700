package neo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

type browseResponse struct {
	NearEarthObjects []rawNEO  `json:"near_earth_objects"`
	Page             rawPageMD `json:"page"`
}

type rawPageMD struct {
	Number        int `json:"number"`
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
}

type rawNEO struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	AbsoluteMagnitude *float64           `json:"absolute_magnitude_h"`
	EstimatedDiameter *rawDiameter       `json:"estimated_diameter"`
	Hazardous         bool               `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData []rawCloseApproach `json:"close_approach_data"`
}

type rawDiameter struct {
	Meters *struct {
		Min *float64 `json:"estimated_diameter_min"`
		Max *float64 `json:"estimated_diameter_max"`
	} `json:"meters"`
}

type rawCloseApproach struct {
	Date             string `json:"close_approach_date"`
	RelativeVelocity struct {
		KmPerSec flexFloat `json:"kilometers_per_second"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Kilometers flexFloat `json:"kilometers"`
	} `json:"miss_distance"`
}

// flexFloat accepts a JSON number or a numeric string; anything else decodes
// as unknown.
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	f.Value = &v
	return nil
}

// Transform converts one upstream record into the normalized NEO. Missing
// numeric fields become nil; it never fails.
func Transform(r rawNEO) models.NEO {
	n := models.NEO{
		ID:                     r.ID,
		Name:                   cleanName(r.Name),
		IsPotentiallyHazardous: r.Hazardous,
		AbsoluteMagnitudeH:     copyFloat(r.AbsoluteMagnitude),
	}

	if r.EstimatedDiameter != nil && r.EstimatedDiameter.Meters != nil {
		n.DiameterMinMeters = copyFloat(r.EstimatedDiameter.Meters.Min)
		n.DiameterMaxMeters = copyFloat(r.EstimatedDiameter.Meters.Max)
	}

	if len(r.CloseApproachData) > 0 {
		ca := r.CloseApproachData[0]
		if ca.Date != "" {
			if d, err := models.ParseDate(ca.Date); err == nil {
				n.CloseApproachDate = &d
			}
		}
		n.VelocityKmPerSec = nonNegative(ca.RelativeVelocity.KmPerSec.Value)
		n.MissDistanceKm = nonNegative(ca.MissDistance.Kilometers.Value)
	}

	a := Assess(Physical{
		DiameterMinMeters:  n.DiameterMinMeters,
		DiameterMaxMeters:  n.DiameterMaxMeters,
		VelocityKmPerSec:   n.VelocityKmPerSec,
		MissDistanceKm:     n.MissDistanceKm,
		AbsoluteMagnitudeH: n.AbsoluteMagnitudeH,
		Hazardous:          n.IsPotentiallyHazardous,
	})
	n.RiskScore = a.RiskScore
	n.RiskCategory = a.RiskCategory
	n.ImpactEnergyMegatons = a.ImpactEnergyMegatons
	n.CraterDiameterKm = a.CraterDiameterKm
	n.DamageRadiusKm = a.DamageRadiusKm
	n.CompositionEstimate = a.CompositionEstimate
	n.ImpactProbability = a.ImpactProbability

	return withDisplay(n)
}

func transformPage(resp browseResponse) models.Page {
	items := make([]models.NEO, 0, len(resp.NearEarthObjects))
	for _, r := range resp.NearEarthObjects {
		items = append(items, Transform(r))
	}
	return models.Page{
		Items:      items,
		TotalCount: resp.Page.TotalElements,
		PageIndex:  resp.Page.Number,
		PageSize:   resp.Page.Size,
		Source:     models.SourceUpstream,
	}
}

// decodeBrowse validates and decodes a browse payload.
func decodeBrowse(body []byte) (browseResponse, error) {
	var resp browseResponse
	if err := validatePayload(browseSchema(), body); err != nil {
		return resp, err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return resp, nil
}

func decodeRecord(body []byte) (rawNEO, error) {
	var r rawNEO
	if err := validatePayload(recordSchema(), body); err != nil {
		return r, err
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return r, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return r, nil
}

// cleanName drops the parenthesized designation: "433 Eros (A898 PA)" -> "433 Eros".
// Names that start with a parenthesis, like "(2015 AB)", are only unwrapped.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "("); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(strings.Trim(name, "()"))
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func nonNegative(p *float64) *float64 {
	if p == nil || *p < 0 {
		return nil
	}
	return copyFloat(p)
}
