package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mr1hm/go-neo-watch/internal/models"
	"github.com/mr1hm/go-neo-watch/internal/neo"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printPage(w io.Writer, page *models.Page) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tDIAMETER\tVELOCITY\tMISS DISTANCE\tRISK\tHAZARDOUS")
	for _, n := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f %s\t%t\n",
			n.ID, n.Name, n.Diameter, n.Velocity, n.MissDistance, n.RiskScore, n.RiskCategory, n.IsPotentiallyHazardous)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d (size %d) of %d records, source: %s\n",
		page.PageIndex, page.PageSize, page.TotalCount, page.Source)
	return err
}

func printNEO(w io.Writer, n *models.NEO) error {
	approach := "unknown"
	if n.CloseApproachDate != nil {
		approach = n.CloseApproachDate.String()
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t%s\n", n.ID)
	fmt.Fprintf(tw, "Name\t%s\n", n.Name)
	fmt.Fprintf(tw, "Hazardous\t%t\n", n.IsPotentiallyHazardous)
	fmt.Fprintf(tw, "Diameter\t%s\n", n.Diameter)
	fmt.Fprintf(tw, "Velocity\t%s\n", n.Velocity)
	fmt.Fprintf(tw, "Close approach\t%s\n", approach)
	fmt.Fprintf(tw, "Miss distance\t%s\n", n.MissDistance)
	fmt.Fprintf(tw, "Risk\t%.1f (%s)\n", n.RiskScore, n.RiskCategory)
	fmt.Fprintf(tw, "Impact energy\t%.2f Mt\n", n.ImpactEnergyMegatons)
	fmt.Fprintf(tw, "Crater\t%.2f km\n", n.CraterDiameterKm)
	fmt.Fprintf(tw, "Damage radius\t%.2f km\n", n.DamageRadiusKm)
	fmt.Fprintf(tw, "Composition\t%s (%s)\n", n.CompositionEstimate, n.Density)
	fmt.Fprintf(tw, "Impact probability\t%g\n", n.ImpactProbability)
	return tw.Flush()
}

func printSelection(w io.Writer, sel *models.Selection) error {
	asteroid := "none"
	if a := sel.SelectedAsteroid; a != nil {
		asteroid = fmt.Sprintf("%s (%s)", a.Name, a.ID)
	}
	coords := "none"
	if c := sel.ImpactCoordinates; c != nil {
		coords = fmt.Sprintf("%.2f, %.2f", c.Lat, c.Lng)
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "Asteroid\t%s\n", asteroid)
	fmt.Fprintf(tw, "Impact coordinates\t%s\n", coords)
	fmt.Fprintf(tw, "Simulation active\t%t\n", sel.IsSimulationActive)
	fmt.Fprintf(tw, "Step\t%s\n", sel.SimulationStep)
	return tw.Flush()
}

func printSnapshotHeader(w io.Writer) {
	fmt.Fprintf(w, "%-6s %-8s %-9s %-10s %-6s %-10s %s\n", "SEQ", "TRACKED", "ACCURACY", "COLLISION", "FPS", "ENERGY MT", "LOCATION")
}

func printSnapshot(w io.Writer, s *models.LiveMetricsSnapshot) {
	fmt.Fprintf(w, "%-6d %-8d %-9.2f %-10.5f %-6d %-10.1f %s\n",
		s.Sequence, s.TrackingObjects, s.ModelAccuracy, s.CollisionProbability, s.FPS, s.EnergyMT, s.ImpactLocation)
}

func printAssessment(w io.Writer, a neo.Assessment) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Average diameter\t%.1f m\n", a.AverageDiameter)
	fmt.Fprintf(tw, "Risk\t%.1f (%s)\n", a.RiskScore, a.RiskCategory)
	fmt.Fprintf(tw, "Mass\t%.3e kg\n", a.MassKg)
	fmt.Fprintf(tw, "Impact energy\t%.2f Mt\n", a.ImpactEnergyMegatons)
	fmt.Fprintf(tw, "Crater\t%.2f km\n", a.CraterDiameterKm)
	fmt.Fprintf(tw, "Damage radius\t%.2f km\n", a.DamageRadiusKm)
	fmt.Fprintf(tw, "Composition\t%s\n", a.CompositionEstimate)
	fmt.Fprintf(tw, "Impact probability\t%g\n", a.ImpactProbability)
	return tw.Flush()
}
