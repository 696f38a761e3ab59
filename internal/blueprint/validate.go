package blueprint

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// weightTolerance is the allowed drift of the scoring weight sum from 1.0.
const weightTolerance = 1e-6

// validateDocument performs the semantic checks that the structural schema
// cannot express. Returns a *ValidationError listing every problem found.
func validateDocument(d *Document) error {
	var errs []string

	dimensionSet := make(map[string]bool, len(d.Dimensions))
	dimensionAnchors := 0
	for _, q := range d.Dimensions {
		dimensionSet[q.Code] = true
		dimensionAnchors += q.Anchors
		if q.Anchors > q.Total() {
			errs = append(errs, fmt.Sprintf("dimension %q: anchor quota %d cannot exceed total quota %d", q.Code, q.Anchors, q.Total()))
		}
	}

	// Scoring weights
	total := 0.0
	for _, p := range d.Scoring.Dimensions {
		total += p.Weight
	}
	if math.Abs(total-1.0) > weightTolerance {
		errs = append(errs, fmt.Sprintf("dimension weights must sum to 1.0 (got %.6f)", total))
	}

	// Buckets are matched top-down, so the minimums must never increase.
	if len(d.Scoring.Buckets) == 0 {
		errs = append(errs, "at least one bucket threshold is required")
	}
	for i := 1; i < len(d.Scoring.Buckets); i++ {
		prev, cur := d.Scoring.Buckets[i-1], d.Scoring.Buckets[i]
		if cur.Min > prev.Min {
			errs = append(errs, fmt.Sprintf("bucket thresholds must be provided in descending order (%s=%g follows %s=%g)", cur.Code, cur.Min, prev.Code, prev.Min))
			break
		}
	}

	// Declared anchors must cover both per-dimension and listed anchors
	expected := max(dimensionAnchors, len(d.AnchorItems))
	if expected > d.Anchors {
		errs = append(errs, fmt.Sprintf("declared anchors %d must cover explicit per-dimension and listed anchor items (need %d)", d.Anchors, expected))
	}

	// Quota and scoring dimensions must match exactly
	scoringSet := make(map[string]bool, len(d.Scoring.Dimensions))
	for _, p := range d.Scoring.Dimensions {
		if scoringSet[p.Code] {
			errs = append(errs, fmt.Sprintf("duplicate scoring dimension %q", p.Code))
		}
		scoringSet[p.Code] = true
	}
	var mismatched []string
	for code := range dimensionSet {
		if !scoringSet[code] {
			mismatched = append(mismatched, code)
		}
	}
	for code := range scoringSet {
		if !dimensionSet[code] {
			mismatched = append(mismatched, code)
		}
	}
	if len(mismatched) > 0 {
		sort.Strings(mismatched)
		errs = append(errs, "blueprint and scoring dimensions must match exactly; mismatches: "+strings.Join(mismatched, ", "))
	}

	// Critical dimension policies must reference known dimensions
	var unknownCritical []string
	for code := range d.Critical.Dimensions {
		if !dimensionSet[code] {
			unknownCritical = append(unknownCritical, code)
		}
	}
	if len(unknownCritical) > 0 {
		sort.Strings(unknownCritical)
		errs = append(errs, "critical dimension policies reference unknown dimensions: "+strings.Join(unknownCritical, ", "))
	}

	for _, a := range d.AnchorItems {
		if !dimensionSet[a.Dimension] {
			errs = append(errs, fmt.Sprintf("anchor item %q references unknown dimension %q", a.Code, a.Dimension))
		}
	}

	sampleCodes := make(map[string]bool, len(d.SamplePool))
	for _, s := range d.SamplePool {
		if sampleCodes[s.Code] {
			errs = append(errs, fmt.Sprintf("duplicate sample item code %q", s.Code))
		}
		sampleCodes[s.Code] = true
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}
