// Package itempool builds the runtime item representation consumed by
// selection and scoring, either from a blueprint's inline sample pool or from
// persisted item-bank records.
package itempool

import (
	"github.com/abhisek/blueprint/internal/blueprint"
)

// Item is a candidate item for one assessment instance. Items are built fresh
// for each selection or scoring call and never mutated afterwards.
type Item struct {
	Code           string               `json:"code"`
	Dimension      string               `json:"dimension"`
	Difficulty     blueprint.Difficulty `json:"difficulty"`
	Weight         float64              `json:"weight"`
	Anchor         bool                 `json:"anchor"`
	Critical       bool                 `json:"critical"`
	Discrimination *float64             `json:"discrimination,omitempty"`
	ExposureRatio  *float64             `json:"exposure_ratio,omitempty"`
	ExposureCap    *float64             `json:"exposure_cap,omitempty"`
	Tags           []string             `json:"tags,omitempty"`
}

// SelectionWeight returns the sampling weight of the item. Discrimination
// that is absent or non-positive counts as 1, and the result never drops
// below minWeight.
func (it Item) SelectionWeight(w blueprint.DifficultyWeights, minWeight float64) float64 {
	disc := 1.0
	if it.Discrimination != nil && *it.Discrimination > 0 {
		disc = *it.Discrimination
	}
	penalty := 1.0
	if it.ExposureRatio != nil {
		penalty = max(minWeight, 1-*it.ExposureRatio)
	}
	return max(minWeight, w.For(it.Difficulty)*disc*penalty)
}

// OverExposed reports whether the item has reached its exposure cap.
// Items missing either the cap or the ratio are never over-exposed.
func (it Item) OverExposed() bool {
	if it.ExposureCap == nil || it.ExposureRatio == nil {
		return false
	}
	return *it.ExposureRatio >= *it.ExposureCap
}

// FromSamples maps the document's inline sample pool to items. A sample is
// critical when flagged inline, listed in the global critical set, listed in
// its dimension's critical items, or when its dimension has a knockout
// critical policy. The document's default exposure cap applies to samples
// without their own cap.
func FromSamples(doc *blueprint.Document) []Item {
	items := make([]Item, 0, len(doc.SamplePool))
	for _, s := range doc.SamplePool {
		critical := s.Critical || doc.Critical.HasItem(s.Code)
		if p, ok := doc.Critical.Policy(s.Dimension); ok && p.Mode == blueprint.CriticalKnockout {
			critical = true
		}
		if q, ok := doc.Dimensions.Get(s.Dimension); ok && q.HasCriticalItem(s.Code) {
			critical = true
		}

		exposureCap := s.ExposureCap
		if exposureCap == nil {
			exposureCap = doc.Exposure.DefaultCap
		}

		items = append(items, Item{
			Code:           s.Code,
			Dimension:      s.Dimension,
			Difficulty:     s.Difficulty,
			Weight:         s.Weight,
			Anchor:         s.Anchor || doc.IsAnchorItem(s.Code),
			Critical:       critical,
			Discrimination: copyFloat(s.Discrimination),
			ExposureRatio:  copyFloat(s.ExposureRatio),
			ExposureCap:    copyFloat(exposureCap),
			Tags:           append([]string(nil), s.Tags...),
		})
	}
	return items
}

// Index maps item codes to items.
func Index(items []Item) map[string]Item {
	out := make(map[string]Item, len(items))
	for _, it := range items {
		out[it.Code] = it
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func clampUnit(v float64) float64 {
	return min(1, max(0, v))
}
