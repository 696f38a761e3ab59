package blueprint

import (
	"encoding/json"
	"fmt"
)

// Difficulty is the difficulty bucket of an item.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// AllDifficulties returns the difficulty buckets in quota iteration order.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// ParseDifficulty converts a raw string into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("invalid difficulty %q: must be easy, medium or hard", s)
	}
}

// UnmarshalJSON rejects anything outside the three known buckets. A JSON null
// leaves the difficulty unset.
func (d *Difficulty) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CriticalMode selects how critical items in a dimension are treated.
type CriticalMode string

const (
	CriticalKnockout CriticalMode = "knockout" // A low critical response forces the knockout bucket
	CriticalWeighted CriticalMode = "weighted" // Critical responses count with a weight multiplier
)

func (m *CriticalMode) UnmarshalText(text []byte) error {
	switch CriticalMode(text) {
	case CriticalKnockout, CriticalWeighted:
		*m = CriticalMode(text)
		return nil
	default:
		return fmt.Errorf("invalid critical mode %q: must be knockout or weighted", string(text))
	}
}

// ItemWeightMode selects the per-item weight used during scoring.
type ItemWeightMode string

const (
	WeightFromItem ItemWeightMode = "use_item_weight"
	WeightEqual    ItemWeightMode = "equal"
)

func (m *ItemWeightMode) UnmarshalText(text []byte) error {
	switch ItemWeightMode(text) {
	case WeightFromItem, WeightEqual:
		*m = ItemWeightMode(text)
		return nil
	default:
		return fmt.Errorf("invalid item weight mode %q: must be use_item_weight or equal", string(text))
	}
}

// DimensionQuota is the requested item mix for one dimension.
type DimensionQuota struct {
	Code          string   `json:"-"`
	Easy          int      `json:"easy"`
	Medium        int      `json:"medium"`
	Hard          int      `json:"hard"`
	Anchors       int      `json:"anchors"`
	CriticalItems []string `json:"critical_items,omitempty"`
}

// Count returns the quota for a single difficulty bucket.
func (q DimensionQuota) Count(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return q.Easy
	case DifficultyMedium:
		return q.Medium
	case DifficultyHard:
		return q.Hard
	default:
		return 0
	}
}

// Total returns the number of items requested for the dimension.
func (q DimensionQuota) Total() int {
	return q.Easy + q.Medium + q.Hard
}

// HasCriticalItem reports whether code is listed as critical for the dimension.
func (q DimensionQuota) HasCriticalItem(code string) bool {
	for _, c := range q.CriticalItems {
		if c == code {
			return true
		}
	}
	return false
}

// AnchorItem pins an item into every selection.
type AnchorItem struct {
	Code      string `json:"code"`
	Dimension string `json:"dimension"`
	// Difficulty, when set, names the quota cell the anchor consumes.
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// DifficultyWeights are selection-weight multipliers per difficulty.
type DifficultyWeights struct {
	Easy   float64 `json:"easy"`
	Medium float64 `json:"medium"`
	Hard   float64 `json:"hard"`
}

// For returns the multiplier for a difficulty, or 1.0 for an unknown one.
func (w DifficultyWeights) For(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return w.Easy
	case DifficultyMedium:
		return w.Medium
	case DifficultyHard:
		return w.Hard
	default:
		return 1.0
	}
}

// ExposureSettings holds the global exposure balancing defaults.
type ExposureSettings struct {
	DefaultCap *float64 `json:"default_cap"`
	MinWeight  float64  `json:"min_weight"`
}

// CriticalDimensionPolicy holds the critical handling rules for a dimension.
type CriticalDimensionPolicy struct {
	Mode             CriticalMode `json:"mode"`
	Threshold        float64      `json:"threshold"`
	WeightMultiplier float64      `json:"weight_multiplier"`
}

// CriticalSettings lists globally critical items and per-dimension policies.
type CriticalSettings struct {
	Items      []string                           `json:"items"`
	Dimensions map[string]CriticalDimensionPolicy `json:"dimensions"`
}

// HasItem reports whether code is in the global critical set.
func (c CriticalSettings) HasItem(code string) bool {
	for _, it := range c.Items {
		if it == code {
			return true
		}
	}
	return false
}

// Policy returns the critical policy for a dimension, if one is declared.
func (c CriticalSettings) Policy(dimension string) (CriticalDimensionPolicy, bool) {
	p, ok := c.Dimensions[dimension]
	return p, ok
}

// BucketThreshold maps a minimum percentage to a qualitative bucket.
type BucketThreshold struct {
	Code string  `json:"code"`
	Min  float64 `json:"min"`
}

// DimensionScoringPolicy describes how a dimension's responses aggregate.
type DimensionScoringPolicy struct {
	Code                     string         `json:"code"`
	Weight                   float64        `json:"weight"`
	CriticalKnockout         bool           `json:"critical_knockout"`
	CriticalThreshold        float64        `json:"critical_threshold"`
	ItemWeightMode           ItemWeightMode `json:"item_weight_mode"`
	CriticalWeightMultiplier float64        `json:"critical_weight_multiplier"`
}

// ScoringSettings holds the aggregation and bucket rules.
type ScoringSettings struct {
	Dimensions            []DimensionScoringPolicy `json:"dimensions"`
	Buckets               []BucketThreshold        `json:"buckets"`
	OverallKnockoutBucket string                   `json:"overall_knockout_bucket"`
}

// Policy returns the scoring policy for a dimension code.
func (s ScoringSettings) Policy(code string) (DimensionScoringPolicy, bool) {
	for _, p := range s.Dimensions {
		if p.Code == code {
			return p, true
		}
	}
	return DimensionScoringPolicy{}, false
}

// SampleItem is inline item metadata bundled with a blueprint.
type SampleItem struct {
	Code           string     `json:"code"`
	Dimension      string     `json:"dimension"`
	Difficulty     Difficulty `json:"difficulty"`
	Weight         float64    `json:"weight"`
	Anchor         bool       `json:"anchor"`
	Critical       bool       `json:"critical"`
	Discrimination *float64   `json:"discrimination"`
	ExposureRatio  *float64   `json:"exposure_ratio"`
	ExposureCap    *float64   `json:"exposure_cap"`
	Tags           []string   `json:"tags"`
}

// Document is a validated blueprint for one assessment version.
// A Document returned by Parse or Load must be treated as read-only.
type Document struct {
	TemplateID        string            `json:"template_id"`
	Name              string            `json:"blueprint_name"`
	Version           string            `json:"version"`
	Anchors           int               `json:"anchors"`
	Dimensions        DimensionSet      `json:"dimensions"`
	AnchorItems       []AnchorItem      `json:"anchor_items"`
	DifficultyWeights DifficultyWeights `json:"difficulty_weights"`
	Exposure          ExposureSettings  `json:"exposure"`
	Critical          CriticalSettings  `json:"critical"`
	Scoring           ScoringSettings   `json:"scoring"`
	SamplePool        []SampleItem      `json:"sample_pool"`
}

// TotalQuota returns the number of items a full selection contains.
func (d *Document) TotalQuota() int {
	total := 0
	for _, q := range d.Dimensions {
		total += q.Total()
	}
	return total
}

// DimensionCodes returns the quota dimensions in declared order.
func (d *Document) DimensionCodes() []string {
	codes := make([]string, len(d.Dimensions))
	for i, q := range d.Dimensions {
		codes[i] = q.Code
	}
	return codes
}

// IsAnchorItem reports whether code is listed in the explicit anchor items.
func (d *Document) IsAnchorItem(code string) bool {
	for _, a := range d.AnchorItems {
		if a.Code == code {
			return true
		}
	}
	return false
}

// Summary is the lightweight listing view of a document.
type Summary struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"blueprint_name"`
	Version    string `json:"version"`
	Anchors    int    `json:"anchors"`
	TotalQuota int    `json:"total_quota"`
}

// Summarize returns the listing view of the document.
func (d *Document) Summarize() Summary {
	return Summary{
		TemplateID: d.TemplateID,
		Name:       d.Name,
		Version:    d.Version,
		Anchors:    d.Anchors,
		TotalQuota: d.TotalQuota(),
	}
}
