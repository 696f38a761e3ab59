// Package scoring aggregates per-item responses into dimension and overall
// scores and classifies them into qualitative buckets.
package scoring

import (
	"math"

	"github.com/abhisek/blueprint/internal/blueprint"
	"github.com/abhisek/blueprint/internal/itempool"
)

// fallbackBucket is reported when a document carries no bucket thresholds.
const fallbackBucket = "RED"

// DimensionScore is the result for one scoring dimension.
type DimensionScore struct {
	Code              string  `json:"code"`
	RawScore          float64 `json:"raw_score"`
	MaxScore          float64 `json:"max_score"`
	Percentage        float64 `json:"percentage"`
	Bucket            string  `json:"bucket"`
	KnockoutTriggered bool    `json:"knockout_triggered"`
}

// Summary is the scored outcome of one assessment instance.
type Summary struct {
	OverallScore  float64          `json:"overall_score"`
	OverallBucket string           `json:"overall_bucket"`
	Dimensions    []DimensionScore `json:"dimensions"`
}

// Dimension returns the score of a dimension by code.
func (s Summary) Dimension(code string) (DimensionScore, bool) {
	for _, d := range s.Dimensions {
		if d.Code == code {
			return d, true
		}
	}
	return DimensionScore{}, false
}

// KnockoutDimensions returns the codes of dimensions that triggered a knockout,
// in scoring order.
func (s Summary) KnockoutDimensions() []string {
	var out []string
	for _, d := range s.Dimensions {
		if d.KnockoutTriggered {
			out = append(out, d.Code)
		}
	}
	return out
}

// Score aggregates responses for the administered items. Responses are clamped
// to [0,1]; a missing response scores 0. Every dimension of the scoring policy
// appears in the result, in policy order, even when no item was administered.
func Score(items []itempool.Item, responses map[string]float64, doc *blueprint.Document) Summary {
	buckets := doc.Scoring.Buckets
	knockout := false

	dims := make([]DimensionScore, 0, len(doc.Scoring.Dimensions))
	for _, policy := range doc.Scoring.Dimensions {
		ds := scoreDimension(policy, items, responses, doc)
		if ds.KnockoutTriggered {
			knockout = true
		}
		dims = append(dims, ds)
	}

	overall := 0.0
	for i, ds := range dims {
		overall += ds.Percentage * doc.Scoring.Dimensions[i].Weight
	}

	bucket := BucketFor(buckets, overall)
	if knockout {
		bucket = doc.Scoring.OverallKnockoutBucket
	}
	return Summary{OverallScore: overall, OverallBucket: bucket, Dimensions: dims}
}

func scoreDimension(policy blueprint.DimensionScoringPolicy, items []itempool.Item, responses map[string]float64, doc *blueprint.Document) DimensionScore {
	ds := DimensionScore{Code: policy.Code}
	critical, hasCritical := doc.Critical.Policy(policy.Code)

	administered := 0
	for _, it := range items {
		if it.Dimension != policy.Code {
			continue
		}
		administered++

		response := clampResponse(responses[it.Code])

		weight := it.Weight
		if policy.ItemWeightMode == blueprint.WeightEqual {
			weight = 1.0
		}
		if it.Critical {
			if hasCritical && critical.Mode == blueprint.CriticalWeighted {
				weight *= critical.WeightMultiplier
			} else {
				weight *= policy.CriticalWeightMultiplier
			}

			if policy.CriticalKnockout && response < policy.CriticalThreshold {
				ds.KnockoutTriggered = true
			}
			if hasCritical && critical.Mode == blueprint.CriticalKnockout && response < critical.Threshold {
				ds.KnockoutTriggered = true
			}
		}

		ds.RawScore += response * weight
		ds.MaxScore += weight
	}

	if administered == 0 {
		ds.Bucket = lowestBucket(doc.Scoring.Buckets)
		return ds
	}

	if ds.MaxScore > 0 {
		ds.Percentage = ds.RawScore / ds.MaxScore * 100
	}
	ds.Bucket = BucketFor(doc.Scoring.Buckets, ds.Percentage)
	if ds.KnockoutTriggered {
		ds.Bucket = doc.Scoring.OverallKnockoutBucket
	}
	return ds
}

// BucketFor returns the first bucket whose minimum is at or below value.
// Values below every minimum get the last bucket.
func BucketFor(buckets []blueprint.BucketThreshold, value float64) string {
	for _, b := range buckets {
		if value >= b.Min {
			return b.Code
		}
	}
	return lowestBucket(buckets)
}

func lowestBucket(buckets []blueprint.BucketThreshold) string {
	if len(buckets) == 0 {
		return fallbackBucket
	}
	return buckets[len(buckets)-1].Code
}

// clampResponse bounds a raw response to [0,1]. NaN counts as 0.
func clampResponse(v float64) float64 {
	if math.IsNaN(v) {
		// A NaN response is treated as missing, not as a perfect score.
		return 0
	}
	return min(1, max(0, v))
}
