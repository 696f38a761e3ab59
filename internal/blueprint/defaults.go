package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Default policy values applied when a document omits a field.
const (
	DefaultMinWeight                = 0.05
	DefaultExposureCap              = 0.25
	DefaultCriticalThreshold        = 0.5
	DefaultCriticalWeightMultiplier = 3.0
	DefaultKnockoutBucket           = "RED"
)

// DefaultDifficultyWeights favours harder items slightly.
func DefaultDifficultyWeights() DifficultyWeights {
	return DifficultyWeights{Easy: 1.0, Medium: 1.2, Hard: 1.4}
}

// DefaultBuckets returns the GREEN/YELLOW/ORANGE/RED ladder.
func DefaultBuckets() []BucketThreshold {
	return []BucketThreshold{
		{Code: "GREEN", Min: 80},
		{Code: "YELLOW", Min: 60},
		{Code: "ORANGE", Min: 40},
		{Code: "RED", Min: 0},
	}
}

// defaultDocument returns a document pre-populated with every default, so that
// decoding on top of it only overrides the fields present in the source.
func defaultDocument() Document {
	defaultCap := DefaultExposureCap
	return Document{
		DifficultyWeights: DefaultDifficultyWeights(),
		Exposure: ExposureSettings{
			DefaultCap: &defaultCap,
			MinWeight:  DefaultMinWeight,
		},
		Critical: CriticalSettings{
			Dimensions: map[string]CriticalDimensionPolicy{},
		},
		Scoring: ScoringSettings{
			Buckets:               DefaultBuckets(),
			OverallKnockoutBucket: DefaultKnockoutBucket,
		},
	}
}

func (p *CriticalDimensionPolicy) UnmarshalJSON(data []byte) error {
	type plain CriticalDimensionPolicy
	v := plain{
		Mode:             CriticalWeighted,
		Threshold:        DefaultCriticalThreshold,
		WeightMultiplier: DefaultCriticalWeightMultiplier,
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = CriticalDimensionPolicy(v)
	return nil
}

func (p *DimensionScoringPolicy) UnmarshalJSON(data []byte) error {
	type plain DimensionScoringPolicy
	v := plain{
		CriticalThreshold:        DefaultCriticalThreshold,
		ItemWeightMode:           WeightFromItem,
		CriticalWeightMultiplier: DefaultCriticalWeightMultiplier,
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = DimensionScoringPolicy(v)
	return nil
}

func (s *SampleItem) UnmarshalJSON(data []byte) error {
	type plain SampleItem
	v := plain{Weight: 1.0}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = SampleItem(v)
	return nil
}

// DimensionSet is the ordered list of dimension quotas. It decodes from a JSON
// object and keeps the key order, which drives selection order.
type DimensionSet []DimensionQuota

// Get returns the quota for a dimension code.
func (s DimensionSet) Get(code string) (DimensionQuota, bool) {
	for _, q := range s {
		if q.Code == code {
			return q, true
		}
	}
	return DimensionQuota{}, false
}

func (s *DimensionSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dimensions must be an object, got %v", tok)
	}

	var out DimensionSet
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("dimension key must be a string, got %v", keyTok)
		}
		if seen[code] {
			return fmt.Errorf("duplicate dimension %q", code)
		}
		seen[code] = true

		var q DimensionQuota
		if err := dec.Decode(&q); err != nil {
			return fmt.Errorf("dimension %q: %w", code, err)
		}
		q.Code = code
		out = append(out, q)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

func (s DimensionSet) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, q := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(q.Code)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(q)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
