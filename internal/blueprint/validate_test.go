package blueprint

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const baseDocument = `{
	"template_id": "mini",
	"blueprint_name": "Mini",
	"version": "0.1.0",
	"anchors": 0,
	"dimensions": {"A": {"easy": 1, "medium": 1}, "B": {"hard": 1}},
	"scoring": {"dimensions": [{"code": "A", "weight": 0.5}, {"code": "B", "weight": 0.5}]}
}`

// minimalDocument returns a valid document with the given top-level fields
// replaced. extra is a comma separated list of JSON members.
func minimalDocument(extra string) string {
	var base map[string]any
	if err := json.Unmarshal([]byte(baseDocument), &base); err != nil {
		panic(err)
	}
	if extra != "" {
		var over map[string]any
		if err := json.Unmarshal([]byte("{"+extra+"}"), &over); err != nil {
			panic(err)
		}
		for k, v := range over {
			if v == nil {
				delete(base, k)
				continue
			}
			base[k] = v
		}
	}
	out, err := json.Marshal(base)
	if err != nil {
		panic(err)
	}
	return string(out)
}

func parseJSON(t *testing.T, doc string) (*Document, error) {
	t.Helper()
	return Parse([]byte(doc), FormatJSON)
}

func TestParse_MinimalDocumentAppliesDefaults(t *testing.T) {
	doc, err := parseJSON(t, minimalDocument(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Exposure.DefaultCap == nil || *doc.Exposure.DefaultCap != DefaultExposureCap {
		t.Errorf("DefaultCap = %v, want %v", doc.Exposure.DefaultCap, DefaultExposureCap)
	}
	if doc.Exposure.MinWeight != DefaultMinWeight {
		t.Errorf("MinWeight = %v", doc.Exposure.MinWeight)
	}
	if doc.Scoring.OverallKnockoutBucket != DefaultKnockoutBucket {
		t.Errorf("OverallKnockoutBucket = %q", doc.Scoring.OverallKnockoutBucket)
	}
	p, ok := doc.Scoring.Policy("A")
	if !ok {
		t.Fatal("policy A missing")
	}
	if p.ItemWeightMode != WeightFromItem || p.CriticalThreshold != DefaultCriticalThreshold || p.CriticalKnockout {
		t.Errorf("policy defaults = %+v", p)
	}
	if doc.TotalQuota() != 3 {
		t.Errorf("TotalQuota = %d, want 3", doc.TotalQuota())
	}
}

func TestParse_PartialDifficultyWeightsKeepDefaults(t *testing.T) {
	doc, err := parseJSON(t, minimalDocument(`"difficulty_weights": {"easy": 2}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := DifficultyWeights{Easy: 2, Medium: 1.2, Hard: 1.4}
	if doc.DifficultyWeights != want {
		t.Errorf("DifficultyWeights = %+v, want %+v", doc.DifficultyWeights, want)
	}
}

func TestParse_AnchorDifficultyMayBeNull(t *testing.T) {
	doc, err := parseJSON(t, minimalDocument(`"anchors": 1, "anchor_items": [{"code": "a1", "dimension": "A", "difficulty": null}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.AnchorItems[0].Difficulty != "" {
		t.Errorf("Difficulty = %q, want unset", doc.AnchorItems[0].Difficulty)
	}
	if !doc.IsAnchorItem("a1") {
		t.Error("IsAnchorItem(a1) = false")
	}
}

func TestParse_Violations(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{
			name:    "anchor quota exceeds total",
			extra:   `"anchors": 5, "dimensions": {"A": {"easy": 1, "anchors": 2}, "B": {"hard": 1}}`,
			wantErr: "anchor quota 2 cannot exceed total quota 1",
		},
		{
			name:    "weights do not sum to one",
			extra:   `"scoring": {"dimensions": [{"code": "A", "weight": 0.5}, {"code": "B", "weight": 0.4}]}`,
			wantErr: "dimension weights must sum to 1.0",
		},
		{
			name:    "empty buckets",
			extra:   `"scoring": {"dimensions": [{"code": "A", "weight": 0.5}, {"code": "B", "weight": 0.5}], "buckets": []}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "ascending buckets",
			extra:   `"scoring": {"dimensions": [{"code": "A", "weight": 0.5}, {"code": "B", "weight": 0.5}], "buckets": [{"code": "LOW", "min": 0}, {"code": "HIGH", "min": 80}]}`,
			wantErr: "bucket thresholds must be provided in descending order",
		},
		{
			name:    "declared anchors too small",
			extra:   `"anchors": 1, "dimensions": {"A": {"easy": 1, "medium": 1, "anchors": 1}, "B": {"hard": 1, "anchors": 1}}`,
			wantErr: "declared anchors 1 must cover",
		},
		{
			name:    "anchor items exceed declared anchors",
			extra:   `"anchor_items": [{"code": "a1", "dimension": "A"}]`,
			wantErr: "declared anchors 0 must cover",
		},
		{
			name:    "scoring dimension missing",
			extra:   `"dimensions": {"A": {"easy": 1}, "B": {"hard": 1}, "C": {"easy": 1}}`,
			wantErr: "mismatches: C",
		},
		{
			name:    "duplicate scoring dimension",
			extra:   `"scoring": {"dimensions": [{"code": "A", "weight": 0.25}, {"code": "A", "weight": 0.25}, {"code": "B", "weight": 0.5}]}`,
			wantErr: `duplicate scoring dimension "A"`,
		},
		{
			name:    "critical policy for unknown dimension",
			extra:   `"critical": {"dimensions": {"Z": {"mode": "knockout"}, "Y": {}}}`,
			wantErr: "reference unknown dimensions: Y, Z",
		},
		{
			name:    "anchor item with unknown dimension",
			extra:   `"anchors": 1, "anchor_items": [{"code": "a1", "dimension": "Q"}]`,
			wantErr: `anchor item "a1" references unknown dimension "Q"`,
		},
		{
			name:    "duplicate sample code",
			extra:   `"sample_pool": [{"code": "x", "dimension": "A", "difficulty": "easy"}, {"code": "x", "dimension": "A", "difficulty": "medium"}]`,
			wantErr: `duplicate sample item code "x"`,
		},
		{
			name:    "unknown top-level field",
			extra:   `"extra_field": true`,
			wantErr: "schema validation failed",
		},
		{
			name:    "bad difficulty",
			extra:   `"sample_pool": [{"code": "x", "dimension": "A", "difficulty": "brutal"}]`,
			wantErr: "schema validation failed",
		},
		{
			name:    "bad critical mode",
			extra:   `"critical": {"dimensions": {"A": {"mode": "maybe"}}}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "missing template id",
			extra:   `"template_id": null`,
			wantErr: "schema validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseJSON(t, minimalDocument(tt.extra))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_EqualBucketMinsAllowed(t *testing.T) {
	_, err := parseJSON(t, minimalDocument(`"scoring": {"dimensions": [{"code": "A", "weight": 0.5}, {"code": "B", "weight": 0.5}], "buckets": [{"code": "PASS", "min": 50}, {"code": "ALSO", "min": 50}, {"code": "FAIL", "min": 0}]}`))
	if err != nil {
		t.Fatalf("equal bucket minimums should be accepted: %v", err)
	}
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, err := parseJSON(t, minimalDocument(`"anchors": 0, "anchor_items": [{"code": "a1", "dimension": "Q"}], "scoring": {"dimensions": [{"code": "A", "weight": 0.3}, {"code": "B", "weight": 0.3}]}`))
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(valErr.Problems) != 3 {
		t.Fatalf("Problems = %v, want 3 entries", valErr.Problems)
	}
	if !strings.Contains(valErr.Problems[0], "weights must sum") {
		t.Errorf("first problem = %q, want weight sum first", valErr.Problems[0])
	}
}

func TestParse_YAMLKeepsDimensionOrder(t *testing.T) {
	src := `
template_id: ordered
blueprint_name: Ordered
version: "2.0.0"
dimensions:
  ZETA: {easy: 1}
  ALPHA: {easy: 1}
scoring:
  dimensions:
    - {code: ALPHA, weight: 0.5}
    - {code: ZETA, weight: 0.5}
`
	doc, err := Parse([]byte(src), FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := strings.Join(doc.DimensionCodes(), ","); got != "ZETA,ALPHA" {
		t.Errorf("DimensionCodes = %s, want ZETA,ALPHA", got)
	}
}

func TestParse_DuplicateDimensionKey(t *testing.T) {
	src := `{"template_id":"d","blueprint_name":"d","version":"1","dimensions":{"A":{"easy":1},"A":{"easy":2}},"scoring":{"dimensions":[{"code":"A","weight":1}]}}`
	_, err := parseJSON(t, src)
	if err == nil || !strings.Contains(err.Error(), "duplicate dimension") {
		t.Errorf("expected duplicate dimension error, got %v", err)
	}
}

func TestDimensionSet_MarshalRoundTripKeepsOrder(t *testing.T) {
	set := DimensionSet{{Code: "B", Easy: 1}, {Code: "A", Hard: 2}}
	out, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(out), `{"B":`) {
		t.Errorf("marshalled = %s, want B first", out)
	}
}
