package itempool

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/blueprint/internal/blueprint"
)

// MetaExposureRatio is the record metadata key holding a fallback exposure ratio.
const MetaExposureRatio = "exposure_ratio"

// BankRecord is a persisted item-bank entry for one assessment version.
type BankRecord struct {
	ItemID         uuid.UUID      `json:"item_id"`
	VersionID      uuid.UUID      `json:"version_id"`
	Code           string         `json:"code"`
	Dimension      string         `json:"dimension"`
	Difficulty     string         `json:"difficulty"`
	Weight         *float64       `json:"weight,omitempty"`
	Critical       bool           `json:"critical"`
	Anchor         bool           `json:"anchor"`
	Discrimination *float64       `json:"discrimination,omitempty"`
	ExposureCap    *float64       `json:"exposure_cap,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// ItemStats holds the observed usage statistics of a bank item.
type ItemStats struct {
	ItemID         uuid.UUID  `json:"item_id"`
	Shown          int        `json:"shown"`
	Correct        int        `json:"correct"`
	Facility       *float64   `json:"facility,omitempty"`
	Discrimination *float64   `json:"discrimination,omitempty"`
	Exposure       *float64   `json:"exposure,omitempty"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
}

// RecordError reports a bank record that cannot become an item.
type RecordError struct {
	Index  int
	Code   string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("bank record %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("bank record %d (%s): %s", e.Index, e.Code, e.Reason)
}

// StatsByItem indexes a stats slice by item id. Later entries win.
func StatsByItem(stats []ItemStats) map[uuid.UUID]ItemStats {
	out := make(map[uuid.UUID]ItemStats, len(stats))
	for _, s := range stats {
		out[s.ItemID] = s
	}
	return out
}

// FromBank converts item-bank records into items. Statistics take precedence
// over the record for discrimination and exposure; a missing exposure falls
// back to the record metadata. Exposure ratios are clamped to [0,1]. The
// exposure cap is taken from the record only and stays nil when absent.
func FromBank(records []BankRecord, stats map[uuid.UUID]ItemStats) ([]Item, error) {
	items := make([]Item, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		if rec.Code == "" {
			return nil, &RecordError{Index: i, Reason: "empty item code"}
		}
		if seen[rec.Code] {
			return nil, &RecordError{Index: i, Code: rec.Code, Reason: "duplicate item code"}
		}
		seen[rec.Code] = true

		difficulty, err := blueprint.ParseDifficulty(rec.Difficulty)
		if err != nil {
			return nil, &RecordError{Index: i, Code: rec.Code, Reason: err.Error()}
		}

		weight := 1.0
		if rec.Weight != nil {
			weight = *rec.Weight
		}

		discrimination := copyFloat(rec.Discrimination)
		var exposure *float64
		st, hasStats := stats[rec.ItemID]
		if hasStats {
			if st.Discrimination != nil {
				discrimination = copyFloat(st.Discrimination)
			}
			exposure = copyFloat(st.Exposure)
		}
		if exposure == nil {
			if v, ok := metaFloat(rec.Meta, MetaExposureRatio); ok {
				exposure = &v
			}
		}
		if exposure != nil {
			*exposure = clampUnit(*exposure)
		}

		items = append(items, Item{
			Code:           rec.Code,
			Dimension:      rec.Dimension,
			Difficulty:     difficulty,
			Weight:         weight,
			Anchor:         rec.Anchor,
			Critical:       rec.Critical,
			Discrimination: discrimination,
			ExposureRatio:  exposure,
			ExposureCap:    copyFloat(rec.ExposureCap),
			Tags:           append([]string(nil), rec.Tags...),
		})
	}
	return items, nil
}

func metaFloat(meta map[string]any, key string) (float64, bool) {
	raw, ok := meta[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// SampleBankRecords converts the document's sample pool into bank records.
// Each record keeps the sample's own exposure cap; the document default cap
// is not persisted, so hydrated bank items never inherit it.
func SampleBankRecords(doc *blueprint.Document) []BankRecord {
	samples := make(map[string]*float64, len(doc.SamplePool))
	for _, s := range doc.SamplePool {
		samples[s.Code] = s.ExposureCap
	}
	records := ToBankRecords(FromSamples(doc))
	for i := range records {
		records[i].ExposureCap = copyFloat(samples[records[i].Code])
	}
	return records
}

// ToBankRecords converts items into bank records for persistence. An item's
// exposure ratio is kept in the record metadata, where FromBank recovers it
// until observed statistics exist.
func ToBankRecords(items []Item) []BankRecord {
	out := make([]BankRecord, len(items))
	for i, it := range items {
		weight := it.Weight
		rec := BankRecord{
			Code:           it.Code,
			Dimension:      it.Dimension,
			Difficulty:     string(it.Difficulty),
			Weight:         &weight,
			Critical:       it.Critical,
			Anchor:         it.Anchor,
			Discrimination: copyFloat(it.Discrimination),
			ExposureCap:    copyFloat(it.ExposureCap),
			Tags:           append([]string(nil), it.Tags...),
		}
		if it.ExposureRatio != nil {
			rec.Meta = map[string]any{MetaExposureRatio: *it.ExposureRatio}
		}
		out[i] = rec
	}
	return out
}
