package selection

import (
	"github.com/abhisek/blueprint/internal/blueprint"
	"github.com/abhisek/blueprint/internal/itempool"
)

// DefaultPreviewSeed is used when a preview is requested without a seed.
const DefaultPreviewSeed uint64 = 42

// PreviewItem is the listing view of a selected item.
type PreviewItem struct {
	Code       string               `json:"code"`
	Dimension  string               `json:"dimension"`
	Difficulty blueprint.Difficulty `json:"difficulty"`
	Weight     float64              `json:"weight"`
	Anchor     bool                 `json:"anchor"`
	Critical   bool                 `json:"critical"`
}

// PreviewResult is a deterministic sample draw over a blueprint's inline pool.
type PreviewResult struct {
	Blueprint blueprint.Summary `json:"blueprint"`
	Seed      uint64            `json:"seed"`
	Items     []PreviewItem     `json:"selected_items"`
}

// Preview selects from the document's sample pool with a seeded source.
// A zero seed means DefaultPreviewSeed.
func Preview(doc *blueprint.Document, seed uint64) PreviewResult {
	if seed == 0 {
		seed = DefaultPreviewSeed
	}
	picked := Select(doc, itempool.FromSamples(doc), nil, NewRand(&seed))

	items := make([]PreviewItem, len(picked))
	for i, it := range picked {
		items[i] = PreviewItem{
			Code:       it.Code,
			Dimension:  it.Dimension,
			Difficulty: it.Difficulty,
			Weight:     it.Weight,
			Anchor:     it.Anchor,
			Critical:   it.Critical,
		}
	}
	return PreviewResult{Blueprint: doc.Summarize(), Seed: seed, Items: items}
}
