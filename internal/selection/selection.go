// Package selection picks the items of one assessment instance from a
// candidate pool, honoring blueprint anchors, per-dimension difficulty quotas
// and exposure caps.
//
// Selection is pure: it performs no I/O and never mutates the document or the
// pool. A Rand must not be shared between concurrent selections.
package selection

import (
	"math/rand/v2"

	"github.com/abhisek/blueprint/internal/blueprint"
	"github.com/abhisek/blueprint/internal/itempool"
)

// Rand is the random source used for weighted sampling.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a PCG-backed source. A nil seed draws fresh entropy.
func NewRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed))
}

// quotaCounter tracks the remaining per-difficulty quota of each dimension.
type quotaCounter map[string]map[blueprint.Difficulty]int

func newQuotaCounter(doc *blueprint.Document) quotaCounter {
	q := make(quotaCounter, len(doc.Dimensions))
	for _, dim := range doc.Dimensions {
		cells := make(map[blueprint.Difficulty]int, 3)
		for _, d := range blueprint.AllDifficulties() {
			cells[d] = dim.Count(d)
		}
		q[dim.Code] = cells
	}
	return q
}

// consume decrements a quota cell that still has room.
func (q quotaCounter) consume(dimension string, d blueprint.Difficulty) {
	cells, ok := q[dimension]
	if !ok {
		return
	}
	if cells[d] > 0 {
		cells[d]--
	}
}

// candidates is the working set of still-available items.
type candidates []itempool.Item

func (c *candidates) remove(code string) {
	items := *c
	for i := range items {
		if items[i].Code == code {
			*c = append(items[:i:i], items[i+1:]...)
			return
		}
	}
}

func (c candidates) find(code string) (itempool.Item, bool) {
	for _, it := range c {
		if it.Code == code {
			return it, true
		}
	}
	return itempool.Item{}, false
}

func (c candidates) where(keep func(itempool.Item) bool) []itempool.Item {
	var out []itempool.Item
	for _, it := range c {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Select draws the items for one assessment instance. Items whose code is in
// seen are never selected. The result lists explicit anchors first, then
// anchor top-ups, then the quota fill by dimension and difficulty. A nil rng
// uses fresh entropy.
func Select(doc *blueprint.Document, pool []itempool.Item, seen map[string]bool, rng Rand) []itempool.Item {
	if rng == nil {
		rng = NewRand(nil)
	}

	s := &selector{
		doc:    doc,
		rng:    rng,
		quota:  newQuotaCounter(doc),
		weight: doc.DifficultyWeights,
		floor:  doc.Exposure.MinWeight,
	}
	for _, it := range pool {
		if !seen[it.Code] {
			s.available = append(s.available, it)
		}
	}

	s.explicitAnchors()
	s.anchorTopUp()
	s.fill()
	return s.selected
}

type selector struct {
	doc       *blueprint.Document
	rng       Rand
	quota     quotaCounter
	weight    blueprint.DifficultyWeights
	floor     float64
	available candidates
	selected  []itempool.Item
}

func (s *selector) take(it itempool.Item) {
	s.selected = append(s.selected, it)
	s.available.remove(it.Code)
}

// explicitAnchors pins every listed anchor still available in the pool. A
// code listed twice is taken once, at its first position, using the last
// entry's difficulty override.
func (s *selector) explicitAnchors() {
	var order []string
	byCode := make(map[string]blueprint.AnchorItem, len(s.doc.AnchorItems))
	for _, a := range s.doc.AnchorItems {
		if _, dup := byCode[a.Code]; !dup {
			order = append(order, a.Code)
		}
		byCode[a.Code] = a
	}

	for _, code := range order {
		it, ok := s.available.find(code)
		if !ok {
			continue
		}
		s.take(it)
		d := byCode[code].Difficulty
		if d == "" {
			d = it.Difficulty
		}
		s.quota.consume(it.Dimension, d)
	}
}

// anchorTopUp draws anchor-flagged items for dimensions whose anchor quota is
// not yet met by the selection so far.
func (s *selector) anchorTopUp() {
	for _, dim := range s.doc.Dimensions {
		have := 0
		for _, it := range s.selected {
			if it.Dimension == dim.Code && it.Anchor {
				have++
			}
		}
		required := dim.Anchors - have
		if required <= 0 {
			continue
		}
		pool := s.available.where(func(it itempool.Item) bool {
			return it.Dimension == dim.Code && it.Anchor
		})
		for _, it := range s.sample(filterExposure(pool), required) {
			s.take(it)
			s.quota.consume(it.Dimension, it.Difficulty)
		}
	}
}

// fill draws non-anchor items for every remaining quota cell, falling back to
// any difficulty of the same dimension when a cell runs dry.
func (s *selector) fill() {
	for _, dim := range s.doc.Dimensions {
		cells := s.quota[dim.Code]
		for _, d := range blueprint.AllDifficulties() {
			count := cells[d]
			if count <= 0 {
				continue
			}
			exact := s.available.where(func(it itempool.Item) bool {
				return it.Dimension == dim.Code && it.Difficulty == d && !it.Anchor
			})
			picks := s.sample(filterExposure(exact), count)
			for _, it := range picks {
				s.take(it)
			}

			if short := count - len(picks); short > 0 {
				fallback := s.available.where(func(it itempool.Item) bool {
					return it.Dimension == dim.Code && !it.Anchor
				})
				for _, it := range s.sample(filterExposure(fallback), short) {
					s.take(it)
				}
			}
		}
	}
}

func (s *selector) sample(pool []itempool.Item, count int) []itempool.Item {
	return weightedSample(s.rng, pool, count, s.weight, s.floor)
}

// filterExposure drops over-exposed items. When that would leave nothing the
// unfiltered set is returned.
func filterExposure(items []itempool.Item) []itempool.Item {
	if len(items) == 0 {
		return items
	}
	var eligible []itempool.Item
	for _, it := range items {
		if !it.OverExposed() {
			eligible = append(eligible, it)
		}
	}
	if len(eligible) == 0 {
		return items
	}
	return eligible
}

// weightedSample draws up to count items without replacement, each draw
// proportional to the current selection weights.
func weightedSample(rng Rand, pool []itempool.Item, count int, w blueprint.DifficultyWeights, minWeight float64) []itempool.Item {
	if count <= 0 || len(pool) == 0 {
		return nil
	}

	working := append([]itempool.Item(nil), pool...)
	n := min(count, len(working))
	picked := make([]itempool.Item, 0, n)
	for range n {
		weights := make([]float64, len(working))
		total := 0.0
		for i, it := range working {
			weights[i] = it.SelectionWeight(w, minWeight)
			total += weights[i]
		}

		choice := 0
		if total <= 0 {
			choice = rng.IntN(len(working))
		} else {
			target := rng.Float64() * total
			cumulative := 0.0
			for i, wt := range weights {
				cumulative += wt
				if cumulative >= target {
					choice = i
					break
				}
			}
		}

		picked = append(picked, working[choice])
		working = append(working[:choice], working[choice+1:]...)
	}
	return picked
}
