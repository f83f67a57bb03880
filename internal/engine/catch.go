package engine

import (
	"fmt"
	"math"

	"studydex/internal/collection"
	"studydex/internal/ledger"
	"studydex/internal/model"
)

type CatchResult struct {
	Instance     model.OwnedInstance
	Species      model.Species
	NewDiscovery bool
}

// Catch spends CatchCost coins on one weighted draw from the catalog.
// Species the user has not discovered yet weigh UndiscoveredWeight, the rest
// DiscoveredWeight.
func (e *Engine) Catch(s model.State) (model.State, CatchResult, error) {
	l, err := ledger.Debit(s.Ledger, CatchCost)
	if err != nil {
		return s, CatchResult{}, err
	}

	discovered := collection.DiscoveredSet(s.Collection)
	species := e.draw(discovered)
	inst := model.OwnedInstance{
		InstanceID: e.newID(),
		SpeciesID:  species.ID,
		CaughtAt:   model.Timestamp(e.clock.Now()),
	}
	_, seen := discovered[species.ID]

	c, err := collection.Add(s.Collection, inst)
	if err != nil {
		return s, CatchResult{}, fmt.Errorf("store caught instance: %w", err)
	}

	out := s.Clone()
	out.Ledger = l
	out.Collection = c
	return out, CatchResult{Instance: inst, Species: species, NewDiscovery: !seen}, nil
}

// draw picks index floor(u * total) of the multiset in which every species
// appears weight-many times, in catalog order.
func (e *Engine) draw(discovered map[int]struct{}) model.Species {
	all := e.catalog.All()
	weights := make([]int, len(all))
	total := 0
	for i, sp := range all {
		w := UndiscoveredWeight
		if _, ok := discovered[sp.ID]; ok {
			w = DiscoveredWeight
		}
		weights[i] = w
		total += w
	}

	u := e.random.Float64()
	if math.IsNaN(u) || u < 0 {
		u = 0
	}
	pick := int(math.Floor(u * float64(total)))
	if pick >= total {
		pick = total - 1
	}
	for i, w := range weights {
		if pick < w {
			return all[i]
		}
		pick -= w
	}
	return all[len(all)-1]
}
