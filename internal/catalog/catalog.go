// Package catalog holds the immutable species reference table and the
// evolution graph between species.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"studydex/internal/model"
)

//go:embed data/species.yaml
var speciesYAML []byte

const (
	MaxStage      = 3
	spriteURLBase = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png"
)

var ErrInvalidCatalog = errors.New("invalid species catalog")

// Entry is one species as written in the data file. Family and stage are
// derived from the evolution edges.
type Entry struct {
	ID        int      `yaml:"id"`
	Name      string   `yaml:"name"`
	Types     []string `yaml:"types"`
	EvolvesTo int      `yaml:"evolves_to,omitempty"`
	Branches  []int    `yaml:"branches,omitempty"`
}

type file struct {
	Species []Entry `yaml:"species"`
}

type Catalog struct {
	species []model.Species
	index   map[int]int
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog, parsed once per process.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(speciesYAML)
	})
	return defaultCatalog, defaultErr
}

// MustDefault panics when the embedded data is broken, which is a build
// defect rather than a runtime condition.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}
	return Build(f.Species)
}

// Build validates entries and derives family ids and stages.
func Build(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no species", ErrInvalidCatalog)
	}

	index := make(map[int]int, len(entries))
	for i, e := range entries {
		if e.ID <= 0 {
			return nil, fmt.Errorf("%w: species id must be positive, got %d", ErrInvalidCatalog, e.ID)
		}
		if _, dup := index[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate species id %d", ErrInvalidCatalog, e.ID)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("%w: species %d has no name", ErrInvalidCatalog, e.ID)
		}
		if len(e.Types) < 1 || len(e.Types) > 2 {
			return nil, fmt.Errorf("%w: species %d must have 1 or 2 types, got %d", ErrInvalidCatalog, e.ID, len(e.Types))
		}
		if e.EvolvesTo != 0 && len(e.Branches) > 0 {
			return nil, fmt.Errorf("%w: species %d has both a linear and a branching evolution", ErrInvalidCatalog, e.ID)
		}
		if len(e.Branches) == 1 {
			return nil, fmt.Errorf("%w: species %d branches to a single form; use evolves_to", ErrInvalidCatalog, e.ID)
		}
		index[e.ID] = i
	}

	parent := make(map[int]int, len(entries))
	for _, e := range entries {
		for _, to := range nextForms(e) {
			if _, ok := index[to]; !ok {
				return nil, fmt.Errorf("%w: species %d evolves into unknown species %d", ErrInvalidCatalog, e.ID, to)
			}
			if to == e.ID {
				return nil, fmt.Errorf("%w: species %d evolves into itself", ErrInvalidCatalog, e.ID)
			}
			if prev, ok := parent[to]; ok {
				return nil, fmt.Errorf("%w: species %d is reached from both %d and %d", ErrInvalidCatalog, to, prev, e.ID)
			}
			parent[to] = e.ID
		}
	}

	stages := make(map[int]int, len(entries))
	for _, e := range entries {
		stage, err := stageOf(e.ID, parent, len(entries))
		if err != nil {
			return nil, err
		}
		stages[e.ID] = stage
	}

	families := familyIDs(entries, parent)

	species := make([]model.Species, 0, len(entries))
	for _, e := range entries {
		species = append(species, model.Species{
			ID:               e.ID,
			Name:             e.Name,
			Types:            append([]string(nil), e.Types...),
			Stage:            stages[e.ID],
			EvolutionID:      e.EvolvesTo,
			BranchEvolutions: append([]int(nil), e.Branches...),
			FamilyID:         families[e.ID],
			Sprite:           fmt.Sprintf(spriteURLBase, e.ID),
		})
	}
	sort.Slice(species, func(i, j int) bool { return species[i].ID < species[j].ID })

	c := &Catalog{species: species, index: make(map[int]int, len(species))}
	for i, s := range species {
		c.index[s.ID] = i
	}
	return c, nil
}

func nextForms(e Entry) []int {
	if e.EvolvesTo != 0 {
		return []int{e.EvolvesTo}
	}
	return e.Branches
}

func stageOf(id int, parent map[int]int, limit int) (int, error) {
	stage := 1
	for cur := id; ; stage++ {
		p, ok := parent[cur]
		if !ok {
			break
		}
		if stage > limit {
			return 0, fmt.Errorf("%w: evolution cycle through species %d", ErrInvalidCatalog, id)
		}
		cur = p
	}
	if stage > MaxStage {
		return 0, fmt.Errorf("%w: species %d sits at stage %d, above %d", ErrInvalidCatalog, id, stage, MaxStage)
	}
	return stage, nil
}

// familyIDs labels every connected component of the evolution graph with its
// smallest member id.
func familyIDs(entries []Entry, parent map[int]int) map[int]int {
	root := make(map[int]int, len(entries))
	var find func(int) int
	find = func(id int) int {
		r, ok := root[id]
		if !ok || r == id {
			root[id] = id
			return id
		}
		r = find(r)
		root[id] = r
		return r
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			root[rb] = ra
		} else {
			root[ra] = rb
		}
	}
	for child, p := range parent {
		union(child, p)
	}
	out := make(map[int]int, len(entries))
	for _, e := range entries {
		out[e.ID] = find(e.ID)
	}
	return out
}

// Get returns a copy of the species with the given id.
func (c *Catalog) Get(id int) (model.Species, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Species{}, false
	}
	return cloneSpecies(c.species[i]), true
}

// All returns every species ordered by id.
func (c *Catalog) All() []model.Species {
	out := make([]model.Species, len(c.species))
	for i, s := range c.species {
		out[i] = cloneSpecies(s)
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.species)
}

// Family returns the members of a species' family ordered by stage, then id.
func (c *Catalog) Family(id int) []model.Species {
	s, ok := c.Get(id)
	if !ok {
		return nil
	}
	var out []model.Species
	for _, member := range c.species {
		if member.FamilyID == s.FamilyID {
			out = append(out, cloneSpecies(member))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DexOrder returns every species grouped by family, then by id.
func (c *Catalog) DexOrder() []model.Species {
	out := c.All()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FamilyID == out[j].FamilyID {
			return out[i].ID < out[j].ID
		}
		return out[i].FamilyID < out[j].FamilyID
	})
	return out
}

func cloneSpecies(s model.Species) model.Species {
	s.Types = append([]string(nil), s.Types...)
	s.BranchEvolutions = append([]int(nil), s.BranchEvolutions...)
	if len(s.BranchEvolutions) == 0 {
		s.BranchEvolutions = nil
	}
	return s
}
