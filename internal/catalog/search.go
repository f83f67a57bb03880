package catalog

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"studydex/internal/model"
)

type Match struct {
	Species  model.Species
	Distance int
}

// Search finds species by id ("25", "#025") or by name, tolerating typos.
// Exact names rank first, then prefixes, then substrings, then edit distance.
func (c *Catalog) Search(query string, limit int) []Match {
	q := normalizeName(query)
	if q == "" {
		return nil
	}
	if id, err := strconv.Atoi(strings.TrimLeft(strings.TrimSpace(query), "#")); err == nil {
		if s, ok := c.Get(id); ok {
			return []Match{{Species: s}}
		}
		return nil
	}

	var out []Match
	for _, s := range c.species {
		name := normalizeName(s.Name)
		var dist int
		switch {
		case name == q:
			dist = 0
		case strings.HasPrefix(name, q):
			dist = 1
		case strings.Contains(name, q):
			dist = 2
		default:
			d := levenshtein.ComputeDistance(q, name)
			if d > distanceLimit(len(name)) {
				continue
			}
			dist = 2 + d
		}
		out = append(out, Match{Species: cloneSpecies(s), Distance: dist})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].Species.ID < out[j].Species.ID
		}
		return out[i].Distance < out[j].Distance
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Lookup returns the best match when it is unambiguous enough to act on.
func (c *Catalog) Lookup(query string) (model.Species, bool) {
	matches := c.Search(query, 2)
	if len(matches) == 0 {
		return model.Species{}, false
	}
	if len(matches) > 1 && matches[0].Distance == matches[1].Distance && matches[0].Distance > 0 {
		return model.Species{}, false
	}
	return matches[0].Species, true
}

func distanceLimit(n int) int {
	switch {
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
