// Package collection manages owned instances and the discovered species set.
// Every function returns a new Collection and leaves its input untouched.
package collection

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"studydex/internal/model"
)

var (
	ErrNotFound          = errors.New("instance not found")
	ErrDuplicateInstance = errors.New("instance id already in collection")
	ErrInvalidInstance   = errors.New("instance requires an id and a species")
)

const MaxNicknameLength = 24

// Find returns the instance with id and its position in Owned.
func Find(c model.Collection, id string) (model.OwnedInstance, int, bool) {
	for i, inst := range c.Owned {
		if inst.InstanceID == id {
			return inst, i, true
		}
	}
	return model.OwnedInstance{}, -1, false
}

// Add appends a new instance and records its species as discovered.
func Add(c model.Collection, inst model.OwnedInstance) (model.Collection, error) {
	if inst.InstanceID == "" || inst.SpeciesID <= 0 {
		return c, ErrInvalidInstance
	}
	if _, _, exists := Find(c, inst.InstanceID); exists {
		return c, ErrDuplicateInstance
	}
	out := c.Clone()
	out.Owned = append(out.Owned, inst)
	out.Discovered = withDiscovered(out.Discovered, inst.SpeciesID)
	return out, nil
}

// Remove drops an instance. Discovered is left alone.
func Remove(c model.Collection, id string) (model.Collection, model.OwnedInstance, error) {
	inst, i, ok := Find(c, id)
	if !ok {
		return c, model.OwnedInstance{}, ErrNotFound
	}
	out := c.Clone()
	out.Owned = append(out.Owned[:i], out.Owned[i+1:]...)
	return out, inst, nil
}

// SetSpecies moves an instance to a new species in place, keeping its
// identity, and marks the species discovered.
func SetSpecies(c model.Collection, id string, speciesID int) (model.Collection, error) {
	_, i, ok := Find(c, id)
	if !ok {
		return c, ErrNotFound
	}
	out := c.Clone()
	out.Owned[i].SpeciesID = speciesID
	out.Discovered = withDiscovered(out.Discovered, speciesID)
	return out, nil
}

func ToggleFavorite(c model.Collection, id string) (model.Collection, model.OwnedInstance, error) {
	_, i, ok := Find(c, id)
	if !ok {
		return c, model.OwnedInstance{}, ErrNotFound
	}
	out := c.Clone()
	out.Owned[i].IsFavorite = !out.Owned[i].IsFavorite
	return out, out.Owned[i], nil
}

// SetNickname trims the name and caps it at MaxNicknameLength runes; an
// empty name clears the nickname.
func SetNickname(c model.Collection, id, nickname string) (model.Collection, model.OwnedInstance, error) {
	_, i, ok := Find(c, id)
	if !ok {
		return c, model.OwnedInstance{}, ErrNotFound
	}
	nickname = strings.TrimSpace(nickname)
	if r := []rune(nickname); len(r) > MaxNicknameLength {
		nickname = string(r[:MaxNicknameLength])
	}
	out := c.Clone()
	out.Owned[i].Nickname = nickname
	return out, out.Owned[i], nil
}

func Discover(c model.Collection, speciesID int) model.Collection {
	out := c.Clone()
	out.Discovered = withDiscovered(out.Discovered, speciesID)
	return out
}

// IsDiscovered does not rely on Discovered being sorted.
func IsDiscovered(c model.Collection, speciesID int) bool {
	return slices.Contains(c.Discovered, speciesID)
}

// DiscoveredSet returns Discovered as a lookup map.
func DiscoveredSet(c model.Collection) map[int]struct{} {
	set := make(map[int]struct{}, len(c.Discovered))
	for _, id := range c.Discovered {
		set[id] = struct{}{}
	}
	return set
}

// NormalizeDiscovered sorts ids and drops duplicates.
func NormalizeDiscovered(ids []int) []int {
	out := append([]int{}, ids...)
	sort.Ints(out)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

// Sorted returns owned instances favourites first, then by species id,
// then by catch time.
func Sorted(c model.Collection) []model.OwnedInstance {
	out := append([]model.OwnedInstance{}, c.Owned...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsFavorite != b.IsFavorite {
			return a.IsFavorite
		}
		if a.SpeciesID != b.SpeciesID {
			return a.SpeciesID < b.SpeciesID
		}
		return a.CaughtAt.Before(b.CaughtAt)
	})
	return out
}

// Progress reports discovered species out of the catalog size.
func Progress(c model.Collection, total int) (discovered int, ratio float64) {
	discovered = len(c.Discovered)
	if total <= 0 {
		return discovered, 0
	}
	return discovered, float64(discovered) / float64(total)
}

// withDiscovered adds id and returns the ids sorted and deduplicated, whatever
// order they arrived in.
func withDiscovered(ids []int, id int) []int {
	return NormalizeDiscovered(append(ids, id))
}
