package engine

import (
	"fmt"
	"slices"

	"studydex/internal/collection"
	"studydex/internal/ledger"
	"studydex/internal/model"
)

// EvolveResult is either a committed evolution (Pending false, State holds the
// new state) or a pending branch choice (Pending true, State is the input
// state and Options lists the forms to pick from).
type EvolveResult struct {
	State      model.State
	InstanceID string
	Pending    bool
	Options    []model.Species
	From       model.Species
	To         model.Species
}

// Evolve moves an instance to its next form. Branching species only report
// their options; ConfirmEvolution commits the chosen one.
func (e *Engine) Evolve(s model.State, instanceID string) (EvolveResult, error) {
	inst, from, err := e.ownedSpecies(s, instanceID)
	if err != nil {
		return EvolveResult{}, err
	}
	if !ledger.CanAfford(s.Ledger, EvolveCost) {
		return EvolveResult{}, &FundsError{Cost: EvolveCost, Balance: s.Ledger.Coins}
	}

	if from.IsBranching() {
		if options := e.resolve(from.BranchEvolutions); len(options) > 0 {
			return EvolveResult{
				State:      s,
				InstanceID: inst.InstanceID,
				Pending:    true,
				Options:    options,
				From:       from,
			}, nil
		}
	}
	if from.EvolutionID == 0 {
		return EvolveResult{}, fmt.Errorf("%s: %w", from.Name, ErrCannotEvolve)
	}
	to, ok := e.catalog.Get(from.EvolutionID)
	if !ok {
		return EvolveResult{}, &IntegrityError{SpeciesID: from.EvolutionID, InstanceID: inst.InstanceID}
	}
	return e.apply(s, inst, from, to)
}

// ConfirmEvolution commits an evolution into targetID, which must be the
// linear next form or one of the branch options of the instance's species.
func (e *Engine) ConfirmEvolution(s model.State, instanceID string, targetID int) (EvolveResult, error) {
	inst, from, err := e.ownedSpecies(s, instanceID)
	if err != nil {
		return EvolveResult{}, err
	}
	if !isOption(from, targetID) {
		return EvolveResult{}, fmt.Errorf("%s into #%d: %w", from.Name, targetID, ErrInvalidTarget)
	}
	to, ok := e.catalog.Get(targetID)
	if !ok {
		return EvolveResult{}, &IntegrityError{SpeciesID: targetID, InstanceID: inst.InstanceID}
	}
	return e.apply(s, inst, from, to)
}

// CanEvolve reports whether Evolve would either commit or offer a choice.
func (e *Engine) CanEvolve(s model.State, instanceID string) bool {
	_, from, err := e.ownedSpecies(s, instanceID)
	if err != nil || !ledger.CanAfford(s.Ledger, EvolveCost) {
		return false
	}
	if len(e.resolve(from.BranchEvolutions)) > 0 {
		return true
	}
	if from.EvolutionID == 0 {
		return false
	}
	_, ok := e.catalog.Get(from.EvolutionID)
	return ok
}

func (e *Engine) apply(s model.State, inst model.OwnedInstance, from, to model.Species) (EvolveResult, error) {
	l, err := ledger.Debit(s.Ledger, EvolveCost)
	if err != nil {
		return EvolveResult{}, err
	}
	c, err := collection.SetSpecies(s.Collection, inst.InstanceID, to.ID)
	if err != nil {
		return EvolveResult{}, err
	}
	out := s.Clone()
	out.Ledger = l
	out.Collection = c
	return EvolveResult{State: out, InstanceID: inst.InstanceID, From: from, To: to}, nil
}

func (e *Engine) ownedSpecies(s model.State, instanceID string) (model.OwnedInstance, model.Species, error) {
	inst, _, ok := collection.Find(s.Collection, instanceID)
	if !ok {
		return model.OwnedInstance{}, model.Species{}, fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}
	sp, ok := e.catalog.Get(inst.SpeciesID)
	if !ok {
		return model.OwnedInstance{}, model.Species{}, &IntegrityError{SpeciesID: inst.SpeciesID, InstanceID: inst.InstanceID}
	}
	return inst, sp, nil
}

// resolve drops ids the catalog does not know.
func (e *Engine) resolve(ids []int) []model.Species {
	var out []model.Species
	for _, id := range ids {
		if sp, ok := e.catalog.Get(id); ok {
			out = append(out, sp)
		}
	}
	return out
}

func isOption(from model.Species, targetID int) bool {
	if targetID <= 0 {
		return false
	}
	return targetID == from.EvolutionID || slices.Contains(from.BranchEvolutions, targetID)
}
