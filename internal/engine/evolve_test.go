package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studydex/internal/catalog"
	"studydex/internal/model"
)

func TestEvolveChecksFundsBeforeTerminalSpecies(t *testing.T) {
	e, _ := newTestEngine(t, catalog.MustDefault())

	// Venusaur has no next form, but the balance is checked first.
	poor := withInstance(stateWithCoins(1), "v", 3)
	_, err := e.Evolve(poor, "v")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NotErrorIs(t, err, ErrCannotEvolve)

	funded := withInstance(stateWithCoins(2), "v", 3)
	_, err = e.Evolve(funded, "v")
	require.ErrorIs(t, err, ErrCannotEvolve)
	assert.Contains(t, err.Error(), "Venusaur")
}

func TestEvolveUnknownInstance(t *testing.T) {
	e, _ := newTestEngine(t, catalog.MustDefault())
	_, err := e.Evolve(stateWithCoins(10), "nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.ConfirmEvolution(stateWithCoins(10), "nope", 2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvolveBranchingIsPendingUntilConfirmed(t *testing.T) {
	e, _ := newTestEngine(t, catalog.MustDefault())
	s := withInstance(stateWithCoins(5), "eevee", 133)
	s.Collection.Owned[0].Nickname = "Fluffy"
	s.Collection.Owned[0].IsFavorite = true
	caughtAt := s.Collection.Owned[0].CaughtAt

	res, err := e.Evolve(s, "eevee")
	require.NoError(t, err)
	require.True(t, res.Pending)
	assert.Equal(t, "eevee", res.InstanceID)
	assert.Equal(t, 133, res.From.ID)
	ids := make([]int, 0, len(res.Options))
	for _, o := range res.Options {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int{134, 135, 136, 196, 197, 470, 471}, ids)
	assertCoins(t, 5, res.State)
	assert.Equal(t, 133, res.State.Collection.Owned[0].SpeciesID)

	done, err := e.ConfirmEvolution(s, "eevee", 136)
	require.NoError(t, err)
	assert.False(t, done.Pending)
	assert.Equal(t, "Flareon", done.To.Name)
	assertCoins(t, 3, done.State)
	inst := done.State.Collection.Owned[0]
	assert.Equal(t, model.OwnedInstance{
		InstanceID: "eevee",
		SpeciesID:  136,
		Nickname:   "Fluffy",
		IsFavorite: true,
		CaughtAt:   caughtAt,
	}, inst)
	assert.Equal(t, []int{133, 136}, done.State.Collection.Discovered)
}

func TestConfirmEvolutionValidatesTargetAndFunds(t *testing.T) {
	e, _ := newTestEngine(t, catalog.MustDefault())
	s := withInstance(stateWithCoins(5), "eevee", 133)

	_, err := e.ConfirmEvolution(s, "eevee", 25)
	require.ErrorIs(t, err, ErrInvalidTarget)
	_, err = e.ConfirmEvolution(s, "eevee", 0)
	require.ErrorIs(t, err, ErrInvalidTarget)

	broke := withInstance(stateWithCoins(1), "eevee", 133)
	_, err = e.ConfirmEvolution(broke, "eevee", 134)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// The linear next form is also a valid confirmation target.
	linear := withInstance(stateWithCoins(2), "b", 1)
	res, err := e.ConfirmEvolution(linear, "b", 2)
	require.NoError(t, err)
	assertCoins(t, 0, res.State)
}

func TestEvolveReportsCatalogGaps(t *testing.T) {
	cat := mapCatalog{
		1: {ID: 1, Name: "root", EvolutionID: 2},
		3: {ID: 3, Name: "fork", BranchEvolutions: []int{40, 41}},
		5: {ID: 5, Name: "partial", BranchEvolutions: []int{6, 60}},
		6: {ID: 6, Name: "leaf"},
	}
	e, _ := newTestEngine(t, cat)

	_, err := e.Evolve(withInstance(stateWithCoins(5), "x", 99), "x")
	require.ErrorIs(t, err, ErrDataIntegrity)
	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, 99, integrity.SpeciesID)

	_, err = e.Evolve(withInstance(stateWithCoins(5), "x", 1), "x")
	require.ErrorIs(t, err, ErrDataIntegrity)

	// No branch option resolves and there is no linear form to fall back to.
	_, err = e.Evolve(withInstance(stateWithCoins(5), "x", 3), "x")
	require.ErrorIs(t, err, ErrCannotEvolve)

	res, err := e.Evolve(withInstance(stateWithCoins(5), "x", 5), "x")
	require.NoError(t, err)
	require.True(t, res.Pending)
	require.Len(t, res.Options, 1)
	assert.Equal(t, 6, res.Options[0].ID)

	_, err = e.ConfirmEvolution(withInstance(stateWithCoins(5), "x", 5), "x", 60)
	require.ErrorIs(t, err, ErrDataIntegrity)
}

func TestCanEvolve(t *testing.T) {
	e, _ := newTestEngine(t, catalog.MustDefault())

	assert.True(t, e.CanEvolve(withInstance(stateWithCoins(2), "b", 1), "b"))
	assert.True(t, e.CanEvolve(withInstance(stateWithCoins(2), "e", 133), "e"))
	assert.False(t, e.CanEvolve(withInstance(stateWithCoins(1), "b", 1), "b"))
	assert.False(t, e.CanEvolve(withInstance(stateWithCoins(9), "v", 3), "v"))
	assert.False(t, e.CanEvolve(stateWithCoins(9), "missing"))
}
