// Package engine implements the collection rules: catching, evolving and
// trading owned instances, plus the study and settings actions around them.
//
// An Engine carries collaborators only (catalog, clock, random source, id
// generator). Every operation takes the current state by value and returns
// either a new state or a rejection error; the input state is never modified.
package engine

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"studydex/internal/clock"
	"studydex/internal/collection"
	"studydex/internal/ledger"
	"studydex/internal/model"
)

var (
	CatchCost  = decimal.NewFromInt(3)
	EvolveCost = decimal.NewFromInt(2)
	TradeValue = decimal.NewFromInt(1)
)

const (
	UndiscoveredWeight = 10
	DiscoveredWeight   = 1
)

// Catalog is the read-only species table the rules consult.
type Catalog interface {
	Get(id int) (model.Species, bool)
	All() []model.Species
}

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

type Config struct {
	Catalog Catalog
	Clock   clock.Clock
	Random  RandomSource
	NewID   func() string
}

type Engine struct {
	catalog Catalog
	clock   clock.Clock
	random  RandomSource
	newID   func() string
}

func New(cfg Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("engine: catalog is required")
	}
	if len(cfg.Catalog.All()) == 0 {
		return nil, errors.New("engine: catalog has no species")
	}
	e := &Engine{
		catalog: cfg.Catalog,
		clock:   cfg.Clock,
		random:  cfg.Random,
		newID:   cfg.NewID,
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.random == nil {
		e.random = NewRandom(time.Now().UnixNano())
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

// NewRandom returns a seeded PCG source; equal seeds give equal draws.
func NewRandom(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func (e *Engine) Catalog() Catalog {
	return e.catalog
}

func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// LogStudy credits one coin per studied hour.
func (e *Engine) LogStudy(s model.State, hours float64) (model.State, error) {
	l, err := ledger.LogStudy(s.Ledger, hours)
	if err != nil {
		return s, err
	}
	out := s.Clone()
	out.Ledger = l
	return out, nil
}

func (e *Engine) ToggleFavorite(s model.State, instanceID string) (model.State, model.OwnedInstance, error) {
	c, inst, err := collection.ToggleFavorite(s.Collection, instanceID)
	if err != nil {
		return s, model.OwnedInstance{}, err
	}
	out := s.Clone()
	out.Collection = c
	return out, inst, nil
}

func (e *Engine) SetNickname(s model.State, instanceID, nickname string) (model.State, model.OwnedInstance, error) {
	c, inst, err := collection.SetNickname(s.Collection, instanceID, nickname)
	if err != nil {
		return s, model.OwnedInstance{}, err
	}
	out := s.Clone()
	out.Collection = c
	return out, inst, nil
}

// TouchLogin stamps today's local date as the last login.
func (e *Engine) TouchLogin(s model.State) model.State {
	today := clock.Date(e.clock.Now())
	if s.LastLoginDate == today {
		return s
	}
	out := s.Clone()
	out.LastLoginDate = today
	return out
}
