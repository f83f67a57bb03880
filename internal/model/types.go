package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Species is one immutable catalog entry.
type Species struct {
	ID               int
	Name             string
	Types            []string
	Stage            int
	EvolutionID      int
	BranchEvolutions []int
	FamilyID         int
	Sprite           string
}

// CanEvolve reports whether the species has any next form.
func (s Species) CanEvolve() bool {
	return s.EvolutionID != 0 || len(s.BranchEvolutions) > 0
}

// IsBranching reports whether evolving requires a choice between forms.
func (s Species) IsBranching() bool {
	return len(s.BranchEvolutions) > 0
}

type OwnedInstance struct {
	InstanceID string
	SpeciesID  int
	Nickname   string
	IsFavorite bool
	CaughtAt   time.Time
}

type Ledger struct {
	Coins           decimal.Decimal
	TotalStudyHours decimal.Decimal
}

type Collection struct {
	Owned []OwnedInstance
	// Discovered is kept sorted and free of duplicates by the collection
	// package; it never shrinks.
	Discovered []int
}

type TradeRecord struct {
	Timestamp time.Time
}

type Settings struct {
	DailyTarget float64
	ThemeColor  string
	Scale       float64
	DarkMode    bool
}

// State is the whole persisted application state for one user.
type State struct {
	Ledger        Ledger
	Collection    Collection
	Trades        []TradeRecord
	Settings      Settings
	LastLoginDate string
}

const (
	DefaultDailyTarget = 3
	DefaultThemeColor  = "#3b82f6"
	DefaultScale       = 1
	DateLayout         = "2006-01-02"
)

func DefaultSettings() Settings {
	return Settings{
		DailyTarget: DefaultDailyTarget,
		ThemeColor:  DefaultThemeColor,
		Scale:       DefaultScale,
	}
}

// NewState returns the state of a first launch at now.
func NewState(now time.Time) State {
	return State{
		Ledger: Ledger{
			Coins:           decimal.Zero,
			TotalStudyHours: decimal.Zero,
		},
		Collection: Collection{
			Owned:      []OwnedInstance{},
			Discovered: []int{},
		},
		Trades:        []TradeRecord{},
		Settings:      DefaultSettings(),
		LastLoginDate: now.Format(DateLayout),
	}
}

// Clone returns a deep copy so callers can derive a new state without
// aliasing the slices of the old one.
func (s State) Clone() State {
	out := s
	out.Collection = s.Collection.Clone()
	out.Trades = append([]TradeRecord{}, s.Trades...)
	return out
}

func (c Collection) Clone() Collection {
	return Collection{
		Owned:      append([]OwnedInstance{}, c.Owned...),
		Discovered: append([]int{}, c.Discovered...),
	}
}

// Timestamp normalizes t to the precision and zone persisted in snapshots.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
