// Package snapshot converts application state to and from the portable JSON
// backup document.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"studydex/internal/collection"
	"studydex/internal/model"
)

const caughtAtLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrMalformedImport = errors.New("malformed import")

// MalformedError names the field that failed to parse or validate.
type MalformedError struct {
	Field  string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedImport, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedImport, e.Field, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedImport
}

type ownedDoc struct {
	InstanceID string `json:"instanceId"`
	SpeciesID  int    `json:"speciesId"`
	Nickname   string `json:"nickname,omitempty"`
	IsFavorite bool   `json:"isFavorite"`
	CaughtAt   string `json:"caughtAt"`
}

type tradeDoc struct {
	Timestamp int64 `json:"timestamp"`
}

type settingsDoc struct {
	DailyTarget float64 `json:"dailyTarget"`
	ThemeColor  string  `json:"themeColor"`
	Scale       float64 `json:"scale"`
	DarkMode    bool    `json:"darkMode"`
}

// settingsIn tells absent settings keys apart from zero values.
type settingsIn struct {
	DailyTarget *float64 `json:"dailyTarget"`
	ThemeColor  *string  `json:"themeColor"`
	Scale       *float64 `json:"scale"`
	DarkMode    *bool    `json:"darkMode"`
}

type document struct {
	Coins           json.Number `json:"coins"`
	TotalStudyHours json.Number `json:"totalStudyHours"`
	OwnedPokemon    []ownedDoc  `json:"ownedPokemon"`
	SeenPokemon     []int       `json:"seenPokemon"`
	Trades          []tradeDoc  `json:"trades"`
	Settings        settingsDoc `json:"settings"`
	LastLoginDate   string      `json:"lastLoginDate"`
}

// incoming mirrors document with pointers so absent fields can be told apart
// from zero values.
type incoming struct {
	Coins           *json.Number `json:"coins"`
	TotalStudyHours *json.Number `json:"totalStudyHours"`
	OwnedPokemon    *[]ownedDoc  `json:"ownedPokemon"`
	SeenPokemon     *[]int       `json:"seenPokemon"`
	Trades          *[]tradeDoc  `json:"trades"`
	Settings        *settingsIn  `json:"settings"`
	LastLoginDate   *string      `json:"lastLoginDate"`
}

// Export renders the whole state as an indented backup document.
func Export(s model.State) ([]byte, error) {
	doc := document{
		Coins:           json.Number(s.Ledger.Coins.String()),
		TotalStudyHours: json.Number(s.Ledger.TotalStudyHours.String()),
		OwnedPokemon:    make([]ownedDoc, 0, len(s.Collection.Owned)),
		SeenPokemon:     collection.NormalizeDiscovered(s.Collection.Discovered),
		Trades:          make([]tradeDoc, 0, len(s.Trades)),
		Settings: settingsDoc{
			DailyTarget: s.Settings.DailyTarget,
			ThemeColor:  s.Settings.ThemeColor,
			Scale:       s.Settings.Scale,
			DarkMode:    s.Settings.DarkMode,
		},
		LastLoginDate: s.LastLoginDate,
	}
	for _, inst := range s.Collection.Owned {
		doc.OwnedPokemon = append(doc.OwnedPokemon, ownedDoc{
			InstanceID: inst.InstanceID,
			SpeciesID:  inst.SpeciesID,
			Nickname:   inst.Nickname,
			IsFavorite: inst.IsFavorite,
			CaughtAt:   inst.CaughtAt.UTC().Format(caughtAtLayout),
		})
	}
	for _, t := range s.Trades {
		doc.Trades = append(doc.Trades, tradeDoc{Timestamp: t.Timestamp.UnixMilli()})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Import parses and validates a backup document. It either returns a complete
// state or a *MalformedError; there is no partial result.
func Import(data []byte) (model.State, error) {
	var in incoming
	if err := json.Unmarshal(data, &in); err != nil {
		return model.State{}, &MalformedError{Reason: err.Error()}
	}
	if err := in.requireFields(); err != nil {
		return model.State{}, err
	}

	coins, err := amount("coins", *in.Coins)
	if err != nil {
		return model.State{}, err
	}
	hours, err := amount("totalStudyHours", *in.TotalStudyHours)
	if err != nil {
		return model.State{}, err
	}

	owned := make([]model.OwnedInstance, 0, len(*in.OwnedPokemon))
	seenIDs := make(map[string]struct{}, len(*in.OwnedPokemon))
	discovered := make([]int, 0, len(*in.SeenPokemon)+len(*in.OwnedPokemon))
	for i, o := range *in.OwnedPokemon {
		field := fmt.Sprintf("ownedPokemon[%d]", i)
		if o.InstanceID == "" {
			return model.State{}, &MalformedError{Field: field, Reason: "instanceId is empty"}
		}
		if _, dup := seenIDs[o.InstanceID]; dup {
			return model.State{}, &MalformedError{Field: field, Reason: fmt.Sprintf("duplicate instanceId %q", o.InstanceID)}
		}
		seenIDs[o.InstanceID] = struct{}{}
		if o.SpeciesID <= 0 {
			return model.State{}, &MalformedError{Field: field, Reason: fmt.Sprintf("speciesId must be positive, got %d", o.SpeciesID)}
		}
		caught, err := time.Parse(time.RFC3339, o.CaughtAt)
		if err != nil {
			return model.State{}, &MalformedError{Field: field + ".caughtAt", Reason: err.Error()}
		}
		owned = append(owned, model.OwnedInstance{
			InstanceID: o.InstanceID,
			SpeciesID:  o.SpeciesID,
			Nickname:   o.Nickname,
			IsFavorite: o.IsFavorite,
			CaughtAt:   model.Timestamp(caught),
		})
		discovered = append(discovered, o.SpeciesID)
	}

	for i, id := range *in.SeenPokemon {
		if id <= 0 {
			return model.State{}, &MalformedError{Field: fmt.Sprintf("seenPokemon[%d]", i), Reason: fmt.Sprintf("species id must be positive, got %d", id)}
		}
		discovered = append(discovered, id)
	}

	trades := make([]model.TradeRecord, 0, len(*in.Trades))
	for i, t := range *in.Trades {
		if t.Timestamp < 0 {
			return model.State{}, &MalformedError{Field: fmt.Sprintf("trades[%d]", i), Reason: "timestamp is negative"}
		}
		trades = append(trades, model.TradeRecord{Timestamp: time.UnixMilli(t.Timestamp).UTC()})
	}

	settings, err := in.Settings.settings()
	if err != nil {
		return model.State{}, err
	}

	if _, err := time.Parse(model.DateLayout, *in.LastLoginDate); err != nil {
		return model.State{}, &MalformedError{Field: "lastLoginDate", Reason: err.Error()}
	}

	return model.State{
		Ledger: model.Ledger{Coins: coins, TotalStudyHours: hours},
		Collection: model.Collection{
			Owned:      owned,
			Discovered: collection.NormalizeDiscovered(discovered),
		},
		Trades:        trades,
		Settings:      settings,
		LastLoginDate: *in.LastLoginDate,
	}, nil
}

func (in incoming) requireFields() error {
	missing := func(name string) error {
		return &MalformedError{Field: name, Reason: "missing"}
	}
	switch {
	case in.Coins == nil:
		return missing("coins")
	case in.TotalStudyHours == nil:
		return missing("totalStudyHours")
	case in.OwnedPokemon == nil:
		return missing("ownedPokemon")
	case in.SeenPokemon == nil:
		return missing("seenPokemon")
	case in.Trades == nil:
		return missing("trades")
	case in.Settings == nil:
		return missing("settings")
	case in.LastLoginDate == nil:
		return missing("lastLoginDate")
	}
	return nil
}

func (in *settingsIn) settings() (model.Settings, error) {
	missing := func(name string) error {
		return &MalformedError{Field: "settings." + name, Reason: "missing"}
	}
	switch {
	case in.DailyTarget == nil:
		return model.Settings{}, missing("dailyTarget")
	case in.ThemeColor == nil:
		return model.Settings{}, missing("themeColor")
	case in.Scale == nil:
		return model.Settings{}, missing("scale")
	case in.DarkMode == nil:
		return model.Settings{}, missing("darkMode")
	}
	s := model.Settings{
		DailyTarget: *in.DailyTarget,
		ThemeColor:  *in.ThemeColor,
		Scale:       *in.Scale,
		DarkMode:    *in.DarkMode,
	}
	if err := s.Validate(); err != nil {
		return model.Settings{}, &MalformedError{Field: "settings", Reason: err.Error()}
	}
	return s, nil
}

func amount(field string, n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, &MalformedError{Field: field, Reason: err.Error()}
	}
	if d.IsNegative() {
		return decimal.Zero, &MalformedError{Field: field, Reason: "must not be negative"}
	}
	return d, nil
}
