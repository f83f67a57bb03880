package engine

import (
	"errors"
	"fmt"

	"studydex/internal/clock"
	"studydex/internal/collection"
	"studydex/internal/ledger"
	"studydex/internal/model"
	"studydex/internal/snapshot"
)

var (
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrInvalidHours      = ledger.ErrInvalidHours
	ErrNotFound          = collection.ErrNotFound
	ErrMalformedImport   = snapshot.ErrMalformedImport
	ErrCannotEvolve      = errors.New("species cannot evolve further")
	ErrRateLimited       = errors.New("trade limit reached for this half of the day")
	ErrDataIntegrity     = errors.New("species missing from catalog")
	ErrInvalidTarget     = errors.New("species is not an evolution option")
	ErrInvalidSettings   = model.ErrInvalidSettings
)

// FundsError is the rejection for a balance below an operation's cost.
type FundsError = ledger.FundsError

// RateLimitError names the half-day bucket that already has a trade.
type RateLimitError struct {
	Bucket clock.Bucket
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: already traded %s", ErrRateLimited, e.Bucket.Describe())
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// IntegrityError reports state that references a species the catalog lacks.
type IntegrityError struct {
	SpeciesID  int
	InstanceID string
}

func (e *IntegrityError) Error() string {
	if e.InstanceID == "" {
		return fmt.Sprintf("%s: species %d", ErrDataIntegrity, e.SpeciesID)
	}
	return fmt.Sprintf("%s: species %d (instance %s)", ErrDataIntegrity, e.SpeciesID, e.InstanceID)
}

func (e *IntegrityError) Unwrap() error {
	return ErrDataIntegrity
}

// Message maps a rejection to the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		funds     *FundsError
		limited   *RateLimitError
		integrity *IntegrityError
	)
	switch {
	case errors.As(err, &funds):
		return fmt.Sprintf("Not enough study coins: this costs %s and you have %s.", funds.Cost.String(), funds.Balance.String())
	case errors.Is(err, ErrInvalidHours):
		return "Enter a positive number of hours."
	case errors.Is(err, ErrNotFound):
		return "That creature is no longer in your collection."
	case errors.Is(err, ErrCannotEvolve):
		return "This creature cannot evolve further."
	case errors.As(err, &limited):
		return fmt.Sprintf("You have already traded %s.", limited.Bucket.Describe())
	case errors.As(err, &integrity):
		return fmt.Sprintf("Species #%d is not in the catalog; the saved data may come from another version.", integrity.SpeciesID)
	case errors.Is(err, ErrInvalidTarget):
		return "That form is not one of this creature's evolutions."
	case errors.Is(err, ErrInvalidSettings):
		return fmt.Sprintf("Settings not saved: %v.", err)
	case errors.Is(err, ErrMalformedImport):
		return "Invalid file format; nothing was imported."
	default:
		return err.Error()
	}
}
