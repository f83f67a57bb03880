package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

const (
	MinScale = 0.5
	MaxScale = 1.5
)

var ErrInvalidSettings = errors.New("invalid settings")

var themeColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate checks the daily target is positive and finite, the scale lies in
// [MinScale, MaxScale] and the theme colour is #rrggbb.
func (s Settings) Validate() error {
	if math.IsNaN(s.DailyTarget) || math.IsInf(s.DailyTarget, 0) || s.DailyTarget <= 0 {
		return fmt.Errorf("%w: daily target must be positive, got %v", ErrInvalidSettings, s.DailyTarget)
	}
	if math.IsNaN(s.Scale) || s.Scale < MinScale || s.Scale > MaxScale {
		return fmt.Errorf("%w: scale must be within [%v, %v], got %v", ErrInvalidSettings, MinScale, MaxScale, s.Scale)
	}
	if !themeColorPattern.MatchString(s.ThemeColor) {
		return fmt.Errorf("%w: theme color must look like #rrggbb, got %q", ErrInvalidSettings, s.ThemeColor)
	}
	return nil
}
