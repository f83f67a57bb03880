package engine

import "studydex/internal/model"

const (
	MinScale = model.MinScale
	MaxScale = model.MaxScale
)

// SettingsPatch changes only the fields that are set.
type SettingsPatch struct {
	DailyTarget *float64
	ThemeColor  *string
	Scale       *float64
	DarkMode    *bool
}

func (p SettingsPatch) Empty() bool {
	return p.DailyTarget == nil && p.ThemeColor == nil && p.Scale == nil && p.DarkMode == nil
}

func (p SettingsPatch) Apply(s model.Settings) model.Settings {
	if p.DailyTarget != nil {
		s.DailyTarget = *p.DailyTarget
	}
	if p.ThemeColor != nil {
		s.ThemeColor = *p.ThemeColor
	}
	if p.Scale != nil {
		s.Scale = *p.Scale
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	return s
}

func (e *Engine) UpdateSettings(s model.State, patch SettingsPatch) (model.State, error) {
	next := patch.Apply(s.Settings)
	if err := ValidateSettings(next); err != nil {
		return s, err
	}
	out := s.Clone()
	out.Settings = next
	return out, nil
}

func ValidateSettings(s model.Settings) error {
	return s.Validate()
}
