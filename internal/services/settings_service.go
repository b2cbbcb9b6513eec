package services

import (
	"context"
	"fmt"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

// SettingsPatch is a partial settings update.
type SettingsPatch struct {
	DefaultCurrency   *core.Currency      `json:"defaultCurrency"`
	HorizonDays       *int                `json:"horizonDays"`
	FirstDayOfWeek    *int                `json:"firstDayOfWeek"`
	Language          *core.Language      `json:"language"`
	HomeDashboardMode *core.DashboardMode `json:"homeDashboardMode"`
}

// SettingsService reads and updates the user's settings.
type SettingsService struct {
	store    storage.SettingsStore
	onChange []func()
}

func NewSettingsService(store storage.SettingsStore, onChange ...func()) *SettingsService {
	return &SettingsService{store: store, onChange: onChange}
}

func (s *SettingsService) Get(ctx context.Context) (core.Settings, error) {
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// Update validates the merged settings before storing them. The stored copy
// is normalised, so a horizon below the minimum is raised.
func (s *SettingsService) Update(ctx context.Context, p SettingsPatch) (core.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return core.Settings{}, err
	}
	if p.DefaultCurrency != nil {
		current.DefaultCurrency = *p.DefaultCurrency
	}
	if p.HorizonDays != nil {
		current.HorizonDays = *p.HorizonDays
	}
	if p.FirstDayOfWeek != nil {
		current.FirstDayOfWeek = *p.FirstDayOfWeek
	}
	if p.Language != nil {
		current.Language = *p.Language
	}
	if p.HomeDashboardMode != nil {
		current.HomeDashboardMode = *p.HomeDashboardMode
	}
	if err := current.Validate(); err != nil {
		return core.Settings{}, err
	}
	next := current.Normalize()
	if err := s.store.SaveSettings(ctx, next); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	for _, fn := range s.onChange {
		fn()
	}
	return next, nil
}
