package core

import "errors"

const (
	LanguageEN Language = "en"
	LanguageKO Language = "ko"
)

const (
	DashboardLandscape  DashboardMode = "LANDSCAPE"
	DashboardTimeWheel  DashboardMode = "TIME_WHEEL"
	DashboardMinimalKPI DashboardMode = "MINIMAL_KPI"
)

// MinHorizonDays is the shortest forward schedule window kept in settings.
const MinHorizonDays = 365

type (
	Language      string
	DashboardMode string

	// Settings holds the user's display preferences.
	Settings struct {
		DefaultCurrency   Currency      `json:"defaultCurrency"`
		HorizonDays       int           `json:"horizonDays"`
		FirstDayOfWeek    int           `json:"firstDayOfWeek"` // 0=Sunday, 1=Monday
		Language          Language      `json:"language"`
		HomeDashboardMode DashboardMode `json:"homeDashboardMode"`
	}
)

var ErrInvalidSettings = errors.New("invalid settings")

func DefaultSettings() Settings {
	return Settings{
		DefaultCurrency:   USD,
		HorizonDays:       MinHorizonDays,
		FirstDayOfWeek:    0,
		Language:          LanguageEN,
		HomeDashboardMode: DashboardMinimalKPI,
	}
}

// Normalize fills missing fields with defaults and raises the schedule
// horizon to MinHorizonDays.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if !s.DefaultCurrency.IsValid() {
		s.DefaultCurrency = def.DefaultCurrency
	}
	if s.HorizonDays < MinHorizonDays {
		s.HorizonDays = MinHorizonDays
	}
	if s.FirstDayOfWeek != 0 && s.FirstDayOfWeek != 1 {
		s.FirstDayOfWeek = def.FirstDayOfWeek
	}
	if s.Language != LanguageEN && s.Language != LanguageKO {
		s.Language = def.Language
	}
	switch s.HomeDashboardMode {
	case DashboardLandscape, DashboardTimeWheel, DashboardMinimalKPI:
	default:
		s.HomeDashboardMode = def.HomeDashboardMode
	}
	return s
}

func (s Settings) Validate() error {
	if !s.DefaultCurrency.IsValid() {
		return errors.Join(ErrInvalidSettings, ErrInvalidCurrency)
	}
	if s.HorizonDays < 1 {
		return errors.Join(ErrInvalidSettings, errors.New("horizon days must be positive"))
	}
	if s.FirstDayOfWeek != 0 && s.FirstDayOfWeek != 1 {
		return errors.Join(ErrInvalidSettings, errors.New("first day of week must be 0 or 1"))
	}
	if s.Language != LanguageEN && s.Language != LanguageKO {
		return errors.Join(ErrInvalidSettings, errors.New("unsupported language"))
	}
	return nil
}

// DisplayCurrency derives the currency totals are rendered in from the language.
func (s Settings) DisplayCurrency() Currency {
	if s.Language == LanguageKO {
		return KRW
	}
	return USD
}
