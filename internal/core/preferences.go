package core

// PreferencesMetadataKey is the identity-provider public metadata key that
// holds the preferences object.
const PreferencesMetadataKey = "ezfinPreferences"

type (
	Currency string
	Locale   string
	Theme    string
)

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	BRL Currency = "BRL"

	LocalePT Locale = "pt"
	LocaleEN Locale = "en"

	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var (
	Currencies = []Currency{EUR, USD, BRL}
	Locales    = []Locale{LocalePT, LocaleEN}
	Themes     = []Theme{ThemeLight, ThemeDark, ThemeSystem}
)

type UserPreferences struct {
	Currency Currency `json:"currency"`
	Locale   Locale   `json:"locale"`
	Theme    Theme    `json:"theme"`
}

// PreferencesInput is a partial update; nil fields keep their default.
type PreferencesInput struct {
	Currency *string `json:"currency,omitempty"`
	Locale   *string `json:"locale,omitempty"`
	Theme    *string `json:"theme,omitempty"`
}

func DefaultPreferences() UserPreferences {
	return UserPreferences{Currency: EUR, Locale: LocalePT, Theme: ThemeSystem}
}

// PreferencesFromMetadata extracts preferences from public metadata.
// Each field is validated independently; anything missing, mistyped or
// outside its enum falls back to the default for that field.
func PreferencesFromMetadata(metadata map[string]any) UserPreferences {
	prefs := DefaultPreferences()
	raw, ok := metadata[PreferencesMetadataKey].(map[string]any)
	if !ok {
		return prefs
	}
	if v, ok := raw["currency"].(string); ok && oneOf(Currency(v), Currencies) {
		prefs.Currency = Currency(v)
	}
	if v, ok := raw["locale"].(string); ok && oneOf(Locale(v), Locales) {
		prefs.Locale = Locale(v)
	}
	if v, ok := raw["theme"].(string); ok && oneOf(Theme(v), Themes) {
		prefs.Theme = Theme(v)
	}
	return prefs
}

// NormalizePreferences merges the input over the defaults and validates the
// result. Invalid values are replaced, never rejected.
func NormalizePreferences(in PreferencesInput) UserPreferences {
	raw := map[string]any{}
	if in.Currency != nil {
		raw["currency"] = *in.Currency
	}
	if in.Locale != nil {
		raw["locale"] = *in.Locale
	}
	if in.Theme != nil {
		raw["theme"] = *in.Theme
	}
	return PreferencesFromMetadata(map[string]any{PreferencesMetadataKey: raw})
}

// Metadata renders the preferences as the value stored under
// PreferencesMetadataKey.
func (p UserPreferences) Metadata() map[string]any {
	return map[string]any{
		"currency": string(p.Currency),
		"locale":   string(p.Locale),
		"theme":    string(p.Theme),
	}
}

// LanguageTag maps the locale to the tag used for date and number formatting.
func (l Locale) LanguageTag() string {
	if l == LocaleEN {
		return "en-US"
	}
	return "pt-PT"
}

func oneOf[T comparable](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
