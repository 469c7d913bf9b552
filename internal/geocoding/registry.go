package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// PreferenceKey is the preference under which the selected provider is stored.
const PreferenceKey = "geocoder"

// Registry errors.
var (
	ErrUnknownProvider     = errors.New("unknown geocoding provider")
	ErrProviderUnavailable = errors.New("geocoding provider has no credentials configured")
)

// Preferences persists small string values between runs.
type Preferences interface {
	Get(key string) string
	Set(key, value string) error
}

// ProviderInfo describes one provider the registry can build.
type ProviderInfo struct {
	Type      ProviderType
	Name      string
	Available func(Credentials) bool
}

// Chooser picks one provider when several are available.
type Chooser func(available []ProviderInfo) (ProviderType, error)

var providerTable = []ProviderInfo{
	{
		Type: ProviderTypeHere,
		Name: "HERE",
		Available: func(c Credentials) bool {
			return c.HereAppID != "" && c.HereAppCode != ""
		},
	},
	{
		Type: ProviderTypeYandex,
		Name: "Yandex",
		Available: func(c Credentials) bool {
			return c.YandexAPIKey != ""
		},
	},
	{
		Type: ProviderTypeGoogle,
		Name: "Google",
		Available: func(c Credentials) bool {
			return c.GoogleAPIKey != ""
		},
	},
}

// Lookup returns the table entry for t.
func Lookup(t ProviderType) (ProviderInfo, bool) {
	idx := slices.IndexFunc(providerTable, func(info ProviderInfo) bool { return info.Type == t })
	if idx < 0 {
		return ProviderInfo{}, false
	}
	return providerTable[idx], true
}

// Registry tracks which provider is selected and persists the choice.
type Registry struct {
	prefs   Preferences
	creds   Credentials
	log     *slog.Logger
	current ProviderType
}

// NewRegistry restores the persisted selection. Unknown stored values read as none.
func NewRegistry(prefs Preferences, creds Credentials, log *slog.Logger) *Registry {
	reg := &Registry{prefs: prefs, creds: creds, log: log, current: ProviderTypeNone}
	if _, ok := Lookup(ProviderType(prefs.Get(PreferenceKey))); ok {
		reg.current = ProviderType(prefs.Get(PreferenceKey))
	}
	return reg
}

// ListAvailable returns the providers whose credentials are configured, in table order.
func (r *Registry) ListAvailable() []ProviderInfo {
	var available []ProviderInfo
	for _, info := range providerTable {
		if info.Available(r.creds) {
			available = append(available, info)
		}
	}
	return available
}

// Current returns the selected provider, ProviderTypeNone when nothing is selected.
func (r *Registry) Current() ProviderType {
	return r.current
}

// Select makes t the current provider and persists it.
func (r *Registry) Select(t ProviderType) error {
	if t != ProviderTypeNone {
		info, ok := Lookup(t)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProvider, t)
		}
		if !info.Available(r.creds) {
			return fmt.Errorf("%w: %s", ErrProviderUnavailable, info.Name)
		}
	}

	if err := r.prefs.Set(PreferenceKey, string(t)); err != nil {
		return fmt.Errorf("failed to persist geocoder selection: %w", err)
	}
	r.current = t

	return nil
}

// Init settles the selection at start-up. A stored provider that is still available is
// kept. Otherwise no available provider selects none, a single one is taken as is and
// several are offered to choose. A nil chooser takes the first available provider.
func (r *Registry) Init(choose Chooser) (ProviderType, error) {
	available := r.ListAvailable()

	if r.current != ProviderTypeNone && slices.ContainsFunc(available, func(info ProviderInfo) bool {
		return info.Type == r.current
	}) {
		return r.current, nil
	}

	switch {
	case len(available) == 0:
		r.log.Warn("Geocoders aren't available, location features are disabled", "error", ErrNoProviders)
		return ProviderTypeNone, r.Select(ProviderTypeNone)
	case len(available) == 1 || choose == nil:
		r.log.Info("Selected geocoder", "provider", available[0].Name)
		return available[0].Type, r.Select(available[0].Type)
	}

	chosen, err := choose(available)
	if err != nil {
		return ProviderTypeNone, fmt.Errorf("failed to choose geocoder: %w", err)
	}
	if err = r.Select(chosen); err != nil {
		return ProviderTypeNone, err
	}
	r.log.Info("Selected geocoder", "provider", chosen)

	return chosen, nil
}

// Provider builds the currently selected provider. Type and credentials in config are
// taken from the registry.
func (r *Registry) Provider(config ProviderConfig) (Provider, error) {
	config.Type = r.current
	config.Credentials = r.creds
	return NewProvider(config)
}
