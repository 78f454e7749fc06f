// Package config loads and validates the trader's YAML settings.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/marlinquant/marlin/internal/market"
	"github.com/marlinquant/marlin/internal/trailing"
	"github.com/marlinquant/marlin/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration decodes YAML duration strings like "1s" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "duration must be a string", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid duration %q", raw)
	}

	*d = Duration(parsed)

	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SymbolSettings holds the per-instrument trading parameters.
type SymbolSettings struct {
	// Granularity is the candle interval, e.g. "1m" or "5m".
	Granularity string `yaml:"granularity" validate:"required"`
	// RiskPct is the fraction of the available balance risked per order.
	RiskPct  float64         `yaml:"risk_pct" validate:"gt=0,lte=1"`
	Trailing trailing.Config `yaml:"trailing"`
}

// Settings is the full trader configuration.
type Settings struct {
	Symbols map[string]SymbolSettings `yaml:"symbols" validate:"required,min=1,dive"`
	// PollTimeout bounds each dispatcher queue wait; zero keeps the default.
	PollTimeout Duration `yaml:"poll_timeout"`
	// PositionPollInterval is how often open positions are refreshed; zero
	// keeps the default.
	PositionPollInterval Duration `yaml:"position_poll_interval"`
	UseTestnet           bool     `yaml:"use_testnet"`
}

// Load reads and validates the settings file.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "could not read settings file %s", path)
	}

	return Parse(raw)
}

// Parse decodes and validates YAML settings.
func Parse(raw []byte) (Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "could not parse settings", err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// Validate checks the struct constraints and the granularity strings.
func (s Settings) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid settings", err)
	}

	if s.PollTimeout < 0 || s.PositionPollInterval < 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "poll intervals must not be negative")
	}

	for symbol, symbolSettings := range s.Symbols {
		if _, err := market.ParseGranularity(symbolSettings.Granularity); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid granularity for %s", symbol)
		}
	}

	return nil
}

// GranularityDuration returns the parsed candle interval for one symbol's
// settings. Call only after Validate.
func (s SymbolSettings) GranularityDuration() (time.Duration, error) {
	return market.ParseGranularity(s.Granularity)
}
