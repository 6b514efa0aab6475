package configs

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxFramePerSecond is the highest frame rate whose interval is still a positive time.Duration.
const MaxFramePerSecond = float64(time.Second)

// Settings holds the game parameters read by the lobby core.
// Key names match the historical settings.json layout; since YAML is a superset of JSON,
// the same loader accepts both formats.
type Settings struct {
	// MaxUsernameLength is the maximum number of characters in a username.
	MaxUsernameLength int `yaml:"maxUsernameLength" json:"maxUsernameLength"`

	// MaxPlayerPerRoom is the room capacity.
	MaxPlayerPerRoom int `yaml:"maxPlayerPerRoom" json:"maxPlayerPerRoom"`

	// StartCountdown is the delay in whole seconds between c_start and s_start.
	StartCountdown int `yaml:"startCountdown" json:"startCountdown"`

	// FramePerSecond is how many membership snapshots each room receives per second.
	FramePerSecond float64 `yaml:"framePerSecond" json:"framePerSecond"`
}

// DefaultSettings returns the settings used when no settings file is configured.
func DefaultSettings() Settings {
	return Settings{
		MaxUsernameLength: 16,
		MaxPlayerPerRoom:  4,
		StartCountdown:    5,
		FramePerSecond:    10,
	}
}

// LoadSettings reads the settings file at path on top of DefaultSettings.
// An empty path returns the defaults. Keys missing from the file keep their default value.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		return settings, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", path, err)
	}

	return settings, nil
}

// Validate checks the documented lower bounds of every setting.
func (s Settings) Validate() error {
	var errs []error

	if s.MaxUsernameLength < 1 {
		errs = append(errs, fmt.Errorf("maxUsernameLength must be >= 1, got %d", s.MaxUsernameLength))
	}
	if s.MaxPlayerPerRoom < 1 {
		errs = append(errs, fmt.Errorf("maxPlayerPerRoom must be >= 1, got %d", s.MaxPlayerPerRoom))
	}
	if s.StartCountdown < 1 {
		errs = append(errs, fmt.Errorf("startCountdown must be >= 1, got %d", s.StartCountdown))
	}
	if math.IsNaN(s.FramePerSecond) || s.FramePerSecond <= 0 || s.FrameInterval() <= 0 {
		errs = append(errs, fmt.Errorf("framePerSecond must be > 0 and at most %g, got %g", MaxFramePerSecond, s.FramePerSecond))
	}

	return errors.Join(errs...)
}

// FrameInterval is the period of the frame broadcast, 1s / FramePerSecond.
func (s Settings) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.FramePerSecond)
}
