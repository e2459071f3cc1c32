package clock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/accessiclock/accessiclock/clock/audio"
)

// PrefsVersion is the preferences schema version written by this build.
const PrefsVersion = 1

// ErrInvalidPreference reports a preference value outside its allowed
// range.
var ErrInvalidPreference = errors.New("invalid preference")

// maxCustomMinutes bounds the custom chime interval to keep the period
// within a single day's announcer phrasing.
const maxCustomMinutes = 180

// SpeechPrefs configures the announcement voice and the hosted provider
// credentials. An empty APIKey means local-only synthesis.
type SpeechPrefs struct {
	Voice   string `mapstructure:"voice" yaml:"voice"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
}

// NotificationPrefs selects which engine events the external layer should
// surface as platform notifications.
type NotificationPrefs struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	OnChime bool `mapstructure:"on_chime" yaml:"on_chime"`
	OnError bool `mapstructure:"on_error" yaml:"on_error"`
}

// Preferences is the user-facing configuration surface. All fields have
// working defaults so a missing or corrupt file never blocks startup.
type Preferences struct {
	Version         int                       `mapstructure:"version" yaml:"version"`
	SelectedPackage string                    `mapstructure:"selected_package" yaml:"selected_package"`
	ChimeEnabled    bool                      `mapstructure:"chime_enabled" yaml:"chime_enabled"`
	SpeechEnabled   bool                      `mapstructure:"speech_enabled" yaml:"speech_enabled"`
	Intervals       Intervals                 `mapstructure:"intervals" yaml:"intervals"`
	MasterVolume    float64                   `mapstructure:"master_volume" yaml:"master_volume"`
	Volumes         map[audio.Channel]float64 `mapstructure:"volumes" yaml:"volumes"`
	Speech          SpeechPrefs               `mapstructure:"speech" yaml:"speech"`
	Notifications   NotificationPrefs         `mapstructure:"notifications" yaml:"notifications"`
}

// DefaultPreferences returns the out-of-box configuration: hourly chimes
// with speech, everything at full volume.
func DefaultPreferences() Preferences {
	return Preferences{
		Version:         PrefsVersion,
		SelectedPackage: "default",
		ChimeEnabled:    true,
		SpeechEnabled:   true,
		Intervals:       Intervals{Hourly: true},
		MasterVolume:    1.0,
		Volumes: map[audio.Channel]float64{
			audio.ChannelTick:   1.0,
			audio.ChannelChime:  1.0,
			audio.ChannelSpeech: 1.0,
		},
		Speech:        SpeechPrefs{Voice: "default"},
		Notifications: NotificationPrefs{Enabled: true, OnChime: true, OnError: true},
	}
}

// Clamp forces every volume into [0.0, 1.0] and fills in missing channel
// entries. Out-of-range input is corrected silently rather than rejected.
func (p *Preferences) Clamp() {
	p.MasterVolume = clamp01(p.MasterVolume)
	if p.Volumes == nil {
		p.Volumes = make(map[audio.Channel]float64, len(audio.Channels()))
	}
	for _, ch := range audio.Channels() {
		if v, ok := p.Volumes[ch]; ok {
			p.Volumes[ch] = clamp01(v)
		} else {
			p.Volumes[ch] = 1.0
		}
	}
}

// Validate rejects values that cannot be corrected by clamping.
func (p *Preferences) Validate() error {
	if m := p.Intervals.CustomMinutes; m < 0 || m > maxCustomMinutes {
		return fmt.Errorf("%w: custom interval %d minutes, want 1 to %d (or 0 to disable)",
			ErrInvalidPreference, m, maxCustomMinutes)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LoadPreferences reads the preferences file at path. A missing file
// yields the defaults. A corrupt file yields the defaults too, with a
// warning, so the clock always starts.
func LoadPreferences(path string) Preferences {
	defaults := DefaultPreferences()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaults
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		log.Warn("could not parse preferences, using defaults", "file", path, "err", err)
		return defaults
	}

	prefs := defaults
	if err := v.Unmarshal(&prefs); err != nil {
		log.Warn("could not decode preferences, using defaults", "file", path, "err", err)
		return defaults
	}

	if prefs.Version > PrefsVersion {
		log.Warn("preferences written by a newer version", "file", path, "version", prefs.Version)
	}

	prefs.Clamp()
	if err := prefs.Validate(); err != nil {
		log.Warn("invalid preferences, using defaults", "file", path, "err", err)
		return defaults
	}
	return prefs
}

// SavePreferences writes the preferences to path as YAML, creating parent
// directories as needed. The write is atomic.
func SavePreferences(path string, p Preferences) error {
	p.Clamp()
	if err := p.Validate(); err != nil {
		return err
	}
	p.Version = PrefsVersion

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create preferences directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(p.marshal()), 0o600); err != nil {
		return fmt.Errorf("unable to write preferences: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return fmt.Errorf("unable to finalize preferences: %w", err)
	}
	return nil
}

func (p Preferences) marshal() string {
	return fmt.Sprintf(`version: %d
selected_package: %q
chime_enabled: %t
speech_enabled: %t
intervals:
  hourly: %t
  half_hour: %t
  quarter_hour: %t
  custom_minutes: %d
master_volume: %.2f
volumes:
  tick: %.2f
  chime: %.2f
  speech: %.2f
speech:
  voice: %q
  base_url: %q
  api_key: %q
notifications:
  enabled: %t
  on_chime: %t
  on_error: %t
`,
		p.Version,
		p.SelectedPackage,
		p.ChimeEnabled,
		p.SpeechEnabled,
		p.Intervals.Hourly,
		p.Intervals.HalfHour,
		p.Intervals.QuarterHour,
		p.Intervals.CustomMinutes,
		p.MasterVolume,
		p.Volumes[audio.ChannelTick],
		p.Volumes[audio.ChannelChime],
		p.Volumes[audio.ChannelSpeech],
		p.Speech.Voice,
		p.Speech.BaseURL,
		p.Speech.APIKey,
		p.Notifications.Enabled,
		p.Notifications.OnChime,
		p.Notifications.OnError,
	)
}
