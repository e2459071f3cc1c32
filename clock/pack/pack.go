// Package pack loads and validates clock packages: themed bundles pairing
// a visual style with a set of named audio assets. Validation is strict
// and happens entirely at load time so playback never discovers a missing
// or undecodable asset.
package pack

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/accessiclock/accessiclock/clock/audio"
)

// Validation errors. ConfigError wraps one of these with the offending
// package and field.
var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidValue = errors.New("invalid value")
	ErrAssetMissing = errors.New("audio asset missing")
)

// ConfigError identifies the exact field that failed validation so the
// external layer can display it.
type ConfigError struct {
	Package string
	Field   string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("package %q: field %q: %v", e.Package, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func newConfigError(pkg, field string, err error) *ConfigError {
	return &ConfigError{Package: pkg, Field: field, Err: err}
}

// ClockType is the display style a package targets.
type ClockType string

const (
	ClockTypeDigital ClockType = "digital"
	ClockTypeAnalog  ClockType = "analog"
)

func (t ClockType) valid() bool {
	return t == ClockTypeDigital || t == ClockTypeAnalog
}

// Role names a sound slot in a package.
type Role string

const (
	RoleTick         Role = "tick"
	RoleHourChime    Role = "hour_chime"
	RoleHalfChime    Role = "half_chime"
	RoleQuarterChime Role = "quarter_chime"
	RoleCustomChime  Role = "custom_chime"
)

// chimeRoles maps schedule entries to the role they require.
var chimeRoles = map[string]Role{
	"hourly":       RoleHourChime,
	"half_hour":    RoleHalfChime,
	"quarter_hour": RoleQuarterChime,
	"custom":       RoleCustomChime,
}

// VisualConfig carries display styling. The core validates it but never
// renders it; it is passed through to the external layer.
type VisualConfig struct {
	BackgroundColor string       `mapstructure:"background_color"`
	TextColor       string       `mapstructure:"text_color"`
	FontFamily      string       `mapstructure:"font_family"`
	FontSize        int          `mapstructure:"font_size"`
	Digital         DigitalStyle `mapstructure:"digital"`
	Analog          AnalogStyle  `mapstructure:"analog"`
}

// DigitalStyle configures digital clock rendering.
type DigitalStyle struct {
	TimeFormat  string `mapstructure:"time_format"` // "12" or "24"
	ShowSeconds bool   `mapstructure:"show_seconds"`
	ShowDate    bool   `mapstructure:"show_date"`
}

// AnalogStyle configures analog clock rendering.
type AnalogStyle struct {
	FaceColor       string `mapstructure:"face_color"`
	HourHandColor   string `mapstructure:"hour_hand_color"`
	MinuteHandColor string `mapstructure:"minute_hand_color"`
	SecondHandColor string `mapstructure:"second_hand_color"`
	ShowNumbers     bool   `mapstructure:"show_numbers"`
	ShowTicks       bool   `mapstructure:"show_ticks"`
}

// AudioConfig maps sound roles to file names relative to the package
// directory.
type AudioConfig struct {
	Tick         string `mapstructure:"tick"`
	HourChime    string `mapstructure:"hour_chime"`
	HalfChime    string `mapstructure:"half_chime"`
	QuarterChime string `mapstructure:"quarter_chime"`
	CustomChime  string `mapstructure:"custom_chime"`
}

func (a AudioConfig) file(role Role) string {
	switch role {
	case RoleTick:
		return a.Tick
	case RoleHourChime:
		return a.HourChime
	case RoleHalfChime:
		return a.HalfChime
	case RoleQuarterChime:
		return a.QuarterChime
	case RoleCustomChime:
		return a.CustomChime
	}
	return ""
}

// ClockPackage is a fully loaded, validated package. Assets holds the
// decoded audio for every role the package provides.
type ClockPackage struct {
	ID          string       `mapstructure:"id"`
	Name        string       `mapstructure:"name"`
	Description string       `mapstructure:"description"`
	Author      string       `mapstructure:"author"`
	Version     string       `mapstructure:"version"`
	ClockType   ClockType    `mapstructure:"clock_type"`
	Schedule    []string     `mapstructure:"chimes"` // declared chime schedule
	Visual      VisualConfig `mapstructure:"visual"`
	Audio       AudioConfig  `mapstructure:"audio"`

	Dir    string
	Assets map[Role]*audio.Asset
}

// Asset returns the decoded asset for a role, or nil if the package does
// not provide one.
func (p *ClockPackage) Asset(role Role) *audio.Asset {
	if p == nil {
		return nil
	}
	return p.Assets[role]
}

// HasRole reports whether the package declares a sound file for the role.
func (p *ClockPackage) HasRole(role Role) bool {
	return p != nil && p.Audio.file(role) != ""
}

// Validate checks required fields, the clock type, color formats, the
// declared schedule, and loads every referenced asset. A package that
// declares a chime schedule entry without the matching asset is rejected
// here, never at playback time.
func (p *ClockPackage) Validate() error {
	required := map[string]string{
		"id":      p.ID,
		"name":    p.Name,
		"version": p.Version,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return newConfigError(p.ID, field, ErrMissingField)
		}
	}

	if !p.ClockType.valid() {
		return newConfigError(p.ID, "clock_type",
			fmt.Errorf("%w: %q is not one of digital, analog", ErrInvalidValue, p.ClockType))
	}

	colors := map[string]string{
		"visual.background_color":  p.Visual.BackgroundColor,
		"visual.text_color":        p.Visual.TextColor,
		"visual.analog.face_color": p.Visual.Analog.FaceColor,
	}
	for field, c := range colors {
		if c != "" && !validHexColor(c) {
			return newConfigError(p.ID, field,
				fmt.Errorf("%w: %q is not a #RRGGBB color", ErrInvalidValue, c))
		}
	}

	// Every schedule entry must resolve to a declared asset.
	for _, entry := range p.Schedule {
		role, ok := chimeRoles[entry]
		if !ok {
			return newConfigError(p.ID, "chimes",
				fmt.Errorf("%w: unknown schedule entry %q", ErrInvalidValue, entry))
		}
		if p.Audio.file(role) == "" {
			return newConfigError(p.ID, "audio."+string(role),
				fmt.Errorf("%w: schedule declares %q but no %s asset is configured", ErrAssetMissing, entry, role))
		}
	}

	// Load and decode every declared asset now. Missing or unreadable
	// files fail validation, not playback.
	assets := make(map[Role]*audio.Asset)
	for _, role := range []Role{RoleTick, RoleHourChime, RoleHalfChime, RoleQuarterChime, RoleCustomChime} {
		file := p.Audio.file(role)
		if file == "" {
			continue
		}
		asset, err := audio.LoadAsset(filepath.Join(p.Dir, file))
		if err != nil {
			return newConfigError(p.ID, "audio."+string(role),
				fmt.Errorf("%w: %v", ErrAssetMissing, err))
		}
		assets[role] = asset
	}
	p.Assets = assets

	return nil
}

func validHexColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
