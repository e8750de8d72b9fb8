// Package config decodes and validates the external configuration object
// described in spec 6: bridge address and credentials, the REST and
// streaming variant knobs, and the brightness shaping parameters shared by
// both Sinks.
package config

import (
	"encoding/hex"
	"fmt"
)

const (
	defaultSwitchOffOnBlack = true
	defaultBrightnessFactor = 1.0
	defaultBrightnessMin    = 0.0
	defaultBrightnessMax    = 1.0
	defaultStreamFrequency  = 50

	// maxLightID is the largest id representable in a HueStream frame's
	// single-byte light id field (spec 4.G); ids beyond this still work
	// over REST but can never stream.
	maxLightID = 255

	// latchTimePerLight is the per-light constant (ms) the core derives
	// latchTime from: 100*N (spec 6).
	latchTimePerLight = 100
)

// Config is the decoded, defaulted, and validated configuration object.
// JSON tags mirror the external key names verbatim (spec 6); unknown
// incoming keys are ignored by the decoder that produces this struct.
type Config struct {
	Output    string `json:"output"`
	Username  string `json:"username"`
	ClientKey string `json:"clientkey"`
	GroupID   int    `json:"groupId"`
	LightIDs  []int  `json:"lightIds"`

	TransitionTime   int     `json:"transitiontime"`
	SwitchOffOnBlack bool    `json:"switchOffOnBlack"`
	BrightnessFactor float64 `json:"brightnessFactor"`
	BrightnessMin    float64 `json:"brightnessMin"`
	BrightnessMax    float64 `json:"brightnessMax"`

	StreamFrequency int `json:"streamFrequency"`
	LatchTime       int `json:"latchTime"`
}

// RawConfig is the wire shape callers decode JSON into before calling
// Decode. SwitchOffOnBlack is a pointer here, not a bool, because spec 6
// defaults it to true — indistinguishable from an explicit false once
// collapsed into a bool zero value.
type RawConfig struct {
	Output    string `json:"output"`
	Username  string `json:"username"`
	ClientKey string `json:"clientkey"`
	GroupID   int    `json:"groupId"`
	LightIDs  []int  `json:"lightIds"`

	TransitionTime   int     `json:"transitiontime"`
	SwitchOffOnBlack *bool   `json:"switchOffOnBlack"`
	BrightnessFactor float64 `json:"brightnessFactor"`
	BrightnessMin    float64 `json:"brightnessMin"`
	BrightnessMax    float64 `json:"brightnessMax"`

	StreamFrequency int `json:"streamFrequency"`
}

// MissingFieldError names a required key absent from the configuration.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("config: missing required field %q", e.Field)
}

// InvalidFieldError names a present but malformed key.
type InvalidFieldError struct {
	Field string
	Err   error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("config: invalid field %q: %v", e.Field, e.Err)
}

func (e *InvalidFieldError) Unwrap() error { return e.Err }

// Decode applies spec 6's defaults to a RawConfig decoded by the caller
// (e.g. from JSON) and derives latchTime, returning any warnings worth
// surfacing without failing validation (e.g. light ids that can never
// stream).
func Decode(raw RawConfig) (Config, []string) {
	cfg := Config{
		Output:           raw.Output,
		Username:         raw.Username,
		ClientKey:        raw.ClientKey,
		GroupID:          raw.GroupID,
		LightIDs:         raw.LightIDs,
		TransitionTime:   raw.TransitionTime,
		BrightnessFactor: raw.BrightnessFactor,
		BrightnessMin:    raw.BrightnessMin,
		BrightnessMax:    raw.BrightnessMax,
		StreamFrequency:  raw.StreamFrequency,
	}

	if cfg.BrightnessFactor == 0 {
		cfg.BrightnessFactor = defaultBrightnessFactor
	}
	if cfg.BrightnessMax == 0 {
		cfg.BrightnessMax = defaultBrightnessMax
	}
	if cfg.StreamFrequency == 0 {
		cfg.StreamFrequency = defaultStreamFrequency
	}
	if raw.SwitchOffOnBlack != nil {
		cfg.SwitchOffOnBlack = *raw.SwitchOffOnBlack
	} else {
		cfg.SwitchOffOnBlack = defaultSwitchOffOnBlack
	}
	cfg.LatchTime = latchTimePerLight * len(cfg.LightIDs)

	var warnings []string
	for _, id := range cfg.LightIDs {
		if id > maxLightID {
			warnings = append(warnings, fmt.Sprintf("LightIdOutOfRange: light id %d exceeds the streaming protocol's 8-bit id field; REST control still works, streaming does not", id))
		}
	}

	return cfg, warnings
}

// Validate checks the required fields and value ranges spec 6 and 7
// demand, returning the first problem found.
func (c Config) Validate() error {
	if c.Output == "" {
		return &MissingFieldError{Field: "output"}
	}
	if c.Username == "" {
		return &MissingFieldError{Field: "username"}
	}
	if c.ClientKey != "" {
		if _, err := hex.DecodeString(c.ClientKey); err != nil {
			return &InvalidFieldError{Field: "clientkey", Err: err}
		}
	}
	if c.GroupID < 0 {
		return &InvalidFieldError{Field: "groupId", Err: fmt.Errorf("must be >= 0")}
	}
	if c.GroupID != 0 && c.ClientKey == "" {
		return &MissingFieldError{Field: "clientkey"}
	}
	if c.BrightnessMin < 0 || c.BrightnessMax > 1 || c.BrightnessMin > c.BrightnessMax {
		return &InvalidFieldError{Field: "brightnessMin/brightnessMax", Err: fmt.Errorf("must satisfy 0 <= min <= max <= 1")}
	}
	if c.StreamFrequency < 0 || c.StreamFrequency > 50 {
		return &InvalidFieldError{Field: "streamFrequency", Err: fmt.Errorf("must be in 0..50")}
	}
	return nil
}

// StreamingEnabled reports whether the configuration names an
// entertainment group to stream to (spec 6: groupId 0 disables it).
func (c Config) StreamingEnabled() bool {
	return c.GroupID != 0 && c.ClientKey != ""
}
