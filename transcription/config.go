package transcription

import (
	"maps"

	"github.com/kbukum/voxkit/validation"
)

// Backend kinds shipped with voxkit.
const (
	KindWhisper = "whisper"
	KindMock    = "mock"
)

// Keys added to the factory config map next to the model parameters.
const (
	ParamKind    = "kind"
	ParamLocator = "locator"
)

// ModelConfig describes how to build a model instance. It is treated as a
// value: the registry never mutates it and copies Parameters before handing
// them to a factory.
type ModelConfig struct {
	// Kind selects the registered factory.
	Kind string `yaml:"kind" mapstructure:"kind" json:"kind" validate:"required"`
	// Locator points at the model weights or service, in a form only the
	// backend interprets.
	Locator    string         `yaml:"locator" mapstructure:"locator" json:"locator" validate:"required"`
	Parameters map[string]any `yaml:"parameters" mapstructure:"parameters" json:"parameters,omitempty"`
	// FallbackEnabled permits replacing a failed instance of this config
	// with the fallback model.
	FallbackEnabled bool `yaml:"fallback_enabled" mapstructure:"fallback_enabled" json:"fallback_enabled"`
}

// Identity is the registry cache key: kind and locator.
func (c ModelConfig) Identity() string {
	return c.Kind + ":" + c.Locator
}

// IsZero reports whether no model is configured.
func (c ModelConfig) IsZero() bool {
	return c.Kind == "" && c.Locator == ""
}

// Validate checks the required fields.
func (c ModelConfig) Validate() error {
	return validation.Struct(c)
}

// factoryConfig returns a fresh map with the parameters plus kind and locator.
func (c ModelConfig) factoryConfig() map[string]any {
	m := make(map[string]any, len(c.Parameters)+2)
	maps.Copy(m, c.Parameters)
	m[ParamKind] = c.Kind
	m[ParamLocator] = c.Locator
	return m
}
