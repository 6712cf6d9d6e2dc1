package orchestrator

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/kbukum/voxkit/transcription"
	"github.com/kbukum/voxkit/validation"
)

// Config configures an Orchestrator.
type Config struct {
	// ServiceName tags spans and metrics.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// TranscribeTimeout bounds each model call. Zero selects the default;
	// a negative value disables the bound.
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout" mapstructure:"transcribe_timeout"`
	// FallbackOnTimeout permits the fallback model after a timeout.
	FallbackOnTimeout bool `yaml:"fallback_on_timeout" mapstructure:"fallback_on_timeout"`
	// BatchConcurrency caps the requests ProcessBatch runs at once.
	BatchConcurrency int `yaml:"batch_concurrency" mapstructure:"batch_concurrency" validate:"gte=1"`

	// Primary and Fallback are the models Process uses.
	Primary  transcription.ModelConfig  `yaml:"primary" mapstructure:"primary"`
	Fallback *transcription.ModelConfig `yaml:"fallback" mapstructure:"fallback"`
	// Catalog holds extra named models a request may select. Together with
	// Primary and Fallback they are the only models remote callers reach.
	Catalog map[string]transcription.ModelConfig `yaml:"models" mapstructure:"models"`
}

// DefaultConfig returns a config that falls back on timeouts and uses the
// mock model.
func DefaultConfig() Config {
	cfg := Config{FallbackOnTimeout: true}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "voxkit"
	}
	if c.TranscribeTimeout == 0 {
		c.TranscribeTimeout = 5 * time.Minute
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 4
	}
	if c.Primary.IsZero() {
		c.Primary = transcription.ModelConfig{Kind: transcription.KindMock, Locator: "default"}
	}
	if c.Fallback != nil && c.Fallback.IsZero() {
		c.Fallback = nil
	}
}

// Validate checks the config and both model configs.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.Primary.Validate(); err != nil {
		return fmt.Errorf("primary model: %w", err)
	}
	if c.Fallback != nil {
		if err := c.Fallback.Validate(); err != nil {
			return fmt.Errorf("fallback model: %w", err)
		}
	}
	for name, m := range c.Catalog {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
	}
	return nil
}

// Named returns the catalog model configured under name.
func (c Config) Named(name string) (transcription.ModelConfig, bool) {
	m, ok := c.Catalog[name]
	return m, ok
}

// Configured returns the configured model with the given kind and locator,
// searching Primary, Fallback, then the catalog in name order.
func (c Config) Configured(kind, locator string) (transcription.ModelConfig, bool) {
	id := transcription.ModelConfig{Kind: kind, Locator: locator}.Identity()
	if c.Primary.Identity() == id {
		return c.Primary, true
	}
	if c.Fallback != nil && c.Fallback.Identity() == id {
		return *c.Fallback, true
	}
	for _, name := range slices.Sorted(maps.Keys(c.Catalog)) {
		if m := c.Catalog[name]; m.Identity() == id {
			return m, true
		}
	}
	return transcription.ModelConfig{}, false
}

// Models returns the configured model pair.
func (c Config) Models() Models {
	return Models{Primary: c.Primary, Fallback: c.Fallback}
}

// Policy returns the fallback policy the config describes.
func (c Config) Policy() transcription.FallbackPolicy {
	return transcription.FallbackPolicy{OnTimeout: c.FallbackOnTimeout}
}
