package audio

import (
	"time"

	"github.com/kbukum/voxkit/validation"
)

// Config configures the resolver and its external codec binaries.
type Config struct {
	FFmpegPath               string        `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path" validate:"required"`
	FFprobePath              string        `yaml:"ffprobe_path" mapstructure:"ffprobe_path" validate:"required"`
	TempDir                  string        `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxConcurrentConversions int           `yaml:"max_concurrent_conversions" mapstructure:"max_concurrent_conversions" validate:"min=1"`
	ConversionTimeout        time.Duration `yaml:"conversion_timeout" mapstructure:"conversion_timeout" validate:"min=0"`
	// SampleRate and Channels shape PCM output (wav, flac). Other targets keep the source layout.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=8000,max=192000"`
	Channels   int `yaml:"channels" mapstructure:"channels" validate:"min=1,max=8"`
}

// ApplyDefaults fills unset fields. An empty TempDir uses the OS default.
func (c *Config) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.MaxConcurrentConversions == 0 {
		c.MaxConcurrentConversions = 4
	}
	if c.ConversionTimeout == 0 {
		c.ConversionTimeout = 2 * time.Minute
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Struct(c)
}
