package audio

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/kbukum/voxkit/process"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/resilience"
)

// Converter transcodes the audio at src into dst in the target format.
// Implementations must leave no partial output they own on failure; the
// resolver removes dst itself.
type Converter interface {
	Convert(ctx context.Context, src, dst string, target Format) error
}

// muxers maps formats to ffmpeg output muxers.
var muxers = map[Format]string{
	FormatWAV:  "wav",
	FormatFLAC: "flac",
	FormatMP3:  "mp3",
	FormatOGG:  "ogg",
	FormatM4A:  "ipod",
	FormatMP4:  "mp4",
}

// FFmpegConverter converts with the ffmpeg binary. Concurrent conversions
// are capped by a bulkhead and repeated codec crashes open a circuit
// breaker so later requests fail fast.
type FFmpegConverter struct {
	runner     *process.Runner
	sampleRate int
	channels   int
}

// NewFFmpegConverter creates a converter from cfg.
func NewFFmpegConverter(cfg Config) *FFmpegConverter {
	cfg.ApplyDefaults()
	cb := resilience.DefaultCircuitBreakerConfig("ffmpeg")
	cb.IsFailure = isCodecFailure
	return &FFmpegConverter{
		runner: process.NewRunner(
			process.RunnerConfig{Binary: cfg.FFmpegPath, GracePeriod: 2 * time.Second},
			provider.ResilienceConfig{
				CircuitBreaker: &cb,
				Bulkhead: &resilience.BulkheadConfig{
					Name:          "ffmpeg",
					MaxConcurrent: cfg.MaxConcurrentConversions,
					MaxWait:       cfg.ConversionTimeout,
				},
			},
		),
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}
}

// Convert runs ffmpeg once for src -> dst.
func (c *FFmpegConverter) Convert(ctx context.Context, src, dst string, target Format) error {
	_, err := c.runner.Run(ctx, c.args(src, dst, target)...)
	return err
}

// Health reports whether ffmpeg is installed and its circuit state.
func (c *FFmpegConverter) Health(ctx context.Context) provider.HealthStatus {
	return c.runner.Health(ctx)
}

func (c *FFmpegConverter) args(src, dst string, target Format) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", src, "-vn"}
	switch target {
	case FormatWAV:
		args = append(args, "-acodec", "pcm_s16le", "-ar", strconv.Itoa(c.sampleRate), "-ac", strconv.Itoa(c.channels))
	case FormatFLAC:
		args = append(args, "-ar", strconv.Itoa(c.sampleRate), "-ac", strconv.Itoa(c.channels))
	case FormatOGG:
		args = append(args, "-acodec", "libvorbis")
	case FormatM4A, FormatMP4:
		args = append(args, "-acodec", "aac")
	}
	return append(args, "-f", muxers[target], dst)
}

// isCodecFailure keeps caller cancellations from opening the breaker.
func isCodecFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}
