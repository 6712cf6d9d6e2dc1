package bootstrap

import (
	"time"

	"github.com/kbukum/voxkit/logger"
)

// Option customizes NewApp.
type Option func(*options)

type options struct {
	log   *logger.Logger
	grace time.Duration
}

func newOptions(opts []Option) options {
	o := options{grace: defaultGracefulTimeout}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// WithLogger replaces the logger NewApp would build from the config's
// Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithGracefulTimeout bounds the time stop hooks and components get during
// shutdown. Non-positive values keep the default.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.grace = d
		}
	}
}
