package bootstrap

import (
	"time"

	"github.com/kbukum/jobflow/logger"
)

const defaultShutdownTimeout = 15 * time.Second

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
}

func resolveOptions(opts []Option) appOptions {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger replaces the logger built from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown. The default is 15s.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}
