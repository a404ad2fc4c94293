package widget

import (
	"time"

	"github.com/Rrens/chatwidget/internal/config"
)

const (
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultMaxRetries     = 2
	DefaultRetryBackoff   = time.Second
	DefaultContextWindow  = 6
	DefaultMinReplyLength = 10
	DefaultPersistTimeout = 10 * time.Second
)

// Options tunes timing and limits of a session
type Options struct {
	IdleTimeout    time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	ContextWindow  int
	MinReplyLength int
	PersistTimeout time.Duration
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		IdleTimeout:    DefaultIdleTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryBackoff:   DefaultRetryBackoff,
		ContextWindow:  DefaultContextWindow,
		MinReplyLength: DefaultMinReplyLength,
		PersistTimeout: DefaultPersistTimeout,
	}
}

// OptionsFromConfig maps the widget config section, keeping defaults for unset values
func OptionsFromConfig(cfg config.WidgetConfig) Options {
	return Options{
		IdleTimeout:    cfg.IdleTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		ContextWindow:  cfg.ContextWindow,
		MinReplyLength: cfg.MinReplyLength,
		PersistTimeout: cfg.PersistTimeout,
	}.withDefaults()
}

// withDefaults fills zero durations and sizes. MaxRetries of zero is kept (no retries).
func (o Options) withDefaults() Options {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	if o.ContextWindow <= 0 {
		o.ContextWindow = DefaultContextWindow
	}
	if o.MinReplyLength < 0 {
		o.MinReplyLength = 0
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = DefaultPersistTimeout
	}
	return o
}
