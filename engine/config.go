package engine

import (
	"time"

	"github.com/paytermlink/ecrterm/logger"
)

const (
	DefaultSendTimeout       = 3 * time.Second
	DefaultRetryLimit        = 3
	DefaultAckDelay          = 100 * time.Millisecond
	DefaultBonusDisableDelay = 500 * time.Millisecond

	MinRetryLimit = 1
	MaxRetryLimit = 10
)

// Config configures an Engine's timing and retry behavior.
type Config struct {
	sendTimeout       time.Duration
	retryLimit        int
	ackDelay          time.Duration
	bonusDisableDelay time.Duration
	logger            logger.Logger
}

// NewConfig builds a Config from opts, applying defaults for anything left
// unset.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		sendTimeout:       DefaultSendTimeout,
		retryLimit:        DefaultRetryLimit,
		ackDelay:          DefaultAckDelay,
		bonusDisableDelay: DefaultBonusDisableDelay,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		opt.apply(cfg)
	}

	return cfg
}

func (c *Config) SendTimeout() time.Duration       { return c.sendTimeout }
func (c *Config) RetryLimit() int                  { return c.retryLimit }
func (c *Config) AckDelay() time.Duration          { return c.ackDelay }
func (c *Config) BonusDisableDelay() time.Duration { return c.bonusDisableDelay }
func (c *Config) Logger() logger.Logger            { return c.logger }

// Option configures a Config. See the With* constructors.
type Option interface {
	apply(*Config)
}

type optFunc func(*Config)

func (f optFunc) apply(c *Config) { f(c) }

// WithSendTimeout sets the per-attempt send timeout.
func WithSendTimeout(d time.Duration) Option {
	return optFunc(func(c *Config) {
		if d > 0 {
			c.sendTimeout = d
		}
	})
}

// WithRetryLimit sets the maximum number of send attempts, clamped to
// [MinRetryLimit, MaxRetryLimit].
func WithRetryLimit(n int) Option {
	return optFunc(func(c *Config) {
		if n < MinRetryLimit {
			n = MinRetryLimit
		}
		if n > MaxRetryLimit {
			n = MaxRetryLimit
		}
		c.retryLimit = n
	})
}

// WithAckDelay sets the pacing delay before an ACK is written back for a
// received part.
func WithAckDelay(d time.Duration) Option {
	return optFunc(func(c *Config) {
		if d >= 0 {
			c.ackDelay = d
		}
	})
}

// WithBonusDisableDelay sets the delay before disabling bonus-card mode
// after a bonus-card-only abort.
func WithBonusDisableDelay(d time.Duration) Option {
	return optFunc(func(c *Config) {
		if d >= 0 {
			c.bonusDisableDelay = d
		}
	})
}

// WithLogger overrides the engine's logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *Config) {
		if l != nil {
			c.logger = l
		}
	})
}
