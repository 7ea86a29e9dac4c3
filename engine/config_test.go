package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultSendTimeout, cfg.SendTimeout())
	assert.Equal(t, DefaultRetryLimit, cfg.RetryLimit())
	assert.Equal(t, DefaultAckDelay, cfg.AckDelay())
	assert.Equal(t, DefaultBonusDisableDelay, cfg.BonusDisableDelay())
	assert.NotNil(t, cfg.Logger())
}

func TestNewConfig_OptionsOverrideDefaults(t *testing.T) {
	cfg := NewConfig(
		WithSendTimeout(5*time.Second),
		WithRetryLimit(1),
		WithAckDelay(50*time.Millisecond),
		WithBonusDisableDelay(0),
	)

	assert.Equal(t, 5*time.Second, cfg.SendTimeout())
	assert.Equal(t, 1, cfg.RetryLimit())
	assert.Equal(t, 50*time.Millisecond, cfg.AckDelay())
	assert.Equal(t, time.Duration(0), cfg.BonusDisableDelay())
}

func TestWithRetryLimit_ClampsToRange(t *testing.T) {
	assert.Equal(t, MinRetryLimit, NewConfig(WithRetryLimit(-3)).RetryLimit())
	assert.Equal(t, MaxRetryLimit, NewConfig(WithRetryLimit(1000)).RetryLimit())
}
