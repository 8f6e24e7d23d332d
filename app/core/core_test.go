package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quka-ai/daybook/pkg/testutils"
)

func TestSetupFromENV(t *testing.T) {
	testutils.RequireEnv(t, "DAYBOOK_API_POSTGRESQL_DSN")
	core := MustSetupCore(LoadBaseConfigFromENV())
	assert.NotNil(t, core.Store())
	assert.NotNil(t, core.Assistant())
}

func TestUseLimiter(t *testing.T) {
	l := newLimiters()

	limiter := l.UseLimiter("reflect:u1", WithLimit(1), WithRange(time.Hour))
	// burst 为 limit 的两倍
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	// 同一个 key 复用同一个限流器，后续配置不生效
	again := l.UseLimiter("reflect:u1", WithLimit(100))
	assert.False(t, again.Allow())

	other := l.UseLimiter("reflect:u2", WithLimit(1), WithRange(time.Hour))
	assert.True(t, other.Allow())
}

func TestUseLimiterDefaults(t *testing.T) {
	l := newLimiters()
	limiter := l.UseLimiter("chat:u1", WithLimit(0), WithRange(0))
	assert.True(t, limiter.Allow())
}
