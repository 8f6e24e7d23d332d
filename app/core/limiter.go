package core

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"
)

type LimitConfig struct {
	Limit int
	Every time.Duration
}

type LimitOption func(l *LimitConfig)

// WithLimit 代表每个周期允许的数量
func WithLimit(limit int) LimitOption {
	return func(l *LimitConfig) {
		l.Limit = limit
	}
}

func WithRange(r time.Duration) LimitOption {
	return func(l *LimitConfig) {
		l.Every = r
	}
}

type Limiter interface {
	Allow() bool
}

type limiters struct {
	registry cmap.ConcurrentMap[string, *rate.Limiter]
}

func newLimiters() limiters {
	return limiters{registry: cmap.New[*rate.Limiter]()}
}

// UseLimiter 按 key 复用限流器，同一个 key 首次创建时的配置生效
func (l limiters) UseLimiter(key string, opts ...LimitOption) Limiter {
	cfg := &LimitConfig{
		Limit: 60,
		Every: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	if cfg.Every <= 0 {
		cfg.Every = time.Minute
	}

	return l.registry.Upsert(key, nil, func(exist bool, valueInMap, _ *rate.Limiter) *rate.Limiter {
		if exist {
			return valueInMap
		}
		return rate.NewLimiter(rate.Every(cfg.Every/time.Duration(cfg.Limit)), cfg.Limit*2)
	})
}
