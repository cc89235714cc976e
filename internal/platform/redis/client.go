// Package redis opens the go-redis client backing the reservation claims.
package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"

	"marketparticipant/internal/platform/config"
)

// Open connects to cfg.URL and verifies the connection. It returns nil when
// no URL is configured. When reg is non-nil the connection pool is exported
// as gauges.
func Open(ctx context.Context, cfg config.RedisConfig, reg prometheus.Registerer) (*goredis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if reg != nil {
		registerPoolStats(reg, client)
	}
	return client, nil
}

// Ping adapts the client to a health check.
func Ping(client *goredis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func registerPoolStats(reg prometheus.Registerer, client *goredis.Client) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "marketparticipant_redis_pool_total_conns",
		Help: "Connections currently held by the reservation Redis pool",
	}, func() float64 { return float64(client.PoolStats().TotalConns) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "marketparticipant_redis_pool_idle_conns",
		Help: "Idle connections in the reservation Redis pool",
	}, func() float64 { return float64(client.PoolStats().IdleConns) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "marketparticipant_redis_pool_timeouts_total",
		Help: "Times a caller waited too long for a pooled Redis connection",
	}, func() float64 { return float64(client.PoolStats().Timeouts) })
}
