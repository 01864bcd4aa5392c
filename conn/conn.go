package conn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"cachebench/config"
)

// Client is the cache capability the workload needs: a GET that reports
// presence, a SET with expiry, and a health check. A miss is not an
// error.
type Client interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

type redisClient struct {
	rdb redis.UniversalClient
}

var _ Client = (*redisClient)(nil)

// Connect builds a client for the configured backend: a ClusterClient
// for the *_cluster cache types, a single-node client otherwise. Valkey
// speaks RESP, so the same driver serves both families. The driver's own
// retries are disabled; retrying belongs to the executor so it happens
// exactly once in the stack.
func Connect(ctx context.Context, cfg *config.Config) (Client, error) {
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.QueryTimeoutDuration()
	var rdb redis.UniversalClient
	if cfg.Clustered() {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        []string{cfg.Addr()},
			Username:     cfg.CacheUsername,
			Password:     cfg.CachePassword,
			MaxRetries:   -1,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			PoolSize:     cfg.ConnectionsPool,
			TLSConfig:    tlsConfig,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Addr(),
			Username:     cfg.CacheUsername,
			Password:     cfg.CachePassword,
			MaxRetries:   -1,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			PoolSize:     cfg.ConnectionsPool,
			TLSConfig:    tlsConfig,
		})
	}

	if cfg.OtelTracingEnabled {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("instrument client tracing: %w", err)
		}
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to %s at %s: %w", cfg.CacheType, cfg.Addr(), err)
	}

	return &redisClient{rdb: rdb}, nil
}

func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	if !cfg.SSL {
		return nil, nil
	}

	tlsConfig := &tls.Config{}
	if cfg.SSLCertReqs == "none" {
		tlsConfig.InsecureSkipVerify = true
	}
	if cfg.SSLCACerts != "" {
		pem, err := os.ReadFile(cfg.SSLCACerts)
		if err != nil {
			return nil, fmt.Errorf("%w: read CA certificates: %v", config.ErrConfiguration, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no usable CA certificates in %s", config.ErrConfiguration, cfg.SSLCACerts)
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

func (c *redisClient) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *redisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *redisClient) Close() error {
	return c.rdb.Close()
}
