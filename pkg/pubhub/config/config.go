// Package config loads server configuration from the environment and
// assembles the service graph from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pubhub/pubhub/pkg/pubhub"
	countermemory "github.com/pubhub/pubhub/pkg/pubhub/counter/memory"
	counterredis "github.com/pubhub/pubhub/pkg/pubhub/counter/redis"
	"github.com/pubhub/pubhub/pkg/pubhub/repo/memory"
	repopg "github.com/pubhub/pubhub/pkg/pubhub/repo/postgres"
	"github.com/pubhub/pubhub/pkg/pubhub/token"
)

// ServerConfig represents server configuration for the pubhub service.
//
// DATABASE_URL selects the repository: empty or "memory" keeps data in
// process, a postgresql:// URL uses Postgres. REDIS_ADDR does the same
// for counters and the token blacklist.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	RedisAddr     string `env:"REDIS_ADDR" env-default:""`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	JWTSecret  string        `env:"JWT_SECRET" env-default:""`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"720h"`
}

// LoadServerConfig reads the configuration from the environment and
// validates it.
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DatabaseURL != "" && c.DatabaseURL != "memory" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// Runtime holds the assembled services and the resources behind them.
type Runtime struct {
	Services *pubhub.Services
	Users    *pubhub.UserService
	Issuer   *token.Issuer

	pool   *pgxpool.Pool
	client *redis.Client
}

// Close releases the database pool and the Redis client.
func (rt *Runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.client != nil {
		rt.client.Close()
	}
}

// Build assembles the repository, counter store, token issuer and
// services from the configuration.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}

	var repo pubhub.Repository
	if c.usesPostgres() {
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		rt.pool = pool
		repo = repopg.NewWithPool(pool)
	} else {
		repo = memory.New()
	}

	var counters pubhub.CounterStore
	var blacklist token.Blacklist
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		rt.client = client
		counters = counterredis.New(client)
		blacklist = token.NewRedisBlacklist(client)
	} else {
		counters = countermemory.New()
		blacklist = token.NewMemoryBlacklist()
	}

	services, err := pubhub.New(
		pubhub.WithRepository(repo),
		pubhub.WithCounterStore(counters),
		pubhub.WithLogger(logger),
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build services: %w", err)
	}

	issuer := token.NewIssuer([]byte(c.JWTSecret), blacklist, c.AccessTTL, c.RefreshTTL, logger)

	rt.Services = services
	rt.Users = pubhub.NewUserService(repo, issuer, logger)
	rt.Issuer = issuer
	return rt, nil
}

func (c *ServerConfig) usesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}
