// Package redisstore provides a Redis hash-backed key/value store for site settings.
package redisstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

// Config represents Redis store configuration.
type Config struct {
	Addr           string `yaml:"addr" mapstructure:"addr" default:"localhost:6379" validate:"required"`
	Password       string `yaml:"password" mapstructure:"password"`
	DB             int    `yaml:"db" mapstructure:"db" validate:"gte=0"`
	Key            string `yaml:"key" mapstructure:"key" default:"site_settings" validate:"required"`
	DialTimeoutSec int    `yaml:"dial_timeout_sec" mapstructure:"dial_timeout_sec" default:"5" validate:"gte=1"`
}

// Store keeps site settings as fields of one Redis hash.
type Store struct {
	client *redis.Client
	key    string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	timeout := time.Duration(cfg.DialTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	key := cfg.Key
	if key == "" {
		key = "site_settings"
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis: %s", cfg.Addr)
	}

	zlog.Info().Msgf("redisstore: connected: addr=%s db=%d key=%s", cfg.Addr, cfg.DB, key)
	return &Store{client: client, key: key}, nil
}

// All returns every stored setting.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings hash")
	}
	return values, nil
}

// Get returns a single setting. ok is false if the field does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get setting: %s", key)
	}
	return value, true, nil
}

// Set writes a setting.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.key, key, value).Err(); err != nil {
		return errors.Wrapf(err, "failed to set setting: %s", key)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
