package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/storage"
)

// Storage is a Redis-backed credential store
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.Record == "" {
		cfg.Record = DefaultConfig().Record
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.CredentialStore = (*Storage)(nil)

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, credentialKey(s.cfg.Record)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCredentialNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, credentialKey(s.cfg.Record), data, s.cfg.CredentialTTL).Err()
}

func (s *Storage) Delete(ctx context.Context) error {
	return s.client.Del(ctx, credentialKey(s.cfg.Record)).Err()
}
