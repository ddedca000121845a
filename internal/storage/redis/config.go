package redis

import (
	"time"

	"github.com/mcoot/aiventure/internal/config"
)

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Record names the credential record; lets several clients share one server
	Record string

	// CredentialTTL expires the record; zero keeps it until logout
	CredentialTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:           "redis://localhost:6379",
		PoolSize:      2,
		MinIdleConns:  0,
		Record:        config.RecordKey,
		CredentialTTL: 0,
	}
}
