package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeFile   = "file"
	StorageTypeRedis  = "redis"
)

const (
	// DefaultServerURL targets a local deployment
	DefaultServerURL = "http://localhost:8000"
	// DefaultOpenTimeout bounds the wait for the websocket open signal
	DefaultOpenTimeout = 5 * time.Second
	// RecordKey names the durable credential record
	RecordKey = "aiventureUser"
	// GamePath is the real-time endpoint relative to the server base
	GamePath = "/api/game/ws"
)

// ErrInvalidServerURL is returned when the base address cannot be used
var ErrInvalidServerURL = errors.New("invalid server URL")

// Config holds client configuration
type Config struct {
	// ServerURL is the single base address; HTTP and websocket URLs derive from it
	ServerURL string
	// StorageType selects the credential backend ("memory", "file" or "redis")
	StorageType string
	// CredentialFile is the path used by the file backend
	CredentialFile string
	// RedisURL is required when StorageType is "redis"
	RedisURL string
	// OpenTimeout bounds the connection handshake
	OpenTimeout time.Duration
	// Output format for the CLI: text, json
	Output  string
	Verbose bool
}

// Default returns a Config populated from the environment with defaults
func Default() *Config {
	timeout := DefaultOpenTimeout
	if v := os.Getenv("AIVENTURE_OPEN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Config{
		ServerURL:      getEnvOrDefault("AIVENTURE_SERVER", DefaultServerURL),
		StorageType:    getEnvOrDefault("AIVENTURE_STORAGE", StorageTypeFile),
		CredentialFile: getEnvOrDefault("AIVENTURE_CREDENTIAL_FILE", defaultCredentialFile()),
		RedisURL:       os.Getenv("AIVENTURE_REDIS_URL"),
		OpenTimeout:    timeout,
		Output:         "text",
	}
}

// Load reads optional dotenv files into the process environment (existing
// variables win) and then returns Default(). Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return Default(), nil
}

// HTTPURL joins path onto the base address
func (c *Config) HTTPURL(path string) string {
	return strings.TrimSuffix(c.ServerURL, "/") + path
}

// WebSocketURL derives the real-time URL from the base address by swapping
// the scheme and attaching the token as a query credential
func (c *Config) WebSocketURL(token string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(c.ServerURL, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidServerURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidServerURL, u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + GamePath
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aiventure", RecordKey+".json")
	}
	return filepath.Join(home, ".aiventure", RecordKey+".json")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
