package factory

import (
	"log/slog"
	"time"

	"github.com/mcoot/aiventure/internal/config"
	"github.com/mcoot/aiventure/internal/conn"
	"github.com/mcoot/aiventure/internal/dependencies/mocks"
	"github.com/mcoot/aiventure/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock   *mocks.MockClock
	MockRandom  *mocks.MockRandom
	MemoryStore *memory.Storage
}

// NewTestApp creates an App talking to serverURL with in-memory credential
// storage and mocked time. The open timeout only fires when MockClock is advanced.
func NewTestApp(serverURL string) *TestApp {
	cfg := &config.Config{
		ServerURL:   serverURL,
		StorageType: config.StorageTypeMemory,
		OpenTimeout: config.DefaultOpenTimeout,
	}
	creds := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(cfg, creds, mockClock, mockRandom,
		conn.NewWebsocketDialer(cfg.OpenTimeout), 0, slog.New(slog.DiscardHandler))

	return &TestApp{
		App:         app,
		MockClock:   mockClock,
		MockRandom:  mockRandom,
		MemoryStore: creds,
	}
}
