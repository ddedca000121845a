package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/aiventure/internal/api"
	"github.com/mcoot/aiventure/internal/config"
	"github.com/mcoot/aiventure/internal/conn"
	"github.com/mcoot/aiventure/internal/dependencies/clock"
	"github.com/mcoot/aiventure/internal/dependencies/random"
	"github.com/mcoot/aiventure/internal/dispatch"
	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/notify"
	"github.com/mcoot/aiventure/internal/protocol"
	"github.com/mcoot/aiventure/internal/services/auth"
	"github.com/mcoot/aiventure/internal/storage"
	"github.com/mcoot/aiventure/internal/storage/file"
	"github.com/mcoot/aiventure/internal/storage/memory"
	redisstorage "github.com/mcoot/aiventure/internal/storage/redis"
	"github.com/mcoot/aiventure/internal/store"
)

// App contains all wired components of one client session
type App struct {
	Config *config.Config

	// Storage
	Storage storage.CredentialStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	API        *api.Client
	Auth       *auth.Service
	Conn       *conn.Manager
	Dispatcher *dispatch.Dispatcher

	// State
	Players       *store.PlayerStore
	Labs          *store.LabStore
	Notifications *notify.Queue

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Client holds server, storage and timeout settings (optional)
	// If nil, config.Default() is used
	Client *config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// NotificationBuffer sizes the notification queue (optional)
	NotificationBuffer int
}

// New creates a new session with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	clientCfg := cfg.Client
	if clientCfg == nil {
		clientCfg = config.Default()
	}

	var closers []io.Closer
	var creds storage.CredentialStore
	switch clientCfg.StorageType {
	case "", config.StorageTypeFile:
		creds = file.New(clientCfg.CredentialFile)
	case config.StorageTypeMemory:
		creds = memory.New()
	case config.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		if clientCfg.RedisURL != "" {
			redisCfg.URL = clientCfg.RedisURL
		}
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect credential store: %w", err)
		}
		creds = redisStore
		closers = append(closers, redisStore)
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be 'memory', 'file' or 'redis'", clientCfg.StorageType)
	}

	app := newWithDependencies(clientCfg, creds, clock.New(), random.New(),
		conn.NewWebsocketDialer(clientCfg.OpenTimeout), cfg.NotificationBuffer, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	cfg *config.Config,
	creds storage.CredentialStore,
	clk clock.Clock,
	rnd random.Random,
	dialer conn.Dialer,
	notificationBuffer int,
	logger *slog.Logger,
) *App {
	apiClient := api.NewClient(cfg.ServerURL, nil, logger)
	authService := auth.New(creds, apiClient, logger)

	players := store.NewPlayerStore()
	labs := store.NewLabStore()
	queue := notify.NewQueue(notificationBuffer, logger)
	notifier := notify.Multi{queue, notify.NewLogNotifier(logger)}

	dispatcher := dispatch.New(players, labs, notifier, clk, logger)
	manager := conn.NewManager(cfg, dialer, dispatcher, clk, rnd, logger)

	return &App{
		Config:        cfg,
		Storage:       creds,
		Clock:         clk,
		Random:        rnd,
		API:           apiClient,
		Auth:          authService,
		Conn:          manager,
		Dispatcher:    dispatcher,
		Players:       players,
		Labs:          labs,
		Notifications: queue,
	}
}

// Start resumes the stored session: restore the credential, optionally
// revalidate it with the server, connect, and request the player.
func (a *App) Start(ctx context.Context, revalidate bool) (*model.Credential, error) {
	cred, ok := a.Auth.Restore(ctx)
	if !ok {
		return nil, auth.ErrNoCredential
	}

	if revalidate {
		var err error
		if cred, err = a.Auth.Revalidate(ctx); err != nil {
			return nil, err
		}
	}

	if err := a.Conn.Connect(ctx, cred); err != nil {
		return cred, err
	}
	if err := a.Conn.Send(protocol.RetrievePlayerData()); err != nil {
		return cred, err
	}
	return cred, nil
}

// Logout ends the session: the connection is closed, the credential
// cleared and both stores emptied
func (a *App) Logout(ctx context.Context) error {
	connErr := a.Conn.Close()
	authErr := a.Auth.Clear(ctx)
	a.Players.Reset()
	a.Labs.Reset()
	return errors.Join(connErr, authErr)
}

// Close releases the connection and any storage clients. The stored
// credential is kept.
func (a *App) Close() error {
	errs := []error{a.Conn.Close()}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
