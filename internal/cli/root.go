package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/aiventure/internal/config"
	"github.com/mcoot/aiventure/internal/factory"
)

var (
	cfg *config.Config
	app *factory.App
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	app = nil
	loaded, loadErr := config.Load()
	if loadErr != nil {
		// A bad .env or env var should not hide --help; report it on run.
		loaded = config.Default()
	}
	cfg = loaded

	rootCmd := &cobra.Command{
		Use:   "aiventure",
		Short: "Terminal client for the aiventure game",
		Long: `aiventure logs in to the aiventure game server, keeps the session
credential between runs, and plays over the game websocket.

Start with "aiventure login", then "aiventure play" and type commands
such as: create-lab {"name":"Skunkworks","location":"eu"}`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			a, err := factory.New(factory.Config{Client: cfg, Logger: logger})
			if err != nil {
				return err
			}
			app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: AIVENTURE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageType, "storage", cfg.StorageType, "Credential storage: memory, file, redis (env: AIVENTURE_STORAGE)")
	rootCmd.PersistentFlags().StringVar(&cfg.CredentialFile, "credential-file", cfg.CredentialFile, "Credential file path (env: AIVENTURE_CREDENTIAL_FILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for redis storage (env: AIVENTURE_REDIS_URL)")
	rootCmd.PersistentFlags().DurationVar(&cfg.OpenTimeout, "open-timeout", cfg.OpenTimeout, "Game connection open timeout (env: AIVENTURE_OPEN_TIMEOUT)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newMeCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
