package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/habitboard/internal/config"
	"example.com/habitboard/internal/lock"
	"example.com/habitboard/internal/logging"
	"example.com/habitboard/internal/scoreboard"
	"example.com/habitboard/internal/sheets"
)

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	logLevel string

	// newSheets is replaced in tests.
	newSheets func(ctx context.Context, cfg config.Config) (sheets.Client, error)
}

func newApp() *app {
	return &app{
		logger: zap.NewNop(),
		newSheets: func(ctx context.Context, cfg config.Config) (sheets.Client, error) {
			if !cfg.SheetsConfigured() {
				return nil, errors.New("google sheets is not configured: set GOOGLE_SPREADSHEET_ID and credentials")
			}
			return sheets.NewGoogleClient(ctx, sheets.GoogleConfig{
				SpreadsheetID:   cfg.SpreadsheetID,
				CredentialsFile: cfg.GoogleCredentialsFile,
				CredentialsJSON: cfg.GoogleCredentialsJSON,
				APIKey:          cfg.GoogleAPIKey,
				Timeout:         cfg.HTTPTimeout,
			})
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "habitctl",
		Short:        "Operate the habitboard backend",
		Long:         `habitctl applies database migrations and reads or edits the Google Sheets scoreboard directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newMigrateCmd(a), newSheetCmd(a), newScoreCmd(a))
	return root
}

// scoreboard builds a service over the configured spreadsheet. When REDIS_ADDR is set the
// sheet lock is shared with running API instances.
func (a *app) scoreboard(ctx context.Context) (*scoreboard.Service, func(), error) {
	client, err := a.newSheets(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []scoreboard.Option{
		scoreboard.WithDefaultSheet(a.cfg.DefaultSheet),
		scoreboard.WithLogger(a.logger),
	}
	cleanup := func() {}
	if a.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr, Password: a.cfg.RedisPassword, DB: a.cfg.RedisDB})
		opts = append(opts, scoreboard.WithLocker(lock.NewRedisLocker(rdb, a.cfg.LockTTL, lock.WithLogger(a.logger))))
		cleanup = func() { _ = rdb.Close() }
	}
	return scoreboard.NewService(client, opts...), cleanup, nil
}
