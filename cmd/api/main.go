package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/habitboard/internal/api"
	"example.com/habitboard/internal/auth"
	"example.com/habitboard/internal/cache"
	"example.com/habitboard/internal/config"
	"example.com/habitboard/internal/habits"
	"example.com/habitboard/internal/lock"
	"example.com/habitboard/internal/logging"
	"example.com/habitboard/internal/observability"
	"example.com/habitboard/internal/outbox"
	"example.com/habitboard/internal/persistence/memory"
	"example.com/habitboard/internal/persistence/postgres"
	"example.com/habitboard/internal/scoreboard"
	"example.com/habitboard/internal/sheets"
	httptransport "example.com/habitboard/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := newSheetsClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	scoreOpts := []scoreboard.Option{
		scoreboard.WithDefaultSheet(cfg.DefaultSheet),
		scoreboard.WithLogger(logger.Named("scoreboard")),
		scoreboard.WithUserCache(cache.NewMemoryUserCache(cfg.UserCacheTTL)),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		scoreOpts = append(scoreOpts,
			scoreboard.WithUserCache(cache.NewRedisUserCache(rdb, cfg.UserCacheTTL)),
			scoreboard.WithLocker(lock.NewRedisLocker(rdb, cfg.LockTTL, lock.WithLogger(logger.Named("lock")))),
		)
		logger.Info("redis cache and sheet lock enabled", zap.String("addr", cfg.RedisAddr))
	}

	var producer *outbox.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		scoreOpts = append(scoreOpts, scoreboard.WithPublisher(outbox.NewPublisher(producer)))
	}

	apiOpts := []api.Option{
		api.WithLogger(logger.Named("api")),
		api.WithSheetsStatus(cfg.SheetsConfigured(), cfg.SpreadsheetID != ""),
	}
	var (
		repo habits.Repository
		wg   sync.WaitGroup
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := postgres.NewRepository(pool, logger.Named("postgres"))
		repo = pg
		apiOpts = append(apiOpts, api.WithDatabase(pg))

		if producer != nil {
			dispatcher := outbox.NewDispatcher(outbox.NewPostgresStore(pool, time.Minute), producer,
				logger.Named("outbox"), cfg.OutboxPollInterval, cfg.OutboxBatchSize)
			wg.Add(1)
			go func() {
				defer wg.Done()
				dispatcher.Start(ctx)
			}()
		}
	} else {
		logger.Warn("DATABASE_URL not set, habits are kept in memory")
		repo = memory.NewRepository()
	}

	scores := scoreboard.NewService(client, scoreOpts...)
	habitService := habits.NewService(repo, habits.WithLogger(logger.Named("habits")))

	mux := http.NewServeMux()
	api.NewHandler(scores, habitService, apiOpts...).RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(auth.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}, auth.HabitsOnly)
	requestLog := logging.Middleware(logger.Named("http"), observability.ObserveHTTPRequest)

	var handler http.Handler = mux
	if cfg.HTTPTimeout > 0 {
		handler = http.TimeoutHandler(mux, cfg.HTTPTimeout, `{"type":"timeout","detail":"request timed out"}`)
	}
	handler = requestLog(api.CORS(cfg.CORSOrigin)(authMiddleware.Wrap(handler)))
	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress, cfg.HTTPTimeout), handler)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress, cfg.HTTPTimeout), metricsMux)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httptransport.Serve(ctx, metricsSrv, logger.Named("metrics"), 5*time.Second); err != nil {
			logger.Warn("metrics server error", zap.Error(err))
		}
	}()

	err = httptransport.Serve(ctx, server, logger, 15*time.Second)
	cancel()
	wg.Wait()
	return err
}

func newSheetsClient(ctx context.Context, cfg config.Config, logger *zap.Logger) (sheets.Client, error) {
	if !cfg.SheetsConfigured() {
		logger.Warn("google sheets not configured, using an in-memory scoreboard",
			zap.Bool("spreadsheet_configured", cfg.SpreadsheetID != ""))
		client := sheets.NewMemoryClient()
		client.SetSheet(cfg.DefaultSheet, [][]string{{"Date"}})
		return client, nil
	}
	return sheets.NewGoogleClient(ctx, sheets.GoogleConfig{
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		APIKey:          cfg.GoogleAPIKey,
		Timeout:         cfg.HTTPTimeout,
	})
}
