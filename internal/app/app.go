package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"buyback-quotes/internal/alerting"
	"buyback-quotes/internal/cache"
	"buyback-quotes/internal/config"
	"buyback-quotes/internal/extract"
	"buyback-quotes/internal/fetcher"
	"buyback-quotes/internal/httpapi"
	"buyback-quotes/internal/provider"
	"buyback-quotes/internal/quote"
	"buyback-quotes/internal/ratelimit"
	"buyback-quotes/internal/scheduler"
	"buyback-quotes/internal/service"
	"buyback-quotes/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newLookupService() (*service.Service, error) {
	docs := fetcher.NewHTTP(fetcher.Options{
		Timeout:        a.Config.Fetcher.Timeout,
		MinBodyLength:  a.Config.Fetcher.MinBodyLength,
		MaxBodyBytes:   a.Config.Fetcher.MaxBodyBytes,
		UserAgent:      a.Config.Fetcher.UserAgent,
		AcceptLanguage: a.Config.Fetcher.AcceptLanguage,
	}, a.Logger)
	prices := extract.NewHeuristic()

	aladin, err := provider.New(a.Config.Providers.Aladin.ProviderOptions(provider.Options{Name: quote.ProviderAladin, MaxWait: a.Config.Fetcher.Timeout}), docs, prices, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("configure aladin: %w", err)
	}
	yes24, err := provider.New(a.Config.Providers.Yes24.ProviderOptions(provider.Options{Name: quote.ProviderYes24, MaxWait: a.Config.Fetcher.Timeout}), docs, prices, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("configure yes24: %w", err)
	}

	opts := service.Options{TieBand: a.Config.Quote.TieBand}
	if a.Config.Alerting.Enabled {
		opts.Health = alerting.NewHealthTracker(alerting.HealthOptions{
			FailureThreshold: a.Config.Alerting.FailureThreshold,
			Cooldown:         a.Config.Alerting.Cooldown,
		}, nil)
		opts.Notifier = a.newNotifier()
		opts.NotifyTimeout = a.Config.Alerting.Telegram.Timeout
	}

	return service.New(opts, aladin, yes24, cache.NewMemory(a.Config.Cache.TTL), a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newStatsStore prefers Redis when configured and reachable, else memory.
func (a *App) newStatsStore(ctx context.Context) (ratelimit.StatsStore, func()) {
	cfg := a.Config.RateLimit.Stats
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryStats(cfg.TrackKeys), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; rate limit stats kept in memory")
		_ = rdb.Close()
		return ratelimit.NewMemoryStats(cfg.TrackKeys), func() {}
	}

	stats := ratelimit.NewRedisStats(rdb, ratelimit.RedisStatsOptions{
		Prefix:    cfg.Prefix,
		TTL:       cfg.TTL,
		TrackKeys: cfg.TrackKeys,
	})
	return stats, func() { _ = rdb.Close() }
}

// Serve runs the HTTP lookup service and its maintenance loop until signalled.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var (
		recorder  httpapi.LookupRecorder
		retention service.RetentionStore
	)
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; lookup log disabled")
	} else {
		if a.Config.Database.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
		}
		recorder = store
		retention = store
	}

	svc, err := a.newLookupService()
	if err != nil {
		return err
	}
	defer svc.Wait()

	stats, closeStats := a.newStatsStore(ctx)
	defer closeStats()

	limiter := ratelimit.New(a.Config.RateLimit.Window, a.Config.RateLimit.Max)
	handler := httpapi.NewQuoteHandler(svc, limiter, httpapi.Options{
		TrustForwardedFor: a.Config.Server.TrustForwardedFor,
		Stats:             stats,
		Recorder:          recorder,
	}, a.Logger)

	srv := &http.Server{
		Addr:         a.Config.Server.ListenAddr,
		Handler:      httpapi.NewRouter(handler, a.Logger),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	maintenance := service.NewMaintenance(service.MaintenanceOptions{
		Retention: a.Config.Database.Retention,
		LockKey:   a.Config.Maintenance.AdvisoryLockKey,
	}, limiter, retention, a.Logger)
	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Maintenance.Interval,
		StartupDelay: a.Config.Maintenance.StartupDelay,
	}, a.Logger)

	var background conc.WaitGroup
	defer background.Wait()
	background.Go(func() {
		if err := sched.Run(ctx, maintenance.Tick); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error().Err(err).Msg("maintenance loop stopped")
		}
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	a.Logger.Info().Str("addr", srv.Addr).Msg("lookup service listening")

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		cancel()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	a.Logger.Info().Msg("lookup service stopped")
	return nil
}

// Quote performs one lookup without the HTTP layer and prints the JSON answer.
func (a *App) Quote(ctx context.Context, raw string) error {
	svc, err := a.newLookupService()
	if err != nil {
		return err
	}
	defer svc.Wait()

	res, err := svc.Lookup(ctx, raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res.Quote)
}

// ExportOptions hold parameters for exporting the lookup log.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
	Interval  time.Duration
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}
