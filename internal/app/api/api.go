// Package api собирает HTTP-приложение: проверку здоровья, метрики и
// публичную ленту календаря.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/subly/internal/cache"
	"github.com/magabrotheeeer/subly/internal/config"
	"github.com/magabrotheeeer/subly/internal/lib/clock"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/migrations"
	calendarservice "github.com/magabrotheeeer/subly/internal/services/calendar"
	"github.com/magabrotheeeer/subly/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db}

	var feedCache calendarservice.Cache
	if cfg.AddressRedis != "" && cfg.CalendarCacheTTL > 0 {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("redis is not available, calendar cache disabled", sl.Err(err))
		} else {
			app.cache = cacheRedis
			feedCache = cacheRedis
		}
	}

	calendarService := calendarservice.NewService(db, feedCache, cfg.CalendarCacheTTL, clock.New(loc), cfg.FrontendURL, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, calendarService, db.DB)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
