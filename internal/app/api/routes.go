package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/subly/internal/config"
	"github.com/magabrotheeeer/subly/internal/http/handlers/calendar"
	"github.com/magabrotheeeer/subly/internal/http/handlers/health"
	"github.com/magabrotheeeer/subly/internal/http/middlewarectx"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer,
	calendarService calendar.Service, db health.Pinger) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Публичная лента календаря, доступ только по токену
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.CalendarRateLimit, cfg.CalendarRateBurst))
			r.Get("/calendar/{token}.ics", calendar.New(logger, calendarService).ServeHTTP)
		})
	})
}
