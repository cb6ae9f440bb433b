// Package middlewarectx содержит middleware HTTP-сервера.
package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subly/internal/http/response"
)

// RateLimitMiddleware ограничивает число запросов через общий для всех
// клиентов token bucket: perSecond запросов в секунду и всплеск burst.
func RateLimitMiddleware(log *slog.Logger, perSecond float64, burst int) func(http.Handler) http.Handler {
	return newRateLimit(log, rate.NewLimiter(rate.Limit(perSecond), burst))
}

func newRateLimit(log *slog.Logger, limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests", slog.String("path", r.URL.Path))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
