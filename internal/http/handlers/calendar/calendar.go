// Package calendar реализует публичный HTTP-обработчик ленты iCal.
//
// Handler извлекает токен календаря из URL, проверяет его формат
// и отдает ленту с датами списаний пользователя в формате text/calendar.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subly/internal/http/response"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/storage/repository"
)

// Handler обрабатывает запросы на получение ленты календаря.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс построения ленты.
type Service interface {
	Feed(ctx context.Context, token string) ([]byte, error)
}

// Request параметры запроса ленты.
type Request struct {
	Token string `validate:"required,hexadecimal,len=64"`
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP отдает ленту по токену из параметра маршрута {token}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.calendar.ServeHTTP"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	req := Request{Token: chi.URLParam(r, "token")}
	if err := h.validate.Struct(req); err != nil {
		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			log.Debug("invalid calendar token", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("calendar not found"))
			return
		}
		log.Error("failed to validate calendar token", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	data, err := h.service.Feed(r.Context(), req.Token)
	if errors.Is(err, repository.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("calendar not found"))
		return
	}
	if err != nil {
		log.Error("failed to build calendar feed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("server error generating calendar"))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="subly-subscriptions.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error("failed to write calendar feed", sl.Err(err))
	}
}
