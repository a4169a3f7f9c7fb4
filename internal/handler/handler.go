// Package handler содержит HTTP-обработчики API сервиса статистики.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/campstats/internal/middleware"
	"github.com/mmeshcher/campstats/internal/model"
	"github.com/mmeshcher/campstats/internal/repository"
	"github.com/mmeshcher/campstats/internal/service"
	"github.com/mmeshcher/campstats/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Dashboard(ctx context.Context) (*service.Dashboard, error)
	DayCurves(ctx context.Context, resolutionHours int) (*service.DayCurves, error)
	ProductTrend(ctx context.Context, productID string, hours int) (*service.TrendView, error)
	CategoryTrends(ctx context.Context, hours int) ([]service.TrendView, error)
	Bestsellers(ctx context.Context, scope service.Scope) (*service.Bestsellers, error)
	Countdown(ctx context.Context) (*service.Countdown, error)
	Menu(ctx context.Context, locationID string, express bool) (*service.Menu, error)

	IngestSale(ctx context.Context, sale model.SaleRecord) (model.SaleRecord, error)
	UpsertProduct(ctx context.Context, p model.Product) error
	UpsertCamp(ctx context.Context, c model.Camp) error
	UpsertLocation(ctx context.Context, l model.Location) error
}

// Handler реализует HTTP-обработчики API сервиса статистики.
type Handler struct {
	service      Service
	logger       *zap.Logger
	terminalAuth *middleware.TerminalAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.TerminalAuth) *Handler {
	return &Handler{
		service:      s,
		logger:       logger,
		terminalAuth: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

// writeError переводит ошибку сервиса в HTTP-статус. Неожиданные ошибки логируются.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrDuplicate):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, context.Canceled):
		// клиент ушёл, отвечать некому
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.String("uri", r.RequestURI))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// intQuery читает неотрицательный целый параметр запроса. Отсутствующий параметр даёт 0.
func intQuery(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Healthz отвечает на проверку живости.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
