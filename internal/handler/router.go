package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/mmeshcher/campstats/internal/metrics"
	custommiddleware "github.com/mmeshcher/campstats/internal/middleware"
)

const (
	loginRateLimit  = 10
	ingestRateLimit = 600
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса статистики.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/stats", func(r chi.Router) {
			r.Get("/dashboard", h.GetDashboard)
			r.Get("/days", h.GetDayCurves)
			r.Get("/trend/products/{id}", h.GetProductTrend)
			r.Get("/trend/categories", h.GetCategoryTrends)
			r.Get("/bestsellers", h.GetBestsellers)
			r.Get("/countdown", h.GetCountdown)
		})

		r.Get("/locations/{id}/menu", h.GetMenu)

		r.With(httprate.LimitByIP(loginRateLimit, time.Minute)).Post("/terminal/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.terminalAuth.Middleware)
			r.Use(httprate.LimitByIP(ingestRateLimit, time.Minute))

			r.Post("/sales", h.PostSale)
			r.Post("/products", h.PostProduct)
			r.Post("/camps", h.PostCamp)
			r.Post("/locations", h.PostLocation)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
