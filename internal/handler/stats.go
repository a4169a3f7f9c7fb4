package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/campstats/internal/service"
)

// GetDashboard возвращает последний снимок дашборда.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, "dashboard", err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// GetDayCurves возвращает дневные кривые выручки текущего кэмпа.
func (h *Handler) GetDayCurves(w http.ResponseWriter, r *http.Request) {
	resolution, ok := intQuery(r, "resolution")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	curves, err := h.service.DayCurves(r.Context(), resolution)
	if err != nil {
		h.writeError(w, r, "day curves", err)
		return
	}
	h.writeJSON(w, http.StatusOK, curves)
}

// GetProductTrend возвращает почасовую динамику продаж товара.
func (h *Handler) GetProductTrend(w http.ResponseWriter, r *http.Request) {
	hours, ok := intQuery(r, "hours")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	trend, err := h.service.ProductTrend(r.Context(), chi.URLParam(r, "id"), hours)
	if err != nil {
		h.writeError(w, r, "product trend", err)
		return
	}
	h.writeJSON(w, http.StatusOK, trend)
}

// GetCategoryTrends возвращает динамику продаж по категориям.
func (h *Handler) GetCategoryTrends(w http.ResponseWriter, r *http.Request) {
	hours, ok := intQuery(r, "hours")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	trends, err := h.service.CategoryTrends(r.Context(), hours)
	if err != nil {
		h.writeError(w, r, "category trends", err)
		return
	}
	h.writeJSON(w, http.StatusOK, trends)
}

// GetBestsellers возвращает рейтинг продаж.
func (h *Handler) GetBestsellers(w http.ResponseWriter, r *http.Request) {
	scope, err := service.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		h.writeError(w, r, "bestsellers", err)
		return
	}

	res, err := h.service.Bestsellers(r.Context(), scope)
	if err != nil {
		h.writeError(w, r, "bestsellers", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// GetCountdown возвращает обратный отсчёт до ближайшей точки расписания.
func (h *Handler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Countdown(r.Context())
	if err != nil {
		h.writeError(w, r, "countdown", err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// GetMenu возвращает меню точки продаж.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	express := false
	if v := r.URL.Query().Get("express"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		express = b
	}

	menu, err := h.service.Menu(r.Context(), chi.URLParam(r, "id"), express)
	if err != nil {
		h.writeError(w, r, "menu", err)
		return
	}
	h.writeJSON(w, http.StatusOK, menu)
}
