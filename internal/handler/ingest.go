package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/campstats/internal/middleware"
	"github.com/mmeshcher/campstats/internal/model"
)

type loginRequest struct {
	TerminalID string `json:"terminalId"`
	Secret     string `json:"secret"`
}

// Login выдаёт терминалу cookie авторизации в обмен на секрет площадки.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	req.TerminalID = strings.TrimSpace(req.TerminalID)
	if req.TerminalID == "" || req.Secret == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !h.terminalAuth.CheckSecret(req.Secret) {
		h.logger.Warn("terminal login rejected", zap.String("terminal", req.TerminalID))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.terminalAuth.SetAuthCookie(w, req.TerminalID)
	w.WriteHeader(http.StatusOK)
}

// PostSale принимает продажу от терминала.
func (h *Handler) PostSale(w http.ResponseWriter, r *http.Request) {
	var sale model.SaleRecord
	if err := json.NewDecoder(r.Body).Decode(&sale); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	stored, err := h.service.IngestSale(r.Context(), sale)
	if err != nil {
		h.writeError(w, r, "ingest sale", err)
		return
	}

	terminalID, _ := middleware.TerminalIDFromContext(r.Context())
	h.logger.Debug("sale ingested", zap.String("id", stored.ID), zap.String("terminal", terminalID))

	h.writeJSON(w, http.StatusCreated, stored)
}

// PostProduct создаёт или обновляет позицию каталога.
func (h *Handler) PostProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpsertProduct(r.Context(), p); err != nil {
		h.writeError(w, r, "upsert product", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// PostCamp создаёт или обновляет кэмп.
func (h *Handler) PostCamp(w http.ResponseWriter, r *http.Request) {
	var c model.Camp
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpsertCamp(r.Context(), c); err != nil {
		h.writeError(w, r, "upsert camp", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// PostLocation создаёт или обновляет точку продаж.
func (h *Handler) PostLocation(w http.ResponseWriter, r *http.Request) {
	var l model.Location
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpsertLocation(r.Context(), l); err != nil {
		h.writeError(w, r, "upsert location", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
