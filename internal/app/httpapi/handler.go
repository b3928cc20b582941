// Package httpapi exposes the engine's HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matka-platform/result-engine/internal/app"
	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/domain/numbers"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
	"github.com/matka-platform/result-engine/internal/app/metrics"
	"github.com/matka-platform/result-engine/internal/app/services/bets"
	"github.com/matka-platform/result-engine/internal/app/services/markets"
	"github.com/matka-platform/result-engine/internal/app/services/results"
	"github.com/matka-platform/result-engine/pkg/logger"
)

// Handler serves the engine API.
type Handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler builds the API handler.
func NewHandler(application *app.Application, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Handler{app: application, log: log}
}

// Router assembles the chi route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/markets", func(r chi.Router) {
		r.Get("/", h.handleListMarkets)
		r.Post("/", h.handleCreateMarket)
		r.Route("/{marketID}", func(r chi.Router) {
			r.Get("/", h.handleGetMarket)
			r.Put("/", h.handleUpdateMarket)
			r.Post("/active", h.handleSetActive)
			r.Post("/auto-declare", h.handleSetAutoDeclare)
			r.Get("/result", h.handleGetResult)
			r.Get("/results", h.handleResultHistory)
			r.Get("/bets", h.handleListMarketBets)
		})
	})

	r.Post("/results/declare", h.handleDeclare)

	r.Route("/bets", func(r chi.Router) {
		r.Post("/", h.handlePlaceBet)
		r.Get("/{betID}", h.handleGetBet)
	})
	r.Get("/players/{playerID}/bets", h.handleListPlayerBets)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- markets ---

func (h *Handler) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Markets.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": list})
}

func (h *Handler) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var m market.Market
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.app.Markets.Create(r.Context(), m)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Markets.Get(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleUpdateMarket(w http.ResponseWriter, r *http.Request) {
	var m market.Market
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m.ID = chi.URLParam(r, "marketID")
	updated, err := h.app.Markets.Update(r.Context(), m)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	h.toggleMarket(w, r, h.app.Markets.SetActive)
}

func (h *Handler) handleSetAutoDeclare(w http.ResponseWriter, r *http.Request) {
	h.toggleMarket(w, r, h.app.Markets.SetAutoDeclare)
}

func (h *Handler) toggleMarket(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id string, value bool) (market.Market, error)) {
	var req struct {
		Value bool `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := set(r.Context(), chi.URLParam(r, "marketID"), req.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// --- results ---

type declareRequest struct {
	MarketID     string `json:"market_id"`
	ResultType   string `json:"result_type"`
	ResultNumber string `json:"result_number"`
	TargetDate   string `json:"target_date"`
}

func (h *Handler) handleDeclare(w http.ResponseWriter, r *http.Request) {
	var req declareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ank := numbers.DigitSum(req.ResultNumber)

	var (
		row result.MarketDayResult
		err error
	)
	switch req.ResultType {
	case "open":
		row, err = h.app.Results.DeclareOpen(r.Context(), req.MarketID, req.TargetDate, req.ResultNumber, ank, "manual")
	case "close":
		row, err = h.app.Results.DeclareClose(r.Context(), req.MarketID, req.TargetDate, req.ResultNumber, ank, "manual")
	default:
		writeError(w, http.StatusBadRequest, results.ErrInvalidPhase.Error())
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(row))
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	row, err := h.app.Results.Result(r.Context(), chi.URLParam(r, "marketID"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(row))
}

func (h *Handler) handleResultHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.app.Results.History(r.Context(), chi.URLParam(r, "marketID"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, resultResponse(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// --- bets ---

func (h *Handler) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req bets.PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	placed, err := h.app.Bets.Place(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, placed)
}

func (h *Handler) handleGetBet(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Bets.Get(r.Context(), chi.URLParam(r, "betID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleListMarketBets(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Bets.ListByMarketDay(r.Context(), chi.URLParam(r, "marketID"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": list})
}

func (h *Handler) handleListPlayerBets(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.app.Bets.ListByPlayer(r.Context(), chi.URLParam(r, "playerID"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": list})
}

// --- helpers ---

// resultResponse renders a declaration row with nulls for numbers not yet
// declared, so an undeclared day still answers with a well-formed body.
func resultResponse(row result.MarketDayResult) map[string]any {
	return map[string]any{
		"market_id":         row.MarketID,
		"day":               row.Day,
		"open":              nullable(row.Open),
		"main":              nullable(row.Main),
		"close":             nullable(row.Close),
		"status":            string(row.Status()),
		"open_declared_at":  row.OpenDeclaredAt,
		"close_declared_at": row.CloseDeclaredAt,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, results.ErrOpenNotDeclared):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, results.ErrInvalidNumber),
		errors.Is(err, results.ErrInvalidDay),
		errors.Is(err, results.ErrInvalidPhase):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, results.ErrUnknownMarket),
		errors.Is(err, markets.ErrNotFound),
		errors.Is(err, bets.ErrMarketNotFound),
		errors.Is(err, bets.ErrBetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bets.ErrBettingClosed),
		errors.Is(err, bets.ErrOpenPhaseClosed),
		errors.Is(err, bets.ErrMarketInactive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
