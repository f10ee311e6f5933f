package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
	"github.com/greenfin/greenfin-portal/internal/report"
	"github.com/greenfin/greenfin-portal/internal/scoring"
)

// PortfolioHandler serves the portfolio snapshot API: read, derived metrics,
// divestment, and the Markdown risk report.
type PortfolioHandler struct {
	service *portfolio.Service
	logger  *common.Logger
	loans   []scoring.ScoredLoan // optional scored loan book for the report
}

// NewPortfolioHandler creates a new portfolio API handler.
func NewPortfolioHandler(service *portfolio.Service, logger *common.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service: service,
		logger:  logger,
	}
}

// SetLoans provides the scored loan book used to enrich the risk report.
func (h *PortfolioHandler) SetLoans(loans []scoring.ScoredLoan) {
	h.loans = loans
}

// HandleGet handles GET /api/portfolio.
func (h *PortfolioHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// HandleMetrics handles GET /api/portfolio/metrics.
func (h *PortfolioHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	metrics, err := h.service.Metrics(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, metrics)
}

// divestRequest is the POST /api/portfolio/divest body. Amount accepts a JSON
// number or a numeric string, since the dashboard form posts strings.
type divestRequest struct {
	Amount interface{} `json:"amount"`
	Actor  string      `json:"actor"`
}

// HandleDivest handles POST /api/portfolio/divest.
func (h *PortfolioHandler) HandleDivest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req divestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		WriteError(w, http.StatusBadRequest, portfolio.ErrInvalidAmount.Error())
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "anonymous"
	}

	snapshot, err := h.service.Divest(r.Context(), amount, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// HandleReport handles GET /api/portfolio/report, returning Markdown.
func (h *PortfolioHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	markdown := report.RenderSummary(snapshot, portfolio.ComputeMetrics(snapshot), h.loans)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(markdown))
}

// parseAmount accepts a JSON number or a numeric string and rejects
// everything else. Range validation is the engine's job.
func parseAmount(v interface{}) (float64, bool) {
	switch amount := v.(type) {
	case float64:
		return amount, true
	case string:
		parsed, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// writeServiceError maps portfolio service errors to HTTP responses.
func (h *PortfolioHandler) writeServiceError(w http.ResponseWriter, err error) {
	var exceeds *portfolio.ExceedsExposureError
	switch {
	case errors.As(err, &exceeds):
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"error":   exceeds.Error(),
			"ceiling": exceeds.Ceiling,
		})
	case errors.Is(err, portfolio.ErrInvalidAmount):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, portfolio.ErrSnapshotNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, portfolio.ErrVersionConflict):
		WriteError(w, http.StatusConflict, "portfolio changed concurrently, retry the divestment")
	default:
		h.logger.Error().Str("error", err.Error()).Msg("portfolio operation failed")
		WriteError(w, http.StatusBadGateway, "failed to save, please retry")
	}
}
