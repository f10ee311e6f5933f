package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/config"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
)

//go:embed pages/*.html
var pagesFS embed.FS

// DashboardHandler serves the dashboard page with the portfolio risk table
// and divestment form.
type DashboardHandler struct {
	service   *portfolio.Service
	logger    *common.Logger
	templates *template.Template
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(service *portfolio.Service, logger *common.Logger) *DashboardHandler {
	funcs := template.FuncMap{
		"amount": common.FormatAmount,
		"pct":    common.FormatPct,
	}
	templates := template.Must(template.New("pages").Funcs(funcs).ParseFS(pagesFS, "pages/*.html"))

	return &DashboardHandler{
		service:   service,
		logger:    logger,
		templates: templates,
	}
}

// ServeHTTP renders the dashboard page.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.logger.Error().Str("error", err.Error()).Msg("failed to load snapshot for dashboard")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Page":          "dashboard",
		"Snapshot":      snapshot,
		"Metrics":       portfolio.ComputeMetrics(snapshot),
		"PortalVersion": config.GetVersion(),
	}

	if err := h.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		h.logger.Error().Str("template", "dashboard.html").Str("error", err.Error()).Msg("failed to render dashboard")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
