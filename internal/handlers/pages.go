package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/present"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

type PageHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewPageHandlers(dashboard *services.Dashboard, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(ctx, w); err != nil {
		h.logger.Error("render page", "path", r.URL.Path, "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// HandleDashboard renders the page shell; panels load through SSE.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	req, err := parseRequest(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sellers := req.Sellers
	if sellers == 0 {
		sellers = present.DefaultSellers
	}

	page := templates.DashboardPage{
		Query:   r.URL.RawQuery,
		Params:  r.URL.Query(),
		Region:  req.Query.Region,
		Year:    req.Query.Year,
		Sellers: sellers,
	}

	// The shell still renders without the seller picker; the panels report
	// the source failure through SSE.
	opts, err := h.dashboard.Options(r.Context(), req.Query)
	if err != nil {
		h.logger.Warn("load seller options", "error", err)
	} else {
		page.SellerNames = opts.Sellers
	}

	h.render(w, r, templates.Dashboard(page))
}

func (h *PageHandlers) HandleRawData(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	req, err := parseRequest(values)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	opts, err := h.dashboard.Options(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	columns := columnsParam(values)
	table, err := h.dashboard.Records(r.Context(), req, columns)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.render(w, r, templates.RawData(templates.RawDataPage{
		Params:   values,
		Options:  opts,
		Selected: columns,
		Table:    table,
	}))
}
