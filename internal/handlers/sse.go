package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/present"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	revenuePanelID = "revenue-content"
	salesPanelID   = "sales-content"
	sellersPanelID = "sellers-content"
)

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	err := c.Render(ctx, &buf)
	return buf.String(), err
}

// patchErrors replaces each of panelIDs with the message for a failed pass.
func (h *SSEHandlers) patchErrors(sse *datastar.ServerSentEventGenerator, r *http.Request, err error, panelIDs ...string) {
	h.logger.Warn("dashboard pass failed", "path", r.URL.Path, "error", err)
	message := panelMessage(err)
	for _, id := range panelIDs {
		if !h.patchPanel(r.Context(), sse, templates.ErrorPanel(id, message)) {
			return
		}
	}
}

// panelMessage is the user-facing text for a failed pass.
func panelMessage(err error) string {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return "Erro inesperado ao carregar os dados"
	}
	switch appErr.Code {
	case errors.CodeUpstream:
		return "Fonte de dados indisponível. Tente novamente."
	case errors.CodeMalformedData:
		return "A fonte de dados retornou registros inválidos."
	default:
		return appErr.Message
	}
}

func (h *SSEHandlers) patchPanel(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) bool {
	html, err := renderHTML(ctx, c)
	if err != nil {
		h.logger.Error("render panel", "error", err)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch elements", "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) {
	data, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	sse.PatchSignals(data)
}

func revenueSignals(tab present.RevenueTab) map[string]any {
	return map[string]any{
		"revenueMap":        tab.StateMap,
		"revenueMonthly":    tab.Monthly,
		"revenueStates":     tab.TopStates,
		"revenueCategories": tab.Categories,
	}
}

func salesSignals(tab present.SalesTab) map[string]any {
	return map[string]any{
		"salesMap":        tab.StateMap,
		"salesMonthly":    tab.Monthly,
		"salesStates":     tab.TopStates,
		"salesCategories": tab.Categories,
	}
}

func sellersSignals(tab present.SellersTab) map[string]any {
	return map[string]any{
		"sellersRevenue": tab.ByRevenue,
		"sellersSales":   tab.BySales,
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	req, err := parseRequest(r.URL.Query())
	var tab *present.RevenueTab
	if err == nil {
		tab, err = h.dashboard.Revenue(r.Context(), req)
	}
	if err != nil {
		h.patchErrors(sse, r, err, revenuePanelID)
	} else if h.patchPanel(r.Context(), sse, templates.RevenuePanel(tab)) {
		h.patchSignals(sse, revenueSignals(*tab))
	}

	flush(w)
}

func (h *SSEHandlers) HandleSales(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	req, err := parseRequest(r.URL.Query())
	var tab *present.SalesTab
	if err == nil {
		tab, err = h.dashboard.Sales(r.Context(), req)
	}
	if err != nil {
		h.patchErrors(sse, r, err, salesPanelID)
	} else if h.patchPanel(r.Context(), sse, templates.SalesPanel(tab)) {
		h.patchSignals(sse, salesSignals(*tab))
	}

	flush(w)
}

func (h *SSEHandlers) HandleSellers(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	req, err := parseRequest(r.URL.Query())
	var tab *present.SellersTab
	if err == nil {
		tab, err = h.dashboard.Sellers(r.Context(), req)
	}
	if err != nil {
		h.patchErrors(sse, r, err, sellersPanelID)
	} else if h.patchPanel(r.Context(), sse, templates.SellersPanel(tab)) {
		h.patchSignals(sse, sellersSignals(*tab))
	}

	flush(w)
}

// HandleRefreshAll runs one pass and patches every panel from it.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	req, err := parseRequest(r.URL.Query())
	var report *present.Report
	if err == nil {
		report, err = h.dashboard.Report(r.Context(), req)
	}
	if err != nil {
		h.patchErrors(sse, r, err, revenuePanelID, salesPanelID, sellersPanelID)
		flush(w)
		return
	}

	h.patchPanel(r.Context(), sse, templates.RevenuePanel(&report.Revenue))
	h.patchPanel(r.Context(), sse, templates.SalesPanel(&report.Sales))
	h.patchPanel(r.Context(), sse, templates.SellersPanel(&report.Sellers))

	signals := revenueSignals(report.Revenue)
	maps.Copy(signals, salesSignals(report.Sales))
	maps.Copy(signals, sellersSignals(report.Sellers))
	h.patchSignals(sse, signals)

	flush(w)
}
