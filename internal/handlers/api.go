package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const cacheControl = "private, max-age=60"

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errors.WriteError(w, logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

func (h *APIHandlers) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tab, err := h.dashboard.Revenue(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, tab, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleSales(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tab, err := h.dashboard.Sales(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, tab, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleSellers(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tab, err := h.dashboard.Sellers(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, tab, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	table, err := h.dashboard.Records(r.Context(), req, columnsParam(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, table)
}

// HandleRecordsCSV streams the filtered records as a CSV attachment.
func (h *APIHandlers) HandleRecordsCSV(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	req, err := parseRequest(values)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	table, err := h.dashboard.Records(r.Context(), req, columnsParam(values))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, table); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to encode CSV"))
		return
	}

	name := export.FileName(values.Get("arquivo"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("csv download interrupted", "file", name, "error", err)
		return
	}

	h.logger.Info("csv downloaded",
		"file", name,
		"rows", table.RowsN,
		"columns", table.ColumnN,
		"request_id", observability.GetRequestID(r.Context()),
	)
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts, err := h.dashboard.Options(r.Context(), req.Query)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, opts, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.dashboard.Stats()

	errors.WriteSuccess(w, stats)
}

// columnsParam accepts colunas repeated or comma separated.
func columnsParam(values url.Values) []string {
	var cols []string
	for _, v := range values["colunas"] {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cols = append(cols, part)
			}
		}
	}
	return cols
}
