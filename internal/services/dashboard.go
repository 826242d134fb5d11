package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/present"
	"sales-dashboard/internal/source"
)

// Fetcher loads the records of one render pass.
type Fetcher interface {
	Fetch(ctx context.Context, q source.Query) ([]models.SalesRecord, error)
}

// Request is everything one render pass depends on.
type Request struct {
	Query    source.Query
	Criteria filter.Criteria
	Sellers  int
}

// Options lists the values the dashboard widgets offer for the current query.
type Options struct {
	Regions      []string   `json:"regions"`
	Years        []int      `json:"years"`
	Products     []string   `json:"products"`
	Categories   []string   `json:"categories"`
	Sellers      []string   `json:"sellers"`
	Locations    []string   `json:"locations"`
	PaymentTypes []string   `json:"payment_types"`
	FirstDate    *time.Time `json:"first_date,omitempty"`
	LastDate     *time.Time `json:"last_date,omitempty"`
	Columns      []string   `json:"columns"`
}

// Dashboard runs render passes: fetch, filter, aggregate, shape. Each pass
// owns its records; only the counters below are shared between passes.
type Dashboard struct {
	fetcher Fetcher
	cfg     config.DashboardConfig
	logger  *slog.Logger

	passes    atomic.Int64
	failures  atomic.Int64
	fetched   atomic.Int64
	kept      atomic.Int64
	lastNanos atomic.Int64

	mu       sync.RWMutex
	lastPass time.Time
	lastErr  string
}

func NewDashboard(fetcher Fetcher, cfg config.DashboardConfig, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Report runs a full pass and shapes every dashboard tab.
func (d *Dashboard) Report(ctx context.Context, req Request) (*present.Report, error) {
	records, err := d.filtered(ctx, req)
	if err != nil {
		return nil, err
	}

	report, err := present.BuildReport(records, present.Options{
		TopStates: d.cfg.TopStates,
		Sellers:   d.sellers(req),
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Revenue runs a pass and shapes only the revenue tab.
func (d *Dashboard) Revenue(ctx context.Context, req Request) (*present.RevenueTab, error) {
	records, err := d.filtered(ctx, req)
	if err != nil {
		return nil, err
	}
	return present.BuildRevenueTab(records, d.cfg.TopStates)
}

func (d *Dashboard) Sales(ctx context.Context, req Request) (*present.SalesTab, error) {
	records, err := d.filtered(ctx, req)
	if err != nil {
		return nil, err
	}
	return present.BuildSalesTab(records, d.cfg.TopStates)
}

func (d *Dashboard) Sellers(ctx context.Context, req Request) (*present.SellersTab, error) {
	records, err := d.filtered(ctx, req)
	if err != nil {
		return nil, err
	}
	return present.BuildSellersTab(records, d.sellers(req))
}

func (d *Dashboard) sellers(req Request) int {
	if req.Sellers == 0 {
		return d.cfg.DefaultSellers
	}
	return req.Sellers
}

// Records runs a pass and renders the filtered records as a table of the
// requested columns.
func (d *Dashboard) Records(ctx context.Context, req Request, columns []string) (*present.Table, error) {
	cols, err := present.ParseColumns(columns)
	if err != nil {
		return nil, err
	}

	records, err := d.filtered(ctx, req)
	if err != nil {
		return nil, err
	}
	return present.BuildTable(records, cols), nil
}

// Options fetches the unfiltered records of q and lists the distinct values
// of each filterable dimension.
func (d *Dashboard) Options(ctx context.Context, q source.Query) (*Options, error) {
	records, err := d.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	opts := &Options{
		Regions:      source.Regions,
		Years:        source.Years,
		Products:     filter.Distinct(records, models.DimProduct),
		Categories:   filter.Distinct(records, models.DimCategory),
		Sellers:      filter.Distinct(records, models.DimSeller),
		Locations:    filter.Distinct(records, models.DimLocation),
		PaymentTypes: filter.Distinct(records, models.DimPaymentType),
		Columns:      present.ColumnNames(),
	}
	if first, last, ok := filter.DateSpan(records); ok {
		opts.FirstDate, opts.LastDate = &first, &last
	}
	return opts, nil
}

func (d *Dashboard) filtered(ctx context.Context, req Request) ([]models.SalesRecord, error) {
	if err := req.Criteria.Validate(); err != nil {
		d.recordFailure(err)
		return nil, err
	}

	start := time.Now()
	records, err := d.fetch(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	kept, err := filter.Apply(records, req.Criteria)
	if err != nil {
		d.recordFailure(err)
		return nil, err
	}

	d.passes.Add(1)
	d.fetched.Store(int64(len(records)))
	d.kept.Store(int64(len(kept)))
	d.lastNanos.Store(int64(time.Since(start)))
	d.mu.Lock()
	d.lastPass = time.Now()
	d.mu.Unlock()

	if len(kept) == 0 {
		d.logger.InfoContext(ctx, "filters matched no records",
			"fetched", len(records),
			"regiao", req.Query.Region,
			"ano", req.Query.Year,
		)
	}
	return kept, nil
}

func (d *Dashboard) fetch(ctx context.Context, q source.Query) ([]models.SalesRecord, error) {
	records, err := d.fetcher.Fetch(ctx, q)
	if err != nil {
		d.recordFailure(err)
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, err
		}
		return nil, errors.UpstreamWrap(err, fmt.Sprintf("fetch %s", q.Key()))
	}
	return records, nil
}

func (d *Dashboard) recordFailure(err error) {
	d.failures.Add(1)
	d.mu.Lock()
	d.lastErr = err.Error()
	d.mu.Unlock()
}

// Stats reports pass counters for the admin endpoint.
func (d *Dashboard) Stats() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := map[string]any{
		"passes":           d.passes.Load(),
		"failures":         d.failures.Load(),
		"last_fetched":     d.fetched.Load(),
		"last_kept":        d.kept.Load(),
		"last_duration_ms": time.Duration(d.lastNanos.Load()).Milliseconds(),
	}
	if !d.lastPass.IsZero() {
		stats["last_pass"] = d.lastPass
	}
	if d.lastErr != "" {
		stats["last_error"] = d.lastErr
	}
	return stats
}
