package aggregate

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// Reduction selects the metric a grouped result is ranked by.
type Reduction int

const (
	// Revenue ranks by the sum of Price.
	Revenue Reduction = iota
	// Volume ranks by the number of records.
	Volume
)

func (r Reduction) String() string {
	if r == Volume {
		return "volume"
	}
	return "revenue"
}

// TotalLabel is the key of the synthetic last row of a waterfall.
const TotalLabel = "Total"

// GroupBy groups records by dim and returns one group per distinct key,
// sorted descending by red. Ties keep first-encounter order.
func GroupBy(records []models.SalesRecord, dim models.Dimension, red Reduction) []models.AggregatedGroup {
	index := make(map[string]int)
	groups := make([]models.AggregatedGroup, 0)

	for _, r := range records {
		key := r.Value(dim)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.AggregatedGroup{
				Key:     key,
				Revenue: decimal.Zero,
				Lat:     r.Lat,
				Lon:     r.Lon,
			})
		}
		groups[i].Revenue = groups[i].Revenue.Add(r.Price)
		groups[i].Sales++
	}

	SortDesc(groups, red)
	return groups
}

// SortDesc stable-sorts groups descending by the metric red selects.
func SortDesc(groups []models.AggregatedGroup, red Reduction) {
	slices.SortStableFunc(groups, func(a, b models.AggregatedGroup) int {
		return Value(b, red).Cmp(Value(a, red))
	})
}

// Value returns the metric of g selected by red.
func Value(g models.AggregatedGroup, red Reduction) decimal.Decimal {
	if red == Volume {
		return decimal.NewFromInt(int64(g.Sales))
	}
	return g.Revenue
}

// Top returns at most n leading groups.
func Top(groups []models.AggregatedGroup, n int) []models.AggregatedGroup {
	if n < 0 {
		n = 0
	}
	if len(groups) <= n {
		return groups
	}
	return groups[:n]
}

// Totals returns the revenue and record count of the whole collection.
func Totals(records []models.SalesRecord) (decimal.Decimal, int) {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Price)
	}
	return total, len(records)
}

// Monthly buckets records by calendar month and year. Buckets run in
// chronological order from the first to the last month with sales; months
// in between without sales are present with zero values.
func Monthly(records []models.SalesRecord) []models.MonthlyBucket {
	if len(records) == 0 {
		return []models.MonthlyBucket{}
	}

	sums := make(map[time.Time]*models.MonthlyBucket)
	var first, last time.Time
	for i, r := range records {
		m := monthStart(r.PurchaseDate)
		if i == 0 || m.Before(first) {
			first = m
		}
		if i == 0 || m.After(last) {
			last = m
		}

		b, ok := sums[m]
		if !ok {
			b = &models.MonthlyBucket{Month: m, Revenue: decimal.Zero}
			sums[m] = b
		}
		b.Revenue = b.Revenue.Add(r.Price)
		b.Sales++
	}

	buckets := make([]models.MonthlyBucket, 0, len(sums))
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		if b, ok := sums[m]; ok {
			buckets = append(buckets, *b)
		} else {
			buckets = append(buckets, models.MonthlyBucket{Month: m, Revenue: decimal.Zero})
		}
	}
	return buckets
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Waterfall returns category revenue in descending order followed by a
// synthetic total row. The total row is always last, whatever its value.
func Waterfall(records []models.SalesRecord) []models.WaterfallRow {
	groups := GroupBy(records, models.DimCategory, Revenue)
	return WaterfallFrom(groups)
}

// WaterfallFrom builds waterfall rows from already ordered category groups.
func WaterfallFrom(groups []models.AggregatedGroup) []models.WaterfallRow {
	rows := make([]models.WaterfallRow, 0, len(groups)+1)
	total := decimal.Zero
	for _, g := range groups {
		rows = append(rows, models.WaterfallRow{
			Label:   g.Key,
			Value:   g.Revenue,
			Measure: models.MeasureIncremental,
		})
		total = total.Add(g.Revenue)
	}
	return append(rows, models.WaterfallRow{
		Label:   TotalLabel,
		Value:   total,
		Measure: models.MeasureTotal,
	})
}
