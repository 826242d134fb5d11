package present

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/models"
)

const (
	MinSellers     = 1
	MaxSellers     = 10
	DefaultSellers = 5
	DefaultStates  = 5
)

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type MapPoint struct {
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Value    float64 `json:"value"`
}

// MonthlyPoint is one point of a monthly line chart. Year selects the line,
// Month the x position.
type MonthlyPoint struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	MonthName string  `json:"month_name"`
	Value     float64 `json:"value"`
}

type WaterfallBar struct {
	Label   string         `json:"label"`
	Value   float64        `json:"value"`
	Text    string         `json:"text"`
	Measure models.Measure `json:"measure"`
}

type RevenueTab struct {
	Metric     Metric         `json:"metric"`
	StateMap   []MapPoint     `json:"state_map"`
	Monthly    []MonthlyPoint `json:"monthly"`
	TopStates  []Bar          `json:"top_states"`
	Categories []WaterfallBar `json:"categories"`
}

type SalesTab struct {
	Metric     Metric         `json:"metric"`
	StateMap   []MapPoint     `json:"state_map"`
	Monthly    []MonthlyPoint `json:"monthly"`
	TopStates  []Bar          `json:"top_states"`
	Categories []Bar          `json:"categories"`
}

type SellersTab struct {
	Count         int    `json:"count"`
	RevenueMetric Metric `json:"revenue_metric"`
	SalesMetric   Metric `json:"sales_metric"`
	ByRevenue     []Bar  `json:"by_revenue"`
	BySales       []Bar  `json:"by_sales"`
}

type Report struct {
	Records int        `json:"records"`
	Revenue RevenueTab `json:"revenue"`
	Sales   SalesTab   `json:"sales"`
	Sellers SellersTab `json:"sellers"`
}

type Options struct {
	TopStates int
	Sellers   int
}

// ClampSellers keeps a requested seller count within 1..10.
func ClampSellers(n int) int {
	return min(max(n, MinSellers), MaxSellers)
}

// BuildReport shapes all three dashboard tabs from an already filtered
// collection.
func BuildReport(records []models.SalesRecord, opts Options) (*Report, error) {
	revenue, err := BuildRevenueTab(records, opts.TopStates)
	if err != nil {
		return nil, fmt.Errorf("revenue tab: %w", err)
	}
	sales, err := BuildSalesTab(records, opts.TopStates)
	if err != nil {
		return nil, fmt.Errorf("sales tab: %w", err)
	}
	sellers, err := BuildSellersTab(records, opts.Sellers)
	if err != nil {
		return nil, fmt.Errorf("sellers tab: %w", err)
	}

	return &Report{
		Records: len(records),
		Revenue: *revenue,
		Sales:   *sales,
		Sellers: *sellers,
	}, nil
}

func BuildRevenueTab(records []models.SalesRecord, topStates int) (*RevenueTab, error) {
	total, _ := aggregate.Totals(records)
	value, err := formatDecimal(total, "R$")
	if err != nil {
		return nil, err
	}

	states := aggregate.GroupBy(records, models.DimLocation, aggregate.Revenue)
	categories := aggregate.GroupBy(records, models.DimCategory, aggregate.Revenue)

	return &RevenueTab{
		Metric:     Metric{Label: "Receita", Value: value},
		StateMap:   mapPoints(states, aggregate.Revenue),
		Monthly:    MonthlySeries(aggregate.Monthly(records), aggregate.Revenue),
		TopStates:  bars(aggregate.Top(states, statesOrDefault(topStates)), aggregate.Revenue),
		Categories: WaterfallBars(aggregate.WaterfallFrom(categories)),
	}, nil
}

func BuildSalesTab(records []models.SalesRecord, topStates int) (*SalesTab, error) {
	value, err := FormatMagnitude(float64(len(records)), "")
	if err != nil {
		return nil, err
	}

	states := aggregate.GroupBy(records, models.DimLocation, aggregate.Volume)
	categories := aggregate.GroupBy(records, models.DimCategory, aggregate.Volume)

	return &SalesTab{
		Metric:     Metric{Label: "Quantidade de vendas", Value: value},
		StateMap:   mapPoints(states, aggregate.Volume),
		Monthly:    MonthlySeries(aggregate.Monthly(records), aggregate.Volume),
		TopStates:  bars(aggregate.Top(states, statesOrDefault(topStates)), aggregate.Volume),
		Categories: bars(categories, aggregate.Volume),
	}, nil
}

// BuildSellersTab ranks sellers by revenue and by sales volume and sums the
// metric over the n leading sellers of each ranking.
func BuildSellersTab(records []models.SalesRecord, n int) (*SellersTab, error) {
	n = ClampSellers(n)

	byRevenue := aggregate.Top(aggregate.GroupBy(records, models.DimSeller, aggregate.Revenue), n)
	bySales := aggregate.Top(aggregate.GroupBy(records, models.DimSeller, aggregate.Volume), n)

	revenue := decimal.Zero
	for _, g := range byRevenue {
		revenue = revenue.Add(g.Revenue)
	}
	var sales int
	for _, g := range bySales {
		sales += g.Sales
	}

	revenueValue, err := formatDecimal(revenue, "R$")
	if err != nil {
		return nil, err
	}
	salesValue, err := FormatMagnitude(float64(sales), "")
	if err != nil {
		return nil, err
	}

	revenueLabel := "Receita gerada por esses vendedores"
	salesLabel := "Vendas geradas por esses vendedores"
	if n == 1 && len(byRevenue) == 1 {
		revenueLabel = "Receita gerada por " + byRevenue[0].Key
	}
	if n == 1 && len(bySales) == 1 {
		salesLabel = "Vendas feitas por " + bySales[0].Key
	}

	return &SellersTab{
		Count:         n,
		RevenueMetric: Metric{Label: revenueLabel, Value: revenueValue},
		SalesMetric:   Metric{Label: salesLabel, Value: salesValue},
		ByRevenue:     bars(byRevenue, aggregate.Revenue),
		BySales:       bars(bySales, aggregate.Volume),
	}, nil
}

// MonthlySeries derives the chart axes (year, month number and name) from
// calendar-month buckets.
func MonthlySeries(buckets []models.MonthlyBucket, red aggregate.Reduction) []MonthlyPoint {
	points := make([]MonthlyPoint, 0, len(buckets))
	for _, b := range buckets {
		value := b.Revenue.InexactFloat64()
		if red == aggregate.Volume {
			value = float64(b.Sales)
		}
		month := int(b.Month.Month())
		points = append(points, MonthlyPoint{
			Year:      b.Month.Year(),
			Month:     month,
			MonthName: MonthName(month),
			Value:     value,
		})
	}
	return points
}

func WaterfallBars(rows []models.WaterfallRow) []WaterfallBar {
	out := make([]WaterfallBar, 0, len(rows))
	for _, r := range rows {
		out = append(out, WaterfallBar{
			Label:   r.Label,
			Value:   r.Value.InexactFloat64(),
			Text:    MillionsText(r.Value),
			Measure: r.Measure,
		})
	}
	return out
}

func mapPoints(groups []models.AggregatedGroup, red aggregate.Reduction) []MapPoint {
	out := make([]MapPoint, 0, len(groups))
	for _, g := range groups {
		out = append(out, MapPoint{
			Location: g.Key,
			Lat:      g.Lat,
			Lon:      g.Lon,
			Value:    aggregate.Value(g, red).InexactFloat64(),
		})
	}
	return out
}

func bars(groups []models.AggregatedGroup, red aggregate.Reduction) []Bar {
	out := make([]Bar, 0, len(groups))
	for _, g := range groups {
		out = append(out, Bar{Label: g.Key, Value: aggregate.Value(g, red).InexactFloat64()})
	}
	return out
}

func statesOrDefault(n int) int {
	if n <= 0 {
		return DefaultStates
	}
	return n
}
