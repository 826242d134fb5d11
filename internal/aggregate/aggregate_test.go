package aggregate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

func rec(category, seller, location string, price string, date time.Time) models.SalesRecord {
	return models.SalesRecord{
		Product:      category + " item",
		Category:     category,
		Price:        decimal.RequireFromString(price),
		Freight:      decimal.Zero,
		PurchaseDate: date,
		Seller:       seller,
		Location:     location,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleRecords() []models.SalesRecord {
	return []models.SalesRecord{
		{Category: "livros", Seller: "Ana", Location: "SP", Lat: -22.19, Lon: -48.79,
			Price: decimal.RequireFromString("100.00"), PurchaseDate: day(2022, 1, 5)},
		{Category: "moveis", Seller: "Bruno", Location: "RJ", Lat: -22.25, Lon: -42.66,
			Price: decimal.RequireFromString("300.00"), PurchaseDate: day(2022, 1, 20)},
		{Category: "livros", Seller: "Ana", Location: "SP", Lat: -22.19, Lon: -48.79,
			Price: decimal.RequireFromString("50.25"), PurchaseDate: day(2022, 3, 2)},
		{Category: "esporte e lazer", Seller: "Carla", Location: "MG", Lat: -18.10, Lon: -44.38,
			Price: decimal.RequireFromString("200.00"), PurchaseDate: day(2023, 1, 7)},
		{Category: "moveis", Seller: "Ana", Location: "RJ", Lat: -22.25, Lon: -42.66,
			Price: decimal.RequireFromString("0.75"), PurchaseDate: day(2023, 1, 30)},
	}
}

func keys(groups []models.AggregatedGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Key)
	}
	return out
}

func TestGroupBy_Revenue(t *testing.T) {
	got := GroupBy(sampleRecords(), models.DimLocation, Revenue)

	if diff := cmp.Diff([]string{"RJ", "MG", "SP"}, keys(got)); diff != "" {
		t.Errorf("GroupBy() order (-want +got):\n%s", diff)
	}
	if !got[0].Revenue.Equal(decimal.RequireFromString("300.75")) {
		t.Errorf("RJ revenue = %s, want 300.75", got[0].Revenue)
	}
	if got[0].Sales != 2 {
		t.Errorf("RJ sales = %d, want 2", got[0].Sales)
	}
	if got[0].Lat != -22.25 || got[0].Lon != -42.66 {
		t.Errorf("RJ coordinates = %v,%v", got[0].Lat, got[0].Lon)
	}
}

func TestGroupBy_VolumeTiesAreStable(t *testing.T) {
	got := GroupBy(sampleRecords(), models.DimCategory, Volume)

	// livros and moveis both have two sales; livros is seen first.
	if diff := cmp.Diff([]string{"livros", "moveis", "esporte e lazer"}, keys(got)); diff != "" {
		t.Errorf("GroupBy() order (-want +got):\n%s", diff)
	}
}

func TestGroupBy_SortedDescending(t *testing.T) {
	for _, red := range []Reduction{Revenue, Volume} {
		t.Run(red.String(), func(t *testing.T) {
			for _, dim := range []models.Dimension{models.DimCategory, models.DimSeller, models.DimLocation} {
				got := GroupBy(sampleRecords(), dim, red)
				for i := 1; i < len(got); i++ {
					if Value(got[i-1], red).LessThan(Value(got[i], red)) {
						t.Errorf("%s: group %d (%s) ranks above a larger group", dim, i-1, got[i-1].Key)
					}
				}
			}
		})
	}
}

func TestGroupBy_KeysUnique(t *testing.T) {
	got := GroupBy(sampleRecords(), models.DimSeller, Revenue)
	seen := make(map[string]bool)
	for _, g := range got {
		if seen[g.Key] {
			t.Errorf("duplicate key %q", g.Key)
		}
		seen[g.Key] = true
	}
}

func TestGroupBy_Additivity(t *testing.T) {
	records := sampleRecords()
	whole, count := Totals(records)

	for _, dim := range []models.Dimension{models.DimCategory, models.DimSeller, models.DimLocation} {
		t.Run(string(dim), func(t *testing.T) {
			sum := decimal.Zero
			sales := 0
			for _, g := range GroupBy(records, dim, Revenue) {
				sum = sum.Add(g.Revenue)
				sales += g.Sales
			}
			if !sum.Equal(whole) {
				t.Errorf("sum of groups = %s, whole = %s", sum, whole)
			}
			if sales != count {
				t.Errorf("sum of counts = %d, whole = %d", sales, count)
			}
		})
	}
}

func TestGroupBy_Empty(t *testing.T) {
	got := GroupBy(nil, models.DimSeller, Revenue)
	if got == nil || len(got) != 0 {
		t.Errorf("GroupBy(nil) = %v, want empty slice", got)
	}
}

func TestTop(t *testing.T) {
	groups := GroupBy(sampleRecords(), models.DimSeller, Revenue)

	if got := Top(groups, 2); len(got) != 2 || got[0].Key != "Bruno" {
		t.Errorf("Top(2) = %v", keys(got))
	}
	if got := Top(groups, 10); len(got) != len(groups) {
		t.Errorf("Top(10) len = %d, want %d", len(got), len(groups))
	}
	if got := Top(groups, -1); len(got) != 0 {
		t.Errorf("Top(-1) len = %d, want 0", len(got))
	}
}

func TestMonthly(t *testing.T) {
	got := Monthly(sampleRecords())

	// 2022-01 through 2023-01 inclusive: 13 buckets.
	if len(got) != 13 {
		t.Fatalf("len = %d, want 13", len(got))
	}

	jan22 := got[0]
	if !jan22.Month.Equal(day(2022, 1, 1)) || jan22.Sales != 2 ||
		!jan22.Revenue.Equal(decimal.RequireFromString("400.00")) {
		t.Errorf("first bucket = %+v", jan22)
	}

	feb22 := got[1]
	if feb22.Sales != 0 || !feb22.Revenue.IsZero() {
		t.Errorf("gap month should be zero, got %+v", feb22)
	}

	jan23 := got[12]
	if !jan23.Month.Equal(day(2023, 1, 1)) || jan23.Sales != 2 {
		t.Errorf("January 2023 must not merge with January 2022, got %+v", jan23)
	}

	for i := 1; i < len(got); i++ {
		if !got[i].Month.After(got[i-1].Month) {
			t.Errorf("bucket %d is not after bucket %d", i, i-1)
		}
	}
}

func TestMonthly_Empty(t *testing.T) {
	if got := Monthly(nil); len(got) != 0 {
		t.Errorf("Monthly(nil) = %v", got)
	}
}

func TestWaterfall(t *testing.T) {
	records := []models.SalesRecord{
		rec("c", "x", "SP", "100", day(2022, 1, 1)),
		rec("a", "x", "SP", "300", day(2022, 1, 1)),
		rec("b", "x", "SP", "200", day(2022, 1, 1)),
	}

	got := Waterfall(records)

	want := []models.WaterfallRow{
		{Label: "a", Value: decimal.NewFromInt(300), Measure: models.MeasureIncremental},
		{Label: "b", Value: decimal.NewFromInt(200), Measure: models.MeasureIncremental},
		{Label: "c", Value: decimal.NewFromInt(100), Measure: models.MeasureIncremental},
		{Label: TotalLabel, Value: decimal.NewFromInt(600), Measure: models.MeasureTotal},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Waterfall() (-want +got):\n%s", diff)
	}
}

func TestWaterfall_TotalLastEvenWhenSmaller(t *testing.T) {
	groups := []models.AggregatedGroup{
		{Key: "devolucoes", Revenue: decimal.NewFromInt(-50)},
		{Key: "livros", Revenue: decimal.NewFromInt(20)},
	}

	got := WaterfallFrom(groups)
	last := got[len(got)-1]
	if last.Measure != models.MeasureTotal || !last.Value.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("last row = %+v, want total of -30", last)
	}
}

func TestWaterfall_Empty(t *testing.T) {
	got := Waterfall(nil)
	if len(got) != 1 || got[0].Measure != models.MeasureTotal || !got[0].Value.IsZero() {
		t.Errorf("Waterfall(nil) = %+v, want a single zero total", got)
	}
}

func BenchmarkGroupBy(b *testing.B) {
	base := sampleRecords()
	records := make([]models.SalesRecord, 0, 10000)
	for i := 0; i < 2000; i++ {
		records = append(records, base...)
	}

	b.ResetTimer()
	for b.Loop() {
		_ = GroupBy(records, models.DimSeller, Revenue)
	}
}
