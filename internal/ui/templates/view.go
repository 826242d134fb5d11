package templates

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"time"

	"sales-dashboard/internal/present"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/source"
)

// DashboardPage is the state the dashboard page is rendered with. Query is
// the encoded query string the page was requested with; panels reload
// through SSE with the same parameters.
type DashboardPage struct {
	Query   string
	Params  url.Values
	Region  string
	Year    int
	Sellers int
	// SellerNames feeds the seller picker. Empty when the source could not
	// be read; the panels report that failure themselves.
	SellerNames []string
}

// RawDataPage carries the request's parameters so the filters and the
// download form can resubmit them.
type RawDataPage struct {
	Params   url.Values
	Options  *services.Options
	Selected []string
	Table    *present.Table
}

type hiddenField struct {
	Name  string
	Value string
}

type rangeField struct {
	Label  string
	Prefix string
	Low    string
	High   string
}

var rawDataRanges = []rangeField{
	{Label: "Preço", Prefix: "preco", Low: "0", High: "5000"},
	{Label: "Frete", Prefix: "frete", Low: "0", High: "250"},
	{Label: "Avaliação", Prefix: "avaliacao", Low: "0", High: "5"},
	{Label: "Parcelas", Prefix: "parcelas", Low: "0", High: "24"},
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

func refreshAction(query string) string {
	return "@get('" + withQuery("/sse/refresh-all", query) + "')"
}

// regionValue is the regiao parameter sent for a region choice.
func regionValue(region string) string {
	if region == source.AllRegions {
		return ""
	}
	return region
}

func isSelected(params url.Values, key, value string) bool {
	return slices.Contains(params[key], value)
}

// columnChecked reports whether a column box starts checked. No selection
// means every column.
func columnChecked(selected []string, name string) bool {
	return len(selected) == 0 || slices.Contains(selected, name)
}

func barValue(v float64, money bool) string {
	if money {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func sellersCaption(count int, ranking string) string {
	return fmt.Sprintf("Top %d vendedores (%s)", count, ranking)
}

// dateValue echoes a submitted date, falling back to the bound found in
// the data.
func dateValue(params url.Values, key string, fallback *time.Time) string {
	if v := params.Get(key); v != "" {
		return v
	}
	if fallback == nil {
		return ""
	}
	return fallback.Format(time.DateOnly)
}

// downloadFields carries the current filters into the CSV form. The file
// name is typed again.
func downloadFields(params url.Values) []hiddenField {
	var fields []hiddenField
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if key == "arquivo" {
			continue
		}
		for _, v := range params[key] {
			fields = append(fields, hiddenField{Name: key, Value: v})
		}
	}
	return fields
}
