package source

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"sales-dashboard/internal/errors"
)

// AllRegions is the region choice that sends no regiao filter upstream.
const AllRegions = "Todas"

var Regions = []string{AllRegions, "Centro-Oeste", "Nordeste", "Norte", "Sudeste", "Sul"}

// Years offered by the dashboard's year picker. Any four digit year is
// accepted by Query.
var Years = []int{2020, 2021, 2022, 2023}

// Query holds the filters applied by the data source itself. The zero value
// fetches every record.
type Query struct {
	Region string
	Year   int
}

func (q Query) Validate() error {
	if q.Region != "" && !slices.Contains(Regions, q.Region) {
		return errors.Validation(fmt.Sprintf("unknown region %q", q.Region))
	}
	if q.Year != 0 && (q.Year < 1000 || q.Year > 9999) {
		return errors.Validation(fmt.Sprintf("year must have four digits, got %d", q.Year))
	}
	return nil
}

// Params encodes the query as the data source expects it: region lowercased,
// empty values for "all".
func (q Query) Params() url.Values {
	region := ""
	if q.Region != "" && q.Region != AllRegions {
		region = strings.ToLower(q.Region)
	}
	year := ""
	if q.Year != 0 {
		year = strconv.Itoa(q.Year)
	}
	return url.Values{"regiao": {region}, "ano": {year}}
}

// Key identifies the query for caching.
func (q Query) Key() string {
	p := q.Params()
	return p.Get("regiao") + "|" + p.Get("ano")
}
