package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SalesRecord struct {
	Product      string          `json:"product"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Freight      decimal.Decimal `json:"freight"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Seller       string          `json:"seller"`
	Location     string          `json:"location"`
	Lat          float64         `json:"lat"`
	Lon          float64         `json:"lon"`
	Rating       int             `json:"rating"`
	PaymentType  string          `json:"payment_type"`
	Installments int             `json:"installments"`
}

// AggregatedGroup is one row of a grouped reduction. Lat and Lon come from
// the first record seen for the key and are only meaningful for location groups.
type AggregatedGroup struct {
	Key     string          `json:"key"`
	Revenue decimal.Decimal `json:"revenue"`
	Sales   int             `json:"sales"`
	Lat     float64         `json:"lat,omitempty"`
	Lon     float64         `json:"lon,omitempty"`
}

type MonthlyBucket struct {
	Month   time.Time       `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Sales   int             `json:"sales"`
}

type Measure string

const (
	MeasureIncremental Measure = "incremental"
	MeasureTotal       Measure = "total"
)

type WaterfallRow struct {
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
	Measure Measure         `json:"measure"`
}

// Dimension names a categorical column of SalesRecord. The values are the
// column names used by the data source and the CSV export.
type Dimension string

const (
	DimProduct     Dimension = "Produto"
	DimCategory    Dimension = "Categoria do Produto"
	DimSeller      Dimension = "Vendedor"
	DimLocation    Dimension = "Local da compra"
	DimPaymentType Dimension = "Tipo de pagamento"
)

// Value returns the record's value for a categorical dimension, or "" for an
// unknown one.
func (r SalesRecord) Value(d Dimension) string {
	switch d {
	case DimProduct:
		return r.Product
	case DimCategory:
		return r.Category
	case DimSeller:
		return r.Seller
	case DimLocation:
		return r.Location
	case DimPaymentType:
		return r.PaymentType
	default:
		return ""
	}
}

// CalendarDate drops the time of day, keeping the date as it reads in t's
// own location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
