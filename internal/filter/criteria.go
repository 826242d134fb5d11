package filter

import (
	"cmp"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
)

// Selection is a membership constraint. The zero value is inactive and
// accepts every value. An active selection accepts only the listed values,
// so an active selection with no values accepts nothing.
type Selection struct {
	Active bool
	Values []string
}

// Only builds an active selection.
func Only(values ...string) Selection {
	return Selection{Active: true, Values: values}
}

// Bounds is an inclusive [Min, Max] constraint. The zero value is inactive.
type Bounds[T any] struct {
	Min    T
	Max    T
	Active bool
}

func Between[T any](lo, hi T) Bounds[T] {
	return Bounds[T]{Min: lo, Max: hi, Active: true}
}

// Criteria holds one constraint per filterable dimension. The zero value
// selects everything.
type Criteria struct {
	Products     Selection
	Categories   Selection
	Sellers      Selection
	Locations    Selection
	PaymentTypes Selection

	Price        Bounds[decimal.Decimal]
	Freight      Bounds[decimal.Decimal]
	Rating       Bounds[int]
	Installments Bounds[int]
	PurchaseDate Bounds[time.Time]
}

// Validate rejects inverted ranges.
func (c Criteria) Validate() error {
	checks := []struct {
		name     string
		inverted bool
	}{
		{"preço", c.Price.Active && c.Price.Min.GreaterThan(c.Price.Max)},
		{"frete", c.Freight.Active && c.Freight.Min.GreaterThan(c.Freight.Max)},
		{"avaliação", c.Rating.Active && c.Rating.Min > c.Rating.Max},
		{"parcelas", c.Installments.Active && c.Installments.Min > c.Installments.Max},
		{"data da compra", c.PurchaseDate.Active &&
			models.CalendarDate(c.PurchaseDate.Min).After(models.CalendarDate(c.PurchaseDate.Max))},
	}

	for _, check := range checks {
		if check.inverted {
			return errors.Validation(fmt.Sprintf("invalid %s range: minimum exceeds maximum", check.name))
		}
	}
	return nil
}

// Predicates returns the active constraints in evaluation order. Inactive
// dimensions contribute nothing.
func (c Criteria) Predicates() []Predicate {
	var preds []Predicate

	addSelection := func(dim models.Dimension, s Selection) {
		if s.Active {
			preds = append(preds, Membership(dim, s.Values))
		}
	}
	money := func(name string, get func(models.SalesRecord) decimal.Decimal, b Bounds[decimal.Decimal]) {
		if b.Active {
			preds = append(preds, InRange(name, get, decimal.Decimal.Cmp, b))
		}
	}
	count := func(name string, get func(models.SalesRecord) int, b Bounds[int]) {
		if b.Active {
			preds = append(preds, InRange(name, get, cmp.Compare[int], b))
		}
	}

	addSelection(models.DimProduct, c.Products)
	addSelection(models.DimCategory, c.Categories)
	money("Preço", func(r models.SalesRecord) decimal.Decimal { return r.Price }, c.Price)
	money("Frete", func(r models.SalesRecord) decimal.Decimal { return r.Freight }, c.Freight)
	if c.PurchaseDate.Active {
		days := Between(models.CalendarDate(c.PurchaseDate.Min), models.CalendarDate(c.PurchaseDate.Max))
		preds = append(preds, InRange("Data da Compra",
			func(r models.SalesRecord) time.Time { return models.CalendarDate(r.PurchaseDate) },
			time.Time.Compare, days))
	}
	addSelection(models.DimSeller, c.Sellers)
	addSelection(models.DimLocation, c.Locations)
	count("Avaliação da compra", func(r models.SalesRecord) int { return r.Rating }, c.Rating)
	addSelection(models.DimPaymentType, c.PaymentTypes)
	count("Quantidade de parcelas", func(r models.SalesRecord) int { return r.Installments }, c.Installments)

	return preds
}
