package filter

import (
	"time"

	"sales-dashboard/internal/models"
)

// Predicate is a single typed constraint over one field.
type Predicate interface {
	Field() string
	Match(r models.SalesRecord) bool
}

type membership struct {
	dim     models.Dimension
	allowed map[string]struct{}
}

// Membership accepts a record when its value for dim is one of values.
func Membership(dim models.Dimension, values []string) Predicate {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return membership{dim: dim, allowed: allowed}
}

func (m membership) Field() string { return string(m.dim) }

func (m membership) Match(r models.SalesRecord) bool {
	_, ok := m.allowed[r.Value(m.dim)]
	return ok
}

type inRange[T any] struct {
	field   string
	get     func(models.SalesRecord) T
	compare func(a, b T) int
	lo, hi  T
}

// InRange accepts a record when get(r) lies in [b.Min, b.Max] under compare.
func InRange[T any](field string, get func(models.SalesRecord) T, compare func(a, b T) int, b Bounds[T]) Predicate {
	return inRange[T]{field: field, get: get, compare: compare, lo: b.Min, hi: b.Max}
}

func (p inRange[T]) Field() string { return p.field }

func (p inRange[T]) Match(r models.SalesRecord) bool {
	v := p.get(r)
	return p.compare(v, p.lo) >= 0 && p.compare(v, p.hi) <= 0
}

// Apply returns a new slice with the records that satisfy every active
// constraint in c. records is never modified.
func Apply(records []models.SalesRecord, c Criteria) ([]models.SalesRecord, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return Match(records, c.Predicates()), nil
}

// Match keeps the records accepted by all predicates, evaluated in order.
func Match(records []models.SalesRecord, preds []Predicate) []models.SalesRecord {
	out := make([]models.SalesRecord, 0, len(records))
	for _, r := range records {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

func matchAll(r models.SalesRecord, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(r) {
			return false
		}
	}
	return true
}

// Distinct lists the values of dim in first-encounter order.
func Distinct(records []models.SalesRecord, dim models.Dimension) []string {
	seen := make(map[string]bool)
	values := make([]string, 0)
	for _, r := range records {
		v := r.Value(dim)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

// DateSpan returns the earliest and latest purchase dates. ok is false for
// an empty collection.
func DateSpan(records []models.SalesRecord) (first, last time.Time, ok bool) {
	for i, r := range records {
		d := models.CalendarDate(r.PurchaseDate)
		if i == 0 || d.Before(first) {
			first = d
		}
		if i == 0 || d.After(last) {
			last = d
		}
	}
	return first, last, len(records) > 0
}
