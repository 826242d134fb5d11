package handlers

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const dateParamLayout = "2006-01-02"

// A range given by one end only extends to the domain extreme on the other.
var (
	maxMoney = decimal.New(1, 18)
	minMoney = maxMoney.Neg()
	maxDate  = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// parseRequest reads a render pass request from query parameters. Repeated
// membership parameters are OR-ed; a membership parameter present with only
// empty values selects nothing. A range is active as soon as one of its ends
// is given.
func parseRequest(values url.Values) (services.Request, error) {
	var req services.Request
	var err error

	req.Query.Region = strings.TrimSpace(values.Get("regiao"))
	if req.Query.Year, err = intParam(values, "ano", 0); err != nil {
		return req, err
	}
	if req.Sellers, err = intParam(values, "top", 0); err != nil {
		return req, err
	}

	c := &req.Criteria
	c.Products = selection(values, "produto")
	c.Categories = selection(values, "categoria")
	c.Sellers = selection(values, "vendedor")
	c.Locations = selection(values, "local")
	c.PaymentTypes = selection(values, "pagamento")

	if c.Price, err = decimalBounds(values, "preco"); err != nil {
		return req, err
	}
	if c.Freight, err = decimalBounds(values, "frete"); err != nil {
		return req, err
	}
	if c.Rating, err = intBounds(values, "avaliacao", 0, 5); err != nil {
		return req, err
	}
	if c.Installments, err = intBounds(values, "parcelas", 0, math.MaxInt); err != nil {
		return req, err
	}
	if c.PurchaseDate, err = dateBounds(values, "data_inicio", "data_fim"); err != nil {
		return req, err
	}

	if err := req.Query.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func selection(values url.Values, key string) filter.Selection {
	raw, ok := values[key]
	if !ok {
		return filter.Selection{}
	}
	picked := make([]string, 0, len(raw))
	for _, v := range raw {
		if v != "" {
			picked = append(picked, v)
		}
	}
	return filter.Only(picked...)
}

func intParam(values url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequestWrap(err, fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

func decimalBounds(values url.Values, prefix string) (filter.Bounds[decimal.Decimal], error) {
	lo, hi := values.Get(prefix+"_min"), values.Get(prefix+"_max")
	if lo == "" && hi == "" {
		return filter.Bounds[decimal.Decimal]{}, nil
	}

	b := filter.Between(minMoney, maxMoney)
	var err error
	if lo != "" {
		if b.Min, err = decimal.NewFromString(lo); err != nil {
			return b, errors.BadRequestWrap(err, prefix+"_min must be a number")
		}
	}
	if hi != "" {
		if b.Max, err = decimal.NewFromString(hi); err != nil {
			return b, errors.BadRequestWrap(err, prefix+"_max must be a number")
		}
	}
	return b, nil
}

func intBounds(values url.Values, prefix string, lo, hi int) (filter.Bounds[int], error) {
	if values.Get(prefix+"_min") == "" && values.Get(prefix+"_max") == "" {
		return filter.Bounds[int]{}, nil
	}

	minV, err := intParam(values, prefix+"_min", lo)
	if err != nil {
		return filter.Bounds[int]{}, err
	}
	maxV, err := intParam(values, prefix+"_max", hi)
	if err != nil {
		return filter.Bounds[int]{}, err
	}
	return filter.Between(minV, maxV), nil
}

func dateBounds(values url.Values, fromKey, toKey string) (filter.Bounds[time.Time], error) {
	from, to := values.Get(fromKey), values.Get(toKey)
	if from == "" && to == "" {
		return filter.Bounds[time.Time]{}, nil
	}

	b := filter.Between(time.Time{}, maxDate)
	if from != "" {
		d, err := time.Parse(dateParamLayout, from)
		if err != nil {
			return b, errors.BadRequestWrap(err, fromKey+" must be YYYY-MM-DD")
		}
		b.Min = models.CalendarDate(d)
	}
	if to != "" {
		d, err := time.Parse(dateParamLayout, to)
		if err != nil {
			return b, errors.BadRequestWrap(err, toKey+" must be YYYY-MM-DD")
		}
		b.Max = models.CalendarDate(d)
	}
	return b, nil
}
