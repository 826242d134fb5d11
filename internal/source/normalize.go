package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
)

const (
	batchSize  = 2000
	maxWorkers = 8

	dateLayout = "2/1/2006"
)

// wireRecord mirrors one object of the source payload. Pointer fields tell a
// missing key apart from a zero value.
type wireRecord struct {
	Product      *string          `json:"Produto"`
	Category     *string          `json:"Categoria do Produto"`
	Price        *decimal.Decimal `json:"Preço"`
	Freight      *decimal.Decimal `json:"Frete"`
	PurchaseDate *string          `json:"Data da Compra"`
	Seller       *string          `json:"Vendedor"`
	Location     *string          `json:"Local da compra"`
	Lat          *float64         `json:"lat"`
	Lon          *float64         `json:"lon"`
	Rating       *int             `json:"Avaliação da compra"`
	PaymentType  *string          `json:"Tipo de pagamento"`
	Installments *int             `json:"Quantidade de parcelas"`
}

// Normalize decodes a JSON array of field-keyed objects into sales records.
// Large payloads are decoded in parallel batches; output order matches the
// payload. The first malformed object fails the whole payload.
func Normalize(ctx context.Context, payload []byte) ([]models.SalesRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.MalformedDataWrap(err, "source payload is not a JSON array")
	}
	if raw == nil {
		return nil, errors.MalformedData("source payload is null, want a JSON array")
	}

	records := make([]models.SalesRecord, len(raw))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(raw); start += batchSize {
		end := min(start+batchSize, len(raw))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec, err := decodeRecord(raw[i])
				if err != nil {
					return errors.MalformedDataWrap(err, fmt.Sprintf("record %d", i))
				}
				records[i] = rec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeRecord(data json.RawMessage) (models.SalesRecord, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return models.SalesRecord{}, err
	}
	if missing := w.missing(); len(missing) > 0 {
		return models.SalesRecord{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(*w.PurchaseDate))
	if err != nil {
		return models.SalesRecord{}, fmt.Errorf("Data da Compra %q is not DD/MM/YYYY", *w.PurchaseDate)
	}
	if *w.Rating < 0 || *w.Rating > 5 {
		return models.SalesRecord{}, fmt.Errorf("Avaliação da compra %d out of range 0..5", *w.Rating)
	}

	return models.SalesRecord{
		Product:      *w.Product,
		Category:     *w.Category,
		Price:        *w.Price,
		Freight:      *w.Freight,
		PurchaseDate: date,
		Seller:       *w.Seller,
		Location:     *w.Location,
		Lat:          *w.Lat,
		Lon:          *w.Lon,
		Rating:       *w.Rating,
		PaymentType:  *w.PaymentType,
		Installments: *w.Installments,
	}, nil
}

func (w *wireRecord) missing() []string {
	var out []string
	check := func(present bool, key string) {
		if !present {
			out = append(out, key)
		}
	}
	check(w.Product != nil, "Produto")
	check(w.Category != nil, "Categoria do Produto")
	check(w.Price != nil, "Preço")
	check(w.Freight != nil, "Frete")
	check(w.PurchaseDate != nil, "Data da Compra")
	check(w.Seller != nil, "Vendedor")
	check(w.Location != nil, "Local da compra")
	check(w.Lat != nil, "lat")
	check(w.Lon != nil, "lon")
	check(w.Rating != nil, "Avaliação da compra")
	check(w.PaymentType != nil, "Tipo de pagamento")
	check(w.Installments != nil, "Quantidade de parcelas")
	return out
}
