package handlers

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/source"
)

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", raw, err)
	}
	return values
}

func TestParseRequest_Empty(t *testing.T) {
	req, err := parseRequest(url.Values{})
	if err != nil {
		t.Fatalf("parseRequest() error = %v", err)
	}
	if req.Query != (source.Query{}) || req.Sellers != 0 {
		t.Errorf("unexpected request %+v", req)
	}
	if len(req.Criteria.Predicates()) != 0 {
		t.Error("no parameters should produce no active constraints")
	}
}

func TestParseRequest_Query(t *testing.T) {
	req, err := parseRequest(mustQuery(t, "regiao=Nordeste&ano=2021&top=3"))
	if err != nil {
		t.Fatalf("parseRequest() error = %v", err)
	}
	if diff := cmp.Diff(source.Query{Region: "Nordeste", Year: 2021}, req.Query); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if req.Sellers != 3 {
		t.Errorf("Sellers = %d, want 3", req.Sellers)
	}
}

func TestParseRequest_Selections(t *testing.T) {
	req, err := parseRequest(mustQuery(t, "categoria=moveis&categoria=livros&vendedor=&local=SP"))
	if err != nil {
		t.Fatalf("parseRequest() error = %v", err)
	}

	tests := []struct {
		name string
		got  filter.Selection
		want filter.Selection
	}{
		{"repeated values", req.Criteria.Categories, filter.Only("moveis", "livros")},
		{"present but empty", req.Criteria.Sellers, filter.Only([]string{}...)},
		{"single value", req.Criteria.Locations, filter.Only("SP")},
		{"absent", req.Criteria.Products, filter.Selection{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("selection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRequest_Ranges(t *testing.T) {
	req, err := parseRequest(mustQuery(t,
		"preco_min=10.5&frete_max=20&avaliacao_min=4&parcelas_max=6&data_inicio=2022-02-01"))
	if err != nil {
		t.Fatalf("parseRequest() error = %v", err)
	}
	c := req.Criteria

	if !c.Price.Active || c.Price.Min.String() != "10.5" || !c.Price.Max.Equal(maxMoney) {
		t.Errorf("price bounds = %+v", c.Price)
	}
	if !c.Freight.Active || !c.Freight.Min.Equal(minMoney) || c.Freight.Max.String() != "20" {
		t.Errorf("freight bounds = %+v", c.Freight)
	}
	if c.Rating != filter.Between(4, 5) {
		t.Errorf("rating bounds = %+v", c.Rating)
	}
	if c.Installments != filter.Between(0, 6) {
		t.Errorf("installment bounds = %+v", c.Installments)
	}
	wantFrom := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	if !c.PurchaseDate.Active || !c.PurchaseDate.Min.Equal(wantFrom) || !c.PurchaseDate.Max.Equal(maxDate) {
		t.Errorf("date bounds = %+v", c.PurchaseDate)
	}
}

func TestParseRequest_OneEndedMoneyRange(t *testing.T) {
	req, err := parseRequest(mustQuery(t, "frete_max=20"))
	if err != nil {
		t.Fatalf("parseRequest() error = %v", err)
	}

	records := []models.SalesRecord{
		{Product: "estorno", Freight: decimal.NewFromInt(-5)},
		{Product: "padrao", Freight: decimal.NewFromInt(15)},
		{Product: "caro", Freight: decimal.NewFromInt(25)},
	}
	kept, err := filter.Apply(records, req.Criteria)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var got []string
	for _, r := range kept {
		got = append(got, r.Product)
	}
	if diff := cmp.Diff([]string{"estorno", "padrao"}, got); diff != "" {
		t.Errorf("kept products (-want +got):\n%s", diff)
	}
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		query string
		code  errors.ErrorCode
	}{
		{"ano=dois-mil", errors.CodeBadRequest},
		{"top=muitos", errors.CodeBadRequest},
		{"preco_max=caro", errors.CodeBadRequest},
		{"frete_min=1,5", errors.CodeBadRequest},
		{"avaliacao_min=x", errors.CodeBadRequest},
		{"data_fim=31/12/2022", errors.CodeBadRequest},
		{"regiao=Atlantida", errors.CodeValidation},
		{"ano=22", errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := parseRequest(mustQuery(t, tt.query))
			if !errors.HasCode(err, tt.code) {
				t.Errorf("parseRequest(%q) error = %v, want code %s", tt.query, err, tt.code)
			}
		})
	}
}

func TestColumnsParam(t *testing.T) {
	got := columnsParam(mustQuery(t, "colunas=Produto,%20Frete&colunas=Vendedor&colunas="))
	want := []string{"Produto", "Frete", "Vendedor"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("columnsParam() mismatch (-want +got):\n%s", diff)
	}
}
