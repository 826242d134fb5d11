package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/present"
)

func TestWriteCSV(t *testing.T) {
	records := []models.SalesRecord{
		{Product: "Cadeira, estofada", Seller: "Ana", Price: decimal.RequireFromString("1200.5"),
			PurchaseDate: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Product: "Livro", Seller: "Bruno", Price: decimal.RequireFromString("35"),
			PurchaseDate: time.Date(2023, 7, 9, 0, 0, 0, 0, time.UTC)},
	}
	cols, err := present.ParseColumns([]string{"Preço", "Produto", "Data da Compra"})
	if err != nil {
		t.Fatalf("ParseColumns() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, present.BuildTable(records, cols)); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "Produto,Preço,Data da Compra\n" +
		"\"Cadeira, estofada\",1200.5,2022-03-01\n" +
		"Livro,35,2023-07-09\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, present.BuildTable(nil, present.Columns[:2])); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if got := buf.String(); got != "Produto,Categoria do Produto\n" {
		t.Errorf("WriteCSV() = %q", got)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "dados.csv"},
		{"  ", "dados.csv"},
		{"vendas", "vendas.csv"},
		{"vendas.csv", "vendas.csv"},
		{"../../etc/passwd", "passwd.csv"},
		{`a"b`, "ab.csv"},
		{`dir\file`, "file.csv"},
	}
	for _, tt := range tests {
		if got := FileName(tt.in); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
