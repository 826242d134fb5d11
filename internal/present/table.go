package present

import (
	"fmt"
	"slices"
	"strconv"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
)

// Column is one exportable field of a SalesRecord, named as the data source
// names it.
type Column struct {
	Name string
	Cell func(models.SalesRecord) string
}

// Columns lists every column in canonical order.
var Columns = []Column{
	{Name: "Produto", Cell: func(r models.SalesRecord) string { return r.Product }},
	{Name: "Categoria do Produto", Cell: func(r models.SalesRecord) string { return r.Category }},
	{Name: "Preço", Cell: func(r models.SalesRecord) string { return r.Price.String() }},
	{Name: "Frete", Cell: func(r models.SalesRecord) string { return r.Freight.String() }},
	{Name: "Data da Compra", Cell: func(r models.SalesRecord) string { return r.PurchaseDate.Format("2006-01-02") }},
	{Name: "Vendedor", Cell: func(r models.SalesRecord) string { return r.Seller }},
	{Name: "Local da compra", Cell: func(r models.SalesRecord) string { return r.Location }},
	{Name: "lat", Cell: func(r models.SalesRecord) string { return formatFloat(r.Lat) }},
	{Name: "lon", Cell: func(r models.SalesRecord) string { return formatFloat(r.Lon) }},
	{Name: "Avaliação da compra", Cell: func(r models.SalesRecord) string { return strconv.Itoa(r.Rating) }},
	{Name: "Tipo de pagamento", Cell: func(r models.SalesRecord) string { return r.PaymentType }},
	{Name: "Quantidade de parcelas", Cell: func(r models.SalesRecord) string { return strconv.Itoa(r.Installments) }},
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ColumnNames returns the names of all columns in canonical order.
func ColumnNames() []string {
	names := make([]string, 0, len(Columns))
	for _, c := range Columns {
		names = append(names, c.Name)
	}
	return names
}

// ParseColumns resolves a column subset. The result follows canonical order
// whatever order names come in; duplicates collapse. An empty request selects
// every column.
func ParseColumns(names []string) ([]Column, error) {
	if len(names) == 0 {
		return Columns, nil
	}

	for _, name := range names {
		if !slices.ContainsFunc(Columns, func(c Column) bool { return c.Name == name }) {
			return nil, errors.Validation(fmt.Sprintf("unknown column %q", name))
		}
	}

	selected := make([]Column, 0, len(names))
	for _, c := range Columns {
		if slices.Contains(names, c.Name) {
			selected = append(selected, c)
		}
	}
	return selected, nil
}

type Table struct {
	Header  []string   `json:"header"`
	Rows    [][]string `json:"rows"`
	RowsN   int        `json:"row_count"`
	ColumnN int        `json:"column_count"`
}

// BuildTable renders records into string cells for the chosen columns.
func BuildTable(records []models.SalesRecord, columns []Column) *Table {
	header := make([]string, 0, len(columns))
	for _, c := range columns {
		header = append(header, c.Name)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, 0, len(columns))
		for _, c := range columns {
			row = append(row, c.Cell(r))
		}
		rows = append(rows, row)
	}

	return &Table{
		Header:  header,
		Rows:    rows,
		RowsN:   len(rows),
		ColumnN: len(header),
	}
}
