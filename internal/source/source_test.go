package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
)

const sampleObject = `{
	"Produto": "Modelo de corpo humano",
	"Categoria do Produto": "brinquedos",
	"Preço": 219.08,
	"Frete": 9.6,
	"Data da Compra": "16/01/2022",
	"Vendedor": "Thiago Silva",
	"Local da compra": "BA",
	"lat": -13.29,
	"lon": -41.71,
	"Avaliação da compra": 4,
	"Tipo de pagamento": "cartao_credito",
	"Quantidade de parcelas": 8
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, url string, c cache.Cache) *Client {
	t.Helper()
	return NewClient(config.SourceConfig{
		URL:          url,
		Timeout:      2 * time.Second,
		RetryBackoff: time.Millisecond,
	}, c, testLogger())
}

func TestNormalize(t *testing.T) {
	records, err := Normalize(context.Background(), []byte("["+sampleObject+"]"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}

	r := records[0]
	if r.Product != "Modelo de corpo humano" || r.Seller != "Thiago Silva" || r.Location != "BA" {
		t.Errorf("strings = %+v", r)
	}
	if !r.Price.Equal(decimal.RequireFromString("219.08")) || !r.Freight.Equal(decimal.RequireFromString("9.6")) {
		t.Errorf("money = %s / %s", r.Price, r.Freight)
	}
	if !r.PurchaseDate.Equal(time.Date(2022, 1, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PurchaseDate = %v", r.PurchaseDate)
	}
	if r.Rating != 4 || r.Installments != 8 || r.Lat != -13.29 || r.Lon != -41.71 {
		t.Errorf("numbers = %+v", r)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not an array", `{"Produto": "x"}`},
		{"not json", `<html>`},
		{"null payload", `null`},
		{"padded null payload", "  null \n"},
		{"null element", `[null]`},
		{"missing field", "[" + strings.Replace(sampleObject, `"Frete": 9.6,`, "", 1) + "]"},
		{"null field", "[" + strings.Replace(sampleObject, `"Frete": 9.6`, `"Frete": null`, 1) + "]"},
		{"iso date", "[" + strings.Replace(sampleObject, "16/01/2022", "2022-01-16", 1) + "]"},
		{"impossible date", "[" + strings.Replace(sampleObject, "16/01/2022", "31/02/2022", 1) + "]"},
		{"rating out of range", "[" + strings.Replace(sampleObject, `"Avaliação da compra": 4`, `"Avaliação da compra": 9`, 1) + "]"},
		{"wrong type", "[" + strings.Replace(sampleObject, `"Preço": 219.08`, `"Preço": true`, 1) + "]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(context.Background(), []byte(tt.payload))
			if !errors.HasCode(err, errors.CodeMalformedData) {
				t.Errorf("Normalize() error = %v, want malformed data", err)
			}
		})
	}
}

func TestNormalize_PreservesOrderAcrossBatches(t *testing.T) {
	n := batchSize*3 + 17
	objects := make([]string, n)
	for i := range objects {
		objects[i] = strings.Replace(sampleObject, `"Vendedor": "Thiago Silva"`, fmt.Sprintf(`"Vendedor": "v%d"`, i), 1)
	}

	records, err := Normalize(context.Background(), []byte("["+strings.Join(objects, ",")+"]"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(records) != n {
		t.Fatalf("len = %d, want %d", len(records), n)
	}
	for i, r := range records {
		if r.Seller != fmt.Sprintf("v%d", i) {
			t.Fatalf("record %d has seller %q", i, r.Seller)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	records, err := Normalize(context.Background(), []byte(`[]`))
	if err != nil || len(records) != 0 {
		t.Errorf("Normalize([]) = %v, %v", records, err)
	}
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		params  string
		wantErr bool
	}{
		{name: "zero value", q: Query{}, params: "ano=&regiao="},
		{name: "all regions", q: Query{Region: AllRegions}, params: "ano=&regiao="},
		{name: "region lowercased", q: Query{Region: "Centro-Oeste", Year: 2022}, params: "ano=2022&regiao=centro-oeste"},
		{name: "unknown region", q: Query{Region: "Leste"}, wantErr: true},
		{name: "short year", q: Query{Year: 22}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				if !errors.HasCode(err, errors.CodeValidation) {
					t.Fatalf("Validate() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got := tt.q.Params().Encode(); got != tt.params {
				t.Errorf("Params() = %q, want %q", got, tt.params)
			}
		})
	}
}

func TestClient_Fetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "["+sampleObject+"]")
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv.URL, nil).Fetch(context.Background(), Query{Region: "Sul", Year: 2021})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len = %d, want 1", len(records))
	}
	if gotQuery != "ano=2021&regiao=sul" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestClient_RetriesOnceOnServerError(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(status)
					return
				}
				io.WriteString(w, "["+sampleObject+"]")
			}))
			defer srv.Close()

			records, err := newTestClient(t, srv.URL, nil).Fetch(context.Background(), Query{})
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if len(records) != 1 {
				t.Errorf("len = %d", len(records))
			}
			if calls.Load() != 2 {
				t.Errorf("calls = %d, want 2", calls.Load())
			}
		})
	}
}

func TestClient_GivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Fetch(context.Background(), Query{})
	if !errors.HasCode(err, errors.CodeUpstream) {
		t.Fatalf("Fetch() error = %v, want upstream error", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Fetch(context.Background(), Query{})
	if !errors.HasCode(err, errors.CodeUpstream) {
		t.Fatalf("Fetch() error = %v, want upstream error", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(config.SourceConfig{
		URL:          srv.URL,
		Timeout:      50 * time.Millisecond,
		RetryBackoff: time.Millisecond,
	}, nil, testLogger())

	if _, err := client.Fetch(context.Background(), Query{}); !errors.HasCode(err, errors.CodeUpstream) {
		t.Fatalf("Fetch() error = %v, want upstream error", err)
	}
}

func TestClient_UsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, "["+sampleObject+"]")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, cache.NewMemory(time.Minute))
	ctx := context.Background()

	for range 3 {
		if _, err := client.Fetch(ctx, Query{Region: "Norte"}); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}

	if _, err := client.Fetch(ctx, Query{Region: "Sul"}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("a different query must miss the cache, calls = %d", calls.Load())
	}
}

func TestClient_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"Produto": "x"}})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Fetch(context.Background(), Query{})
	if !errors.HasCode(err, errors.CodeMalformedData) {
		t.Fatalf("Fetch() error = %v, want malformed data", err)
	}
}

func TestClient_PayloadTooLarge(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, "["+sampleObject+"]")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.maxBytes = 64

	_, err := client.Fetch(context.Background(), Query{})
	if !errors.HasCode(err, errors.CodeMalformedData) {
		t.Fatalf("Fetch() error = %v, want malformed data", err)
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("error should name the size limit, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("an oversized payload must not be retried, calls = %d", calls.Load())
	}
}

func TestClient_PayloadAtLimit(t *testing.T) {
	payload := "[" + sampleObject + "]"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.maxBytes = int64(len(payload))

	records, err := client.Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len = %d, want 1", len(records))
	}
}
