package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	adapter "github.com/neomorfeo/idledger/internal/adapter/http"
	"github.com/neomorfeo/idledger/internal/adapter/idgen"
	"github.com/neomorfeo/idledger/internal/adapter/logging"
	"github.com/neomorfeo/idledger/internal/adapter/sqlite"
	"github.com/neomorfeo/idledger/internal/app"
	"github.com/neomorfeo/idledger/internal/domain"
)

// fixedGenerator always returns the same raw value.
type fixedGenerator struct{ value string }

func (g fixedGenerator) Generate(_ domain.Variant) (string, error) {
	return g.value, nil
}

// newTestServer creates a full-stack httptest.Server with SQLite in-memory.
func newTestServer(t *testing.T, gen domain.IdentifierGenerator) *httptest.Server {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := app.NewLedgerService(repo, gen, logging.NopPublisher{}, 2, nil)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("idledger", "0.1.0"))
	adapter.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

// doRequest performs an HTTP request with context (avoids noctx linter).
func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

// mustGenerate generates an identifier via the API and returns its response.
func mustGenerate(t *testing.T, srv *httptest.Server, body string) adapter.RecordResponse {
	t.Helper()

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/identifiers", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var record adapter.RecordResponse
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode record: %v", err)
	}

	return record
}

// --- Generate ---

func TestGenerate(t *testing.T) {
	srv := newTestServer(t, idgen.New())
	record := mustGenerate(t, srv, `{"type":"v4","category":"session","prefix":"abc"}`)

	if !strings.HasPrefix(record.Value, "ABC-") {
		t.Errorf("Value = %q, want prefix %q", record.Value, "ABC-")
	}
	if record.Type != "v4" {
		t.Errorf("Type = %q, want %q", record.Type, "v4")
	}
	if record.Category != "session" {
		t.Errorf("Category = %q, want %q", record.Category, "session")
	}
	if record.Prefix != "ABC" {
		t.Errorf("Prefix = %q, want %q", record.Prefix, "ABC")
	}
	if record.CreatedAt == "" {
		t.Error("CreatedAt should not be empty")
	}
}

func TestGenerate_InvalidType(t *testing.T) {
	srv := newTestServer(t, idgen.New())

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/identifiers", `{"type":"v9"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestGenerate_InvalidPrefix(t *testing.T) {
	srv := newTestServer(t, idgen.New())

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/identifiers", `{"type":"v4","prefix":"a-b"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestGenerate_Duplicate(t *testing.T) {
	srv := newTestServer(t, fixedGenerator{value: "same"})
	mustGenerate(t, srv, `{"type":"v4"}`)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/identifiers", `{"type":"v4"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

// --- Get ---

func TestGet(t *testing.T) {
	srv := newTestServer(t, idgen.New())
	created := mustGenerate(t, srv, `{"type":"v1","category":"order"}`)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/identifiers/"+created.Value, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var record adapter.RecordResponse
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if record.Value != created.Value {
		t.Errorf("Value = %q, want %q", record.Value, created.Value)
	}
	if record.Category != "order" {
		t.Errorf("Category = %q, want %q", record.Category, "order")
	}
}

func TestGet_NotFound(t *testing.T) {
	srv := newTestServer(t, idgen.New())

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/identifiers/nonexistent", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- List ---

func TestList_FilterByType(t *testing.T) {
	srv := newTestServer(t, idgen.New())
	mustGenerate(t, srv, `{"type":"v4"}`)
	mustGenerate(t, srv, `{"type":"v4"}`)
	mustGenerate(t, srv, `{"type":"timestamp"}`)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/identifiers?type=v4", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var records []adapter.RecordResponse
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.Type != "v4" {
			t.Errorf("Type = %q, want %q", r.Type, "v4")
		}
	}
}

func TestList_InvalidType(t *testing.T) {
	srv := newTestServer(t, idgen.New())

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/identifiers?type=v9", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Stats ---

func TestStats(t *testing.T) {
	srv := newTestServer(t, idgen.New())
	for range 3 {
		mustGenerate(t, srv, `{"type":"v4","category":"session"}`)
	}
	for range 2 {
		mustGenerate(t, srv, `{"type":"v1","category":"order"}`)
	}

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/stats", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var stats adapter.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got := fmt.Sprint(stats.ByType); got != "map[v1:2 v4:3]" {
		t.Errorf("by_type = %s, want map[v1:2 v4:3]", got)
	}
	if got := fmt.Sprint(stats.ByCategory); got != "map[order:2 session:3]" {
		t.Errorf("by_category = %s, want map[order:2 session:3]", got)
	}
	if stats.Total != 5 {
		t.Errorf("total = %d, want 5", stats.Total)
	}
}
