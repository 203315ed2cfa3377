package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/greenbase/efsearch/internal/config"
	"github.com/greenbase/efsearch/internal/corpus"
	"github.com/greenbase/efsearch/internal/embedding"
	"github.com/greenbase/efsearch/internal/search"
)

func newTestServer(t *testing.T, embed embedding.EmbedderFunc) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	data := `[
		{"ef_id": 10, "gas": "CO2", "vector": [0, 0]},
		{"ef_id": 20, "gas": "CH4", "vector": [1, 0]},
		{"ef_id": 30, "gas": "N2O", "vector": [5, 5]}
	]`
	if err := os.WriteFile(filepath.Join(dir, "factors.json"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	svc := search.NewService(corpus.NewLoader(dir, nil), embed, nil)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return NewServer(svc, &cfg.Server, &cfg.Search, zap.NewNop()), dir
}

func postSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServer(t, func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 1}, nil
	})
	rec := postSearch(t, srv.Routes(), `{"query": "methane from cattle", "top_k": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].EFID != 20 {
		t.Errorf("first result ef_id = %d, want 20", resp.Results[0].EFID)
	}
	if len(resp.QueryVector) != 2 {
		t.Errorf("query_vector length = %d, want 2", len(resp.QueryVector))
	}
	if strings.Contains(rec.Body.String(), `"vector":[`) {
		t.Error("record vectors leaked into the response")
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 1}, nil
	})
	h := srv.Routes()

	for _, body := range []string{`{`, `{"query": ""}`, `{"query": "   "}`} {
		if rec := postSearch(t, h, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleSearch_ProviderDown(t *testing.T) {
	srv, _ := newTestServer(t, func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("%w: timeout", embedding.ErrUnavailable)
	})
	rec := postSearch(t, srv.Routes(), `{"query": "refrigerant leakage"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502; body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSearch_CorpusUnavailable(t *testing.T) {
	dir := t.TempDir() // no files
	svc := search.NewService(corpus.NewLoader(dir, nil), embedding.EmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 1}, nil
	}), nil)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	srv := NewServer(svc, &cfg.Server, &cfg.Search, zap.NewNop())

	rec := postSearch(t, srv.Routes(), `{"query": "iron and steel"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503; body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSearch_DegenerateVector(t *testing.T) {
	srv, _ := newTestServer(t, func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0, 0}, nil
	})
	rec := postSearch(t, srv.Routes(), `{"query": "solvent use"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 1}, nil
	})
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st search.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != search.StateUninitialized {
		t.Errorf("state = %s, want uninitialized before first search", st.State)
	}

	postSearch(t, h, `{"query": "wastewater treatment"}`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != search.StateReady || st.RecordCount != 3 {
		t.Errorf("status after search = %+v", st)
	}
}

func TestHandleReload(t *testing.T) {
	srv, dir := newTestServer(t, func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 1}, nil
	})
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d; body = %s", rec.Code, rec.Body.String())
	}

	extra := `[{"ef_id": 40, "vector": [2, 2]}]`
	if err := os.WriteFile(filepath.Join(dir, "more.json"), []byte(extra), 0644); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))
	var st search.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.RecordCount != 4 {
		t.Errorf("record_count after reload = %d, want 4", st.RecordCount)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 1}, nil
	})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health body = %s", rec.Body.String())
	}
}
