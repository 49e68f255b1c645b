package brightdata_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"estate_search/internal/adapters/brightdata"
)

func TestClient_Search_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"organic": []map[string]any{
					{"title": "T2 em Faro", "link": "https://casa.sapo.pt/alugar/faro", "description": "apartamento"},
					{"title": "no link", "link": "", "description": "dropped"},
				},
			})
		}
	}))
	defer ts.Close()

	cl, err := brightdata.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cl.Search(ctx, "apartamentos para alugar em Faro")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hit (empty link dropped), got %d", len(got))
	}
	if got[0].URL != "https://casa.sapo.pt/alugar/faro" {
		t.Fatalf("unexpected hit: %+v", got[0])
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Fetch_Markdown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["url"] != "https://example.com/p" {
			t.Errorf("unexpected url in payload: %v", body["url"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"markdown": "# Listing\n\n$1,200/mo"})
	}))
	defer ts.Close()

	cl, err := brightdata.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	raw, err := cl.Fetch(ctx, "https://example.com/p")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if raw.Markdown == "" || raw.Empty() {
		t.Fatalf("expected markdown content, got %+v", raw)
	}
}

func TestClient_Fetch_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := brightdata.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err = cl.Fetch(ctx, "https://example.com/missing"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := brightdata.New("http://x", "", 5); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
