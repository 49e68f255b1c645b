package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "estate_search/internal/adapters/http_server"
	"estate_search/internal/app"
	"estate_search/internal/domain"
	"estate_search/internal/extract"
	"estate_search/internal/session"
)

type stubProvider struct {
	hits []domain.SearchHit
	err  error
}

func (s *stubProvider) Search(ctx context.Context, q string) ([]domain.SearchHit, error) {
	return s.hits, s.err
}

type stubFetcher struct{ pages map[string]domain.RawContent }

func (s *stubFetcher) Fetch(ctx context.Context, url string) (domain.RawContent, error) {
	if c, ok := s.pages[url]; ok {
		return c, nil
	}
	return domain.RawContent{}, domain.ErrAllBackendsFailed
}

func newTestServer(t *testing.T, provider domain.SearchProvider, fetcher app.Fetcher) (*httptest.Server, *session.Bus) {
	t.Helper()
	bus := session.NewBus(10*time.Millisecond, 0)
	t.Cleanup(bus.Close)

	svc := app.NewSearchService(provider, fetcher, extract.NewRegistry(),
		nil, nil, nil, nil, bus,
		app.Options{AllowedDomains: []string{"example.pt"}, Concurrency: 4})

	srv := httpserver.New(10 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{
		Svc: svc, Bus: bus,
		SearchWait: 5 * time.Second, GeocodeWait: 100 * time.Millisecond, POIWait: 100 * time.Millisecond,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, bus
}

func TestPostSearch_HappyPath(t *testing.T) {
	const feedURL = "https://example.pt/arrendar/faro"
	const detailURL = "https://example.pt/imovel/1000"
	fetcher := &stubFetcher{pages: map[string]domain.RawContent{
		feedURL: {HTML: `<html><body><article><a href="` + detailURL + `">Apartamento em Faro</a></article></body></html>`},
		detailURL: {HTML: `<html><head><meta property="og:street-address" content="Rua das Flores, Faro"></head>` +
			`<body><p>Apartamento T2 para alugar em Faro, 650 € por mês</p></body></html>`},
	}}
	ts, _ := newTestServer(t, &stubProvider{hits: []domain.SearchHit{{Title: "alugar em Faro", URL: feedURL}}}, fetcher)

	resp, err := http.Post(ts.URL+"/v1/searches", "application/json",
		strings.NewReader(`{"location":"Faro","budget_max":800,"bedrooms":2}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	var body struct {
		Status     string            `json:"status"`
		Properties []domain.Property `json:"properties"`
		Summary    string            `json:"summary"`
		TotalFound int               `json:"total_found"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != app.StatusCompleted {
		t.Fatalf("expected completed, got %s", body.Status)
	}
	if len(body.Properties) != 1 || body.TotalFound != 1 {
		t.Fatalf("expected 1 property, got %+v", body)
	}
	p := body.Properties[0]
	if p.URL != detailURL || p.Price.Amount == nil || *p.Price.Amount != 650 {
		t.Fatalf("unexpected property: %+v", p)
	}
	if p.MatchScore <= 0 || p.NegotiationScore <= 0 {
		t.Fatalf("scores missing: %+v", p)
	}
	if body.Summary == "" {
		t.Fatal("summary missing")
	}
}

func TestPostSearch_BadBody(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{}, &stubFetcher{})

	for _, payload := range []string{"{", `{"budget_max":800}`} {
		resp, err := http.Post(ts.URL+"/v1/searches", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("payload %q: expected 400, got %d", payload, resp.StatusCode)
		}
	}
}

func TestPostSearch_ProviderFailure(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{err: domain.ErrSourceUnavailable}, &stubFetcher{})

	resp, err := http.Post(ts.URL+"/v1/searches", "application/json", strings.NewReader(`{"location":"Faro"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem+json, got %s", ct)
	}
}

func TestPostNegotiation_UnconfiguredIs503(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{}, &stubFetcher{})

	resp, err := http.Post(ts.URL+"/v1/negotiations", "application/json",
		strings.NewReader(`{"address":"Rua X, Faro","leverage_score":7.5}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{}, &stubFetcher{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
