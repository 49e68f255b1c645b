// internal/adapters/brightdata/client.go
package brightdata

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"estate_search/internal/adapters/observability"
	"estate_search/internal/domain"
)

// Client talks to the Bright Data proxy API: the SERP endpoint for web
// search and the Web Unlocker endpoint for fetching pages as markdown.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 40 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) Name() string { return "brightdata" }

type serpResponse struct {
	Organic []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
	} `json:"organic"`
}

// Search runs the query through the SERP endpoint and returns organic hits.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchHit, error) {
	body := map[string]any{"query": query, "country": "pt"}
	var out serpResponse
	if err := c.post(ctx, c.base+"/serp", "serp", body, &out); err != nil {
		return nil, fmt.Errorf("brightdata search: %w", err)
	}
	hits := make([]domain.SearchHit, 0, len(out.Organic))
	for _, o := range out.Organic {
		if o.Link == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{Title: o.Title, URL: o.Link, Description: o.Description})
	}
	return hits, nil
}

type scrapeResponse struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Fetch retrieves one page through the unlocker endpoint. Markdown is the
// preferred format; some targets also return the raw HTML.
func (c *Client) Fetch(ctx context.Context, url string) (domain.RawContent, error) {
	body := map[string]any{"url": url, "format": "markdown"}
	var out scrapeResponse
	if err := c.post(ctx, c.base+"/scrape", "scrape", body, &out); err != nil {
		return domain.RawContent{}, fmt.Errorf("brightdata fetch: %w", err)
	}
	return domain.RawContent{HTML: out.HTML, Markdown: out.Markdown}, nil
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("brightdata: not found")
	ErrUnauthorized = errors.New("brightdata: unauthorized")
	ErrForbidden    = errors.New("brightdata: forbidden")
)

// post performs a POST with client-side rate limiting, retries, and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After.
func (c *Client) post(ctx context.Context, url, endpoint string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "estate-search/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("brightdata", endpoint, 0, time.Since(start))
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("brightdata", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
