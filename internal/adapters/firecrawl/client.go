// internal/adapters/firecrawl/client.go
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"estate_search/internal/adapters/observability"
	"estate_search/internal/domain"
)

// Client is the secondary scrape backend. Firecrawl renders JavaScript-heavy
// pages and returns both HTML and markdown in one call, which makes it the
// best source for the structured extractors; it sits second in the chain only
// because of cost.
type Client struct {
	base string
	hc   *http.Client
	key  string
}

func New(base, key string) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 60 * time.Second},
		key:  key,
	}, nil
}

func (c *Client) Name() string { return "firecrawl" }

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		HTML     string `json:"html"`
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error"`
}

func (c *Client) Fetch(ctx context.Context, url string) (domain.RawContent, error) {
	payload, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"html", "markdown"}})
	if err != nil {
		return domain.RawContent{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v2/scrape", bytes.NewReader(payload))
	if err != nil {
		return domain.RawContent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.RawContent{}, ctx.Err()
		}
		observability.ObserveExternal("firecrawl", "scrape", 0, time.Since(start))
		return domain.RawContent{}, fmt.Errorf("firecrawl: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("firecrawl", "scrape", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.RawContent{}, fmt.Errorf("firecrawl: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.RawContent{}, fmt.Errorf("firecrawl: decode: %w", err)
	}
	if !out.Success {
		return domain.RawContent{}, fmt.Errorf("firecrawl: %s", out.Error)
	}
	return domain.RawContent{HTML: out.Data.HTML, Markdown: out.Data.Markdown}, nil
}
