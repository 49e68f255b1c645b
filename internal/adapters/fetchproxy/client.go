// internal/adapters/fetchproxy/client.go
package fetchproxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"estate_search/internal/adapters/observability"
	"estate_search/internal/domain"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

const maxBodyBytes = 4 << 20 // listing pages past 4 MiB are not worth parsing

// Client is the last-resort scrape backend: a direct GET with a browser
// user agent. No rendering, no proxying; it only works against sites that
// serve full HTML to plain clients.
type Client struct {
	hc *http.Client
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{hc: &http.Client{Timeout: timeout}}
}

func (c *Client) Name() string { return "direct" }

func (c *Client) Fetch(ctx context.Context, url string) (domain.RawContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.RawContent{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-PT,pt;q=0.9,en;q=0.5")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.RawContent{}, ctx.Err()
		}
		observability.ObserveExternal("direct", "get", 0, time.Since(start))
		return domain.RawContent{}, fmt.Errorf("direct fetch: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("direct", "get", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return domain.RawContent{}, fmt.Errorf("direct fetch: status %d: %w", resp.StatusCode, domain.ErrSourceUnavailable)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.RawContent{}, fmt.Errorf("direct fetch: read: %w", err)
	}
	return domain.RawContent{HTML: string(body)}, nil
}
