package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the NewsNow-compatible aggregation endpoint.
const DefaultAPIURL = "https://newsnow.busiyi.world/api/s"

var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	"Connection":      "keep-alive",
	"Cache-Control":   "no-cache",
}

// Client fetches one source's ranked items from the keyed API, with bounded
// retry and randomized backoff.
type Client struct {
	httpc      *http.Client
	apiURL     string
	registry   *Registry
	maxRetries int
	minWait    time.Duration
	maxWait    time.Duration
}

// ClientOpts tunes retry behavior. Zero values get defaults.
type ClientOpts struct {
	APIURL     string
	Timeout    time.Duration
	MaxRetries int // extra attempts after the first (default 2)
	MinWait    time.Duration
	MaxWait    time.Duration
}

// NewClient creates an API client for the given registry.
func NewClient(registry *Registry, opts ClientOpts) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	if opts.MinWait <= 0 {
		opts.MinWait = 3 * time.Second
	}
	if opts.MaxWait < opts.MinWait {
		opts.MaxWait = opts.MinWait + 2*time.Second
	}
	return &Client{
		httpc:      &http.Client{Timeout: opts.Timeout},
		apiURL:     opts.APIURL,
		registry:   registry,
		maxRetries: opts.MaxRetries,
		minWait:    opts.MinWait,
		maxWait:    opts.MaxWait,
	}
}

type apiResponse struct {
	Status string `json:"status"`
	Items  []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		MobileURL string `json:"mobileUrl"`
	} `json:"items"`
}

// Fetch retrieves the ranked items for one source key. On exhaustion it
// returns a *Failure carrying the key, display name and last error; it never
// panics past this boundary.
func (c *Client) Fetch(ctx context.Context, key string) (*ParsedSource, error) {
	name := c.registry.Name(key)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Randomized backoff growing with the attempt number so many
			// sources retrying at once don't fall into lockstep.
			base := c.minWait + time.Duration(rand.Int63n(int64(c.maxWait-c.minWait)+1))
			jitter := time.Duration(attempt-1) * (time.Second + time.Duration(rand.Int63n(int64(time.Second))))
			if err := sleepCtx(ctx, base+jitter); err != nil {
				return nil, &Failure{Key: key, Name: name, Err: err}
			}
		}

		parsed, err := c.fetchOnce(ctx, key, name)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &Failure{Key: key, Name: name, Err: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, key, name string) (*ParsedSource, error) {
	url := fmt.Sprintf("%s?id=%s&latest", c.apiURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", key, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	if body.Status != "success" && body.Status != "cache" {
		return nil, fmt.Errorf("fetch %s: unexpected status %q", key, body.Status)
	}

	parsed := &ParsedSource{Key: key, Name: name, Status: body.Status}
	now := time.Now()
	for i, it := range body.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			// Malformed upstream payloads occasionally carry null or blank
			// titles; skip the entry but keep its rank position.
			continue
		}
		parsed.Items = append(parsed.Items, Item{
			Title:      title,
			SourceKey:  key,
			SourceName: name,
			Rank:       i + 1,
			URL:        it.URL,
			MobileURL:  it.MobileURL,
			FetchedAt:  now,
		})
	}
	return parsed, nil
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
