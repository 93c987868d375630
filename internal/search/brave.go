package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	resultCount     = 3

	cacheTTL      = 15 * time.Minute
	cacheCleanup  = 30 * time.Minute
	maxRetries    = 3
	clientTimeout = 15 * time.Second
)

// Result is a single web search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type braveResponse struct {
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

// Client queries the Brave web search API. A nil or key-less client is valid
// and returns no results, so callers do not need to special-case a missing
// API key.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	cache      *gocache.Cache
}

// NewClient creates a search client. An empty apiKey disables searching.
func NewClient(logger *slog.Logger, apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: clientTimeout},
		logger:     logger,
		cache:      gocache.New(cacheTTL, cacheCleanup),
	}
}

// Enabled reports whether the client has an API key to search with.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Search runs a web search for query, returning up to 3 results. Results are
// cached in-process so watch mode does not re-query the same attendee every
// tick. Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Enabled() {
		return nil, nil
	}

	if cached, ok := c.cache.Get(query); ok {
		c.logger.Debug("Search cache hit", "query", query)
		return cached.([]Result), nil
	}

	var results []Result
	operation := func() error {
		var err error
		results, err = c.doSearch(ctx, query)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	c.cache.Set(query, results, gocache.DefaultExpiration)
	return results, nil
}

func (c *Client) doSearch(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprint(resultCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	default:
		// Client errors (bad key, bad request) will not get better on retry.
		return nil, backoff.Permanent(fmt.Errorf("search API returned status %d", resp.StatusCode))
	}

	var body braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode search response: %w", err))
	}

	return body.Web.Results, nil
}
