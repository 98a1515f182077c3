package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const suggestPath = "/api/search/suggest"

type Suggestion struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

type suggestionDTO struct {
	ID    json.RawMessage `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]Suggestion]
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) { client.http = c }
}

// NewClient builds a suggestion client for the storefront at baseURL. After
// five consecutive failures the breaker opens for thirty seconds.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("baseURL[%s] is not valid: %w", baseURL, err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]Suggestion](gobreaker.Settings{
		Name:    "search-suggest",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return c, nil
}

func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	suggestions, err := c.breaker.Execute(func() ([]Suggestion, error) {
		return c.fetch(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("breaker.Execute: %w", err)
	}

	return suggestions, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]Suggestion, error) {
	endpoint := c.baseURL + suggestPath + "?" + url.Values{"q": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var dtos []suggestionDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("json.Decode: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(dtos))
	for i, dto := range dtos {
		id, err := parseID(dto.ID)
		if err != nil {
			return nil, fmt.Errorf("suggestion[%d]: %w", i, err)
		}

		suggestions = append(suggestions, Suggestion{
			ID:    id,
			Name:  dto.Name,
			Price: dto.Price,
			Image: dto.Image,
		})
	}

	return suggestions, nil
}

// parseID accepts string and numeric product ids.
func parseID(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("id[%s] is not valid: %w", raw, err)
	}

	return num.String(), nil
}
