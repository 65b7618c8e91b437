package gnews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/samvad-hq/gnews-go/pkg/httpclient"
)

const (
	DefaultAPIVersion = "v4"
	DefaultMaxWait    = 10 * time.Second
	DefaultEndpoint   = "https://gnews.io"

	EndpointHeadlines = "top-headlines"
	EndpointSearch    = "search"
)

// Options configures a Client. Every field is optional.
type Options struct {
	// APIVersion selects the path segment after /api/. Default "v4".
	APIVersion string
	// MaxWait bounds every call. Zero selects DefaultMaxWait; negative is rejected.
	MaxWait time.Duration
	// Endpoint is the scheme and host of the API. Default "https://gnews.io".
	Endpoint string
	// HTTPClient performs the GETs. Default is a resty-backed client.
	HTTPClient httpclient.Client
	// UserAgent is set on the default HTTP client.
	UserAgent string
	Logger    Logger
	Observer  Observer
}

// Client talks to the GNews API. Its configuration is fixed at construction
// and it is safe for concurrent use.
type Client struct {
	apiKey   string
	version  string
	maxWait  time.Duration
	baseURL  string
	http     httpclient.Client
	log      Logger
	observer Observer
}

// New builds a Client for apiKey. No network call is made.
func New(apiKey string, opts Options) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &ConfigurationError{Field: "apiKey", Reason: "API key is required"}
	}
	if opts.MaxWait < 0 {
		return nil, &ConfigurationError{Field: "maxWait", Reason: fmt.Sprintf("must not be negative, got %s", opts.MaxWait)}
	}

	version := strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	if version == "" {
		version = DefaultAPIVersion
	}
	maxWait := opts.MaxWait
	if maxWait == 0 {
		maxWait = DefaultMaxWait
	}
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		apiKey:   apiKey,
		version:  version,
		maxWait:  maxWait,
		baseURL:  endpoint + "/api/" + version,
		http:     opts.HTTPClient,
		log:      opts.Logger,
		observer: opts.Observer,
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(httpclient.Options{UserAgent: opts.UserAgent})
	}
	if c.log == nil {
		c.log = noopLogger{}
	}
	if c.observer == nil {
		c.observer = noopObserver{}
	}
	return c, nil
}

// BaseURL returns <endpoint>/api/<version>.
func (c *Client) BaseURL() string { return c.baseURL }

// APIVersion returns the configured API version.
func (c *Client) APIVersion() string { return c.version }

// MaxWait returns the bounded wait applied to every call.
func (c *Client) MaxWait() time.Duration { return c.maxWait }

// Headlines fetches top headlines. All parameters are optional.
func (c *Client) Headlines(ctx context.Context, params Params) (*NewsResponse, error) {
	return c.request(ctx, EndpointHeadlines, params)
}

// Search fetches articles matching q. The explicit q takes precedence over a
// "q" key in params; params itself is not modified. An empty q fails with a
// ValidationError before anything is sent.
func (c *Client) Search(ctx context.Context, q string, params Params) (*NewsResponse, error) {
	if strings.TrimSpace(q) == "" {
		return nil, &ValidationError{Field: "q", Reason: "search query is required"}
	}
	merged := make(Params, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	merged["q"] = q
	return c.request(ctx, EndpointSearch, merged)
}

// SearchParams is the single-argument form of Search: the term is read from params["q"].
func (c *Client) SearchParams(ctx context.Context, params Params) (*NewsResponse, error) {
	q, _ := formatValue(params["q"])
	return c.Search(ctx, q, params)
}

func (c *Client) request(ctx context.Context, endpoint string, params Params) (*NewsResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target := c.BuildURL(endpoint, params)

	callCtx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	start := time.Now()
	c.log.DebugObj("gnews request dispatched", "gnews_request", map[string]any{
		"endpoint": endpoint,
		"url":      redactURL(target),
		"max_wait": c.maxWait.String(),
	})

	resp, err := c.http.Get(callCtx, target, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, c.fail(endpoint, start, c.transportError(ctx, callCtx, err))
	}

	body := resp.Body()
	status := resp.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, c.fail(endpoint, start, &APIError{StatusCode: status, Message: errorMessage(status, body)})
	}

	var out NewsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, c.fail(endpoint, start, &APIError{StatusCode: status, Message: "malformed response body", Err: err})
	}

	c.observer.ObserveRequest(endpoint, OutcomeSuccess, time.Since(start))
	c.log.DebugObj("gnews request completed", "gnews_response", map[string]any{
		"endpoint":       endpoint,
		"status":         status,
		"total_articles": out.TotalArticles,
		"articles":       len(out.Articles),
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
	return &out, nil
}

// transportError separates our own deadline from the caller cancelling parent.
func (c *Client) transportError(parent, callCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Wait: c.maxWait}
	}
	return &NetworkError{Err: redactError(err)}
}

func (c *Client) fail(endpoint string, start time.Time, err error) error {
	outcome := OutcomeNetworkError
	var (
		apiErr     *APIError
		timeoutErr *TimeoutError
	)
	switch {
	case errors.As(err, &timeoutErr):
		outcome = OutcomeTimeout
	case errors.As(err, &apiErr):
		outcome = OutcomeAPIError
	}
	c.observer.ObserveRequest(endpoint, outcome, time.Since(start))
	c.log.WarnObj("gnews request failed", "gnews_error", map[string]any{
		"endpoint": endpoint,
		"outcome":  outcome,
		"error":    err.Error(),
	})
	return err
}

// errorBody covers the error shapes the API has used.
type errorBody struct {
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
}

// errorMessage extracts a server-provided message, falling back to "HTTP Error: <status>".
func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP Error: %d", status)
	if len(body) == 0 {
		return fallback
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(eb.Error); msg != "" {
		return msg
	}
	if msg := joinErrors(eb.Errors); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(eb.Message); msg != "" {
		return msg
	}
	return fallback
}

func joinErrors(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(nonEmpty(list), "; ")
	}

	var byField map[string]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		keys := make([]string, 0, len(byField))
		for k := range byField {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, byField[k])
		}
		return strings.Join(nonEmpty(msgs), "; ")
	}
	return ""
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
