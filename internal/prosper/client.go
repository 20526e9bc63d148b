// Package prosper is a client for the Prosper Insights survey-data API:
// question metadata, current results, historical trends, and the segment
// expression language the endpoints share.
package prosper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response lands in the error text.
const maxErrorBody = 200

// Cache is a read-through byte cache for API responses. internal/cache
// provides the SQLite implementation; a nil Cache disables caching.
type Cache interface {
	Get(key string, maxAge time.Duration) ([]byte, bool)
	Put(key string, payload []byte) error
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// Client talks to one study of the Prosper Insights API.
type Client struct {
	baseURL    string
	apiKey     string
	study      string
	httpClient *http.Client
	logger     *zap.Logger
	cache      Cache
	cacheTTL   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the transport, mainly for tests and
// callers that need their own timeout policy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger for request-level debug lines.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCache enables read-through caching of GET responses.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewClient validates the connection settings and builds a client.
// All three of baseURL, apiKey and study are required.
func NewClient(baseURL, apiKey, study string, opts ...Option) (*Client, error) {
	var missing []string
	if strings.TrimSpace(baseURL) == "" {
		missing = append(missing, "API_URL")
	}
	if strings.TrimSpace(apiKey) == "" {
		missing = append(missing, "API_KEY")
	}
	if strings.TrimSpace(study) == "" {
		missing = append(missing, "STUDY_NAME")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		study:      study,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Metadata fetches a question's text, type and answer options.
func (c *Client) Metadata(ctx context.Context, questionID string) (*QuestionMetadata, error) {
	var meta QuestionMetadata
	endpoint := c.endpoint("metadata", c.study, questionID)
	if err := c.get(ctx, endpoint, &meta); err != nil {
		return nil, fmt.Errorf("fetching metadata for question %s: %w", questionID, err)
	}
	return &meta, nil
}

// Data fetches the most recent wave for a question and segment.
func (c *Client) Data(ctx context.Context, questionID, segment string) (*DataPoint, error) {
	var point DataPoint
	endpoint := c.endpoint("data", c.study, questionID, normalizeSegment(segment))
	if err := c.get(ctx, endpoint, &point); err != nil {
		return nil, fmt.Errorf("fetching data for question %s: %w", questionID, err)
	}
	return &point, nil
}

// Trend fetches months of history for a question and segment, one point
// per increment months. An empty end date means "up to the most recent
// wave".
func (c *Client) Trend(ctx context.Context, questionID, segment string, months int, end string, increment int) ([]DataPoint, error) {
	if months <= 0 {
		return nil, fmt.Errorf("trend requires a positive month span, got %d", months)
	}
	if increment <= 0 {
		increment = 1
	}

	seg := normalizeSegment(segment)
	var endpoint string
	if end != "" {
		endpoint = c.endpoint("datatrend", c.study, end, strconv.Itoa(months), questionID, seg, strconv.Itoa(increment))
	} else {
		endpoint = c.endpoint("datatrend", c.study, strconv.Itoa(months), questionID, seg, strconv.Itoa(increment))
	}

	var points []DataPoint
	if err := c.get(ctx, endpoint, &points); err != nil {
		return nil, fmt.Errorf("fetching trend for question %s: %w", questionID, err)
	}
	return points, nil
}

// TrendRange fetches history between two dates inclusive.
func (c *Client) TrendRange(ctx context.Context, questionID, segment, start, end string, increment int) ([]DataPoint, error) {
	if start == "" || end == "" {
		return nil, fmt.Errorf("trend range requires both start and end dates")
	}
	if increment <= 0 {
		increment = 1
	}

	endpoint := c.endpoint("datatrend", c.study, start, end, questionID, normalizeSegment(segment), strconv.Itoa(increment))
	var points []DataPoint
	if err := c.get(ctx, endpoint, &points); err != nil {
		return nil, fmt.Errorf("fetching trend range for question %s: %w", questionID, err)
	}
	return points, nil
}

// MostRecentDate returns the latest study date a question was asked,
// as YYYY-MM-DD.
func (c *Client) MostRecentDate(ctx context.Context, questionID string) (string, error) {
	var date string
	endpoint := c.endpoint("mrd", c.study, questionID)
	if err := c.get(ctx, endpoint, &date); err != nil {
		return "", fmt.Errorf("fetching most recent date for question %s: %w", questionID, err)
	}
	return date, nil
}

// endpoint joins path segments with each one escaped, so segment
// expressions containing "|" and "^" travel safely.
func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}

// normalizeSegment maps every national alias to the canonical token.
func normalizeSegment(segment string) string {
	if IsNational(segment) {
		return SegmentNational
	}
	return segment
}

// get performs one API call, consulting the cache first when configured.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if c.cache != nil {
		if payload, ok := c.cache.Get(endpoint, c.cacheTTL); ok {
			c.logger.Debug("cache hit", zap.String("endpoint", endpoint))
			if err := json.Unmarshal(payload, out); err == nil {
				return nil
			}
			// A corrupt cached payload falls through to a live fetch.
		}
	}

	reqURL := c.baseURL + "/" + endpoint + "?apikey=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("api request", zap.String("endpoint", endpoint))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := strings.TrimSpace(string(body))
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: excerpt}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}

	if c.cache != nil {
		if err := c.cache.Put(endpoint, body); err != nil {
			c.logger.Warn("cache write failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}
	return nil
}
