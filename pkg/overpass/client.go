// Package overpass provides a rate-limited client for the Overpass API.
package overpass

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the public Overpass API interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

const userAgent = "osmplot/1.0 (+https://github.com/didzislauva/osmplot)"

var (
	// ErrSourceUnavailable marks transport failures and non-200 answers
	// from the Overpass endpoint.
	ErrSourceUnavailable = eris.New("overpass: source unavailable")

	// ErrMalformedResponse marks payloads that cannot be decoded as
	// Overpass JSON.
	ErrMalformedResponse = eris.New("overpass: malformed response")
)

// Client fetches ways from an Overpass endpoint.
type Client interface {
	// Raw executes the query and returns the unparsed response body.
	Raw(ctx context.Context, q Query) ([]byte, error)

	// QueryWays executes the query and decodes the returned ways.
	QueryWays(ctx context.Context, q Query) ([]Way, error)
}

// Option configures the client.
type Option func(*client)

// WithEndpoint points the client at a different Overpass interpreter.
func WithEndpoint(endpoint string) Option {
	return func(c *client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Overpass Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1), // public instances throttle aggressive clients
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Raw executes the query against the interpreter endpoint and returns the
// response body without decoding it.
func (c *client) Raw(ctx context.Context, q Query) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	params := url.Values{"data": {q.QL()}}
	reqURL := c.endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "overpass: request: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(ErrSourceUnavailable, "overpass: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "overpass: read body: %v", err)
	}

	return body, nil
}

// QueryWays executes the query and decodes the returned way elements.
func (c *client) QueryWays(ctx context.Context, q Query) ([]Way, error) {
	body, err := c.Raw(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodeWays(body)
}
