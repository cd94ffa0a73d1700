package neo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

// maxBodyBytes caps upstream responses; a browse page of 20 is ~60KB.
const maxBodyBytes = 8 << 20

// Upstream is the remote NEO catalogue. Implementations return errors
// wrapping ErrUpstreamUnavailable, ErrMalformedPayload or ErrRecordNotFound.
type Upstream interface {
	Browse(ctx context.Context, pageIndex, pageSize int) (models.Page, error)
	Lookup(ctx context.Context, id string) (models.NEO, error)
}

// Client talks to the NASA NeoWs REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Browse(ctx context.Context, pageIndex, pageSize int) (models.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(pageIndex))
	q.Set("size", strconv.Itoa(pageSize))

	body, err := c.get(ctx, "/neo/browse", q)
	if err != nil {
		return models.Page{}, err
	}

	resp, err := decodeBrowse(body)
	if err != nil {
		return models.Page{}, err
	}
	return transformPage(resp), nil
}

func (c *Client) Lookup(ctx context.Context, id string) (models.NEO, error) {
	if id == "" {
		return models.NEO{}, ErrRecordNotFound
	}

	body, err := c.get(ctx, "/neo/"+url.PathEscape(id), url.Values{})
	if err != nil {
		return models.NEO{}, err
	}

	raw, err := decodeRecord(body)
	if err != nil {
		return models.NEO{}, err
	}
	return Transform(raw), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: error creating request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: error doing request: %v", ErrUpstreamUnavailable, redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: upstream returned 404 for %s", ErrRecordNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code: %d - status: %s", ErrUpstreamUnavailable, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: error reading resp.Body: %v", ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// redactKey keeps the API key out of logged url.Error messages.
func redactKey(err error, key string) string {
	msg := err.Error()
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, key, "REDACTED")
}
