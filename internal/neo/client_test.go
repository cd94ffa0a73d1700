package neo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func browseBody(records ...string) string {
	body := `{"near_earth_objects": [`
	for i, r := range records {
		if i > 0 {
			body += ","
		}
		body += r
	}
	return body + `], "page": {"number": 0, "size": 20, "total_elements": 41000}}`
}

func TestClient_Browse(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/neo/browse", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "0", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("size"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(browseBody(erosJSON)))
	})

	c := NewClient(srv.URL+"/", "test-key", time.Second)
	page, err := c.Browse(context.Background(), 0, 20)
	require.NoError(t, err)

	assert.Equal(t, 41000, page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2000433", page.Items[0].ID)
}

func TestClient_Lookup(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/neo/2000433":
			w.Write([]byte(erosJSON))
		default:
			http.NotFound(w, r)
		}
	})

	c := NewClient(srv.URL, "test-key", time.Second)

	n, err := c.Lookup(context.Background(), "2000433")
	require.NoError(t, err)
	assert.Equal(t, "433 Eros", n.Name)

	_, err = c.Lookup(context.Background(), "9999999")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestClient_MissingAPIKey(t *testing.T) {
	srv, calls := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(browseBody()))
	})

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Browse(context.Background(), 0, 5)

	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Zero(t, calls.Load(), "no request should be made without a key")
}

func TestClient_HTTPError(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": "OVER_RATE_LIMIT"}}`, http.StatusTooManyRequests)
	})

	c := NewClient(srv.URL, "test-key", time.Second)
	_, err := c.Browse(context.Background(), 0, 5)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestClient_MalformedPayload(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"element_count": 3}`))
	})

	c := NewClient(srv.URL, "test-key", time.Second)
	_, err := c.Browse(context.Background(), 0, 5)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestClient_NetworkErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, "super-secret", time.Second)
	_, err := c.Browse(context.Background(), 0, 5)

	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotContains(t, err.Error(), "super-secret")
}
