package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-dashboard/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Austin, TX")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{-97.7431, 30.2672},
					PlaceName: "Austin, Texas, United States",
					Text:      "Austin",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	c := testClient(srv.URL, m)
	result, err := c.ForwardGeocode(context.Background(), "  Austin, TX ")
	require.NoError(t, err)

	assert.Equal(t, 30.2672, result.Lat)
	assert.Equal(t, -97.7431, result.Lon)
	assert.Equal(t, "Austin, Texas, United States", result.FormattedAddress)
	assert.Equal(t, "Austin", result.PlaceName)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("success")))
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	c := testClient(srv.URL, m)
	result, err := c.ForwardGeocode(context.Background(), "Nowhereville")
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Empty(t, result.FormattedAddress)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("empty")))
}

func TestClient_ForwardGeocode_BlankQuery(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	result, err := c.ForwardGeocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Zero(t, calls.Load())
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	c := testClient(srv.URL, m)
	c.token = "bad-token"

	_, err := c.ForwardGeocode(context.Background(), "Austin, TX")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("error")))
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ForwardGeocode(context.Background(), "Austin, TX")
	require.Error(t, err)
}

func TestNewClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"features":[{"center":[-95.36,29.76],"place_name":"Houston, Texas","text":"Houston","relevance":1}]}`))
	}))
	defer srv.Close()

	c := NewClient(testToken, 10*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = srv.URL

	result, err := c.ForwardGeocode(context.Background(), "Houston")
	require.NoError(t, err)
	assert.Equal(t, "Houston", result.PlaceName)
	assert.Equal(t, int32(3), calls.Load())
}
