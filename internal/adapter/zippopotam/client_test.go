package zippopotam

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/couchcryptid/geo-resolver-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(
		baseURL,
		5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/10001", r.URL.Path)

		resp := response{
			Places: []place{
				{Latitude: "40.7506", Longitude: "-73.9971"},
				{Latitude: "0", Longitude: "0"}, // only the first record counts
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	coords, err := testClient(srv.URL).Lookup(context.Background(), "10001")
	require.NoError(t, err)

	assert.Equal(t, 40.7506, coords.Latitude)
	assert.Equal(t, -73.9971, coords.Longitude)
}

func TestLookup_EmptyPlaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Places: []place{}}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "00000")
	require.Error(t, err)

	var noData *domain.NoDataError
	require.ErrorAs(t, err, &noData)
	assert.Equal(t, "00000", noData.Postcode)
}

func TestLookup_AbsentPlacesField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"country": "United States"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "00000")
	assert.Equal(t, domain.KindNoData, domain.ErrKind(err))
}

func TestLookup_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "99999")
	require.Error(t, err)

	var status *domain.UpstreamStatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.Status)
}

func TestLookup_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"places": [`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "10001")
	assert.Equal(t, domain.KindMalformedResponse, domain.ErrKind(err))
}

func TestLookup_NonNumericCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{
			Places: []place{{Latitude: "forty", Longitude: "-73.9971"}},
		}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "10001")
	assert.Equal(t, domain.KindMalformedResponse, domain.ErrKind(err))
}

func TestLookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.Lookup(context.Background(), "10001")
	require.Error(t, err)

	var transport *domain.TransportError
	assert.ErrorAs(t, err, &transport)
}

func TestLookup_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing is listening

	_, err := testClient(srv.URL).Lookup(context.Background(), "10001")
	require.Error(t, err)
	assert.Equal(t, domain.KindTransport, domain.ErrKind(err))

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	assert.NotNil(t, transport.Err)
}
