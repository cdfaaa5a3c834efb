package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReadiness struct {
	err error
}

func (s *stubReadiness) CheckReadiness(context.Context) error { return s.err }

type stubStatus struct {
	running    bool
	queueDepth int
	cached     int
}

func (s *stubStatus) Status() (bool, int, int) { return s.running, s.queueDepth, s.cached }

func testServer(ready error, status *stubStatus) *Server {
	return NewServer(":0", &stubReadiness{err: ready}, status,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealthz(t *testing.T) {
	srv := testServer(nil, &stubStatus{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_Ready(t *testing.T) {
	srv := testServer(nil, &stubStatus{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_NotReady(t *testing.T) {
	srv := testServer(errors.New("retry worker is not running"), &stubStatus{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	srv := testServer(nil, &stubStatus{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusz(t *testing.T) {
	srv := testServer(nil, &stubStatus{running: true, queueDepth: 3, cached: 17})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statusz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["worker_running"])
	assert.Equal(t, float64(3), body["retry_queue"])
	assert.Equal(t, float64(17), body["cached_postcodes"])
}
