package observability_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/imgshard/pkg/observability"
)

func TestHealthHandler_ReturnsOK(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()

	observability.HealthHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPrometheusReader_ServesMetrics(t *testing.T) {
	t.Parallel()

	prom, err := observability.NewPrometheusReader()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	prom.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestDiagnosticsServer_ServesEndpoints(t *testing.T) {
	t.Parallel()

	prom, err := observability.NewPrometheusReader()
	require.NoError(t, err)

	srv, err := observability.NewDiagnosticsServer("127.0.0.1:0", prom.Handler, nil)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, srv.Close(context.Background())) })

	for _, path := range []string{"/healthz", "/metrics"} {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+srv.Addr()+path, http.NoBody)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		_, err = io.Copy(io.Discard, resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestDiagnosticsServer_BadAddress(t *testing.T) {
	t.Parallel()

	_, err := observability.NewDiagnosticsServer("not-an-address", http.NotFoundHandler(), nil)
	require.Error(t, err)
}
