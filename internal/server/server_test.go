package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(Config{Host: "localhost", Port: "0", DataDir: dir, NoDB: true})
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func get(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	var root map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))
	require.Equal(t, "plat-carto", root["service"])

	require.Equal(t, http.StatusNotFound, get(s, http.MethodGet, "/nope").Code)

	rec = get(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Contains(t, rec.Header().Values("Link"), `</api/v1/maps>; rel="maps"`)

	// Query sources are unavailable without DuckDB.
	require.Equal(t, http.StatusServiceUnavailable, get(s, http.MethodGet, "/api/v1/tables").Code)
}

func TestTilesCORS(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tiles"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiles", "a.pmtiles"), []byte("PMTiles"), 0644))

	rec := get(s, http.MethodOptions, "/tiles/a.pmtiles")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(s, http.MethodGet, "/tiles/a.pmtiles")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "PMTiles", rec.Body.String())
}

func TestOpenAPI(t *testing.T) {
	s, _ := newTestServer(t)
	doc := s.OpenAPI()
	for _, path := range []string{
		"/health",
		"/api/v1/info",
		"/api/v1/maps",
		"/api/v1/maps/{id}",
		"/api/v1/maps/{id}/render",
		"/api/v1/render",
		"/api/v1/sources",
		"/api/v1/basemaps",
		"/api/v1/events",
		"/api/v1/query/geojson",
		"/api/v1/tables/{name}/geojson",
	} {
		require.Contains(t, doc.Paths, path)
	}
}
