package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atvirokodosprendimai/gprcatalog/internal/adapters/db/sqlite"
	"github.com/atvirokodosprendimai/gprcatalog/internal/adapters/metrics"
	"github.com/atvirokodosprendimai/gprcatalog/internal/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	_, err = sqlite.RunMigrations(context.Background(), db)
	require.NoError(t, err)

	recorder := metrics.NewRecorder()
	service := application.NewCatalogService(sqlite.NewCatalogRepository(db), application.WithMetrics(recorder))
	srv := httptest.NewServer(NewRouter(service, Options{MaxUploadBytes: 1 << 20, Metrics: recorder.Handler()}))
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestCRUDRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	status, soil := doJSON(t, srv, http.MethodPost, "/api/soil-types", `{"name":"Clay","parameters":{"permittivity":9}}`)
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 1, soil["id"])

	status, got := doJSON(t, srv, http.MethodGet, "/api/soil-types/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Clay", got["name"])

	status, updated := doJSON(t, srv, http.MethodPut, "/api/soil-types/1", `{"description":"wet"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "wet", updated["description"])
	assert.Equal(t, "Clay", updated["name"])

	status, _ = doJSON(t, srv, http.MethodDelete, "/api/soil-types/1", "")
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, srv, http.MethodGet, "/api/soil-types/1", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/soil-types", `{"name":"Clay"}`)
	doJSON(t, srv, http.MethodPost, "/api/soil-boundaries", `{"angle":3,"soil_type_id":1}`)
	doJSON(t, srv, http.MethodPost, "/api/materials", `{"name":"Metal"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing reference", http.MethodPost, "/api/soil-boundaries", `{"soil_type_id":9}`, http.StatusBadRequest, "missing_reference"},
		{"self reference", http.MethodPut, "/api/materials/1", `{"material_id":1}`, http.StatusBadRequest, "self_reference"},
		{"unknown field", http.MethodPost, "/api/antennas", `{"name":"A","frequency":1,"colour":"red"}`, http.StatusBadRequest, "decode_error"},
		{"invalid json", http.MethodPost, "/api/antennas", `{`, http.StatusBadRequest, "decode_error"},
		{"schema violation", http.MethodPost, "/api/target-types", `{"name":"Pipe"}`, http.StatusUnprocessableEntity, "schema_violation"},
		{"duplicate name", http.MethodPost, "/api/soil-types", `{"name":"clay"}`, http.StatusConflict, "duplicate_name"},
		{"in use", http.MethodDelete, "/api/soil-types/1", "", http.StatusConflict, "in_use"},
		{"bad id", http.MethodGet, "/api/soil-types/abc", "", http.StatusBadRequest, "decode_error"},
		{"bad skip", http.MethodGet, "/api/antennas?skip=-1", "", http.StatusUnprocessableEntity, "schema_violation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestInUseDetails(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/soil-types", `{"name":"Clay"}`)
	doJSON(t, srv, http.MethodPost, "/api/soil-boundaries", `{"soil_type_id":1}`)

	_, body := doJSON(t, srv, http.MethodDelete, "/api/soil-types/1", "")
	details := body["details"].(map[string]any)
	assert.Equal(t, "soil_boundaries", details["dependent_kind"])
	assert.Equal(t, "cannot delete soil type 1: it is used in soil boundaries", body["error"])
}

func TestListFilters(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/materials", `{"name":"Metal"}`)
	doJSON(t, srv, http.MethodPost, "/api/materials", `{"name":"Steel","material_id":1}`)

	resp, err := srv.Client().Get(srv.URL + "/api/materials?parent_id=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var items []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "Steel", items[0]["name"])
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestBulkUploadReportsCommittedKinds(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, "batch.json", `{
	  "soil_types": [{"name": "Clay"}],
	  "soil_boundaries": [{"soil_type_id": 5}]
	}`)

	resp, err := srv.Client().Post(srv.URL+"/api/bulk-upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_reference", out["code"])
	assert.Equal(t, "soil_boundaries", out["kind"])
	committed := out["committed"].(map[string]any)
	assert.EqualValues(t, 1, committed["total_records"])
}

func TestBulkUploadRawBody(t *testing.T) {
	srv := newTestServer(t)
	status, out := doJSON(t, srv, http.MethodPost, "/api/bulk-upload", `{"antennas":[{"name":"A","frequency":4e8}]}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, out["total_records"])
}

func TestImportCSV(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, "soil.csv", "name,description\nClay,wet\nSand,\nclay,dupe\n")

	resp, err := srv.Client().Post(srv.URL+"/api/import-csv?entity_type=soil_types", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["successful"])
	assert.EqualValues(t, 1, out["failed"])

	status, _ := doJSON(t, srv, http.MethodPost, "/api/import-csv?entity_type=users", "name\nx\n")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestConfigTemplateValidates(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/config/template?format=yaml")
	require.NoError(t, err)
	template, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	body, contentType := multipartBody(t, "sim.yaml", string(template))
	resp, err = srv.Client().Post(srv.URL+"/api/config/validate", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["valid"])

	status, bad := doJSON(t, srv, http.MethodPost, "/api/config/validate", `{"version":"1.0","simulation":{"name":"x"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.NotEmpty(t, bad["details"].(map[string]any)["violations"])

	status, missing := doJSON(t, srv, http.MethodPost, "/api/config/validate?resolve=true&format=yaml", string(template))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing_reference", missing["code"])
}

func TestStatisticsSearchHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/soil-types", `{"name":"Clay","description":"dense"}`)

	status, stats := doJSON(t, srv, http.MethodGet, "/api/statistics", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, stats["total"])
	assert.EqualValues(t, 1, stats["statistics"].(map[string]any)["soil_types"])

	status, found := doJSON(t, srv, http.MethodGet, "/api/search?query=den", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, found["total_results"])

	status, _ = doJSON(t, srv, http.MethodGet, "/api/search?query=d", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, health := doJSON(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", health["status"])

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `gprcatalog_operations_total{operation="create.soil_types",success="true"} 1`)
}
