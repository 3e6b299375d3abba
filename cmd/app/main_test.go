package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	sqliteadapter "github.com/atvirokodosprendimai/gprcatalog/internal/adapters/db/sqlite"
	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFieldsMergesAssignments(t *testing.T) {
	fields, err := buildFields([]byte(`{"name":"Clay","parameters":{"eps":4}}`), []string{"description=wet soil", "frequency=4e8", "material_id=null"})
	require.NoError(t, err)
	assert.Equal(t, "Clay", fields["name"])
	assert.Equal(t, "wet soil", fields["description"])
	assert.Equal(t, 4e8, fields["frequency"])
	assert.Contains(t, fields, "material_id")
	assert.Nil(t, fields["material_id"])
}

func TestBuildFieldsRejectsBadInput(t *testing.T) {
	_, err := buildFields(nil, nil)
	require.Error(t, err)

	_, err = buildFields([]byte(`[1,2]`), nil)
	require.Error(t, err)

	_, err = buildFields(nil, []string{"=x"})
	require.Error(t, err)
}

func TestFilterQuery(t *testing.T) {
	parent := uint(3)
	lo := 1e8
	q := filterQuery(domain.ListFilter{Name: "clay", ParentID: &parent, MinFrequency: &lo, AllMaterials: true})

	assert.Equal(t, "clay", q.Get("name"))
	assert.Equal(t, "3", q.Get("parent_id"))
	assert.Equal(t, "1e+08", q.Get("min_frequency"))
	assert.Equal(t, "true", q.Get("all"))
	assert.False(t, q.Has("max_frequency"))
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "-", formatCell(nil))
	assert.Equal(t, "-", formatCell(""))
	assert.Equal(t, "400000000", formatCell(4e8))
	assert.Equal(t, `{"a":1}`, formatCell(map[string]any{"a": 1.0}))
}

func TestConfigFileRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, cliConfig{Transport: "uds", Server: defaultServer, Socket: defaultSocket}, cfg)

	require.NoError(t, saveConfig(cliConfig{Transport: "http", Server: "http://10.0.0.2:8080"}))
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, "http://10.0.0.2:8080", cfg.Server)
	assert.Equal(t, defaultSocket, cfg.Socket)

	path, err := configPath()
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.Error(t, saveConfig(cliConfig{Transport: "grpc"}))
}

func TestAPIClientDecodesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/soil-types/9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"soil type 9 not found","code":"not_found"}`))
	}))
	defer srv.Close()

	cfg := cliConfig{Transport: "http", Server: srv.URL}
	err := doGet(context.Background(), cfg, domain.KindSoilType, 9, nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "api error (404 not_found): soil type 9 not found", apiErr.Error())
}

func TestRPCClientReportsMissingSocket(t *testing.T) {
	err := newRPCClient(filepath.Join(t.TempDir(), "none.sock")).call(context.Background(), "system.health", nil, nil)
	require.Error(t, err)
}

func TestDBResetCommandEmptiesCatalog(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, dbCommand().Run(ctx, []string{"db", "migrate", "--db-path", dbPath}))

	db, err := sqliteadapter.Open(dbPath)
	require.NoError(t, err)
	repo := sqliteadapter.NewCatalogRepository(db)
	_, err = repo.Insert(ctx, &domain.SoilType{Name: "Clay"})
	require.NoError(t, err)
	closeDB(db)

	require.NoError(t, dbCommand().Run(ctx, []string{"db", "reset", "--db-path", dbPath, "--yes"}))

	db, err = sqliteadapter.Open(dbPath)
	require.NoError(t, err)
	defer closeDB(db)
	n, err := sqliteadapter.NewCatalogRepository(db).Count(ctx, domain.KindSoilType)
	require.NoError(t, err)
	assert.Zero(t, n)
}
