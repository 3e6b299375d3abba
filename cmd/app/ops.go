package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/simconfig"
)

func recordPath(kind domain.Kind, id uint) string {
	path := "/api/" + kind.Path() + "/"
	if id > 0 {
		path += uintToString(id)
	}
	return path
}

func doList(ctx context.Context, cfg cliConfig, kind domain.Kind, filter domain.ListFilter, skip, limit int, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "catalog.list", map[string]any{"kind": kind, "filter": filter, "skip": skip, "limit": limit}, out)
	}
	q := filterQuery(filter)
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, recordPath(kind, 0)+"?"+q.Encode(), nil, out)
}

func doGet(ctx context.Context, cfg cliConfig, kind domain.Kind, id uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "catalog.get", map[string]any{"kind": kind, "id": id}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, recordPath(kind, id), nil, out)
}

func doCreate(ctx context.Context, cfg cliConfig, kind domain.Kind, fields domain.Fields, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "catalog.create", map[string]any{"kind": kind, "fields": fields}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, recordPath(kind, 0), fields, out)
}

func doUpdate(ctx context.Context, cfg cliConfig, kind domain.Kind, id uint, fields domain.Fields, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "catalog.update", map[string]any{"kind": kind, "id": id, "fields": fields}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPatch, recordPath(kind, id), fields, out)
}

func doDelete(ctx context.Context, cfg cliConfig, kind domain.Kind, id uint) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "catalog.delete", map[string]any{"kind": kind, "id": id}, nil)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodDelete, recordPath(kind, id), nil, nil)
}

func doStatistics(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "catalog.statistics", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/statistics", nil, out)
}

func doSearch(ctx context.Context, cfg cliConfig, query string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "catalog.search", map[string]any{"query": query}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/search?query="+url.QueryEscape(query), nil, out)
}

func doHealth(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "system.health", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/health", nil, out)
}

func doBulkUpload(ctx context.Context, cfg cliConfig, data []byte, atomic bool, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ingest.batch", map[string]any{"batch": json.RawMessage(data), "atomic": atomic}, out)
	}
	path := "/api/bulk-upload"
	if atomic {
		path += "?atomic=true"
	}
	return newAPIClient(cfg.Server).upload(ctx, path, "application/json", data, out)
}

func doImportCSV(ctx context.Context, cfg cliConfig, kind domain.Kind, data []byte, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ingest.csv", map[string]any{"kind": kind, "csv": string(data)}, out)
	}
	path := "/api/import-csv?entity_type=" + url.QueryEscape(kind.String())
	return newAPIClient(cfg.Server).upload(ctx, path, "text/csv", data, out)
}

func doValidateConfig(ctx context.Context, cfg cliConfig, data []byte, format simconfig.Format, resolve bool, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "config.validate", map[string]any{"document": string(data), "format": format, "resolve": resolve}, out)
	}
	q := url.Values{}
	q.Set("format", string(format))
	q.Set("resolve", strconv.FormatBool(resolve))
	return newAPIClient(cfg.Server).upload(ctx, "/api/config/validate?"+q.Encode(), "application/octet-stream", data, out)
}

// filterQuery renders filter as the query parameters the list endpoints read.
func filterQuery(f domain.ListFilter) url.Values {
	q := url.Values{}
	setString := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	setUint := func(key string, value *uint) {
		if value != nil {
			q.Set(key, uintToString(*value))
		}
	}
	setFloat := func(key string, value *float64) {
		if value != nil {
			q.Set(key, strconv.FormatFloat(*value, 'g', -1, 64))
		}
	}
	setString("name", f.Name)
	setString("search", f.Search)
	setString("shape", f.Shape)
	setString("manufacturer", f.Manufacturer)
	setString("waveform", f.Waveform)
	if f.AllMaterials {
		q.Set("all", "true")
	}
	setUint("parent_id", f.ParentID)
	setUint("soil_type_id", f.SoilTypeID)
	setUint("target_type_id", f.TargetTypeID)
	setUint("antenna_id", f.AntennaID)
	setUint("pulse_id", f.PulseID)
	setFloat("min_frequency", f.MinFrequency)
	setFloat("max_frequency", f.MaxFrequency)
	setFloat("min_angle", f.MinAngle)
	setFloat("max_angle", f.MaxAngle)
	return q
}
