package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxRecordBytes = 1 << 20

func (h *Handler) handleList(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter, err := parseListFilter(q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		skip, err := parseIntParam(q, "skip")
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, err := parseIntParam(q, "limit")
		if err != nil {
			writeError(w, r, err)
			return
		}
		items, err := h.service.List(r.Context(), kind, filter, skip, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *Handler) handleGet(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v, err := h.service.Get(r.Context(), kind, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handler) handleCreate(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v, err := h.service.Create(r.Context(), kind, fields)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func (h *Handler) handleUpdate(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		fields, err := decodeFields(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v, err := h.service.Update(r.Context(), kind, id, fields)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handler) handleDelete(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := h.service.Delete(r.Context(), kind, id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": fmt.Sprintf("%s %d deleted", kind.Label(), id)})
	}
}

// decodeFields reads a JSON object body, keeping numbers as json.Number so
// ids survive without float rounding.
func decodeFields(r *http.Request) (domain.Fields, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes))
	if err != nil {
		return nil, &domain.DecodeError{Field: "body", Reason: err.Error()}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, &domain.DecodeError{Field: "body", Reason: "invalid payload"}
	}
	if fields == nil {
		return nil, &domain.DecodeError{Field: "body", Reason: "expected a JSON object"}
	}
	return domain.Fields(fields), nil
}

func pathID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || parsed == 0 {
		return 0, &domain.DecodeError{Field: "id", Value: raw, Reason: "must be a positive integer"}
	}
	return uint(parsed), nil
}

func parseIntParam(q url.Values, field string) (int, error) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.DecodeError{Field: field, Value: raw, Reason: "must be an integer"}
	}
	return v, nil
}

func parseOptionalUint(q url.Values, field string) (*uint, error) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, &domain.DecodeError{Field: field, Value: raw, Reason: "must be an integer"}
	}
	v := uint(parsed)
	return &v, nil
}

func parseOptionalFloat(q url.Values, field string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &domain.DecodeError{Field: field, Value: raw, Reason: "must be a number"}
	}
	return &v, nil
}

func parseBool(q url.Values, field string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(q.Get(field)))
	return v
}

func parseListFilter(q url.Values) (domain.ListFilter, error) {
	f := domain.ListFilter{
		Name:         q.Get("name"),
		Search:       q.Get("search"),
		AllMaterials: parseBool(q, "all"),
		Shape:        q.Get("shape"),
		Manufacturer: q.Get("manufacturer"),
		Waveform:     q.Get("waveform"),
	}
	var err error
	uints := []struct {
		field string
		dst   **uint
	}{
		{"parent_id", &f.ParentID},
		{"soil_type_id", &f.SoilTypeID},
		{"target_type_id", &f.TargetTypeID},
		{"antenna_id", &f.AntennaID},
		{"pulse_id", &f.PulseID},
	}
	for _, u := range uints {
		if *u.dst, err = parseOptionalUint(q, u.field); err != nil {
			return domain.ListFilter{}, err
		}
	}
	floats := []struct {
		field string
		dst   **float64
	}{
		{"min_frequency", &f.MinFrequency},
		{"max_frequency", &f.MaxFrequency},
		{"min_angle", &f.MinAngle},
		{"max_angle", &f.MaxAngle},
	}
	for _, fl := range floats {
		if *fl.dst, err = parseOptionalFloat(q, fl.field); err != nil {
			return domain.ListFilter{}, err
		}
	}
	return f, nil
}
