package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/atvirokodosprendimai/gprcatalog/internal/application"
	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/simconfig"
)

type batchErrorResponse struct {
	errorResponse
	Kind      domain.Kind             `json:"kind"`
	Index     int                     `json:"index"`
	Committed application.BatchResult `json:"committed"`
}

func (h *Handler) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	data, _, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	batch, err := application.DecodeBatch(bytes.NewReader(data))
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := application.BatchOptions{Atomic: parseBool(r.URL.Query(), "atomic")}
	result, err := h.service.IngestBatch(r.Context(), batch, opts)
	if err != nil {
		var batchErr *application.BatchError
		if !errors.As(err, &batchErr) {
			writeError(w, r, err)
			return
		}
		status, body := newErrorResponse(batchErr.Err)
		if status == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		body.Error = err.Error()
		writeJSON(w, status, batchErrorResponse{
			errorResponse: body,
			Kind:          batchErr.Kind,
			Index:         batchErr.Index,
			Committed:     batchErr.Committed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Bulk upload completed",
		"per_kind_counts": result.PerKind,
		"total_records":   result.TotalRecords,
	})
}

func (h *Handler) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("entity_type")
	kind, err := domain.ParseKind(raw)
	if err != nil {
		writeError(w, r, domain.Violate("entity_type", "must be one of %s", kindNames()))
		return
	}
	data, _, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.ImportCSV(r.Context(), kind, bytes.NewReader(data))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    fmt.Sprintf("Imported %d %s from CSV", result.Successful, kind),
		"successful": result.Successful,
		"failed":     result.Failed,
		"errors":     result.Errors,
	})
}

func (h *Handler) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	format := requestFormat(q.Get("format"), filename, r.Header.Get("Content-Type"))
	out, err := h.service.ValidateConfig(r.Context(), data, format, parseBool(q, "resolve"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleConfigTemplate(w http.ResponseWriter, r *http.Request) {
	format := simconfig.ParseFormat(r.URL.Query().Get("format"))
	data, err := h.service.ConfigTemplate(format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	contentType := "application/json"
	if format == simconfig.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=config_template.%s", format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// readUpload returns the uploaded bytes from a multipart "file" field or,
// for any other content type, the raw request body.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", uploadError(err)
		}
		return data, "", nil
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, "", uploadError(err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", &domain.DecodeError{Field: "file", Reason: "file is required"}
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", uploadError(err)
	}
	return data, header.Filename, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &domain.DecodeError{Field: "file", Reason: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)}
	}
	return &domain.DecodeError{Field: "file", Reason: err.Error()}
}

func requestFormat(param, filename, contentType string) simconfig.Format {
	if param != "" {
		return simconfig.ParseFormat(param)
	}
	if filename != "" {
		return simconfig.FormatFromPath(filename)
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	return simconfig.ParseFormat(mediaType)
}

func kindNames() string {
	names := make([]string, 0, len(domain.Kinds))
	for _, k := range domain.Kinds {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}
