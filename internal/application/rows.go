package application

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/logging"
	"github.com/google/uuid"
)

type columnType int

const (
	columnText columnType = iota
	columnInteger
	columnReal
	columnJSON
)

// columnTypes is the decode map for imported rows. Columns not listed are
// passed through as text.
var columnTypes = map[string]columnType{
	"id":                columnInteger,
	"material_id":       columnInteger,
	"soil_type_id":      columnInteger,
	"target_type_id":    columnInteger,
	"antenna_id":        columnInteger,
	"pulse_id":          columnInteger,
	"angle":             columnReal,
	"roughness":         columnReal,
	"humidity":          columnReal,
	"frequency":         columnReal,
	"parameters":        columnJSON,
	"simulation_params": columnJSON,
}

type RowImportResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// DecodeRow converts one delimited row into typed fields. Empty cells become
// nil.
func DecodeRow(header, row []string) (domain.Fields, error) {
	if len(row) > len(header) {
		return nil, &domain.DecodeError{Field: "row", Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(row))}
	}
	fields := make(domain.Fields, len(header))
	for i, name := range header {
		if i >= len(row) || row[i] == "" {
			fields[name] = nil
			continue
		}
		raw := row[i]
		switch columnTypes[name] {
		case columnInteger:
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, &domain.DecodeError{Field: name, Value: raw, Reason: "invalid integer"}
			}
			fields[name] = n
		case columnReal:
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, &domain.DecodeError{Field: name, Value: raw, Reason: "invalid number"}
			}
			fields[name] = f
		case columnJSON:
			// Decoded into an object by the record merge.
			fields[name] = raw
		default:
			fields[name] = raw
		}
	}
	return fields, nil
}

// ImportCSV inserts every row of r as a record of kind. Rows are isolated:
// a row that fails to decode, validate or insert is rolled back to its
// savepoint and reported as "Row N: message" while the import continues.
// Store failures outside the error taxonomy abort and roll back everything.
func (s *CatalogService) ImportCSV(ctx context.Context, kind domain.Kind, r io.Reader) (result RowImportResult, err error) {
	defer s.observe(ctx, "ingest.rows."+kind.String(), time.Now(), &err)

	if err := requireKind(kind); err != nil {
		return RowImportResult{}, err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RowImportResult{Errors: []string{}}, nil
		}
		return RowImportResult{}, &domain.DecodeError{Field: "header", Reason: err.Error()}
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	logger := logging.WithFields(ctx, "import_id", uuid.NewString(), "kind", kind.String())
	logger.Info("row import started")

	err = s.store.InTx(ctx, func(tx domain.EntityStore) error {
		result = RowImportResult{Errors: []string{}}
		for rowNum := 1; ; rowNum++ {
			row, readErr := reader.Read()
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			if readErr != nil {
				var parseErr *csv.ParseError
				if !errors.As(readErr, &parseErr) {
					return readErr
				}
				result.fail(rowNum, &domain.DecodeError{Field: "row", Reason: parseErr.Err.Error()})
				continue
			}
			rowErr := importRow(ctx, tx, kind, header, row)
			if rowErr == nil {
				result.Successful++
				continue
			}
			if !domain.IsDomainError(rowErr) {
				return fmt.Errorf("row %d: %w", rowNum, rowErr)
			}
			result.fail(rowNum, rowErr)
		}
	})
	if err != nil {
		logger.Error("row import aborted", "error", err)
		return RowImportResult{}, err
	}
	logger.Info("row import finished", "successful", result.Successful, "failed", result.Failed)
	return result, nil
}

func importRow(ctx context.Context, store domain.EntityStore, kind domain.Kind, header, row []string) error {
	fields, err := DecodeRow(header, row)
	if err != nil {
		return err
	}
	value, err := decodeRecord(kind, fields)
	if err != nil {
		return err
	}
	return store.InTx(ctx, func(tx domain.EntityStore) error {
		_, err := insertChecked(ctx, tx, value)
		return err
	})
}

func (r *RowImportResult) fail(rowNum int, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
}
