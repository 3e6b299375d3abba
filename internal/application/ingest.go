package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/logging"
	"github.com/google/uuid"
)

// Batch groups records per kind for structured ingestion.
type Batch map[domain.Kind][]domain.Fields

type BatchOptions struct {
	// Atomic runs the whole batch in one transaction instead of committing
	// after each kind.
	Atomic bool
}

type BatchResult struct {
	PerKind      map[domain.Kind]int `json:"per_kind_counts"`
	TotalRecords int                 `json:"total_records"`
}

// BatchError reports the record that stopped a structured batch. Kinds
// listed in Committed were already durable when it happened.
type BatchError struct {
	Kind      domain.Kind
	Index     int
	Err       error
	Committed BatchResult
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s[%d]: %v", e.Kind, e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// DecodeBatch reads a JSON object keyed by collection name. Unknown kinds are
// rejected.
func DecodeBatch(r io.Reader) (Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var raw map[string][]map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, &domain.DecodeError{Field: "batch", Reason: "invalid JSON: " + err.Error()}
	}
	batch := make(Batch, len(raw))
	for key, items := range raw {
		kind, err := domain.ParseKind(key)
		if err != nil {
			return nil, &domain.DecodeError{Field: key, Reason: "unknown entity kind"}
		}
		for _, item := range items {
			batch[kind] = append(batch[kind], domain.Fields(item))
		}
	}
	return batch, nil
}

// IngestBatch applies the batch kind by kind in domain.Kinds order. The first
// failing record aborts the remaining records of its kind and every later
// kind. Without opts.Atomic, kinds processed before the failure stay
// committed and are reported in the returned result.
func (s *CatalogService) IngestBatch(ctx context.Context, batch Batch, opts BatchOptions) (result BatchResult, err error) {
	defer s.observe(ctx, "ingest.batch", time.Now(), &err)

	logger := logging.WithFields(ctx, "import_id", uuid.NewString(), "atomic", opts.Atomic)
	logger.Info("batch ingestion started")

	if opts.Atomic {
		err = s.store.InTx(ctx, func(tx domain.EntityStore) error {
			var ierr error
			result, ierr = ingestKinds(ctx, tx, batch)
			return ierr
		})
		if err != nil {
			var batchErr *BatchError
			if errors.As(err, &batchErr) {
				batchErr.Committed = emptyResult()
			}
			logger.Warn("batch ingestion rolled back", "error", err)
			return emptyResult(), err
		}
	} else {
		result, err = ingestKinds(ctx, s.store, batch)
		if err != nil {
			logger.Warn("batch ingestion aborted", "error", err, "committed", result.TotalRecords)
			return result, err
		}
	}

	logger.Info("batch ingestion finished", "total_records", result.TotalRecords)
	return result, nil
}

func ingestKinds(ctx context.Context, store domain.EntityStore, batch Batch) (BatchResult, error) {
	result := emptyResult()
	for _, kind := range domain.Kinds {
		records := batch[kind]
		if len(records) == 0 {
			continue
		}
		err := store.InTx(ctx, func(tx domain.EntityStore) error {
			for i, fields := range records {
				value, err := decodeRecord(kind, fields)
				if err == nil {
					_, err = insertChecked(ctx, tx, value)
				}
				if err != nil {
					return &BatchError{Kind: kind, Index: i, Err: err}
				}
			}
			return nil
		})
		if err != nil {
			var batchErr *BatchError
			if errors.As(err, &batchErr) {
				batchErr.Committed = result
			}
			return result, err
		}
		result.PerKind[kind] = len(records)
		result.TotalRecords += len(records)
	}
	return result, nil
}

func emptyResult() BatchResult {
	return BatchResult{PerKind: make(map[domain.Kind]int)}
}
