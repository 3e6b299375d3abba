package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/logging"
)

// MetricsRecorder receives the outcome of every service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) Observe(context.Context, string, bool, time.Duration) {}

type CatalogService struct {
	store   domain.EntityStore
	metrics MetricsRecorder
}

type Option func(*CatalogService)

func WithMetrics(recorder MetricsRecorder) Option {
	return func(s *CatalogService) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

type Statistics struct {
	Counts map[domain.Kind]int64 `json:"statistics"`
	Total  int64                 `json:"total"`
}

type SearchHit struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Shape       string `json:"shape,omitempty"`
}

type SearchResult struct {
	Query        string                     `json:"query"`
	Results      map[domain.Kind][]SearchHit `json:"results"`
	TotalResults int                        `json:"total_results"`
}

type Health struct {
	Status      string                `json:"status"`
	Database    string                `json:"database"`
	TableCounts map[domain.Kind]int64 `json:"table_counts"`
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	searchLimit      = 10
	minSearchLength  = 2
)

func NewCatalogService(store domain.EntityStore, opts ...Option) *CatalogService {
	s := &CatalogService{store: store, metrics: noopRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create decodes fields into a new record of kind and inserts it after the
// reference and uniqueness checks.
func (s *CatalogService) Create(ctx context.Context, kind domain.Kind, fields domain.Fields) (out domain.Record, err error) {
	defer s.observe(ctx, "create."+kind.String(), time.Now(), &err)

	value, err := decodeRecord(kind, fields)
	if err != nil {
		return nil, err
	}
	err = s.store.InTx(ctx, func(tx domain.EntityStore) error {
		out, err = insertChecked(ctx, tx, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("record created", "kind", kind.String(), "id", out.RecordID())
	return out, nil
}

func (s *CatalogService) Get(ctx context.Context, kind domain.Kind, id uint) (domain.Record, error) {
	if err := requireKind(kind); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, domain.Violate("id", "id is required")
	}
	return s.store.Get(ctx, kind, id)
}

func (s *CatalogService) List(ctx context.Context, kind domain.Kind, filter domain.ListFilter, skip, limit int) ([]domain.Record, error) {
	if err := requireKind(kind); err != nil {
		return nil, err
	}
	if skip < 0 {
		return nil, domain.Violate("skip", "must be greater than or equal to 0")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.List(ctx, kind, filter, skip, limit)
}

// Update merges fields into the stored record. The id is immutable; every
// foreign key is re-validated against the merged value.
func (s *CatalogService) Update(ctx context.Context, kind domain.Kind, id uint, fields domain.Fields) (out domain.Record, err error) {
	defer s.observe(ctx, "update."+kind.String(), time.Now(), &err)

	if err := requireKind(kind); err != nil {
		return nil, err
	}
	if raw, ok := fields["id"]; ok && raw != nil {
		given := kind.New()
		if err := given.Apply(domain.Fields{"id": raw}); err != nil {
			return nil, err
		}
		if given.RecordID() != id {
			return nil, domain.Violate("id", "id is immutable")
		}
	}

	err = s.store.InTx(ctx, func(tx domain.EntityStore) error {
		current, err := tx.Get(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := current.Apply(fields); err != nil {
			return err
		}
		if err := current.Validate(); err != nil {
			return err
		}
		if err := ValidateReferences(ctx, tx, current); err != nil {
			return err
		}
		if named, ok := current.(domain.Named); ok {
			if err := GuardUniqueName(ctx, tx, kind, named.GetName(), id); err != nil {
				return err
			}
		}
		out, err = tx.Update(ctx, current)
		return err
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("record updated", "kind", kind.String(), "id", id)
	return out, nil
}

// Delete removes kind/id unless a dependent row still points at it.
func (s *CatalogService) Delete(ctx context.Context, kind domain.Kind, id uint) (err error) {
	defer s.observe(ctx, "delete."+kind.String(), time.Now(), &err)

	if err := requireKind(kind); err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(tx domain.EntityStore) error {
		if _, err := tx.Get(ctx, kind, id); err != nil {
			return err
		}
		if err := GuardDelete(ctx, tx, kind, id); err != nil {
			return err
		}
		return tx.Delete(ctx, kind, id)
	})
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Debug("record deleted", "kind", kind.String(), "id", id)
	return nil
}

func (s *CatalogService) Statistics(ctx context.Context) (Statistics, error) {
	out := Statistics{Counts: make(map[domain.Kind]int64, len(domain.Kinds))}
	for _, kind := range domain.Kinds {
		n, err := s.store.Count(ctx, kind)
		if err != nil {
			return Statistics{}, fmt.Errorf("count %s: %w", kind, err)
		}
		out.Counts[kind] = n
		out.Total += n
	}
	return out, nil
}

// Search matches soil types by name or description and materials and target
// types by name, returning at most ten hits per kind.
func (s *CatalogService) Search(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return SearchResult{}, domain.Violate("query", "must be at least %d characters", minSearchLength)
	}
	out := SearchResult{Query: query, Results: make(map[domain.Kind][]SearchHit)}
	for _, kind := range []domain.Kind{domain.KindSoilType, domain.KindMaterial, domain.KindTargetType} {
		rows, err := s.store.List(ctx, kind, domain.ListFilter{Search: query, AllMaterials: true}, 0, searchLimit)
		if err != nil {
			return SearchResult{}, fmt.Errorf("search %s: %w", kind, err)
		}
		if len(rows) == 0 {
			continue
		}
		hits := make([]SearchHit, 0, len(rows))
		for _, row := range rows {
			hits = append(hits, searchHit(row))
		}
		out.Results[kind] = hits
		out.TotalResults += len(hits)
	}
	return out, nil
}

func (s *CatalogService) Health(ctx context.Context) (Health, error) {
	if err := s.store.Ping(ctx); err != nil {
		return Health{Status: "unhealthy", Database: "disconnected"}, fmt.Errorf("health check failed: %w", err)
	}
	stats, err := s.Statistics(ctx)
	if err != nil {
		return Health{Status: "unhealthy", Database: "connected"}, fmt.Errorf("health check failed: %w", err)
	}
	return Health{Status: "healthy", Database: "connected", TableCounts: stats.Counts}, nil
}

// insertChecked runs the record checks and inserts value through store.
func insertChecked(ctx context.Context, store domain.EntityStore, value domain.Record) (domain.Record, error) {
	if err := value.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateReferences(ctx, store, value); err != nil {
		return nil, err
	}
	if named, ok := value.(domain.Named); ok {
		if err := GuardUniqueName(ctx, store, value.Kind(), named.GetName(), value.RecordID()); err != nil {
			return nil, err
		}
	}
	if value.RecordID() != 0 {
		exists, err := store.Exists(ctx, value.Kind(), value.RecordID())
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, &domain.ConflictError{Kind: value.Kind(), Reason: fmt.Sprintf("id %d already exists", value.RecordID())}
		}
	}
	return store.Insert(ctx, value)
}

func decodeRecord(kind domain.Kind, fields domain.Fields) (domain.Record, error) {
	if err := requireKind(kind); err != nil {
		return nil, err
	}
	value := kind.New()
	if err := value.Apply(fields); err != nil {
		return nil, err
	}
	return value, nil
}

func requireKind(kind domain.Kind) error {
	if !kind.Valid() {
		return domain.Violate("entity_type", "unknown entity kind")
	}
	return nil
}

func searchHit(rec domain.Record) SearchHit {
	hit := SearchHit{ID: rec.RecordID()}
	switch v := rec.(type) {
	case *domain.SoilType:
		hit.Name = v.Name
		hit.Description = truncate(v.Description, 100)
	case *domain.Material:
		hit.Name = v.Name
	case *domain.TargetType:
		hit.Name = v.Name
		hit.Shape = v.Shape
	}
	return hit
}

func truncate(value string, n int) string {
	r := []rune(value)
	if len(r) <= n {
		return value
	}
	return string(r[:n])
}

func (s *CatalogService) observe(ctx context.Context, operation string, started time.Time, errp *error) {
	success := errp == nil || *errp == nil
	s.metrics.Observe(ctx, operation, success, time.Since(started))
	if !success && !domain.IsDomainError(*errp) && !errors.Is(*errp, context.Canceled) {
		logging.FromContext(ctx).Error("operation failed", "operation", operation, "error", *errp)
	}
}
