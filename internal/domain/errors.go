package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrMissingReference = errors.New("missing reference")
	ErrSelfReference    = errors.New("self reference")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInUse            = errors.New("in use")
	ErrSchemaViolation  = errors.New("schema violation")
	ErrDecode           = errors.New("decode error")
	ErrConflict         = errors.New("store conflict")
)

type NotFoundError struct {
	Kind Kind
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind.Label(), e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MissingReferenceError reports a foreign key that points nowhere.
type MissingReferenceError struct {
	Field  string
	Target Kind
	ID     uint
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s %d not found", e.Field, e.Target.Label(), e.ID)
}

func (e *MissingReferenceError) Is(target error) bool { return target == ErrMissingReference }

// SelfReferenceError reports a parent link that loops back to the record.
// Path holds the visited ids when the loop is longer than one hop.
type SelfReferenceError struct {
	Kind  Kind
	ID    uint
	Field string
	Path  []uint
}

func (e *SelfReferenceError) Error() string {
	if len(e.Path) <= 1 {
		return fmt.Sprintf("%s %d cannot reference itself via %s", e.Kind.Label(), e.ID, e.Field)
	}
	parts := make([]string, 0, len(e.Path))
	for _, id := range e.Path {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("%s %d: %s forms a cycle (%s)", e.Kind.Label(), e.ID, e.Field, strings.Join(parts, " -> "))
}

func (e *SelfReferenceError) Is(target error) bool { return target == ErrSelfReference }

type DuplicateNameError struct {
	Kind Kind
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s with name %q already exists", e.Kind.Label(), e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// InUseError reports a delete blocked by a live dependent row.
type InUseError struct {
	Kind      Kind
	ID        uint
	Dependent Kind
	Field     string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("cannot delete %s %d: it is used in %s", e.Kind.Label(), e.ID, strings.ReplaceAll(e.Dependent.String(), "_", " "))
}

func (e *InUseError) Is(target error) bool { return target == ErrInUse }

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type SchemaViolationError struct {
	Violations []Violation
}

func (e *SchemaViolationError) Error() string {
	if len(e.Violations) == 0 {
		return "schema violation"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Field == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

func (e *SchemaViolationError) Is(target error) bool { return target == ErrSchemaViolation }

// Violate builds a single-violation SchemaViolationError.
func Violate(field, format string, args ...any) *SchemaViolationError {
	return &SchemaViolationError{Violations: []Violation{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

// DecodeError reports an imported field that could not be coerced to its
// declared type.
type DecodeError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("field '%s': %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field '%s': %s (got %q)", e.Field, e.Reason, e.Value)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ConflictError wraps a store constraint violation that surfaced at commit
// time, after the guards had passed.
type ConflictError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: constraint violation: %s", e.Kind.Label(), e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

var taxonomy = []struct {
	sentinel error
	code     string
}{
	{ErrNotFound, "not_found"},
	{ErrMissingReference, "missing_reference"},
	{ErrSelfReference, "self_reference"},
	{ErrDuplicateName, "duplicate_name"},
	{ErrInUse, "in_use"},
	{ErrSchemaViolation, "schema_violation"},
	{ErrDecode, "decode_error"},
	{ErrConflict, "conflict"},
}

// IsDomainError reports whether err belongs to the catalog error taxonomy.
func IsDomainError(err error) bool {
	return Code(err) != ""
}

// Code returns the taxonomy tag of err, or "" for errors outside it.
func Code(err error) string {
	for _, t := range taxonomy {
		if errors.Is(err, t.sentinel) {
			return t.code
		}
	}
	return ""
}

// Details extracts the structured fields of a taxonomy error.
func Details(err error) map[string]any {
	var (
		notFound  *NotFoundError
		missing   *MissingReferenceError
		self      *SelfReferenceError
		duplicate *DuplicateNameError
		inUse     *InUseError
		schema    *SchemaViolationError
		decode    *DecodeError
		conflict  *ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		return map[string]any{"kind": notFound.Kind, "id": notFound.ID}
	case errors.As(err, &missing):
		return map[string]any{"field": missing.Field, "kind": missing.Target, "id": missing.ID}
	case errors.As(err, &self):
		return map[string]any{"kind": self.Kind, "id": self.ID, "field": self.Field, "path": self.Path}
	case errors.As(err, &duplicate):
		return map[string]any{"kind": duplicate.Kind, "name": duplicate.Name}
	case errors.As(err, &inUse):
		return map[string]any{"kind": inUse.Kind, "id": inUse.ID, "dependent_kind": inUse.Dependent, "field": inUse.Field}
	case errors.As(err, &schema):
		return map[string]any{"violations": schema.Violations}
	case errors.As(err, &decode):
		return map[string]any{"field": decode.Field, "value": decode.Value}
	case errors.As(err, &conflict):
		return map[string]any{"kind": conflict.Kind, "reason": conflict.Reason}
	}
	return nil
}
