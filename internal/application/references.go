package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
)

// maxParentDepth bounds the material parent walk on corrupted data.
const maxParentDepth = 10000

// ValidateReferences confirms that every foreign key set on value resolves
// and that a material does not become its own ancestor. It is read-only.
func ValidateReferences(ctx context.Context, store domain.EntityStore, value domain.Record) error {
	kind := value.Kind()
	for _, fk := range kind.Spec().ForeignKeys {
		ref := value.ForeignKey(fk.Field)
		if ref == nil {
			continue
		}
		if fk.Target == kind && value.RecordID() != 0 && *ref == value.RecordID() {
			return &domain.SelfReferenceError{Kind: kind, ID: value.RecordID(), Field: fk.Field}
		}
		ok, err := store.Exists(ctx, fk.Target, *ref)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", fk.Field, err)
		}
		if !ok {
			return &domain.MissingReferenceError{Field: fk.Field, Target: fk.Target, ID: *ref}
		}
		if fk.Target == kind && value.RecordID() != 0 {
			if err := checkAncestry(ctx, store, kind, fk.Field, value.RecordID(), *ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkAncestry walks the parent chain from parentID and fails when it
// reaches ownID.
func checkAncestry(ctx context.Context, store domain.EntityStore, kind domain.Kind, field string, ownID, parentID uint) error {
	path := []uint{ownID}
	seen := map[uint]bool{ownID: true}
	next := &parentID
	for depth := 0; next != nil && depth < maxParentDepth; depth++ {
		path = append(path, *next)
		if *next == ownID {
			return &domain.SelfReferenceError{Kind: kind, ID: ownID, Field: field, Path: path}
		}
		if seen[*next] {
			// A pre-existing loop that does not pass through ownID.
			return nil
		}
		seen[*next] = true
		rec, err := store.Get(ctx, kind, *next)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("walk %s: %w", field, err)
		}
		next = rec.ForeignKey(field)
	}
	return nil
}

// GuardDelete fails with *domain.InUseError when a dependent row still
// references kind/id. Dependents are checked in their declared order.
func GuardDelete(ctx context.Context, store domain.EntityStore, kind domain.Kind, id uint) error {
	for _, dep := range kind.Spec().Dependents {
		used, err := store.HasReference(ctx, dep.Kind, dep.Field, id)
		if err != nil {
			return fmt.Errorf("check %s.%s: %w", dep.Kind, dep.Field, err)
		}
		if used {
			return &domain.InUseError{Kind: kind, ID: id, Dependent: dep.Kind, Field: dep.Field}
		}
	}
	return nil
}

// GuardUniqueName fails with *domain.DuplicateNameError when another row of
// kind already uses name. excludeID is the record being renamed, or 0.
func GuardUniqueName(ctx context.Context, store domain.EntityStore, kind domain.Kind, name string, excludeID uint) error {
	if !kind.Spec().UniqueName {
		return nil
	}
	existing, found, err := store.FindByName(ctx, kind, name)
	if err != nil {
		return fmt.Errorf("lookup %s name: %w", kind.Label(), err)
	}
	if found && existing.RecordID() != excludeID {
		return &domain.DuplicateNameError{Kind: kind, Name: name}
	}
	return nil
}
