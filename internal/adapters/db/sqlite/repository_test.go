package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRepository(t *testing.T) *CatalogRepository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "catalog_test.db")

	db, err := Open(dbPath)
	require.NoError(t, err, "open db")
	version, err := RunMigrations(ctx, db)
	require.NoError(t, err, "run migrations")
	require.EqualValues(t, 1, version)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewCatalogRepository(db)
}

func uintPtr(v uint) *uint { return &v }

func TestInsertGetRoundTripsJSONAndTimestamps(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)

	saved, err := repo.Insert(ctx, &domain.SoilType{Name: "Clay", Description: "wet", Parameters: map[string]any{"permittivity": 12.5}})
	require.NoError(t, err)
	require.NotZero(t, saved.RecordID())

	got, err := repo.Get(ctx, domain.KindSoilType, saved.RecordID())
	require.NoError(t, err)
	soil := got.(*domain.SoilType)
	assert.Equal(t, "Clay", soil.Name)
	assert.Equal(t, 12.5, soil.Parameters["permittivity"])
	assert.False(t, soil.CreatedAt.IsZero())
	assert.False(t, soil.UpdatedAt.IsZero())
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	repo := openRepository(t)

	_, err := repo.Get(context.Background(), domain.KindAntenna, 99)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.KindAntenna, nf.Kind)
	assert.EqualValues(t, 99, nf.ID)
}

func TestFindByNameIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)
	_, err := repo.Insert(ctx, &domain.SoilType{Name: "Sandy Loam"})
	require.NoError(t, err)

	rec, found, err := repo.FindByName(ctx, domain.KindSoilType, "sandy loam")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Sandy Loam", rec.(*domain.SoilType).Name)

	_, found, err = repo.FindByName(ctx, domain.KindSoilType, "peat")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUniqueNameConstraintIsTranslated(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)
	_, err := repo.Insert(ctx, &domain.SoilType{Name: "Clay"})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, &domain.SoilType{Name: "CLAY"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestForeignKeyConstraintIsTranslated(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)

	_, err := repo.Insert(ctx, &domain.SoilBoundary{SoilTypeID: 42})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestListFiltersMaterialsByParent(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)

	root, err := repo.Insert(ctx, &domain.Material{Name: "Metal"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &domain.Material{Name: "Steel", MaterialID: uintPtr(root.RecordID())})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &domain.Material{Name: "Plastic"})
	require.NoError(t, err)

	roots, err := repo.List(ctx, domain.KindMaterial, domain.ListFilter{}, 0, 100)
	require.NoError(t, err)
	assert.Len(t, roots, 2)

	children, err := repo.List(ctx, domain.KindMaterial, domain.ListFilter{ParentID: uintPtr(root.RecordID())}, 0, 100)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Steel", children[0].(*domain.Material).Name)

	all, err := repo.List(ctx, domain.KindMaterial, domain.ListFilter{AllMaterials: true}, 1, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Steel", all[0].(*domain.Material).Name)
}

func TestListFiltersAntennasByFrequency(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)
	for _, a := range []domain.Antenna{
		{Name: "Low", Frequency: 100e6, Manufacturer: "GSSI"},
		{Name: "Mid", Frequency: 400e6, Manufacturer: "MALA"},
		{Name: "High", Frequency: 1.6e9, Manufacturer: "GSSI"},
	} {
		a := a
		_, err := repo.Insert(ctx, &a)
		require.NoError(t, err)
	}
	lo, hi := 200e6, 2e9

	rows, err := repo.List(ctx, domain.KindAntenna, domain.ListFilter{MinFrequency: &lo, MaxFrequency: &hi, Manufacturer: "gssi"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "High", rows[0].(*domain.Antenna).Name)
}

func TestHasReference(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)
	soil, err := repo.Insert(ctx, &domain.SoilType{Name: "Clay"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &domain.SoilBoundary{SoilTypeID: soil.RecordID(), Angle: 15})
	require.NoError(t, err)

	used, err := repo.HasReference(ctx, domain.KindSoilBoundary, "soil_type_id", soil.RecordID())
	require.NoError(t, err)
	assert.True(t, used)

	used, err = repo.HasReference(ctx, domain.KindObjectPortrait, "soil_type_id", soil.RecordID())
	require.NoError(t, err)
	assert.False(t, used)

	_, err = repo.HasReference(ctx, domain.KindSoilBoundary, "angle; DROP TABLE soil_types", soil.RecordID())
	require.Error(t, err)
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)
	saved, err := repo.Insert(ctx, &domain.PulseType{Name: "Ricker", Waveform: "ricker"})
	require.NoError(t, err)
	created := saved.(*domain.PulseType).CreatedAt

	pulse := saved.(*domain.PulseType)
	pulse.Waveform = "gaussian"
	updated, err := repo.Update(ctx, pulse)
	require.NoError(t, err)
	assert.Equal(t, "gaussian", updated.(*domain.PulseType).Waveform)
	assert.True(t, created.Equal(updated.(*domain.PulseType).CreatedAt))

	_, err = repo.Update(ctx, &domain.PulseType{ID: 999, Name: "x", Waveform: "y"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	err := openRepository(t).Delete(context.Background(), domain.KindPulseType, 7)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNestedTransactionRollsBackToSavepoint(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(tx domain.EntityStore) error {
		if _, err := tx.Insert(ctx, &domain.SoilType{Name: "Kept"}); err != nil {
			return err
		}
		inner := tx.InTx(ctx, func(inner domain.EntityStore) error {
			if _, err := inner.Insert(ctx, &domain.SoilType{Name: "Dropped"}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, inner, boom)
		return nil
	})
	require.NoError(t, err)

	n, err := repo.Count(ctx, domain.KindSoilType)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, found, err := repo.FindByName(ctx, domain.KindSoilType, "Dropped")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOuterTransactionRollback(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)

	err := repo.InTx(ctx, func(tx domain.EntityStore) error {
		if _, err := tx.Insert(ctx, &domain.Antenna{Name: "A", Frequency: 1}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	n, err := repo.Count(ctx, domain.KindAntenna)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResetDatabaseEmptiesCatalog(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t)
	_, err := repo.Insert(ctx, &domain.SoilType{Name: "Clay"})
	require.NoError(t, err)

	version, err := ResetDatabase(ctx, repo.db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	n, err := repo.Count(ctx, domain.KindSoilType)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.Insert(ctx, &domain.SoilType{Name: "Clay"})
	require.NoError(t, err, "schema is usable after reset")
}
