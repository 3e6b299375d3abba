package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/gprcatalog/internal/adapters/db/sqlite"
	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) (*CatalogService, *sqlite.CatalogRepository) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	_, err = sqlite.RunMigrations(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := sqlite.NewCatalogRepository(db)
	return NewCatalogService(repo, opts...), repo
}

func mustCreate(t *testing.T, svc *CatalogService, kind domain.Kind, fields domain.Fields) uint {
	t.Helper()
	rec, err := svc.Create(context.Background(), kind, fields)
	require.NoError(t, err)
	return rec.RecordID()
}

// seedCatalog creates one record of every kind, each linked to the previous
// ones, and returns their ids.
func seedCatalog(t *testing.T, svc *CatalogService) map[domain.Kind]uint {
	t.Helper()
	ids := map[domain.Kind]uint{}
	ids[domain.KindSoilType] = mustCreate(t, svc, domain.KindSoilType, domain.Fields{"name": "Clay"})
	ids[domain.KindMaterial] = mustCreate(t, svc, domain.KindMaterial, domain.Fields{"name": "Metal"})
	ids[domain.KindTargetType] = mustCreate(t, svc, domain.KindTargetType, domain.Fields{"name": "Pipe", "shape": "cylinder", "material_id": ids[domain.KindMaterial]})
	ids[domain.KindAntenna] = mustCreate(t, svc, domain.KindAntenna, domain.Fields{"name": "GSSI 400", "frequency": 400e6})
	ids[domain.KindPulseType] = mustCreate(t, svc, domain.KindPulseType, domain.Fields{"name": "Ricker", "waveform": "ricker"})
	ids[domain.KindSoilBoundary] = mustCreate(t, svc, domain.KindSoilBoundary, domain.Fields{"angle": 10.0, "soil_type_id": ids[domain.KindSoilType]})
	ids[domain.KindObjectPortrait] = mustCreate(t, svc, domain.KindObjectPortrait, domain.Fields{
		"target_type_id":   ids[domain.KindTargetType],
		"soil_type_id":     ids[domain.KindSoilType],
		"antenna_id":       ids[domain.KindAntenna],
		"pulse_id":         ids[domain.KindPulseType],
		"result_file_path": "results/pipe.h5",
	})
	return ids
}
