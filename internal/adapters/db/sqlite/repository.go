package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const dsnPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// CatalogRepository implements domain.EntityStore on SQLite. A repository
// returned by InTx is bound to that transaction.
type CatalogRepository struct {
	db *gorm.DB
}

var _ domain.EntityStore = (*CatalogRepository)(nil)

// Open connects to the database file at path with foreign keys enforced.
// Writers are serialized on a single connection.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&" + dsnPragmas
	} else {
		dsn += "?" + dsnPragmas
	}
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) Get(ctx context.Context, kind domain.Kind, id uint) (domain.Record, error) {
	m := newModel(kind)
	if m == nil {
		return nil, unknownKind(kind)
	}
	if err := r.db.WithContext(ctx).First(m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Kind: kind, ID: id}
		}
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return m.record(), nil
}

func (r *CatalogRepository) Exists(ctx context.Context, kind domain.Kind, id uint) (bool, error) {
	m := newModel(kind)
	if m == nil {
		return false, unknownKind(kind)
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(m).Where("id = ?", id).Limit(1).Count(&n).Error; err != nil {
		return false, fmt.Errorf("exists %s %d: %w", kind, id, err)
	}
	return n > 0, nil
}

func (r *CatalogRepository) FindByName(ctx context.Context, kind domain.Kind, name string) (domain.Record, bool, error) {
	m := newModel(kind)
	if m == nil {
		return nil, false, unknownKind(kind)
	}
	err := r.db.WithContext(ctx).Where("name = ? COLLATE NOCASE", name).Order("id").First(m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find %s by name: %w", kind, err)
	}
	return m.record(), true, nil
}

func (r *CatalogRepository) List(ctx context.Context, kind domain.Kind, filter domain.ListFilter, offset, limit int) ([]domain.Record, error) {
	m := newModel(kind)
	if m == nil {
		return nil, unknownKind(kind)
	}
	q := applyFilter(r.db.WithContext(ctx).Model(m), kind, filter).Order("id")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var (
		rows []domain.Record
		err  error
	)
	switch kind {
	case domain.KindSoilType:
		rows, err = find[SoilTypeModel](q)
	case domain.KindMaterial:
		rows, err = find[MaterialModel](q)
	case domain.KindTargetType:
		rows, err = find[TargetTypeModel](q)
	case domain.KindAntenna:
		rows, err = find[AntennaModel](q)
	case domain.KindPulseType:
		rows, err = find[PulseTypeModel](q)
	case domain.KindSoilBoundary:
		rows, err = find[SoilBoundaryModel](q)
	case domain.KindObjectPortrait:
		rows, err = find[ObjectPortraitModel](q)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return rows, nil
}

func find[M any, PM interface {
	*M
	model
}](q *gorm.DB) ([]domain.Record, error) {
	rows := make([]M, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Record, 0, len(rows))
	for i := range rows {
		result = append(result, PM(&rows[i]).record())
	}
	return result, nil
}

func applyFilter(q *gorm.DB, kind domain.Kind, f domain.ListFilter) *gorm.DB {
	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where("name LIKE ?", like(name))
	}
	search := strings.TrimSpace(f.Search)

	switch kind {
	case domain.KindSoilType:
		if search != "" {
			q = q.Where("name LIKE ? OR description LIKE ?", like(search), like(search))
		}
	case domain.KindMaterial:
		if search != "" {
			q = q.Where("name LIKE ?", like(search))
		}
		if f.ParentID != nil {
			q = q.Where("material_id = ?", *f.ParentID)
		} else if !f.AllMaterials {
			q = q.Where("material_id IS NULL")
		}
	case domain.KindTargetType:
		if search != "" {
			q = q.Where("name LIKE ?", like(search))
		}
		if f.Shape != "" {
			q = q.Where("shape = ?", f.Shape)
		}
	case domain.KindAntenna:
		if f.Manufacturer != "" {
			q = q.Where("manufacturer LIKE ?", like(f.Manufacturer))
		}
		if f.MinFrequency != nil {
			q = q.Where("frequency >= ?", *f.MinFrequency)
		}
		if f.MaxFrequency != nil {
			q = q.Where("frequency <= ?", *f.MaxFrequency)
		}
	case domain.KindPulseType:
		if f.Waveform != "" {
			q = q.Where("waveform = ?", f.Waveform)
		}
	case domain.KindSoilBoundary:
		if f.SoilTypeID != nil {
			q = q.Where("soil_type_id = ?", *f.SoilTypeID)
		}
		if f.MinAngle != nil {
			q = q.Where("angle >= ?", *f.MinAngle)
		}
		if f.MaxAngle != nil {
			q = q.Where("angle <= ?", *f.MaxAngle)
		}
	case domain.KindObjectPortrait:
		if f.TargetTypeID != nil {
			q = q.Where("target_type_id = ?", *f.TargetTypeID)
		}
		if f.SoilTypeID != nil {
			q = q.Where("soil_type_id = ?", *f.SoilTypeID)
		}
		if f.AntennaID != nil {
			q = q.Where("antenna_id = ?", *f.AntennaID)
		}
		if f.PulseID != nil {
			q = q.Where("pulse_id = ?", *f.PulseID)
		}
	}
	return q
}

func like(value string) string {
	return "%" + value + "%"
}

func (r *CatalogRepository) Count(ctx context.Context, kind domain.Kind) (int64, error) {
	m := newModel(kind)
	if m == nil {
		return 0, unknownKind(kind)
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(m).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

func (r *CatalogRepository) HasReference(ctx context.Context, kind domain.Kind, field string, id uint) (bool, error) {
	m := newModel(kind)
	if m == nil {
		return false, unknownKind(kind)
	}
	if !kind.IsForeignKey(field) {
		return false, fmt.Errorf("%s has no reference field %q", kind, field)
	}
	var n int64
	err := r.db.WithContext(ctx).Model(m).
		Where(clause.Eq{Column: clause.Column{Name: field}, Value: id}).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("reference %s.%s: %w", kind, field, err)
	}
	return n > 0, nil
}

func (r *CatalogRepository) Insert(ctx context.Context, value domain.Record) (domain.Record, error) {
	m, err := toModel(value)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, translate(value.Kind(), "insert", err)
	}
	return m.record(), nil
}

// Update overwrites every column except id and created_at, then reloads the
// row so the caller sees the stored timestamps.
func (r *CatalogRepository) Update(ctx context.Context, value domain.Record) (domain.Record, error) {
	kind := value.Kind()
	m, err := toModel(value)
	if err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Model(m).Select("*").Omit("id", "created_at").Updates(m)
	if res.Error != nil {
		return nil, translate(kind, "update", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &domain.NotFoundError{Kind: kind, ID: value.RecordID()}
	}
	return r.Get(ctx, kind, value.RecordID())
}

func (r *CatalogRepository) Delete(ctx context.Context, kind domain.Kind, id uint) error {
	m := newModel(kind)
	if m == nil {
		return unknownKind(kind)
	}
	res := r.db.WithContext(ctx).Delete(m, id)
	if res.Error != nil {
		return translate(kind, "delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// InTx opens a transaction, or a savepoint when r is already bound to one.
func (r *CatalogRepository) InTx(ctx context.Context, fn func(tx domain.EntityStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CatalogRepository{db: tx})
	})
}

func (r *CatalogRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps SQLite constraint failures to *domain.ConflictError and
// wraps anything else.
func translate(kind domain.Kind, op string, err error) error {
	var sqlErr *moderncsqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return &domain.ConflictError{Kind: kind, Reason: constraintReason(sqlErr.Code()), Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &domain.ConflictError{Kind: kind, Reason: err.Error(), Err: err}
	}
	return fmt.Errorf("%s %s: %w", op, kind, err)
}

func constraintReason(code int) string {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return "unique constraint failed"
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return "foreign key constraint failed"
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return "not null constraint failed"
	}
	return "constraint failed"
}

func unknownKind(kind domain.Kind) error {
	return fmt.Errorf("unknown entity kind %d", uint8(kind))
}
