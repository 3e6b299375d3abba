package domain

import "context"

// ListFilter narrows List results. Fields that do not apply to the listed
// kind are ignored.
type ListFilter struct {
	// Name is a case-insensitive substring match on name.
	Name string `json:"name,omitempty"`
	// Search matches name, and description where the kind has one.
	Search string `json:"search,omitempty"`
	// ParentID selects child materials; when nil only root materials are
	// listed unless AllMaterials is set.
	ParentID     *uint    `json:"parent_id,omitempty"`
	AllMaterials bool     `json:"all_materials,omitempty"`
	Shape        string   `json:"shape,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	MinFrequency *float64 `json:"min_frequency,omitempty"`
	MaxFrequency *float64 `json:"max_frequency,omitempty"`
	Waveform     string   `json:"waveform,omitempty"`
	SoilTypeID   *uint    `json:"soil_type_id,omitempty"`
	MinAngle     *float64 `json:"min_angle,omitempty"`
	MaxAngle     *float64 `json:"max_angle,omitempty"`
	TargetTypeID *uint    `json:"target_type_id,omitempty"`
	AntennaID    *uint    `json:"antenna_id,omitempty"`
	PulseID      *uint    `json:"pulse_id,omitempty"`
}

// EntityStore is durable keyed storage for every kind.
type EntityStore interface {
	// Get returns *NotFoundError when the row does not exist.
	Get(ctx context.Context, kind Kind, id uint) (Record, error)
	Exists(ctx context.Context, kind Kind, id uint) (bool, error)
	// FindByName matches name case-insensitively.
	FindByName(ctx context.Context, kind Kind, name string) (Record, bool, error)
	List(ctx context.Context, kind Kind, filter ListFilter, offset, limit int) ([]Record, error)
	Count(ctx context.Context, kind Kind) (int64, error)
	// HasReference reports whether any row of kind has field equal to id.
	HasReference(ctx context.Context, kind Kind, field string, id uint) (bool, error)
	Insert(ctx context.Context, value Record) (Record, error)
	Update(ctx context.Context, value Record) (Record, error)
	Delete(ctx context.Context, kind Kind, id uint) error
	// InTx runs fn against a store bound to one transaction. Nested calls
	// open a savepoint; an error from fn rolls back to it.
	InTx(ctx context.Context, fn func(tx EntityStore) error) error
	Ping(ctx context.Context) error
}
