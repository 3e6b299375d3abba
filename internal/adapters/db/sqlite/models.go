package sqlite

import (
	"encoding/json"
	"time"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"gorm.io/datatypes"
)

// model is the row form of a domain record.
type model interface {
	TableName() string
	record() domain.Record
}

type SoilTypeModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	Parameters  datatypes.JSON
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SoilTypeModel) TableName() string { return "soil_types" }

type MaterialModel struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Shape      string
	Drawing    string
	MaterialID *uint `gorm:"index"`
	Parameters datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (MaterialModel) TableName() string { return "materials" }

type TargetTypeModel struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Shape      string `gorm:"not null"`
	Drawing    string
	MaterialID *uint `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (TargetTypeModel) TableName() string { return "target_types" }

type AntennaModel struct {
	ID           uint    `gorm:"primaryKey"`
	Name         string  `gorm:"not null"`
	Frequency    float64 `gorm:"not null"`
	Manufacturer string
	Parameters   datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AntennaModel) TableName() string { return "antennas" }

type PulseTypeModel struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Waveform   string `gorm:"not null"`
	Parameters datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (PulseTypeModel) TableName() string { return "pulse_types" }

type SoilBoundaryModel struct {
	ID         uint `gorm:"primaryKey"`
	Angle      float64
	Roughness  float64
	Humidity   float64
	SoilTypeID uint `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (SoilBoundaryModel) TableName() string { return "soil_boundaries" }

type ObjectPortraitModel struct {
	ID               uint `gorm:"primaryKey"`
	TargetTypeID     uint `gorm:"not null;index"`
	SoilTypeID       uint `gorm:"not null;index"`
	AntennaID        uint `gorm:"not null;index"`
	PulseID          uint `gorm:"not null;index"`
	SimulationParams datatypes.JSON
	ResultFilePath   string `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ObjectPortraitModel) TableName() string { return "object_portraits" }

func newModel(kind domain.Kind) model {
	switch kind {
	case domain.KindSoilType:
		return &SoilTypeModel{}
	case domain.KindMaterial:
		return &MaterialModel{}
	case domain.KindTargetType:
		return &TargetTypeModel{}
	case domain.KindAntenna:
		return &AntennaModel{}
	case domain.KindPulseType:
		return &PulseTypeModel{}
	case domain.KindSoilBoundary:
		return &SoilBoundaryModel{}
	case domain.KindObjectPortrait:
		return &ObjectPortraitModel{}
	}
	return nil
}

func toModel(value domain.Record) (model, error) {
	switch v := value.(type) {
	case *domain.SoilType:
		params, err := encodeJSON(v.Parameters)
		if err != nil {
			return nil, err
		}
		return &SoilTypeModel{ID: v.ID, Name: v.Name, Description: v.Description, Parameters: params, CreatedAt: v.CreatedAt}, nil
	case *domain.Material:
		params, err := encodeJSON(v.Parameters)
		if err != nil {
			return nil, err
		}
		return &MaterialModel{ID: v.ID, Name: v.Name, Shape: v.Shape, Drawing: v.Drawing, MaterialID: v.MaterialID, Parameters: params, CreatedAt: v.CreatedAt}, nil
	case *domain.TargetType:
		return &TargetTypeModel{ID: v.ID, Name: v.Name, Shape: v.Shape, Drawing: v.Drawing, MaterialID: v.MaterialID, CreatedAt: v.CreatedAt}, nil
	case *domain.Antenna:
		params, err := encodeJSON(v.Parameters)
		if err != nil {
			return nil, err
		}
		return &AntennaModel{ID: v.ID, Name: v.Name, Frequency: v.Frequency, Manufacturer: v.Manufacturer, Parameters: params, CreatedAt: v.CreatedAt}, nil
	case *domain.PulseType:
		params, err := encodeJSON(v.Parameters)
		if err != nil {
			return nil, err
		}
		return &PulseTypeModel{ID: v.ID, Name: v.Name, Waveform: v.Waveform, Parameters: params, CreatedAt: v.CreatedAt}, nil
	case *domain.SoilBoundary:
		return &SoilBoundaryModel{ID: v.ID, Angle: v.Angle, Roughness: v.Roughness, Humidity: v.Humidity, SoilTypeID: v.SoilTypeID, CreatedAt: v.CreatedAt}, nil
	case *domain.ObjectPortrait:
		params, err := encodeJSON(v.SimulationParams)
		if err != nil {
			return nil, err
		}
		return &ObjectPortraitModel{
			ID:               v.ID,
			TargetTypeID:     v.TargetTypeID,
			SoilTypeID:       v.SoilTypeID,
			AntennaID:        v.AntennaID,
			PulseID:          v.PulseID,
			SimulationParams: params,
			ResultFilePath:   v.ResultFilePath,
			CreatedAt:        v.CreatedAt,
		}, nil
	}
	return nil, domain.Violate("entity_type", "unknown entity kind")
}

func (m *SoilTypeModel) record() domain.Record {
	return &domain.SoilType{ID: m.ID, Name: m.Name, Description: m.Description, Parameters: decodeJSON(m.Parameters), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *MaterialModel) record() domain.Record {
	return &domain.Material{ID: m.ID, Name: m.Name, Shape: m.Shape, Drawing: m.Drawing, MaterialID: m.MaterialID, Parameters: decodeJSON(m.Parameters), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *TargetTypeModel) record() domain.Record {
	return &domain.TargetType{ID: m.ID, Name: m.Name, Shape: m.Shape, Drawing: m.Drawing, MaterialID: m.MaterialID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *AntennaModel) record() domain.Record {
	return &domain.Antenna{ID: m.ID, Name: m.Name, Frequency: m.Frequency, Manufacturer: m.Manufacturer, Parameters: decodeJSON(m.Parameters), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *PulseTypeModel) record() domain.Record {
	return &domain.PulseType{ID: m.ID, Name: m.Name, Waveform: m.Waveform, Parameters: decodeJSON(m.Parameters), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *SoilBoundaryModel) record() domain.Record {
	return &domain.SoilBoundary{ID: m.ID, Angle: m.Angle, Roughness: m.Roughness, Humidity: m.Humidity, SoilTypeID: m.SoilTypeID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *ObjectPortraitModel) record() domain.Record {
	return &domain.ObjectPortrait{
		ID:               m.ID,
		TargetTypeID:     m.TargetTypeID,
		SoilTypeID:       m.SoilTypeID,
		AntennaID:        m.AntennaID,
		PulseID:          m.PulseID,
		SimulationParams: decodeJSON(m.SimulationParams),
		ResultFilePath:   m.ResultFilePath,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// encodeJSON stores a nil map as SQL NULL.
func encodeJSON(value map[string]any) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, &domain.DecodeError{Field: "parameters", Reason: err.Error()}
	}
	return datatypes.JSON(raw), nil
}

func decodeJSON(raw datatypes.JSON) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
