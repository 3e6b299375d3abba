package domain

import "time"

// Record is a catalog row of one of the seven entity kinds.
type Record interface {
	Kind() Kind
	RecordID() uint
	// ForeignKey returns the value of a foreign-key field, or nil when the
	// field is unset.
	ForeignKey(field string) *uint
	// Apply merges decoded fields into the record, rejecting unknown ones.
	Apply(fields Fields) error
	// Validate checks required fields and intra-record constraints.
	Validate() error
}

// Named is implemented by records that carry a name.
type Named interface {
	GetName() string
}

type SoilType struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Material struct {
	ID         uint           `json:"id"`
	Name       string         `json:"name"`
	Shape      string         `json:"shape,omitempty"`
	Drawing    string         `json:"drawing,omitempty"`
	MaterialID *uint          `json:"material_id"`
	Parameters map[string]any `json:"parameters"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type TargetType struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Shape      string    `json:"shape"`
	Drawing    string    `json:"drawing,omitempty"`
	MaterialID *uint     `json:"material_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Antenna struct {
	ID           uint           `json:"id"`
	Name         string         `json:"name"`
	Frequency    float64        `json:"frequency"`
	Manufacturer string         `json:"manufacturer,omitempty"`
	Parameters   map[string]any `json:"parameters"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type PulseType struct {
	ID         uint           `json:"id"`
	Name       string         `json:"name"`
	Waveform   string         `json:"waveform"`
	Parameters map[string]any `json:"parameters"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type SoilBoundary struct {
	ID         uint      `json:"id"`
	Angle      float64   `json:"angle"`
	Roughness  float64   `json:"roughness"`
	Humidity   float64   `json:"humidity"`
	SoilTypeID uint      `json:"soil_type_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ObjectPortrait ties a target type, soil type, antenna and pulse to a
// stored simulation result.
type ObjectPortrait struct {
	ID               uint           `json:"id"`
	TargetTypeID     uint           `json:"target_type_id"`
	SoilTypeID       uint           `json:"soil_type_id"`
	AntennaID        uint           `json:"antenna_id"`
	PulseID          uint           `json:"pulse_id"`
	SimulationParams map[string]any `json:"simulation_params"`
	ResultFilePath   string         `json:"result_file_path"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (*SoilType) Kind() Kind       { return KindSoilType }
func (*Material) Kind() Kind       { return KindMaterial }
func (*TargetType) Kind() Kind     { return KindTargetType }
func (*Antenna) Kind() Kind        { return KindAntenna }
func (*PulseType) Kind() Kind      { return KindPulseType }
func (*SoilBoundary) Kind() Kind   { return KindSoilBoundary }
func (*ObjectPortrait) Kind() Kind { return KindObjectPortrait }

func (v *SoilType) RecordID() uint       { return v.ID }
func (v *Material) RecordID() uint       { return v.ID }
func (v *TargetType) RecordID() uint     { return v.ID }
func (v *Antenna) RecordID() uint        { return v.ID }
func (v *PulseType) RecordID() uint      { return v.ID }
func (v *SoilBoundary) RecordID() uint   { return v.ID }
func (v *ObjectPortrait) RecordID() uint { return v.ID }

func (v *SoilType) GetName() string   { return v.Name }
func (v *Material) GetName() string   { return v.Name }
func (v *TargetType) GetName() string { return v.Name }
func (v *Antenna) GetName() string    { return v.Name }
func (v *PulseType) GetName() string  { return v.Name }

func (*SoilType) ForeignKey(string) *uint  { return nil }
func (*Antenna) ForeignKey(string) *uint   { return nil }
func (*PulseType) ForeignKey(string) *uint { return nil }

func (v *Material) ForeignKey(field string) *uint {
	if field == "material_id" {
		return v.MaterialID
	}
	return nil
}

func (v *TargetType) ForeignKey(field string) *uint {
	if field == "material_id" {
		return v.MaterialID
	}
	return nil
}

func (v *SoilBoundary) ForeignKey(field string) *uint {
	if field == "soil_type_id" {
		return nonZero(v.SoilTypeID)
	}
	return nil
}

func (v *ObjectPortrait) ForeignKey(field string) *uint {
	switch field {
	case "target_type_id":
		return nonZero(v.TargetTypeID)
	case "soil_type_id":
		return nonZero(v.SoilTypeID)
	case "antenna_id":
		return nonZero(v.AntennaID)
	case "pulse_id":
		return nonZero(v.PulseID)
	}
	return nil
}

func nonZero(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
