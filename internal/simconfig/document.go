// Package simconfig parses and validates GPR simulation configuration
// documents. It checks document shape and internal numeric consistency only;
// identifiers are not resolved against the catalog.
package simconfig

import "encoding/json"

const (
	DefaultVersion         = "1.0"
	DefaultPMLLayers       = 10
	DefaultMovementType    = "linear"
	DefaultStepSize        = 0.1
	DefaultOutputFormat    = "h5"
	DefaultOutputDirectory = "./results"
)

// Coordinate3D components are pointers so that a missing axis is reported
// instead of read as zero.
type Coordinate3D struct {
	X *float64 `json:"x" yaml:"x" validate:"required"`
	Y *float64 `json:"y" yaml:"y" validate:"required"`
	Z *float64 `json:"z" yaml:"z" validate:"required"`
}

// Point builds a fully populated coordinate.
func Point(x, y, z float64) Coordinate3D {
	return Coordinate3D{X: &x, Y: &y, Z: &z}
}

// Values returns the components, with zero for unset ones.
func (c Coordinate3D) Values() (x, y, z float64) {
	if c.X != nil {
		x = *c.X
	}
	if c.Y != nil {
		y = *c.Y
	}
	if c.Z != nil {
		z = *c.Z
	}
	return x, y, z
}

type SoilLayer struct {
	SoilTypeID     *int               `json:"soil_type_id" yaml:"soil_type_id" validate:"required"`
	Thickness      *float64           `json:"thickness" yaml:"thickness" validate:"required"`
	Position       *Coordinate3D      `json:"position" yaml:"position" validate:"required"`
	BoundaryParams map[string]float64 `json:"boundary_params,omitempty" yaml:"boundary_params,omitempty"`
}

type TargetObject struct {
	TargetTypeID     *int           `json:"target_type_id" yaml:"target_type_id" validate:"required"`
	Position         *Coordinate3D  `json:"position" yaml:"position" validate:"required"`
	Rotation         *Coordinate3D  `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	MaterialID       *int           `json:"material_id,omitempty" yaml:"material_id,omitempty"`
	CustomParameters map[string]any `json:"custom_parameters,omitempty" yaml:"custom_parameters,omitempty"`
}

type Movement struct {
	Type       string         `json:"type" yaml:"type" validate:"oneof=linear grid custom"`
	StartPoint *Coordinate3D  `json:"start_point" yaml:"start_point" validate:"required"`
	EndPoint   *Coordinate3D  `json:"end_point,omitempty" yaml:"end_point,omitempty"`
	StepSize   float64        `json:"step_size" yaml:"step_size"`
	Trajectory []Coordinate3D `json:"trajectory,omitempty" yaml:"trajectory,omitempty" validate:"omitempty,dive"`
	Speed      *float64       `json:"speed,omitempty" yaml:"speed,omitempty"`
}

type GPRConfig struct {
	AntennaID      *int          `json:"antenna_id" yaml:"antenna_id" validate:"required"`
	PulseID        *int          `json:"pulse_id" yaml:"pulse_id" validate:"required"`
	FrequencyRange []float64     `json:"frequency_range,omitempty" yaml:"frequency_range,omitempty"`
	TimeWindow     *float64      `json:"time_window" yaml:"time_window" validate:"required"`
	Discretization *Coordinate3D `json:"discretization" yaml:"discretization" validate:"required"`
}

type Domain struct {
	Size             *Coordinate3D `json:"size" yaml:"size" validate:"required"`
	PMLLayers        int           `json:"pml_layers" yaml:"pml_layers"`
	BackgroundSoilID *int          `json:"background_soil_id" yaml:"background_soil_id" validate:"required"`
}

type Output struct {
	ScanTypes        []string `json:"scan_types" yaml:"scan_types" validate:"dive,oneof=A-scan B-scan C-scan"`
	OutputFormat     string   `json:"output_format" yaml:"output_format" validate:"oneof=h5 out both"`
	OutputDirectory  string   `json:"output_directory" yaml:"output_directory"`
	SaveIntermediate bool     `json:"save_intermediate" yaml:"save_intermediate"`
}

type Simulation struct {
	Name             string         `json:"name" yaml:"name" validate:"required"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	Domain           *Domain        `json:"domain" yaml:"domain" validate:"required"`
	GPRConfig        *GPRConfig     `json:"gpr_config" yaml:"gpr_config" validate:"required"`
	Movement         *Movement      `json:"movement" yaml:"movement" validate:"required"`
	Output           *Output        `json:"output" yaml:"output" validate:"required"`
	SoilLayers       []SoilLayer    `json:"soil_layers" yaml:"soil_layers" validate:"required,min=1,dive"`
	Targets          []TargetObject `json:"targets" yaml:"targets" validate:"required,dive"`
	CustomParameters map[string]any `json:"custom_parameters,omitempty" yaml:"custom_parameters,omitempty"`
}

// Document is the top-level configuration file.
type Document struct {
	Version    string         `json:"version" yaml:"version"`
	Simulation *Simulation    `json:"simulation" yaml:"simulation" validate:"required"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// The UnmarshalJSON methods below seed defaults before decoding so that only
// absent keys keep them.

func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	v := plain{Version: DefaultVersion}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Document(v)
	return nil
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	type plain Domain
	v := plain{PMLLayers: DefaultPMLLayers}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Domain(v)
	return nil
}

func (m *Movement) UnmarshalJSON(data []byte) error {
	type plain Movement
	v := plain{Type: DefaultMovementType, StepSize: DefaultStepSize}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Movement(v)
	return nil
}

func (o *Output) UnmarshalJSON(data []byte) error {
	type plain Output
	v := plain{
		ScanTypes:       []string{"A-scan"},
		OutputFormat:    DefaultOutputFormat,
		OutputDirectory: DefaultOutputDirectory,
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Output(v)
	return nil
}
