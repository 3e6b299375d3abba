package domain

import (
	"fmt"
	"strings"
)

// Kind identifies one of the seven catalog entity kinds.
type Kind uint8

const (
	KindSoilType Kind = iota + 1
	KindMaterial
	KindTargetType
	KindAntenna
	KindPulseType
	KindSoilBoundary
	KindObjectPortrait
)

// Kinds lists every kind in ingestion order: a kind appears only after all
// kinds it can reference.
var Kinds = []Kind{
	KindSoilType,
	KindMaterial,
	KindTargetType,
	KindAntenna,
	KindPulseType,
	KindSoilBoundary,
	KindObjectPortrait,
}

// ForeignKey is a reference field declared on a kind.
type ForeignKey struct {
	Field  string
	Target Kind
}

// Dependent is a (kind, field) pair that may point at a row of another kind.
type Dependent struct {
	Kind  Kind
	Field string
}

type KindSpec struct {
	Collection  string
	Label       string
	Path        string
	ForeignKeys []ForeignKey
	// Dependents block deletion; the first one found wins.
	Dependents []Dependent
	UniqueName bool
}

var kindSpecs = map[Kind]KindSpec{
	KindSoilType: {
		Collection: "soil_types",
		Label:      "soil type",
		Path:       "soil-types",
		Dependents: []Dependent{
			{Kind: KindSoilBoundary, Field: "soil_type_id"},
			{Kind: KindObjectPortrait, Field: "soil_type_id"},
		},
		UniqueName: true,
	},
	KindMaterial: {
		Collection:  "materials",
		Label:       "material",
		Path:        "materials",
		ForeignKeys: []ForeignKey{{Field: "material_id", Target: KindMaterial}},
		Dependents: []Dependent{
			{Kind: KindTargetType, Field: "material_id"},
			{Kind: KindMaterial, Field: "material_id"},
		},
	},
	KindTargetType: {
		Collection:  "target_types",
		Label:       "target type",
		Path:        "target-types",
		ForeignKeys: []ForeignKey{{Field: "material_id", Target: KindMaterial}},
		Dependents:  []Dependent{{Kind: KindObjectPortrait, Field: "target_type_id"}},
	},
	KindAntenna: {
		Collection: "antennas",
		Label:      "antenna",
		Path:       "antennas",
		Dependents: []Dependent{{Kind: KindObjectPortrait, Field: "antenna_id"}},
	},
	KindPulseType: {
		Collection: "pulse_types",
		Label:      "pulse type",
		Path:       "pulse-types",
		Dependents: []Dependent{{Kind: KindObjectPortrait, Field: "pulse_id"}},
	},
	KindSoilBoundary: {
		Collection:  "soil_boundaries",
		Label:       "soil boundary",
		Path:        "soil-boundaries",
		ForeignKeys: []ForeignKey{{Field: "soil_type_id", Target: KindSoilType}},
	},
	KindObjectPortrait: {
		Collection: "object_portraits",
		Label:      "object portrait",
		Path:       "object-portraits",
		ForeignKeys: []ForeignKey{
			{Field: "target_type_id", Target: KindTargetType},
			{Field: "soil_type_id", Target: KindSoilType},
			{Field: "antenna_id", Target: KindAntenna},
			{Field: "pulse_id", Target: KindPulseType},
		},
	},
}

func (k Kind) Spec() KindSpec {
	return kindSpecs[k]
}

func (k Kind) Valid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// String returns the collection name, e.g. "soil_types".
func (k Kind) String() string {
	if spec, ok := kindSpecs[k]; ok {
		return spec.Collection
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Label() string {
	return kindSpecs[k].Label
}

func (k Kind) Path() string {
	return kindSpecs[k].Path
}

// IsForeignKey reports whether field is declared as a reference on k.
func (k Kind) IsForeignKey(field string) bool {
	for _, fk := range kindSpecs[k].ForeignKeys {
		if fk.Field == field {
			return true
		}
	}
	return false
}

// New returns an empty record of the kind.
func (k Kind) New() Record {
	switch k {
	case KindSoilType:
		return &SoilType{}
	case KindMaterial:
		return &Material{}
	case KindTargetType:
		return &TargetType{}
	case KindAntenna:
		return &Antenna{}
	case KindPulseType:
		return &PulseType{}
	case KindSoilBoundary:
		return &SoilBoundary{}
	case KindObjectPortrait:
		return &ObjectPortrait{}
	}
	return nil
}

// ParseKind accepts collection names ("soil_types"), URL paths
// ("soil-types") and labels ("soil type").
func ParseKind(raw string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, k := range Kinds {
		spec := kindSpecs[k]
		if norm == spec.Collection || norm == strings.ReplaceAll(spec.Label, " ", "_") {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", raw)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown entity kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
