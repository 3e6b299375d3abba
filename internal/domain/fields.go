package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Fields is a decoded field set for one record, as produced by a JSON body or
// an imported row. Values are JSON-shaped: nil, bool, string, float64,
// json.Number, int64, map[string]any.
type Fields map[string]any

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// readOnlyFields are accepted and ignored so that exported rows can be
// re-imported.
var readOnlyFields = map[string]bool{"created_at": true, "updated_at": true}

func (v *SoilType) Apply(fields Fields) error {
	for _, key := range fields.Keys() {
		raw := fields[key]
		var err error
		switch key {
		case "id":
			err = setID(&v.ID, key, raw)
		case "name":
			v.Name, err = asString(key, raw)
		case "description":
			v.Description, err = asString(key, raw)
		case "parameters":
			v.Parameters, err = asMap(key, raw)
		default:
			err = unknownField(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *Material) Apply(fields Fields) error {
	for _, key := range fields.Keys() {
		raw := fields[key]
		var err error
		switch key {
		case "id":
			err = setID(&v.ID, key, raw)
		case "name":
			v.Name, err = asString(key, raw)
		case "shape":
			v.Shape, err = asString(key, raw)
		case "drawing":
			v.Drawing, err = asString(key, raw)
		case "material_id":
			v.MaterialID, err = asOptionalID(key, raw)
		case "parameters":
			v.Parameters, err = asMap(key, raw)
		default:
			err = unknownField(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *TargetType) Apply(fields Fields) error {
	for _, key := range fields.Keys() {
		raw := fields[key]
		var err error
		switch key {
		case "id":
			err = setID(&v.ID, key, raw)
		case "name":
			v.Name, err = asString(key, raw)
		case "shape":
			v.Shape, err = asString(key, raw)
		case "drawing":
			v.Drawing, err = asString(key, raw)
		case "material_id":
			v.MaterialID, err = asOptionalID(key, raw)
		default:
			err = unknownField(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *Antenna) Apply(fields Fields) error {
	for _, key := range fields.Keys() {
		raw := fields[key]
		var err error
		switch key {
		case "id":
			err = setID(&v.ID, key, raw)
		case "name":
			v.Name, err = asString(key, raw)
		case "frequency":
			v.Frequency, err = asFloat(key, raw)
		case "manufacturer":
			v.Manufacturer, err = asString(key, raw)
		case "parameters":
			v.Parameters, err = asMap(key, raw)
		default:
			err = unknownField(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *PulseType) Apply(fields Fields) error {
	for _, key := range fields.Keys() {
		raw := fields[key]
		var err error
		switch key {
		case "id":
			err = setID(&v.ID, key, raw)
		case "name":
			v.Name, err = asString(key, raw)
		case "waveform":
			v.Waveform, err = asString(key, raw)
		case "parameters":
			v.Parameters, err = asMap(key, raw)
		default:
			err = unknownField(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *SoilBoundary) Apply(fields Fields) error {
	for _, key := range fields.Keys() {
		raw := fields[key]
		var err error
		switch key {
		case "id":
			err = setID(&v.ID, key, raw)
		case "angle":
			v.Angle, err = asFloat(key, raw)
		case "roughness":
			v.Roughness, err = asFloat(key, raw)
		case "humidity":
			v.Humidity, err = asFloat(key, raw)
		case "soil_type_id":
			v.SoilTypeID, err = asID(key, raw)
		default:
			err = unknownField(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *ObjectPortrait) Apply(fields Fields) error {
	for _, key := range fields.Keys() {
		raw := fields[key]
		var err error
		switch key {
		case "id":
			err = setID(&v.ID, key, raw)
		case "target_type_id":
			v.TargetTypeID, err = asID(key, raw)
		case "soil_type_id":
			v.SoilTypeID, err = asID(key, raw)
		case "antenna_id":
			v.AntennaID, err = asID(key, raw)
		case "pulse_id":
			v.PulseID, err = asID(key, raw)
		case "simulation_params":
			v.SimulationParams, err = asMap(key, raw)
		case "result_file_path":
			v.ResultFilePath, err = asString(key, raw)
		default:
			err = unknownField(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *SoilType) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return Violate("name", "field required")
	}
	return nil
}

func (v *Material) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return Violate("name", "field required")
	}
	return nil
}

func (v *TargetType) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return Violate("name", "field required")
	}
	if strings.TrimSpace(v.Shape) == "" {
		return Violate("shape", "field required")
	}
	return nil
}

func (v *Antenna) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return Violate("name", "field required")
	}
	if !(v.Frequency > 0) || math.IsInf(v.Frequency, 0) {
		return Violate("frequency", "must be a positive number of hertz")
	}
	return nil
}

func (v *PulseType) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return Violate("name", "field required")
	}
	if strings.TrimSpace(v.Waveform) == "" {
		return Violate("waveform", "field required")
	}
	return nil
}

func (v *SoilBoundary) Validate() error {
	if v.SoilTypeID == 0 {
		return Violate("soil_type_id", "field required")
	}
	for _, f := range []struct {
		field string
		value float64
	}{{"angle", v.Angle}, {"roughness", v.Roughness}, {"humidity", v.Humidity}} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return Violate(f.field, "must be a finite number")
		}
	}
	return nil
}

func (v *ObjectPortrait) Validate() error {
	required := []struct {
		field string
		value uint
	}{
		{"target_type_id", v.TargetTypeID},
		{"soil_type_id", v.SoilTypeID},
		{"antenna_id", v.AntennaID},
		{"pulse_id", v.PulseID},
	}
	var violations []Violation
	for _, r := range required {
		if r.value == 0 {
			violations = append(violations, Violation{Field: r.field, Message: "field required"})
		}
	}
	if strings.TrimSpace(v.ResultFilePath) == "" {
		violations = append(violations, Violation{Field: "result_file_path", Message: "field required"})
	}
	if len(violations) > 0 {
		return &SchemaViolationError{Violations: violations}
	}
	return nil
}

func unknownField(key string) error {
	if readOnlyFields[key] {
		return nil
	}
	return &DecodeError{Field: key, Reason: "unknown field"}
}

func setID(dst *uint, key string, raw any) error {
	if raw == nil {
		return nil
	}
	id, err := asID(key, raw)
	if err != nil {
		return err
	}
	*dst = id
	return nil
}

func asString(key string, raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	return "", &DecodeError{Field: key, Value: fmt.Sprint(raw), Reason: "expected a string"}
}

func asFloat(key string, raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, &DecodeError{Field: key, Value: v.String(), Reason: "expected a number"}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, &DecodeError{Field: key, Value: v, Reason: "expected a number"}
		}
		return f, nil
	}
	return 0, &DecodeError{Field: key, Value: fmt.Sprint(raw), Reason: "expected a number"}
}

func asID(key string, raw any) (uint, error) {
	id, err := asOptionalID(key, raw)
	if err != nil || id == nil {
		return 0, err
	}
	return *id, nil
}

func asOptionalID(key string, raw any) (*uint, error) {
	bad := func(value string) error {
		return &DecodeError{Field: key, Value: value, Reason: "expected a positive integer id"}
	}
	var n int64
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, bad(fmt.Sprint(v))
		}
		n = int64(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return nil, bad(v.String())
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, bad(v)
		}
		n = parsed
	default:
		return nil, bad(fmt.Sprint(raw))
	}
	if n <= 0 {
		return nil, bad(strconv.FormatInt(n, 10))
	}
	id := uint(n)
	return &id, nil
}

func asMap(key string, raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case Fields:
		return map[string]any(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, &DecodeError{Field: key, Reason: "invalid JSON object"}
		}
		return out, nil
	}
	return nil, &DecodeError{Field: key, Value: fmt.Sprint(raw), Reason: "expected an object"}
}
