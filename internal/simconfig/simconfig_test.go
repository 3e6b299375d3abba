package simconfig

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateJSON(t *testing.T) map[string]any {
	t.Helper()
	data, err := Encode(Template(), FormatJSON)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func simulation(doc map[string]any) map[string]any {
	return doc["simulation"].(map[string]any)
}

func parseMap(t *testing.T, doc map[string]any) (Document, error) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return Parse(data, FormatJSON)
}

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	var schemaErr *domain.SchemaViolationError
	require.True(t, errors.As(err, &schemaErr), "expected schema violation, got %v", err)
	fields := make([]string, 0, len(schemaErr.Violations))
	for _, v := range schemaErr.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestTemplateIsValid(t *testing.T) {
	doc := Template()
	require.NoError(t, Validate(&doc))
}

func TestTemplateRoundTripsThroughBothFormats(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		data, err := Encode(Template(), format)
		require.NoError(t, err)
		doc, err := Parse(data, format)
		require.NoError(t, err, string(format))
		assert.Equal(t, Template(), doc, string(format))
	}
}

func TestParseIsIdempotent(t *testing.T) {
	data, err := Encode(Template(), FormatJSON)
	require.NoError(t, err)
	first, err := Parse(data, FormatJSON)
	require.NoError(t, err)
	again, err := Encode(first, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestSoilLayersRequired(t *testing.T) {
	doc := templateJSON(t)
	simulation(doc)["soil_layers"] = []any{}

	_, err := parseMap(t, doc)
	require.ErrorIs(t, err, domain.ErrSchemaViolation)
	assert.Contains(t, err.Error(), "at least one soil layer must be specified")

	delete(simulation(doc), "soil_layers")
	_, err = parseMap(t, doc)
	assert.Contains(t, violationFields(t, err), "simulation.soil_layers")
}

func TestFrequencyRange(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"ordered pair", []any{1e8, 1e9}, true},
		{"absent", nil, true},
		{"descending", []any{1e9, 1e8}, false},
		{"equal", []any{1e8, 1e8}, false},
		{"single value", []any{1e8}, false},
		{"three values", []any{1e8, 2e8, 3e8}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := templateJSON(t)
			gpr := simulation(doc)["gpr_config"].(map[string]any)
			if tt.value == nil {
				delete(gpr, "frequency_range")
			} else {
				gpr["frequency_range"] = tt.value
			}
			_, err := parseMap(t, doc)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, []string{"simulation.gpr_config.frequency_range"}, violationFields(t, err))
		})
	}
}

func TestDefaultsFillAbsentKeys(t *testing.T) {
	doc := templateJSON(t)
	delete(doc, "version")
	sim := simulation(doc)
	delete(sim["domain"].(map[string]any), "pml_layers")
	sim["movement"] = map[string]any{"start_point": map[string]any{"x": 0, "y": 0, "z": 0}}
	sim["output"] = map[string]any{}

	parsed, err := parseMap(t, doc)
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, parsed.Version)
	assert.Equal(t, DefaultPMLLayers, parsed.Simulation.Domain.PMLLayers)
	assert.Equal(t, "linear", parsed.Simulation.Movement.Type)
	assert.Equal(t, DefaultStepSize, parsed.Simulation.Movement.StepSize)
	assert.Equal(t, []string{"A-scan"}, parsed.Simulation.Output.ScanTypes)
	assert.Equal(t, "h5", parsed.Simulation.Output.OutputFormat)
	assert.Equal(t, "./results", parsed.Simulation.Output.OutputDirectory)
}

func TestExplicitZeroIsNotReplacedByDefault(t *testing.T) {
	doc := templateJSON(t)
	simulation(doc)["domain"].(map[string]any)["pml_layers"] = 0

	parsed, err := parseMap(t, doc)
	require.NoError(t, err)
	assert.Zero(t, parsed.Simulation.Domain.PMLLayers)
}

func TestStructuralViolations(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(sim map[string]any)
		field string
	}{
		{"movement type", func(sim map[string]any) { sim["movement"].(map[string]any)["type"] = "spiral" }, "simulation.movement.type"},
		{"missing time window", func(sim map[string]any) { delete(sim["gpr_config"].(map[string]any), "time_window") }, "simulation.gpr_config.time_window"},
		{"missing antenna", func(sim map[string]any) { delete(sim["gpr_config"].(map[string]any), "antenna_id") }, "simulation.gpr_config.antenna_id"},
		{"scan type", func(sim map[string]any) { sim["output"].(map[string]any)["scan_types"] = []any{"D-scan"} }, "simulation.output.scan_types[0]"},
		{"output format", func(sim map[string]any) { sim["output"].(map[string]any)["output_format"] = "csv" }, "simulation.output.output_format"},
		{"target position axis", func(sim map[string]any) {
			target := sim["targets"].([]any)[0].(map[string]any)
			delete(target["position"].(map[string]any), "z")
		}, "simulation.targets[0].position.z"},
		{"missing domain size", func(sim map[string]any) { delete(sim["domain"].(map[string]any), "size") }, "simulation.domain.size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := templateJSON(t)
			tt.edit(simulation(doc))
			_, err := parseMap(t, doc)
			assert.Contains(t, violationFields(t, err), tt.field)
		})
	}
}

func TestNumericValuesAreNotRangeChecked(t *testing.T) {
	tests := []struct {
		name string
		edit func(doc map[string]any)
	}{
		{"zero step size", func(doc map[string]any) { simulation(doc)["movement"].(map[string]any)["step_size"] = 0 }},
		{"zero speed", func(doc map[string]any) { simulation(doc)["movement"].(map[string]any)["speed"] = 0 }},
		{"zero thickness", func(doc map[string]any) {
			simulation(doc)["soil_layers"].([]any)[0].(map[string]any)["thickness"] = 0
		}},
		{"zero time window", func(doc map[string]any) { simulation(doc)["gpr_config"].(map[string]any)["time_window"] = 0 }},
		{"zero discretization axis", func(doc map[string]any) {
			simulation(doc)["gpr_config"].(map[string]any)["discretization"] = map[string]any{"x": 0.005, "y": 0.005, "z": 0}
		}},
		{"zero domain size axis", func(doc map[string]any) {
			simulation(doc)["domain"].(map[string]any)["size"] = map[string]any{"x": 0, "y": 1, "z": 1}
		}},
		{"negative pml layers", func(doc map[string]any) { simulation(doc)["domain"].(map[string]any)["pml_layers"] = -1 }},
		{"empty version", func(doc map[string]any) { doc["version"] = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := templateJSON(t)
			tt.edit(doc)
			_, err := parseMap(t, doc)
			require.NoError(t, err)
		})
	}
}

func TestWrongTypeIsSchemaViolation(t *testing.T) {
	_, err := Parse([]byte(`{"version": 1, "simulation": {}}`), FormatJSON)
	require.ErrorIs(t, err, domain.ErrSchemaViolation)

	_, err = Parse([]byte(`{`), FormatJSON)
	require.ErrorIs(t, err, domain.ErrSchemaViolation)

	_, err = Parse([]byte("version: [unclosed"), FormatYAML)
	require.ErrorIs(t, err, domain.ErrSchemaViolation)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"sim.json", "sim.yaml", "sim.yml"} {
		path := filepath.Join(dir, name)
		data, err := Encode(Template(), FormatFromPath(path))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		doc, err := LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, "example_simulation", doc.Simulation.Name)
	}

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("b.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("b.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("b"))
}
