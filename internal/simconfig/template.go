package simconfig

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func pointPtr(x, y, z float64) *Coordinate3D {
	p := Point(x, y, z)
	return &p
}

// Template returns a minimal valid document: one soil layer, one target and
// a linear scan across the domain.
func Template() Document {
	return Document{
		Version: DefaultVersion,
		Metadata: map[string]any{
			"author":      "Your Name",
			"created":     "2024-01-01",
			"description": "GPR simulation configuration",
		},
		Simulation: &Simulation{
			Name:        "example_simulation",
			Description: "Example GPR simulation with multiple targets",
			Domain: &Domain{
				Size:             pointPtr(2.0, 2.0, 1.0),
				PMLLayers:        DefaultPMLLayers,
				BackgroundSoilID: intPtr(1),
			},
			GPRConfig: &GPRConfig{
				AntennaID:      intPtr(1),
				PulseID:        intPtr(1),
				FrequencyRange: []float64{100e6, 1000e6},
				TimeWindow:     floatPtr(30e-9),
				Discretization: pointPtr(0.005, 0.005, 0.005),
			},
			Movement: &Movement{
				Type:       DefaultMovementType,
				StartPoint: pointPtr(0.1, 1.0, 0.05),
				EndPoint:   pointPtr(1.9, 1.0, 0.05),
				StepSize:   0.02,
				Speed:      floatPtr(0.5),
			},
			Output: &Output{
				ScanTypes:        []string{"A-scan", "B-scan"},
				OutputFormat:     DefaultOutputFormat,
				OutputDirectory:  DefaultOutputDirectory,
				SaveIntermediate: false,
			},
			SoilLayers: []SoilLayer{
				{
					SoilTypeID:     intPtr(1),
					Thickness:      floatPtr(0.5),
					Position:       pointPtr(1.0, 1.0, 0.5),
					BoundaryParams: map[string]float64{"roughness": 0.01, "humidity": 0.1},
				},
			},
			Targets: []TargetObject{
				{
					TargetTypeID: intPtr(1),
					Position:     pointPtr(1.0, 1.0, 0.3),
					Rotation:     pointPtr(0, 0, 0),
					MaterialID:   intPtr(2),
				},
			},
			CustomParameters: map[string]any{
				"additional_flag": true,
				"precision":       "high",
			},
		},
	}
}
