package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/simconfig"
)

type ConfigValidation struct {
	Valid    bool               `json:"valid"`
	Message  string             `json:"message"`
	Document simconfig.Document `json:"config"`
}

// ValidateConfig parses a simulation document. With resolve set, every
// catalog identifier it mentions must also exist; missing ones are reported
// together.
func (s *CatalogService) ValidateConfig(ctx context.Context, data []byte, format simconfig.Format, resolve bool) (out ConfigValidation, err error) {
	defer s.observe(ctx, "config.validate", time.Now(), &err)

	doc, err := simconfig.Parse(data, format)
	if err != nil {
		return ConfigValidation{}, err
	}
	if resolve {
		if err := resolveConfig(ctx, s.store, doc); err != nil {
			return ConfigValidation{}, err
		}
	}
	return ConfigValidation{Valid: true, Message: "configuration is valid", Document: doc}, nil
}

// ConfigTemplate renders the example document.
func (s *CatalogService) ConfigTemplate(format simconfig.Format) ([]byte, error) {
	return simconfig.Encode(simconfig.Template(), format)
}

type configRef struct {
	field string
	kind  domain.Kind
	id    *int
}

func resolveConfig(ctx context.Context, store domain.EntityStore, doc simconfig.Document) error {
	sim := doc.Simulation
	refs := []configRef{
		{"simulation.domain.background_soil_id", domain.KindSoilType, sim.Domain.BackgroundSoilID},
		{"simulation.gpr_config.antenna_id", domain.KindAntenna, sim.GPRConfig.AntennaID},
		{"simulation.gpr_config.pulse_id", domain.KindPulseType, sim.GPRConfig.PulseID},
	}
	for i, layer := range sim.SoilLayers {
		refs = append(refs, configRef{fmt.Sprintf("simulation.soil_layers[%d].soil_type_id", i), domain.KindSoilType, layer.SoilTypeID})
	}
	for i, target := range sim.Targets {
		refs = append(refs,
			configRef{fmt.Sprintf("simulation.targets[%d].target_type_id", i), domain.KindTargetType, target.TargetTypeID},
			configRef{fmt.Sprintf("simulation.targets[%d].material_id", i), domain.KindMaterial, target.MaterialID},
		)
	}

	var errs []error
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if *ref.id <= 0 {
			errs = append(errs, &domain.MissingReferenceError{Field: ref.field, Target: ref.kind, ID: 0})
			continue
		}
		exists, err := store.Exists(ctx, ref.kind, uint(*ref.id))
		if err != nil {
			return err
		}
		if !exists {
			errs = append(errs, &domain.MissingReferenceError{Field: ref.field, Target: ref.kind, ID: uint(*ref.id)})
		}
	}
	return errors.Join(errs...)
}
