package service

import (
	"fmt"

	"metargb/transfusion-service/internal/errs"
	"metargb/transfusion-service/internal/models"
)

// ResolveRateModel returns the preset's rate model, or custom when the
// preset is empty or "custom".
func ResolveRateModel(preset string, custom models.RateModel) (models.RateModel, error) {
	if preset == "" || preset == models.PresetCustom {
		return custom, nil
	}

	p, ok := models.LookupPreset(preset)
	if !ok {
		return models.RateModel{}, fmt.Errorf("%w: %q", errs.ErrUnknownPreset, preset)
	}
	return p.RateModel, nil
}
