package models

import (
	"cloud.google.com/go/civil"

	"metargb/transfusion-service/pkg/jalali"
)

// WarningTag identifies a clinical or scheduling warning.
type WarningTag string

const (
	WarningDoseCapped       WarningTag = "dose_capped"
	WarningDateShifted      WarningTag = "date_shifted"
	WarningIntervalTooShort WarningTag = "interval_too_short"
	WarningIntervalTooLong  WarningTag = "interval_too_long"
	WarningHbTooHigh        WarningTag = "hb_too_high"
)

// RateModel holds the patient-specific hemoglobin parameters.
type RateModel struct {
	HbPostTarget float64 `json:"hb_post_target" validate:"finite,gtfield=HbThreshold"`
	HbThreshold  float64 `json:"hb_threshold" validate:"finite"`
	RateR        float64 `json:"rate_r" validate:"finite,gt=0"`
}

// PatientInput is one scheduling request.
type PatientInput struct {
	CurrentDate jalali.Date `json:"current_date" validate:"-"`
	RateModel   RateModel   `json:"rate_model"`
	WeightKg    float64     `json:"weight_kg" validate:"finite,gt=0"`
}

// ScheduleResult is the output of one schedule computation.
type ScheduleResult struct {
	RawIntervalDays       float64      `json:"raw_interval_days"`
	ScheduledIntervalDays int          `json:"scheduled_interval_days"`
	SkippedDays           int          `json:"skipped_days"`
	TotalDays             int          `json:"total_days"`
	NextDate              civil.Date   `json:"next_date"`
	NextDateJalali        jalali.Date  `json:"next_date_jalali"`
	NextDateLong          string       `json:"next_date_long"`
	DeltaHb               float64      `json:"delta_hb"`
	VolumePerKgRequired   float64      `json:"volume_per_kg_required"`
	UnitsNeeded           int          `json:"units_needed"`
	TotalVolumeMl         float64      `json:"total_volume_ml"`
	VolumePerKg           float64      `json:"volume_per_kg"`
	Warnings              []WarningTag `json:"warnings"`
}

// HasWarning reports whether tag was raised.
func (r *ScheduleResult) HasWarning(tag WarningTag) bool {
	for _, w := range r.Warnings {
		if w == tag {
			return true
		}
	}
	return false
}

// Preset is a named protocol default for the rate model.
type Preset struct {
	Name      string    `json:"name"`
	RateModel RateModel `json:"rate_model"`
}

// PresetCustom means the caller supplies the rate model.
const PresetCustom = "custom"

// Presets are the protocol defaults per thalassemia type.
var Presets = []Preset{
	{Name: "major", RateModel: RateModel{HbPostTarget: 13.0, HbThreshold: 10.0, RateR: 0.25}},
	{Name: "intermedia", RateModel: RateModel{HbPostTarget: 11.5, HbThreshold: 7.0, RateR: 0.15}},
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
