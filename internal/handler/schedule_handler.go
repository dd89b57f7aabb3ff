package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"metargb/transfusion-service/internal/errs"
	"metargb/transfusion-service/internal/models"
	"metargb/transfusion-service/internal/service"
	"metargb/transfusion-service/pkg/jalali"
)

// Scheduler computes the next transfusion.
type Scheduler interface {
	ComputeNext(ctx context.Context, input models.PatientInput) (*models.ScheduleResult, error)
}

// HolidayStatus exposes the state of the eligibility calendar.
type HolidayStatus interface {
	Loaded() bool
	Len() int
	Holidays() []string
	RestDay() time.Weekday
}

type ScheduleHandler struct {
	scheduler Scheduler
	holidays  HolidayStatus
	now       func() time.Time
}

func NewScheduleHandler(scheduler Scheduler, holidays HolidayStatus) *ScheduleHandler {
	return &ScheduleHandler{
		scheduler: scheduler,
		holidays:  holidays,
		now:       time.Now,
	}
}

type scheduleRequest struct {
	CurrentDate  string  `json:"current_date"`
	Preset       string  `json:"preset"`
	HbPostTarget float64 `json:"hb_post_target"`
	HbThreshold  float64 `json:"hb_threshold"`
	RateR        float64 `json:"rate_r"`
	WeightKg     float64 `json:"weight_kg"`
}

type scheduleResponse struct {
	CurrentDate           string              `json:"current_date"`
	RateModel             models.RateModel    `json:"rate_model"`
	RawIntervalDays       float64             `json:"raw_interval_days"`
	ScheduledIntervalDays int                 `json:"scheduled_interval_days"`
	SkippedDays           int                 `json:"skipped_days"`
	TotalDays             int                 `json:"total_days"`
	NextDate              string              `json:"next_date"`
	NextDateJalali        string              `json:"next_date_jalali"`
	NextDateLong          string              `json:"next_date_long"`
	DeltaHb               float64             `json:"delta_hb"`
	VolumePerKgRequired   float64             `json:"volume_per_kg_required"`
	UnitsNeeded           int                 `json:"units_needed"`
	TotalVolumeMl         float64             `json:"total_volume_ml"`
	VolumePerKg           float64             `json:"volume_per_kg"`
	Warnings              []models.WarningTag `json:"warnings"`
}

// Schedule handles POST /api/schedule
// Body: current_date (Jalali), preset (major|intermedia|custom), hb_post_target,
// hb_threshold, rate_r, weight_kg. Rate fields are ignored unless the preset
// is empty or custom.
func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, fieldErrs, err := decodeScheduleRequest(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(fieldErrs) > 0 {
		writeValidationError(w, fieldErrs)
		return
	}

	currentDate, err := jalali.Parse(req.CurrentDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rates, err := service.ResolveRateModel(req.Preset, models.RateModel{
		HbPostTarget: req.HbPostTarget,
		HbThreshold:  req.HbThreshold,
		RateR:        req.RateR,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.scheduler.ComputeNext(r.Context(), models.PatientInput{
		CurrentDate: currentDate,
		RateModel:   rates,
		WeightKg:    req.WeightKg,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newScheduleResponse(currentDate, rates, result))
}

// decodeScheduleRequest decodes the body field by field so that a value of
// the wrong type is reported against its field. err is set only when the
// body is not a JSON object.
func decodeScheduleRequest(body io.Reader) (scheduleRequest, map[string]string, error) {
	var req scheduleRequest

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return req, nil, err
	}

	fields := []struct {
		name    string
		dst     interface{}
		message string
	}{
		{"current_date", &req.CurrentDate, "must be a string"},
		{"preset", &req.Preset, "must be a string"},
		{"hb_post_target", &req.HbPostTarget, "must be a number"},
		{"hb_threshold", &req.HbThreshold, "must be a number"},
		{"rate_r", &req.RateR, "must be a number"},
		{"weight_kg", &req.WeightKg, "must be a number"},
	}

	fieldErrs := make(map[string]string)
	for _, f := range fields {
		value, ok := raw[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			fieldErrs[f.name] = f.message
		}
	}
	return req, fieldErrs, nil
}

func newScheduleResponse(current jalali.Date, rates models.RateModel, result *models.ScheduleResult) scheduleResponse {
	warnings := result.Warnings
	if warnings == nil {
		warnings = []models.WarningTag{}
	}

	return scheduleResponse{
		CurrentDate:           current.String(),
		RateModel:             rates,
		RawIntervalDays:       round(result.RawIntervalDays, 1),
		ScheduledIntervalDays: result.ScheduledIntervalDays,
		SkippedDays:           result.SkippedDays,
		TotalDays:             result.TotalDays,
		NextDate:              result.NextDate.String(),
		NextDateJalali:        result.NextDateJalali.String(),
		NextDateLong:          result.NextDateLong,
		DeltaHb:               round(result.DeltaHb, 2),
		VolumePerKgRequired:   round(result.VolumePerKgRequired, 1),
		UnitsNeeded:           result.UnitsNeeded,
		TotalVolumeMl:         round(result.TotalVolumeMl, 0),
		VolumePerKg:           round(result.VolumePerKg, 1),
		Warnings:              warnings,
	}
}

func round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}

// Presets handles GET /api/presets
func (h *ScheduleHandler) Presets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": models.Presets})
}

// Today handles GET /api/today
func (h *ScheduleHandler) Today(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	today, err := jalali.Today(h.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	c, err := jalali.ToCivil(today)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	long, err := jalali.LongForm(c)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"date":      today.String(),
		"date_long": long,
		"gregorian": c.String(),
	})
}

// Holidays handles GET /api/holidays
func (h *ScheduleHandler) Holidays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded":   h.holidays.Loaded(),
		"count":    h.holidays.Len(),
		"rest_day": h.holidays.RestDay().String(),
		"holidays": h.holidays.Holidays(),
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr.Fields)
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errs.ErrParse),
		errors.Is(err, errs.ErrInvalidDate),
		errors.Is(err, errs.ErrUnknownPreset):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrScheduling):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
