package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"metargb/transfusion-service/internal/errs"
	"metargb/transfusion-service/internal/models"
	"metargb/transfusion-service/pkg/jalali"
	"metargb/transfusion-service/pkg/logger"
	"metargb/transfusion-service/pkg/metrics"
)

// Eligibility decides whether a civil date may carry a treatment.
type Eligibility interface {
	IsEligible(d civil.Date) bool
}

// Policy holds the protocol constants. The clinical values differ between
// protocol revisions, so they are configuration rather than literals.
type Policy struct {
	UnitVolumeMl    float64
	MaxUnits        int
	MlPerKgPerGdl   float64
	MinIntervalDays float64
	MaxIntervalDays float64
	MaxPostHb       float64
	MaxSkipDays     int
}

// DefaultPolicy returns the national protocol values.
func DefaultPolicy() Policy {
	return Policy{
		UnitVolumeMl:    300,
		MaxUnits:        2,
		MlPerKgPerGdl:   4.0,
		MinIntervalDays: 14,
		MaxIntervalDays: 35,
		MaxPostHb:       15.0,
		MaxSkipDays:     60,
	}
}

// Validate checks that the policy can drive a computation.
func (p Policy) Validate() error {
	switch {
	case !(p.UnitVolumeMl > 0) || math.IsInf(p.UnitVolumeMl, 0):
		return fmt.Errorf("unit volume must be positive, got %v", p.UnitVolumeMl)
	case p.MaxUnits < 1:
		return fmt.Errorf("max units must be at least 1, got %d", p.MaxUnits)
	case !(p.MlPerKgPerGdl > 0) || math.IsInf(p.MlPerKgPerGdl, 0):
		return fmt.Errorf("mL/kg per g/dL must be positive, got %v", p.MlPerKgPerGdl)
	case p.MinIntervalDays > p.MaxIntervalDays:
		return fmt.Errorf("min interval %v exceeds max interval %v", p.MinIntervalDays, p.MaxIntervalDays)
	case p.MaxSkipDays < 1:
		return fmt.Errorf("max skip days must be at least 1, got %d", p.MaxSkipDays)
	}
	return nil
}

type ScheduleService struct {
	policy      Policy
	eligibility Eligibility
	validate    *validator.Validate
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewScheduleService creates the schedule engine. metrics may be nil.
func NewScheduleService(policy Policy, eligibility Eligibility, log *logger.Logger, m *metrics.Metrics) (*ScheduleService, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule policy: %w", err)
	}
	if eligibility == nil {
		return nil, errors.New("eligibility calendar is required")
	}
	if log == nil {
		log = logger.Discard()
	}

	return &ScheduleService{
		policy:      policy,
		eligibility: eligibility,
		validate:    newValidator(),
		log:         log,
		metrics:     m,
	}, nil
}

// Policy returns the active protocol constants.
func (s *ScheduleService) Policy() Policy {
	return s.policy
}

// ComputeNext returns the next eligible treatment date and dosing estimate.
// It performs no I/O; ctx only carries request-scoped logging fields.
func (s *ScheduleService) ComputeNext(ctx context.Context, input models.PatientInput) (*models.ScheduleResult, error) {
	result, err := s.computeNext(input)
	s.observe(ctx, input, result, err)
	return result, err
}

func (s *ScheduleService) computeNext(input models.PatientInput) (*models.ScheduleResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	start, err := jalali.ToCivil(input.CurrentDate)
	if err != nil {
		return nil, err
	}

	rm := input.RateModel
	postHb := decimal.NewFromFloat(rm.HbPostTarget)
	threshold := decimal.NewFromFloat(rm.HbThreshold)
	rate := decimal.NewFromFloat(rm.RateR)
	weight := decimal.NewFromFloat(input.WeightKg)

	deltaHb := postHb.Sub(threshold)
	rawInterval := deltaHb.Div(rate)
	// The tentative date and every skipped day after it must stay convertible.
	horizon := jalali.MaxCivil().DaysSince(start) - s.policy.MaxSkipDays
	if rawInterval.GreaterThan(decimal.NewFromInt(int64(horizon))) {
		return nil, errs.NewValidationError("rate_r", "gives an interval past the supported calendar range")
	}
	scheduled := int(rawInterval.Ceil().IntPart())

	var warnings []models.WarningTag

	unitVolume := decimal.NewFromFloat(s.policy.UnitVolumeMl)
	volumePerKgRequired := deltaHb.Mul(decimal.NewFromFloat(s.policy.MlPerKgPerGdl))
	totalVolume := volumePerKgRequired.Mul(weight)
	units := int(totalVolume.Div(unitVolume).Ceil().IntPart())
	if units > s.policy.MaxUnits {
		units = s.policy.MaxUnits
		totalVolume = decimal.NewFromInt(int64(units)).Mul(unitVolume)
		warnings = append(warnings, models.WarningDoseCapped)
	}
	volumePerKg := totalVolume.Div(weight)

	next := start.AddDays(scheduled)
	skipped := 0
	for !s.eligibility.IsEligible(next) {
		if skipped >= s.policy.MaxSkipDays {
			return nil, fmt.Errorf("%w: %d consecutive non-eligible days after %s", errs.ErrScheduling, skipped, start.AddDays(scheduled))
		}
		next = next.AddDays(1)
		skipped++
	}
	if skipped > 0 {
		warnings = append(warnings, models.WarningDateShifted)
	}

	switch {
	case rawInterval.LessThan(decimal.NewFromFloat(s.policy.MinIntervalDays)):
		warnings = append(warnings, models.WarningIntervalTooShort)
	case rawInterval.GreaterThan(decimal.NewFromFloat(s.policy.MaxIntervalDays)):
		warnings = append(warnings, models.WarningIntervalTooLong)
	}
	if postHb.GreaterThan(decimal.NewFromFloat(s.policy.MaxPostHb)) {
		warnings = append(warnings, models.WarningHbTooHigh)
	}

	nextJalali, err := jalali.ToJalali(next)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrScheduling, err)
	}
	longForm, err := jalali.LongForm(next)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrScheduling, err)
	}

	return &models.ScheduleResult{
		RawIntervalDays:       rawInterval.InexactFloat64(),
		ScheduledIntervalDays: scheduled,
		SkippedDays:           skipped,
		TotalDays:             scheduled + skipped,
		NextDate:              next,
		NextDateJalali:        nextJalali,
		NextDateLong:          longForm,
		DeltaHb:               deltaHb.InexactFloat64(),
		VolumePerKgRequired:   volumePerKgRequired.InexactFloat64(),
		UnitsNeeded:           units,
		TotalVolumeMl:         totalVolume.InexactFloat64(),
		VolumePerKg:           volumePerKg.InexactFloat64(),
		Warnings:              warnings,
	}, nil
}

func (s *ScheduleService) validateInput(input models.PatientInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = validationMessage(fe)
	}
	return &errs.ValidationError{Fields: fields}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return "must be a finite number"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gtfield":
		return "must be greater than hb_threshold"
	default:
		return "is invalid"
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("finite", validateFinite)
	return v
}

// jsonFieldName reports validation errors under the wire field names.
func jsonFieldName(field reflect.StructField) string {
	name := field.Tag.Get("json")
	for i := 0; i < len(name); i++ {
		if name[i] == ',' {
			name = name[:i]
			break
		}
	}
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (s *ScheduleService) observe(ctx context.Context, input models.PatientInput, result *models.ScheduleResult, err error) {
	entry := s.log.WithContext(ctx).WithField("current_date", input.CurrentDate.String())
	if id, ok := logger.RequestIDFromContext(ctx); ok {
		entry = entry.WithField("request_id", id)
	}

	outcome := outcomeOf(err)
	if s.metrics != nil {
		s.metrics.ScheduleCounter.WithLabelValues(outcome).Inc()
	}

	if err != nil {
		entry.WithFields(logrus.Fields{"outcome": outcome, "error": err.Error()}).Warn("schedule computation rejected")
		return
	}

	if s.metrics != nil {
		s.metrics.SkippedDays.Observe(float64(result.SkippedDays))
		for _, w := range result.Warnings {
			s.metrics.WarningCounter.WithLabelValues(string(w)).Inc()
		}
	}

	entry.WithFields(logrus.Fields{
		"next_date":    result.NextDateJalali.String(),
		"interval":     result.ScheduledIntervalDays,
		"skipped_days": result.SkippedDays,
		"units":        result.UnitsNeeded,
		"warnings":     result.Warnings,
	}).Info("schedule computed")
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrValidation):
		return "validation_error"
	case errors.Is(err, errs.ErrParse):
		return "parse_error"
	case errors.Is(err, errs.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, errs.ErrScheduling):
		return "scheduling_error"
	default:
		return "error"
	}
}
