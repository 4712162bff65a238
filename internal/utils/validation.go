package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

// the hour may be written with one digit, NormalizeMissionTime pads it
var missionTimePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Validator wraps go-playground/validator and turns its errors into a
// domain.ValidationError with one translated message per field.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON name, which is what clients send
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		default:
			return name
		}
	})

	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	custom := []struct {
		tag  string
		fn   validator.Func
		text string
	}{
		{"isodate", isISODate, "{0} must be a calendar date in YYYY-MM-DD format"},
		{"hhmm", isMissionTime, "{0} must be a 24-hour time in HH:MM format"},
	}
	for _, c := range custom {
		if err := validate.RegisterValidation(c.tag, c.fn); err != nil {
			return nil, fmt.Errorf("register %s: %w", c.tag, err)
		}
		if err := registerTranslation(validate, trans, c.tag, c.text); err != nil {
			return nil, fmt.Errorf("register %s translation: %w", c.tag, err)
		}
	}

	return &Validator{
		validate:   validate,
		translator: trans,
	}, nil
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string) error {
	return validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

// Struct validates s. Field failures come back as *domain.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make([]domain.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, domain.FieldError{
			Field:   fe.Field(),
			Message: fe.Translate(v.translator),
		})
	}
	return &domain.ValidationError{Fields: fields}
}

func isISODate(fl validator.FieldLevel) bool {
	return IsISODate(fl.Field().String())
}

func isMissionTime(fl validator.FieldLevel) bool {
	return missionTimePattern.MatchString(fl.Field().String())
}

// IsISODate reports whether s is a real calendar date written YYYY-MM-DD.
func IsISODate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// NormalizeMissionTime pads a single digit hour so stored times sort as text.
func NormalizeMissionTime(s string) string {
	if len(s) == 4 && missionTimePattern.MatchString(s) {
		return "0" + s
	}
	return s
}

// TrimMissionInput strips surrounding whitespace from every text field.
func TrimMissionInput(in *domain.MissionInput) {
	for _, f := range []*string{
		&in.MissionDate,
		&in.MissionTime,
		&in.ServiceType,
		&in.VehicleRegistration,
		&in.VehicleModel,
		&in.DepartureLocation,
		&in.ArrivalLocation,
		&in.Observations,
	} {
		*f = strings.TrimSpace(*f)
	}
}
