package outage

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// LocationInput is the payload for creating a location.
type LocationInput struct {
	Name      string   `json:"name" validate:"required,max=255"`
	Address   string   `json:"address" validate:"required,max=255"`
	Locality  string   `json:"locality" validate:"max=255"`
	City      string   `json:"city" validate:"max=255"`
	Country   string   `json:"country" validate:"max=255"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// LocationPatch is a partial location update; nil fields are left unchanged.
type LocationPatch struct {
	Name      *string  `json:"name" validate:"omitnil,min=1,max=255"`
	Address   *string  `json:"address" validate:"omitnil,min=1,max=255"`
	Locality  *string  `json:"locality" validate:"omitnil,max=255"`
	City      *string  `json:"city" validate:"omitnil,max=255"`
	Country   *string  `json:"country" validate:"omitnil,max=255"`
	Latitude  *float64 `json:"latitude" validate:"omitnil,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitnil,gte=-180,lte=180"`
}

// OutageInput is the payload for recording an outage. Weather fields are
// never accepted from callers; they come from the referenced location.
type OutageInput struct {
	StartTime  *time.Time `json:"start_time" validate:"required"`
	EndTime    *time.Time `json:"end_time"`
	LocationID *int64     `json:"location_id" validate:"required,gt=0"`
	IsHoliday  *bool      `json:"is_holiday" validate:"required"`
}

// OutagePatch is a partial outage update.
type OutagePatch struct {
	StartTime  *time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	LocationID *int64     `json:"location_id" validate:"omitnil,gt=0"`
	IsHoliday  *bool      `json:"is_holiday"`
}

// EndInput is the payload of the end action.
type EndInput struct {
	EndTime *time.Time `json:"end_time" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var customMessages = map[string]string{
	"location_id.required": "A location is required to fetch weather data.",
	"start_time.required":  "Please specify when the outage started.",
	"end_time.required":    "Please specify when the outage ended.",
}

// validateStruct runs the struct tags and converts failures to a ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating %T: %w", s, err)
	}

	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := customMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}

	name := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "min":
		if fe.Param() == "1" {
			return fmt.Sprintf("The %s field is required.", name)
		}
		return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
	case "max":
		return fmt.Sprintf("The %s must not be greater than %s characters.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s must not be greater than %s.", name, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", name, fe.Param())
	default:
		return fmt.Sprintf("The %s is invalid.", name)
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
