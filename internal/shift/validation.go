package shift

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) validateStruct(message string, in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: message, Fields: []FieldError{{Message: err.Error()}}}
	}

	out := &ValidationError{Message: message}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		if fe.Param() == "15:04" {
			return "must be a HH:MM time"
		}
		return "must be a YYYY-MM-DD date"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must have at least " + fe.Param() + " entries"
		}
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must have at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// normalizeDate returns the canonical YYYY-MM-DD form of date.
func normalizeDate(field, date string) (string, error) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return "", invalid(field, "must be a YYYY-MM-DD date")
	}
	return schedule.FormatDate(d), nil
}

// checkTiming enforces the clock rules every persisted shift obeys and
// returns the canonical HH:MM start.
func (s *Service) checkTiming(start string, duration int) (string, error) {
	minutes, err := schedule.ToMinutes(start)
	if err != nil {
		return "", invalid("start_time", "must be a HH:MM time")
	}
	if duration < s.rules.MinDuration {
		return "", invalid("duration", fmt.Sprintf("must be at least %d minutes", s.rules.MinDuration))
	}
	if minutes+duration > schedule.MinutesPerDay {
		return "", invalid("duration", "must end before midnight")
	}
	return schedule.FromMinutes(minutes), nil
}
