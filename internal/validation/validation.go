package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/utils"
)

// Validator checks requests before they leave the client and responses after
// they arrive. Field names in errors use the JSON names.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the fleet-specific tags registered:
//
//	clock  HH:MM or HH:MM:SS wall-clock time
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return utils.ValidateTimeFormat(fl.Field().String())
	})
	return &Validator{v: v}
}

var std = New()

// Default returns the shared Validator
func Default() *Validator { return std }

// Struct validates s against its validate tags
func (v *Validator) Struct(s interface{}) error {
	return convert(v.v.Struct(s))
}

// Value validates a decoded payload: a struct, or a slice or map of structs.
// Other kinds pass.
func (v *Validator) Value(x interface{}) error {
	rv := reflect.Indirect(reflect.ValueOf(x))
	switch rv.Kind() {
	case reflect.Struct:
		return v.Struct(rv.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := v.Value(rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := v.Value(iter.Value().Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

// convert turns the first validator field error into a ValidationError
func convert(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &errors.ValidationError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return errors.Invalid(field, "%s", message(fe))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "clock":
		return fmt.Sprintf("%q is not a valid time (expected HH:MM)", fe.Value())
	case "datetime":
		return fmt.Sprintf("%v is not a valid date (expected YYYY-MM-DD)", fe.Value())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " item(s)"
	}
	return "failed " + fe.Tag() + " check"
}

// TripPatch validates a partial trip update. A patch that changes nothing is
// rejected, and when both times are given the start must come first.
func (v *Validator) TripPatch(p models.TripPatch) error {
	if p.Empty() {
		return errors.Invalid("", "no fields to update")
	}
	if err := v.Struct(p); err != nil {
		return err
	}
	if p.StartTime != nil && p.EndTime != nil {
		return timeOrder("end_time", *p.StartTime, *p.EndTime)
	}
	return nil
}

// OnDemand validates an on-demand delivery request
func (v *Validator) OnDemand(r models.OnDemandRequest) error {
	if err := v.Struct(r); err != nil {
		return err
	}
	if r.PreferredStartTime != nil && r.PreferredEndTime != nil {
		return timeOrder("preferred_end_time", *r.PreferredStartTime, *r.PreferredEndTime)
	}
	return nil
}

func timeOrder(field, start, end string) error {
	s, err := utils.ParseTimeToMinutes(start)
	if err != nil {
		return errors.Invalid(field, "%q is not a valid time", start)
	}
	e, err := utils.ParseTimeToMinutes(end)
	if err != nil {
		return errors.Invalid(field, "%q is not a valid time", end)
	}
	if s >= e {
		return errors.Invalid(field, "must be after %s", utils.ShortTime(start))
	}
	return nil
}

// BulkDriverDays validates a bulk availability request and returns it with
// its dates sorted and de-duplicated.
func (v *Validator) BulkDriverDays(req models.BulkDriverDayRequest) (models.BulkDriverDayRequest, error) {
	if len(req.Dates) == 0 {
		return req, errors.Invalid("dates", "at least one date is required")
	}
	if err := v.Struct(req); err != nil {
		return req, err
	}
	dates := make([]string, 0, len(req.Dates))
	for _, d := range req.Dates {
		t, err := utils.ParseDate(d)
		if err != nil {
			return req, errors.Invalid("dates", "%s", err.Error())
		}
		dates = append(dates, utils.FormatDate(t))
	}
	slices.Sort(dates)
	req.Dates = slices.Compact(dates)
	return req, nil
}

// MinRestHours checks the auto-assign rest requirement
func MinRestHours(h int) error {
	if h < constants.MinRestHoursFloor || h > constants.MinRestHoursCeiling {
		return errors.Invalid("min_rest_hours", "must be between %d and %d",
			constants.MinRestHoursFloor, constants.MinRestHoursCeiling)
	}
	return nil
}

// Date checks a YYYY-MM-DD date argument
func Date(field, value string) error {
	if _, err := utils.ParseDate(value); err != nil {
		return errors.Invalid(field, "%s", err.Error())
	}
	return nil
}

// DateRange checks that start and end are dates with start not after end
func DateRange(start, end string) error {
	s, err := utils.ParseDate(start)
	if err != nil {
		return errors.Invalid("start_date", "%s", err.Error())
	}
	e, err := utils.ParseDate(end)
	if err != nil {
		return errors.Invalid("end_date", "%s", err.Error())
	}
	if e.Before(s) {
		return errors.Invalid("end_date", "must not be before %s", start)
	}
	return nil
}
