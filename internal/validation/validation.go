package validation

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
)

// Kind identifies which rule a field failed.
type Kind string

const (
	KindRequired       Kind = "required"
	KindTooLong        Kind = "too_long"
	KindNoDays         Kind = "no_days"
	KindInvalidDay     Kind = "invalid_day"
	KindInvalidColor   Kind = "invalid_color"
	KindInvalidPattern Kind = "invalid_pattern"
	KindInvalidFormat  Kind = "invalid_format"
	KindOutOfRange     Kind = "out_of_range"
	KindEndBeforeStart Kind = "end_before_start"
	KindTooLongEvent   Kind = "duration_too_long"
)

// Field names used as FieldErrors keys.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldColor       = "color"
	FieldDayPattern  = "dayPattern"
	FieldCustomDays  = "customDays"
	FieldSummary     = "summary"
	FieldEnd         = "end"
)

// FieldError describes one failed rule. It is returned as data so forms can
// render it next to the field.
type FieldError struct {
	Field   string
	Kind    Kind
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// FieldErrors holds at most one error per field.
type FieldErrors map[string]*FieldError

// HasErrors reports whether any field failed.
func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

// Get returns the message for field, or "" when the field is valid.
func (fe FieldErrors) Get(field string) string {
	if e, ok := fe[field]; ok {
		return e.Message
	}
	return ""
}

func (fe FieldErrors) add(e *FieldError) {
	if e == nil {
		return
	}
	if _, exists := fe[e.Field]; !exists {
		fe[e.Field] = e
	}
}

// Error joins the messages in field order so output is stable.
func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, field := range slices.Sorted(maps.Keys(fe)) {
		msgs = append(msgs, fe[field].Message)
	}
	return strings.Join(msgs, "; ")
}

// AsFieldErrors extracts FieldErrors from err, if present.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ValidateSequenceName requires a non-blank name of at most 50 characters.
func ValidateSequenceName(name string) *FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return &FieldError{Field: FieldName, Kind: KindRequired, Message: "Sequence name is required"}
	}
	if utf8.RuneCountInString(name) > constants.MaxSequenceNameLength {
		return &FieldError{
			Field:   FieldName,
			Kind:    KindTooLong,
			Message: fmt.Sprintf("Sequence name must be %d characters or less", constants.MaxSequenceNameLength),
		}
	}
	return nil
}

// ValidateSequenceDescription limits the description to 200 characters,
// counting surrounding whitespace. Descriptions are stored as given.
func ValidateSequenceDescription(desc string) *FieldError {
	if utf8.RuneCountInString(desc) > constants.MaxSequenceDescriptionLength {
		return &FieldError{
			Field:   FieldDescription,
			Kind:    KindTooLong,
			Message: fmt.Sprintf("Description must be %d characters or less", constants.MaxSequenceDescriptionLength),
		}
	}
	return nil
}

// ValidateCustomDays requires at least one day for the custom pattern and
// rejects indices outside Sunday..Saturday for every pattern.
func ValidateCustomDays(pattern models.DayPattern, days []time.Weekday) *FieldError {
	if pattern == models.PatternCustom && len(days) == 0 {
		return &FieldError{Field: FieldCustomDays, Kind: KindNoDays, Message: "Please select at least one day"}
	}
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return &FieldError{
				Field:   FieldCustomDays,
				Kind:    KindInvalidDay,
				Message: fmt.Sprintf("Invalid day %d (expected 0-6)", int(d)),
			}
		}
	}
	return nil
}

// ValidateSequenceInput runs every sequence rule and returns the failures
// keyed by field. The result is empty when the input is valid.
func ValidateSequenceInput(in models.SequenceInput) FieldErrors {
	errs := FieldErrors{}
	errs.add(ValidateSequenceName(in.Name))
	errs.add(ValidateSequenceDescription(in.Description))

	pattern := in.DayPattern
	if pattern == "" {
		pattern = models.PatternFullWeek
	}
	if !pattern.IsValid() {
		errs.add(&FieldError{
			Field:   FieldDayPattern,
			Kind:    KindInvalidPattern,
			Message: fmt.Sprintf("Unknown day pattern %q", in.DayPattern),
		})
	} else {
		errs.add(ValidateCustomDays(pattern, in.CustomDays))
	}

	if in.Color != "" && !models.IsValidColor(in.Color) {
		errs.add(&FieldError{
			Field:   FieldColor,
			Kind:    KindInvalidColor,
			Message: fmt.Sprintf("Color %s is not in the palette", in.Color),
		})
	}
	return errs
}

var validate = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateEventDraft checks an event form. It returns FieldErrors or nil.
func ValidateEventDraft(draft models.EventDraft, loc *time.Location) error {
	draft = draft.Normalized()
	errs := FieldErrors{}

	if err := validate.Struct(draft); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate event: %w", err)
		}
		for _, e := range verrs {
			errs.add(formatFieldError(e))
		}
	}
	if errs.HasErrors() {
		return errs
	}

	start, end, err := draft.Bounds(loc)
	if err != nil {
		errs.add(&FieldError{Field: FieldEnd, Kind: KindInvalidFormat, Message: err.Error()})
		return errs
	}

	switch {
	case draft.AllDay && end.Before(start.AddDate(0, 0, 1)):
		errs.add(&FieldError{Field: FieldEnd, Kind: KindEndBeforeStart, Message: "End date cannot be before start date"})
	case !draft.AllDay && !end.After(start):
		errs.add(&FieldError{Field: FieldEnd, Kind: KindEndBeforeStart, Message: "End time must be after start time"})
	case !draft.AllDay && end.Sub(start) > constants.MaxEventDurationHours*time.Hour:
		errs.add(&FieldError{
			Field:   FieldEnd,
			Kind:    KindTooLongEvent,
			Message: fmt.Sprintf("Event duration cannot exceed %d hours", constants.MaxEventDurationHours),
		})
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// formatFieldError maps a struct-tag failure onto a FieldError.
func formatFieldError(e validator.FieldError) *FieldError {
	field := e.Field()
	fe := &FieldError{Field: field}

	switch e.Tag() {
	case "required":
		fe.Kind = KindRequired
		fe.Message = fmt.Sprintf("%s is required", field)
		if field == FieldSummary {
			fe.Message = "Event title is required"
		}
	case "max":
		fe.Kind = KindTooLong
		fe.Message = fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		if field == FieldSummary {
			fe.Message = fmt.Sprintf("Event title must be less than %d characters", constants.MaxEventTitleLength)
		}
	case "datetime":
		fe.Kind = KindInvalidFormat
		fe.Message = fmt.Sprintf("%s must match %s", field, e.Param())
	case "gte", "lte":
		fe.Kind = KindOutOfRange
		fe.Message = fmt.Sprintf("%s is out of range", field)
	default:
		fe.Kind = KindInvalidFormat
		fe.Message = fmt.Sprintf("%s is invalid", field)
	}
	return fe
}
