package wizard

import (
	"errors"
	"strings"
)

// Engine errors
var (
	ErrUnknownStep     = errors.New("unknown step")
	ErrAnswerKind      = errors.New("answer kind does not match step")
	ErrUnknownOption   = errors.New("unknown option")
	ErrRatingRange     = errors.New("rating out of range")
	ErrSelectionLimit  = errors.New("selection limit reached")
	ErrElevationLimit  = errors.New("elevated rating limit reached")
	ErrMissingFields   = errors.New("missing required fields")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrUnknownField    = errors.New("unknown payload field")
	ErrPersist         = errors.New("failed to persist snapshot")
	ErrInvalidCatalog  = errors.New("invalid step catalog")
)

// MissingFieldsError reports every required field absent from a submission,
// along with fields whose value is outside the step's bounds. It is reported
// once, as a single error, rather than per field.
type MissingFieldsError struct {
	Fields  []string
	Invalid []string
}

func (e *MissingFieldsError) Error() string {
	var parts []string
	if len(e.Fields) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Fields, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrMissingFields) match.
func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingFields
}
