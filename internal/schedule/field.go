package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidField is wrapped by every field parse failure.
var ErrInvalidField = errors.New("invalid field spec")

// FieldError reports which field of an entry failed to parse.
type FieldError struct {
	Field Field
	Spec  string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s field %q: %v", e.Field, e.Spec, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Matches reports whether value satisfies spec.
//
// Comma-separated parts are tried left to right and the first match wins, so a
// malformed part after a matching one is never inspected.
func Matches(value int, spec string) (bool, error) {
	for _, part := range strings.Split(spec, ",") {
		ok, err := matchPart(value, part)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchPart(value int, part string) (bool, error) {
	switch {
	case strings.Contains(part, "/"):
		// "1-10/2" behaves like "*/2": only the divisor counts.
		n, err := atoi(strings.Split(part, "/")[1], part)
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, fmt.Errorf("%w: zero step in %q", ErrInvalidField, part)
		}
		return value%n == 0, nil
	case strings.Contains(part, "-"):
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return false, fmt.Errorf("%w: range %q must be start-end", ErrInvalidField, part)
		}
		start, err := atoi(bounds[0], part)
		if err != nil {
			return false, err
		}
		end, err := atoi(bounds[1], part)
		if err != nil {
			return false, err
		}
		return start <= value && value <= end, nil
	default:
		n, err := atoi(part, part)
		if err != nil {
			return false, err
		}
		return n == value, nil
	}
}

func atoi(s, part string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer in %q", ErrInvalidField, s, part)
	}
	return n, nil
}
