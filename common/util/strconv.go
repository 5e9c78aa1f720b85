package util

import (
	"strconv"
	"strings"

	"github.com/gorse-io/decomp/backend"
	"github.com/juju/errors"
)

// ParseScalar parses a real or complex cell. Complex cells accept both the
// Go form "(1+2i)" and the "1+2j" form, parentheses optional.
func ParseScalar[T backend.Scalar](s string) (T, error) {
	var zero T
	s = strings.TrimSpace(s)
	switch any(zero).(type) {
	case complex128:
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		if strings.HasSuffix(s, "j") {
			s = s[:len(s)-1] + "i"
		}
		v, err := strconv.ParseComplex(s, 128)
		if err != nil {
			return zero, errors.Trace(err)
		}
		return any(v).(T), nil
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, errors.Trace(err)
		}
		return any(v).(T), nil
	}
}

// FormatScalar formats v so that ParseScalar recovers it exactly.
func FormatScalar[T backend.Scalar](v T) string {
	switch v := any(v).(type) {
	case complex128:
		return strconv.FormatComplex(v, 'g', -1, 128)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}
