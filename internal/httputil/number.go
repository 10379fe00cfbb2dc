package httputil

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// Number is a request body field that takes a JSON number or a numeric string.
// Parsing is deferred so validation errors can name the field.
type Number struct {
	raw string
	set bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number{raw: strings.TrimSpace(s), set: true}
		return nil
	}
	*n = Number{raw: string(b), set: true}
	return nil
}

// Present reports whether the field was given a non-null value.
func (n Number) Present() bool { return n.set && n.raw != "" }

// Float parses the value as a finite float.
func (n Number) Float(field string) (float64, error) {
	if !n.Present() {
		return 0, apperrors.ValidationError("%s is required", field)
	}
	v, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.ValidationError("%s must be a number", field)
	}
	return v, nil
}

// Int parses the value as a whole number.
func (n Number) Int(field string) (int64, error) {
	if !n.Present() {
		return 0, apperrors.ValidationError("%s is required", field)
	}
	if v, err := strconv.ParseInt(n.raw, 10, 64); err == nil {
		return v, nil
	}
	v, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, apperrors.ValidationError("%s must be an integer", field)
	}
	return int64(v), nil
}
