package accessibility

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// Status is the derived accessibility of a route. It is stored as a nullable
// boolean: NULL means Unknown.
type Status int8

const (
	Unknown Status = iota
	Accessible
	NotAccessible
)

func (s Status) String() string {
	switch s {
	case Accessible:
		return "accessible"
	case NotAccessible:
		return "not_accessible"
	}
	return "unknown"
}

// Bool returns the flag and whether it is known.
func (s Status) Bool() (value, known bool) {
	switch s {
	case Accessible:
		return true, true
	case NotAccessible:
		return false, true
	}
	return false, false
}

// StatusFromBool maps a nullable boolean to a Status.
func StatusFromBool(b *bool) Status {
	if b == nil {
		return Unknown
	}
	if *b {
		return Accessible
	}
	return NotAccessible
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	v, known := s.Bool()
	if !known {
		return nil, nil
	}
	return v, nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Unknown
	case bool:
		*s = StatusFromBool(&v)
	case []byte:
		return s.scanText(string(v))
	case string:
		return s.scanText(v)
	default:
		return fmt.Errorf("accessibility: cannot scan %T into Status", src)
	}
	return nil
}

func (s *Status) scanText(v string) error {
	t, err := ParseTriState(v)
	if err != nil {
		return err
	}
	*s = t.Status()
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	v, known := s.Bool()
	if !known {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*s = StatusFromBool(b)
	return nil
}

// TriState is a parsed boolean-like toggle that may be absent.
type TriState int8

const (
	TriUnknown TriState = iota
	TriTrue
	TriFalse
)

// IsTrue reports whether the toggle was explicitly set to true.
func (t TriState) IsTrue() bool { return t == TriTrue }

// Status maps the toggle onto route accessibility.
func (t TriState) Status() Status {
	switch t {
	case TriTrue:
		return Accessible
	case TriFalse:
		return NotAccessible
	}
	return Unknown
}

// ParseTriState parses boolean-like input. Empty input is TriUnknown; any
// unrecognized value is a validation error rather than silently false.
func ParseTriState(s string) (TriState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return TriUnknown, nil
	case "true", "t", "yes", "y", "1", "on":
		return TriTrue, nil
	case "false", "f", "no", "n", "0", "off":
		return TriFalse, nil
	}
	return TriUnknown, apperrors.ValidationError("invalid boolean value %q", s)
}
