package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Attribute aliases, in priority order.
var (
	nameAliases       = []string{"name", "NAME", "Name"}
	routeNameAliases  = []string{"name", "NAME", "Name", "highway"}
	categoryAliases   = []string{"category", "CATEGORY", "Category", "TYPE"}
	areaAliases       = []string{"area_ha", "AREA_HA", "Area_Ha"}
	sourceAliases     = []string{"source", "SOURCE"}
	surfaceAliases    = []string{"surface", "SURFACE"}
	smoothnessAliases = []string{"smoothness", "SMOOTHNESS"}
)

const (
	defaultParkName       = "Park"
	defaultPlaygroundName = "Playground"
	defaultRouteName      = "Footway"
)

// propString returns the first alias holding a non-empty string or a number.
func propString(props map[string]any, aliases []string) (string, bool) {
	for _, key := range aliases {
		v, ok := props[key]
		if !ok {
			continue
		}
		if s, ok := scalarString(v); ok {
			return s, true
		}
	}
	return "", false
}

func propStringOr(props map[string]any, aliases []string, fallback string) string {
	if s, ok := propString(props, aliases); ok {
		return s
	}
	return fallback
}

func propStringPtr(props map[string]any, aliases []string) *string {
	if s, ok := propString(props, aliases); ok {
		return &s
	}
	return nil
}

// propFloat returns the first alias holding a finite number or numeric string.
// NaN and infinities are passed over like absent values.
func propFloat(props map[string]any, aliases []string) (float64, bool) {
	for _, key := range aliases {
		var (
			f   float64
			err error
		)
		switch v := props[key].(type) {
		case float64:
			f = v
		case json.Number:
			f, err = v.Float64()
		case string:
			f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		default:
			continue
		}
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}
