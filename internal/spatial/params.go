package spatial

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// ParseCenter reads the required lat and lng query parameters.
func ParseCenter(q url.Values) (orb.Point, error) {
	lat, err := requiredFloat(q, "lat")
	if err != nil {
		return orb.Point{}, err
	}
	lng, err := requiredFloat(q, "lng")
	if err != nil {
		return orb.Point{}, err
	}
	if lat < -90 || lat > 90 {
		return orb.Point{}, apperrors.ValidationError("lat must be within [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		return orb.Point{}, apperrors.ValidationError("lng must be within [-180, 180]")
	}
	return orb.Point{lng, lat}, nil
}

// ParseRadius reads radius_m, falling back to def when absent. Range checks
// against the configured maximum happen in the engine.
func ParseRadius(q url.Values, def float64) (float64, error) {
	raw := strings.TrimSpace(q.Get("radius_m"))
	if raw == "" {
		return def, nil
	}
	return parseFloat("radius_m", raw)
}

// ParseInt reads an optional positive integer parameter.
func ParseInt(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationError("%s must be an integer", key)
	}
	if n < 1 {
		return 0, apperrors.ValidationError("%s must be at least 1", key)
	}
	return n, nil
}

// ParseID reads a required positive integer id parameter.
func ParseID(q url.Values, key string) (int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, apperrors.ValidationError("%s is required", key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError("%s must be a positive integer", key)
	}
	return id, nil
}

func requiredFloat(q url.Values, key string) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, apperrors.ValidationError("%s is required", key)
	}
	return parseFloat(key, raw)
}

func parseFloat(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.ValidationError("%s must be a number", key)
	}
	return v, nil
}
