package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// endpointEpsilon is the tolerance, in degrees, for two endpoints to count as shared.
const endpointEpsilon = 1e-9

func samePoint(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) <= endpointEpsilon && math.Abs(a[1]-b[1]) <= endpointEpsilon
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

// MergeLines joins the parts of mls into one line by chaining shared
// endpoints, reversing parts as needed. It reports false when the parts are
// disconnected, or when more than two part ends meet at one vertex. The second
// rule holds whatever the part order, so a loop through an interior vertex
// (X-B, B-Z plus B-Y-B) is rejected even though a walk covering it exists.
func MergeLines(mls orb.MultiLineString) (orb.LineString, bool) {
	if len(mls) == 0 || branches(mls) {
		return nil, false
	}

	chain := append(orb.LineString(nil), mls[0]...)
	used := make([]bool, len(mls))
	used[0] = true
	remaining := len(mls) - 1

	for remaining > 0 {
		progressed := false
		for i, part := range mls {
			if used[i] || len(part) == 0 {
				continue
			}
			head, tail := chain[0], chain[len(chain)-1]
			first, last := part[0], part[len(part)-1]

			switch {
			case samePoint(tail, first):
				chain = append(chain, part[1:]...)
			case samePoint(tail, last):
				chain = append(chain, reversed(part)[1:]...)
			case samePoint(head, last):
				chain = append(append(orb.LineString(nil), part[:len(part)-1]...), chain...)
			case samePoint(head, first):
				chain = append(reversed(part)[:len(part)-1], chain...)
			default:
				continue
			}
			used[i] = true
			remaining--
			progressed = true
		}
		if !progressed {
			return nil, false
		}
	}

	return chain, true
}

// branches reports whether any vertex is shared by more than two part ends.
func branches(mls orb.MultiLineString) bool {
	var ends []orb.Point
	for _, part := range mls {
		if len(part) > 0 {
			ends = append(ends, part[0], part[len(part)-1])
		}
	}
	for i, p := range ends {
		n := 0
		for _, q := range ends[i:] {
			if samePoint(p, q) {
				n++
			}
		}
		if n > 2 {
			return true
		}
	}
	return false
}
