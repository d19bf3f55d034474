package domain

import (
	"fmt"
	"math"
)

// keyPrecision is the number of decimal places kept in lat/lon cache keys.
// 5 places ≈ 1.1 m of latitude, fine enough to distinguish adjacent
// intersections while absorbing GPS jitter.
const keyPrecision = 5

// CacheKey identifies one cached detection: quantized coordinates plus the
// exact heading. Comparable, so it can be used directly as a map key.
type CacheKey struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Heading float64 `json:"heading"`
}

// NormalizeKey derives the cache key for a query. Lat and lon are rounded to
// 5 decimal places with math.Round (round half away from zero, so 0.000005
// rounds to 0.00001); heading is passed through bit-exact and unrounded.
//
// Two queries normalize to the same key iff their rounded coordinates match
// and their headings are bit-identical.
func NormalizeKey(lat, lon, heading float64) CacheKey {
	return CacheKey{
		Lat:     roundTo(lat, keyPrecision),
		Lon:     roundTo(lon, keyPrecision),
		Heading: heading,
	}
}

// String renders an exact textual form of the key, suitable for single-flight
// grouping and message keys. Heading uses its bit pattern so that headings
// differing by an epsilon never collide.
func (k CacheKey) String() string {
	return fmt.Sprintf("%.5f|%.5f|%016x", k.Lat, k.Lon, math.Float64bits(k.Heading))
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
