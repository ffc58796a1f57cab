// Package geo derives a location tag from raw coordinates using circular geofences.
package geo

import (
	"math"
	"time"

	"github.com/sweeney/soundscape/internal/logic"
)

// EarthRadiusMeters is the mean Earth radius used for haversine distances.
const EarthRadiusMeters = 6371000.0

// DefaultHysteresis is the minimum time between accepted tag changes.
const DefaultHysteresis = 3 * time.Second

// Fence is a circular zone associated with a tag.
type Fence struct {
	Tag          logic.GeoTag
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// Contains reports whether the point lies within the fence radius.
func (f Fence) Contains(lat, lon float64) bool {
	return Distance(lat, lon, f.Latitude, f.Longitude) <= f.RadiusMeters
}

// Distance returns the great-circle distance in meters between two points
// given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Matcher reports the tag of the first fence containing a point, holding
// each accepted change for at least the hysteresis window.
// It is not safe for concurrent use; callers serialize calls.
type Matcher struct {
	fences     []Fence
	hysteresis time.Duration
	current    logic.GeoTag
	lastChange time.Time
	changed    bool
}

// NewMatcher creates a matcher over fences (first match wins) that reports
// initial until a fence is matched.
func NewMatcher(fences []Fence, hysteresis time.Duration, initial logic.GeoTag) *Matcher {
	fs := make([]Fence, len(fences))
	copy(fs, fences)
	return &Matcher{
		fences:     fs,
		hysteresis: hysteresis,
		current:    initial,
	}
}

// Match returns the tag to report for the point at time now.
// Points outside every fence keep the previously reported tag.
func (m *Matcher) Match(lat, lon float64, now time.Time) logic.GeoTag {
	matched, ok := m.find(lat, lon)
	if !ok || matched == m.current {
		return m.current
	}

	// The first accepted change is never held back.
	if m.changed && now.Sub(m.lastChange) <= m.hysteresis {
		return m.current
	}

	m.current = matched
	m.lastChange = now
	m.changed = true
	return m.current
}

func (m *Matcher) find(lat, lon float64) (logic.GeoTag, bool) {
	for _, f := range m.fences {
		if f.Contains(lat, lon) {
			return f.Tag, true
		}
	}
	return "", false
}

// Current returns the currently reported tag.
func (m *Matcher) Current() logic.GeoTag {
	return m.current
}

// Fences returns a copy of the configured fences in match order.
func (m *Matcher) Fences() []Fence {
	out := make([]Fence, len(m.fences))
	copy(out, m.fences)
	return out
}
