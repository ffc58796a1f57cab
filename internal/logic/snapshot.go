package logic

import "time"

// NewSnapshot merges independently polled signals into one Snapshot.
// No validation is done beyond the types; cadence may be absent.
func NewSnapshot(geoTag GeoTag, band TimeBand, weather Weather, motion Motion, cadence Cadence, now time.Time) Snapshot {
	return Snapshot{
		GeoTag:    geoTag,
		TimeBand:  band,
		Weather:   weather,
		Motion:    motion,
		Cadence:   cadence,
		Timestamp: now,
	}
}

// TimeBandAt returns the time band for the wall-clock hour of t, in t's location.
func TimeBandAt(t time.Time) TimeBand {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return TimeMorning
	case h >= 11 && h < 17:
		return TimeDaytime
	case h >= 17 && h < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}
