package logic

import "time"

// DefaultLockDuration is how long a confirmed scene is held.
const DefaultLockDuration = 60 * time.Second

// confirmHits is the number of consecutive agreeing proposals needed to confirm.
const confirmHits = 2

// Classifier decides which scene is current from a stream of snapshots.
// It is not safe for concurrent use; callers serialize ticks.
type Classifier struct {
	lockDuration    time.Duration
	lastConfirmed   SceneID
	lastConfirmedAt time.Time
	lastCandidate   SceneID
	candidateHits   int
	counts          map[SceneID]int
}

// NewClassifier creates a classifier that holds each confirmed scene for lockDuration.
func NewClassifier(lockDuration time.Duration) *Classifier {
	return &Classifier{
		lockDuration: lockDuration,
		counts:       make(map[SceneID]int),
	}
}

// Classify proposes a scene for snapshot and runs it through the lock window
// and double-hit confirmation.
func (c *Classifier) Classify(snapshot Snapshot, now time.Time) Classification {
	proposed := ProposeScene(snapshot)

	// Hold the confirmed scene while the lock window is open.
	if c.lastConfirmed != "" {
		elapsed := now.Sub(c.lastConfirmedAt)
		if elapsed < c.lockDuration {
			if proposed == c.lastConfirmed {
				// Renew so a persistent condition keeps the lock alive.
				c.lastConfirmedAt = now
			}
			return Classification{
				Current:       c.lastConfirmed,
				Candidate:     proposed,
				Locked:        true,
				LockRemaining: c.lockDuration - elapsed,
			}
		}
	}

	if proposed == c.lastCandidate {
		c.candidateHits++
	} else {
		c.lastCandidate = proposed
		c.candidateHits = 1
	}

	if c.candidateHits >= confirmHits {
		c.lastConfirmed = proposed
		c.lastConfirmedAt = now
		c.candidateHits = 0
		c.counts[proposed]++
		return Classification{
			Current:       proposed,
			Locked:        true,
			LockRemaining: c.lockDuration,
			Confirmed:     true,
		}
	}

	return Classification{
		Current:   c.lastConfirmed,
		Candidate: proposed,
	}
}

// ProposeScene maps a snapshot to a candidate scene. Rules are evaluated in
// order and the first match wins; the order is load-bearing.
//
// The morning rule has no further guard, so the commute rule below it can
// never fire. That ordering is kept as-is.
func ProposeScene(s Snapshot) SceneID {
	cadence := s.Cadence.OrZero()

	switch {
	case s.TimeBand == TimeMorning:
		return SceneMorningIntro

	case s.TimeBand == TimeMorning && (s.GeoTag == GeoStation || cadence > 110):
		return SceneCommuteHurry

	case s.Weather == WeatherRainy && s.Motion == MotionWalking:
		return SceneRainyWalk

	case s.GeoTag == GeoCafe && (s.Motion == MotionIdle || cadence == 0):
		return SceneCafeStay

	case s.TimeBand == TimeNight &&
		(s.GeoTag == GeoPark || s.GeoTag == GeoUrban) &&
		s.Motion == MotionWalking &&
		cadence < 100:
		return SceneNightWalk

	case (s.Weather == WeatherClear || s.Weather == WeatherCloudy) && s.Motion == MotionWalking:
		return SceneSunnyWalk

	case s.GeoTag == GeoForest || s.GeoTag == GeoRiver || s.GeoTag == GeoPark || s.Motion == MotionIdle:
		return SceneNatureAmbient
	}

	return SceneNatureAmbient
}

// Current returns the confirmed scene, or "" before the first confirmation.
func (c *Classifier) Current() SceneID {
	return c.lastConfirmed
}

// LockDuration returns the configured lock window.
func (c *Classifier) LockDuration() time.Duration {
	return c.lockDuration
}

// Counts returns a copy of the number of confirmations per scene.
func (c *Classifier) Counts() map[SceneID]int {
	out := make(map[SceneID]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
