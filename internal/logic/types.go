// Package logic contains the pure decision logic for the soundscape engine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or clock reads).
// Time is always injectable via time.Time parameters.
package logic

import (
	"strconv"
	"time"
)

// GeoTag identifies the kind of place the listener is in.
type GeoTag string

const (
	GeoStation GeoTag = "station"
	GeoPark    GeoTag = "park"
	GeoCafe    GeoTag = "cafe"
	GeoRiver   GeoTag = "river"
	GeoForest  GeoTag = "forest"
	GeoUrban   GeoTag = "urban"
)

// GeoTags lists every GeoTag in declaration order.
var GeoTags = []GeoTag{GeoStation, GeoPark, GeoCafe, GeoRiver, GeoForest, GeoUrban}

// TimeBand is a coarse time-of-day bucket.
type TimeBand string

const (
	TimeMorning TimeBand = "morning"
	TimeDaytime TimeBand = "daytime"
	TimeEvening TimeBand = "evening"
	TimeNight   TimeBand = "night"
)

// TimeBands lists every TimeBand in declaration order.
var TimeBands = []TimeBand{TimeMorning, TimeDaytime, TimeEvening, TimeNight}

// Weather is the current weather condition.
type Weather string

const (
	WeatherClear   Weather = "clear"
	WeatherCloudy  Weather = "cloudy"
	WeatherRainy   Weather = "rainy"
	WeatherSnowy   Weather = "snowy"
	WeatherUnknown Weather = "unknown"
)

// Weathers lists every Weather in declaration order.
var Weathers = []Weather{WeatherClear, WeatherCloudy, WeatherRainy, WeatherSnowy, WeatherUnknown}

// Motion is the listener's activity.
type Motion string

const (
	MotionIdle    Motion = "idle"
	MotionWalking Motion = "walking"
	MotionRunning Motion = "running"
)

// Motions lists every Motion in declaration order.
var Motions = []Motion{MotionIdle, MotionWalking, MotionRunning}

// SceneID names an ambient scene. The empty SceneID means "no scene".
type SceneID string

const (
	SceneMorningIntro  SceneID = "morning_intro"
	SceneCommuteHurry  SceneID = "commute_hurry"
	SceneRainyWalk     SceneID = "rainy_walk"
	SceneCafeStay      SceneID = "cafe_stay"
	SceneNightWalk     SceneID = "night_walk"
	SceneSunnyWalk     SceneID = "sunny_walk"
	SceneNatureAmbient SceneID = "nature_ambient"
)

// Scenes lists every SceneID in rule order.
var Scenes = []SceneID{
	SceneMorningIntro,
	SceneCommuteHurry,
	SceneRainyWalk,
	SceneCafeStay,
	SceneNightWalk,
	SceneSunnyWalk,
	SceneNatureAmbient,
}

// Cadence is an optional steps-per-minute reading.
// The zero value means the sensor is unavailable.
type Cadence struct {
	SPM   int
	Valid bool
}

// NoCadence is the absent cadence.
var NoCadence = Cadence{}

// CadenceOf returns a present cadence of spm steps per minute.
func CadenceOf(spm int) Cadence {
	return Cadence{SPM: spm, Valid: true}
}

// OrZero returns the reading, or 0 when absent.
func (c Cadence) OrZero() int {
	if !c.Valid {
		return 0
	}
	return c.SPM
}

// String returns the reading, or "-" when absent.
func (c Cadence) String() string {
	if !c.Valid {
		return "-"
	}
	return strconv.Itoa(c.SPM)
}

// Snapshot is one tick's merged view of the environment.
// Snapshots are values; == compares them structurally.
type Snapshot struct {
	GeoTag    GeoTag
	TimeBand  TimeBand
	Weather   Weather
	Motion    Motion
	Cadence   Cadence
	Timestamp time.Time
}

// Classification is the classifier's output for one tick.
type Classification struct {
	// Current is the confirmed scene, empty before the first confirmation.
	Current SceneID
	// Candidate is the proposed scene, empty on the tick a scene is confirmed.
	Candidate SceneID
	// Locked reports whether LockRemaining is meaningful.
	Locked bool
	// LockRemaining is the time left before a new scene may be confirmed.
	LockRemaining time.Duration
	// Confirmed is true only on the tick a confirmation happened.
	Confirmed bool
}

// SceneEvent describes a scene confirmation to be published.
type SceneEvent struct {
	Timestamp time.Time
	Scene     SceneID
	Previous  SceneID
}
