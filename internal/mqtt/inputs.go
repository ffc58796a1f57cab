package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/soundscape/internal/logic"
)

// Location is the latest position reported on the location topic.
type Location struct {
	Latitude  float64
	Longitude float64
	At        time.Time
}

// MotionInput is the latest motion report from the motion topic.
type MotionInput struct {
	Motion  logic.Motion
	Cadence logic.Cadence
	At      time.Time
}

// WeatherInput is the latest weather report.
type WeatherInput struct {
	Weather logic.Weather
	At      time.Time
}

type locationMsg struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type weatherMsg struct {
	Weather string `json:"weather"`
}

type motionMsg struct {
	Motion  string `json:"motion"`
	Cadence *int   `json:"cadence"`
}

// Inputs holds the latest value received on each input topic.
// Safe for concurrent use; handlers run on the MQTT client's goroutine.
type Inputs struct {
	topics Topics

	mu       sync.RWMutex
	location *Location
	weather  *WeatherInput
	motion   *MotionInput
}

// NewInputs creates an empty input store for the given topics.
func NewInputs(topics Topics) *Inputs {
	return &Inputs{topics: topics}
}

// Handle routes a message by topic. Unknown topics are an error.
func (in *Inputs) Handle(topic string, payload []byte, now time.Time) error {
	switch topic {
	case in.topics.InputLocation:
		return in.HandleLocation(payload, now)
	case in.topics.InputWeather:
		return in.HandleWeather(payload, now)
	case in.topics.InputMotion:
		return in.HandleMotion(payload, now)
	default:
		return fmt.Errorf("unexpected topic %q", topic)
	}
}

// HandleLocation accepts {"lat": .., "lon": ..}.
func (in *Inputs) HandleLocation(payload []byte, now time.Time) error {
	var msg locationMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode location: %w", err)
	}
	if msg.Lat == nil || msg.Lon == nil {
		return errors.New("decode location: lat and lon are required")
	}
	if *msg.Lat < -90 || *msg.Lat > 90 || *msg.Lon < -180 || *msg.Lon > 180 {
		return fmt.Errorf("decode location: out of range (%v, %v)", *msg.Lat, *msg.Lon)
	}

	in.mu.Lock()
	in.location = &Location{Latitude: *msg.Lat, Longitude: *msg.Lon, At: now}
	in.mu.Unlock()
	return nil
}

// HandleWeather accepts either {"weather": "rainy"} or a bare name.
// Unrecognised names are stored as unknown.
func (in *Inputs) HandleWeather(payload []byte, now time.Time) error {
	name := strings.TrimSpace(string(payload))
	if strings.HasPrefix(name, "{") {
		var msg weatherMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decode weather: %w", err)
		}
		name = msg.Weather
	}

	w, err := logic.ParseWeather(name)
	if err != nil {
		w = logic.WeatherUnknown
	}

	in.mu.Lock()
	in.weather = &WeatherInput{Weather: w, At: now}
	in.mu.Unlock()
	return nil
}

// HandleMotion accepts {"motion": "walking", "cadence": 120}. Cadence is optional.
func (in *Inputs) HandleMotion(payload []byte, now time.Time) error {
	var msg motionMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode motion: %w", err)
	}
	m, err := logic.ParseMotion(msg.Motion)
	if err != nil {
		return fmt.Errorf("decode motion: %w", err)
	}
	cadence := logic.NoCadence
	if msg.Cadence != nil {
		cadence = logic.CadenceOf(*msg.Cadence)
	}

	in.mu.Lock()
	in.motion = &MotionInput{Motion: m, Cadence: cadence, At: now}
	in.mu.Unlock()
	return nil
}

// Location returns the latest position, if any.
func (in *Inputs) Location() (Location, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.location == nil {
		return Location{}, false
	}
	return *in.location, true
}

// Weather returns the latest weather, if any.
func (in *Inputs) Weather() (WeatherInput, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.weather == nil {
		return WeatherInput{}, false
	}
	return *in.weather, true
}

// Motion returns the latest motion report, if any.
func (in *Inputs) Motion() (MotionInput, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.motion == nil {
		return MotionInput{}, false
	}
	return *in.motion, true
}
