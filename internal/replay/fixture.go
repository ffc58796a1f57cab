// Package replay drives the classifier and planner through recorded or
// scripted context sequences and checks the outcome against expectations.
package replay

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/soundscape/internal/geo"
	"github.com/sweeney/soundscape/internal/logic"
)

//go:embed scenarios/*.yaml
var scenarios embed.FS

// Fixture is one scripted session.
type Fixture struct {
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description"`
	Start        time.Time `yaml:"start"`
	LockMs       *int      `yaml:"lock_ms"`
	HysteresisMs *int      `yaml:"hysteresis_ms"`
	InitialTag   string    `yaml:"initial_tag"`
	Fences       []Fence   `yaml:"fences"`
	Steps        []Step    `yaml:"steps"`
}

// Fence is a geofence declared by the fixture.
type Fence struct {
	Tag          string  `yaml:"tag"`
	Latitude     float64 `yaml:"lat"`
	Longitude    float64 `yaml:"lon"`
	RadiusMeters float64 `yaml:"radius_m"`
}

// Step is one tick. Geo comes from Lat/Lon through the fixture's fences,
// from Geo directly, or carries over from the previous step. An empty Time
// is derived from the step's clock.
type Step struct {
	OffsetMs int      `yaml:"offset_ms"`
	Lat      *float64 `yaml:"lat"`
	Lon      *float64 `yaml:"lon"`
	Geo      string   `yaml:"geo"`
	Time     string   `yaml:"time"`
	Weather  string   `yaml:"weather"`
	Motion   string   `yaml:"motion"`
	Cadence  *int     `yaml:"cadence"`
	Expect   *Expect  `yaml:"expect"`
}

// Expect lists the fields to check after a step. Nil fields are not checked.
type Expect struct {
	GeoTag          *string `yaml:"geo"`
	Current         *string `yaml:"current"`
	Candidate       *string `yaml:"candidate"`
	Locked          *bool   `yaml:"locked"`
	LockRemainingMs *int64  `yaml:"lock_remaining_ms"`
	Confirmed       *bool   `yaml:"confirmed"`
}

// LockDuration returns the fixture's lock window, or the classifier default.
func (f *Fixture) LockDuration() time.Duration {
	if f.LockMs == nil {
		return logic.DefaultLockDuration
	}
	return time.Duration(*f.LockMs) * time.Millisecond
}

// Hysteresis returns the fixture's geofence hysteresis, or the default.
func (f *Fixture) Hysteresis() time.Duration {
	if f.HysteresisMs == nil {
		return geo.DefaultHysteresis
	}
	return time.Duration(*f.HysteresisMs) * time.Millisecond
}

// Parse decodes and validates a YAML fixture. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Builtins returns the names of the embedded scenarios, sorted.
func Builtins() []string {
	entries, err := fs.ReadDir(scenarios, "scenarios")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin loads an embedded scenario by name.
func Builtin(name string) (*Fixture, error) {
	data, err := scenarios.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown scenario %q (have %s)", name, strings.Join(Builtins(), ", "))
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	return f, nil
}

// Validate checks names, ranges and step ordering.
func (f *Fixture) Validate() error {
	if f.Name == "" {
		return errors.New("fixture: name is required")
	}
	if len(f.Steps) == 0 {
		return errors.New("fixture: at least one step is required")
	}
	if f.LockMs != nil && *f.LockMs < 0 {
		return errors.New("fixture: lock_ms must be >= 0")
	}
	if f.HysteresisMs != nil && *f.HysteresisMs < 0 {
		return errors.New("fixture: hysteresis_ms must be >= 0")
	}
	if f.InitialTag != "" {
		if _, err := logic.ParseGeoTag(f.InitialTag); err != nil {
			return fmt.Errorf("fixture: initial_tag: %w", err)
		}
	}
	for i, fe := range f.Fences {
		if _, err := logic.ParseGeoTag(fe.Tag); err != nil {
			return fmt.Errorf("fixture: fences[%d]: %w", i, err)
		}
		if fe.RadiusMeters <= 0 {
			return fmt.Errorf("fixture: fences[%d]: radius_m must be > 0", i)
		}
	}

	last := -1
	for i, s := range f.Steps {
		if s.OffsetMs <= last {
			return fmt.Errorf("fixture: steps[%d]: offset_ms must increase", i)
		}
		last = s.OffsetMs
		if _, err := s.inputs(); err != nil {
			return fmt.Errorf("fixture: steps[%d]: %w", i, err)
		}
		if (s.Lat == nil) != (s.Lon == nil) {
			return fmt.Errorf("fixture: steps[%d]: lat and lon go together", i)
		}
		if s.Lat != nil && len(f.Fences) == 0 {
			return fmt.Errorf("fixture: steps[%d]: lat/lon needs fences", i)
		}
		if s.Lat != nil && s.Geo != "" {
			return fmt.Errorf("fixture: steps[%d]: give geo or lat/lon, not both", i)
		}
	}
	return nil
}

type stepInputs struct {
	geo     logic.GeoTag
	band    logic.TimeBand
	weather logic.Weather
	motion  logic.Motion
	cadence logic.Cadence
}

// inputs parses the step's names. Empty weather is clear and empty motion is idle.
func (s Step) inputs() (stepInputs, error) {
	var in stepInputs
	var err error

	if s.Geo != "" {
		if in.geo, err = logic.ParseGeoTag(s.Geo); err != nil {
			return in, err
		}
	}
	if s.Time != "" {
		if in.band, err = logic.ParseTimeBand(s.Time); err != nil {
			return in, err
		}
	}
	in.weather = logic.WeatherClear
	if s.Weather != "" {
		if in.weather, err = logic.ParseWeather(s.Weather); err != nil {
			return in, err
		}
	}
	in.motion = logic.MotionIdle
	if s.Motion != "" {
		if in.motion, err = logic.ParseMotion(s.Motion); err != nil {
			return in, err
		}
	}
	in.cadence = logic.NoCadence
	if s.Cadence != nil {
		in.cadence = logic.CadenceOf(*s.Cadence)
	}
	return in, nil
}

func (f *Fixture) fences() []geo.Fence {
	out := make([]geo.Fence, 0, len(f.Fences))
	for _, fe := range f.Fences {
		tag, _ := logic.ParseGeoTag(fe.Tag)
		out = append(out, geo.Fence{Tag: tag, Latitude: fe.Latitude, Longitude: fe.Longitude, RadiusMeters: fe.RadiusMeters})
	}
	return out
}

func (f *Fixture) initialTag() logic.GeoTag {
	if f.InitialTag == "" {
		return logic.GeoUrban
	}
	tag, _ := logic.ParseGeoTag(f.InitialTag)
	return tag
}
