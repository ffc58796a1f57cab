// Package config holds the session configuration for the soundscape daemon
// and CLI. Files may be YAML or TOML; both decode on top of Default().
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/soundscape/internal/geo"
	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/motion"
	"github.com/sweeney/soundscape/internal/score"
)

//go:embed sample_config.yaml
var sampleConfig string

// SampleConfig returns an annotated example configuration file.
func SampleConfig() string {
	return sampleConfig
}

// Config is the top-level configuration.
type Config struct {
	PollMs      int `yaml:"poll_ms" toml:"poll_ms"`
	HeartbeatMs int `yaml:"heartbeat_ms" toml:"heartbeat_ms"`

	Geofence   GeofenceConfig   `yaml:"geofence" toml:"geofence"`
	Classifier ClassifierConfig `yaml:"classifier" toml:"classifier"`
	Planner    PlannerConfig    `yaml:"planner" toml:"planner"`
	Motion     MotionConfig     `yaml:"motion" toml:"motion"`
	MQTT       MQTTConfig       `yaml:"mqtt" toml:"mqtt"`
	HTTP       HTTPConfig       `yaml:"http" toml:"http"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

type GeofenceConfig struct {
	HysteresisMs int           `yaml:"hysteresis_ms" toml:"hysteresis_ms"`
	InitialTag   string        `yaml:"initial_tag" toml:"initial_tag"`
	Fences       []FenceConfig `yaml:"fences" toml:"fences"`
}

type FenceConfig struct {
	Tag          string  `yaml:"tag" toml:"tag"`
	Latitude     float64 `yaml:"lat" toml:"lat"`
	Longitude    float64 `yaml:"lon" toml:"lon"`
	RadiusMeters float64 `yaml:"radius_m" toml:"radius_m"`
}

type ClassifierConfig struct {
	LockMs int `yaml:"lock_ms" toml:"lock_ms"`
}

type PlannerConfig struct {
	WalkBoost float64        `yaml:"walk_boost" toml:"walk_boost"`
	RunBoost  float64        `yaml:"run_boost" toml:"run_boost"`
	Presets   []PresetConfig `yaml:"presets" toml:"presets"`
}

// PresetConfig is a scene name plus the plan fields, flattened.
type PresetConfig struct {
	Scene      string `yaml:"scene" toml:"scene"`
	score.Plan `yaml:",inline"`
}

type MotionConfig struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled"`
	Chip         string `yaml:"chip" toml:"chip"`
	Pin          int    `yaml:"pin" toml:"pin"`
	WindowMs     int    `yaml:"window_ms" toml:"window_ms"`
	IdleBelowSPM int    `yaml:"idle_below_spm" toml:"idle_below_spm"`
	RunFromSPM   int    `yaml:"run_from_spm" toml:"run_from_spm"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker" toml:"broker"`
	ClientID    string `yaml:"client_id" toml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns a fully-populated Config.
func Default() Config {
	presets := score.DefaultPresets()
	pc := make([]PresetConfig, 0, len(presets))
	for _, p := range presets {
		pc = append(pc, PresetConfig{Scene: string(p.Scene), Plan: p.Plan})
	}

	return Config{
		PollMs:      10000,
		HeartbeatMs: int((15 * time.Minute).Milliseconds()),
		Geofence: GeofenceConfig{
			HysteresisMs: int(geo.DefaultHysteresis.Milliseconds()),
			InitialTag:   string(logic.GeoUrban),
		},
		Classifier: ClassifierConfig{
			LockMs: int(logic.DefaultLockDuration.Milliseconds()),
		},
		Planner: PlannerConfig{
			WalkBoost: score.DefaultWalkBoost,
			RunBoost:  score.DefaultRunBoost,
			Presets:   pc,
		},
		Motion: MotionConfig{
			Enabled:      false,
			Chip:         "gpiochip0",
			Pin:          17,
			WindowMs:     int(motion.DefaultWindow.Milliseconds()),
			IdleBelowSPM: motion.DefaultIdleBelowSPM,
			RunFromSPM:   motion.DefaultRunFromSPM,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "soundscape",
			TopicPrefix: "soundscape",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile reads a YAML (.yaml, .yml) or TOML (.toml) file on top of the
// defaults. Unknown keys are rejected. A preset list in the file replaces
// the default table wholesale.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := decodeYAML(b, &cfg); err != nil {
			return Config{}, err
		}
	case ".toml":
		if err := decodeTOML(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("unsupported config extension %q (want .yaml, .yml or .toml)", ext)
	}
	return cfg, nil
}

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("decode config yaml: unexpected trailing document")
	}
	return nil
}

func decodeTOML(b []byte, cfg *Config) error {
	var keys map[string]any
	if err := toml.Unmarshal(b, &keys); err != nil {
		return fmt.Errorf("decode config toml: %w", err)
	}
	// go-toml reuses the backing array of a populated slice; a list set in
	// the file must start from scratch so stale default fields cannot leak.
	if hasKey(keys, "planner", "presets") {
		cfg.Planner.Presets = nil
	}
	if hasKey(keys, "geofence", "fences") {
		cfg.Geofence.Fences = nil
	}

	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return fmt.Errorf("decode config toml: %s", sme.String())
		}
		return fmt.Errorf("decode config toml: %w", err)
	}
	return nil
}

// hasKey reports whether the nested key path is set in a decoded document.
func hasKey(doc map[string]any, path ...string) bool {
	for i, k := range path {
		v, ok := doc[k]
		if !ok {
			return false
		}
		if i == len(path)-1 {
			return true
		}
		if doc, ok = v.(map[string]any); !ok {
			return false
		}
	}
	return false
}

// Validate checks config invariants and returns an error naming the key.
func (c *Config) Validate() error {
	if c.PollMs <= 0 {
		return errors.New("poll_ms must be > 0")
	}
	if c.HeartbeatMs < 0 {
		return errors.New("heartbeat_ms must be >= 0")
	}

	if c.Geofence.HysteresisMs < 0 {
		return errors.New("geofence.hysteresis_ms must be >= 0")
	}
	if _, err := logic.ParseGeoTag(c.Geofence.InitialTag); err != nil {
		return fmt.Errorf("geofence.initial_tag: %w", err)
	}
	for i, f := range c.Geofence.Fences {
		if _, err := logic.ParseGeoTag(f.Tag); err != nil {
			return fmt.Errorf("geofence.fences[%d].tag: %w", i, err)
		}
		if f.Latitude < -90 || f.Latitude > 90 {
			return fmt.Errorf("geofence.fences[%d].lat must be within [-90, 90]", i)
		}
		if f.Longitude < -180 || f.Longitude > 180 {
			return fmt.Errorf("geofence.fences[%d].lon must be within [-180, 180]", i)
		}
		if f.RadiusMeters <= 0 {
			return fmt.Errorf("geofence.fences[%d].radius_m must be > 0", i)
		}
	}

	if c.Classifier.LockMs < 0 {
		return errors.New("classifier.lock_ms must be >= 0")
	}

	if c.Planner.WalkBoost < 0 || c.Planner.WalkBoost > 1 {
		return errors.New("planner.walk_boost must be within [0, 1]")
	}
	if c.Planner.RunBoost < 0 || c.Planner.RunBoost > 1 {
		return errors.New("planner.run_boost must be within [0, 1]")
	}
	for i, p := range c.Planner.Presets {
		if _, err := logic.ParseScene(p.Scene); err != nil {
			return fmt.Errorf("planner.presets[%d].scene: %w", i, err)
		}
		if p.BaseBPM <= 0 {
			return fmt.Errorf("planner.presets[%d].base_bpm must be > 0", i)
		}
	}

	if c.Motion.Enabled {
		if c.Motion.Chip == "" {
			return errors.New("motion.chip must not be empty")
		}
		if c.Motion.Pin < 0 {
			return errors.New("motion.pin must be >= 0")
		}
	}
	if c.Motion.WindowMs <= 0 {
		return errors.New("motion.window_ms must be > 0")
	}
	if c.Motion.IdleBelowSPM < 0 || c.Motion.RunFromSPM <= c.Motion.IdleBelowSPM {
		return errors.New("motion: need 0 <= idle_below_spm < run_from_spm")
	}

	if c.MQTT.TopicPrefix == "" {
		return errors.New("mqtt.topic_prefix must not be empty")
	}
	if c.MQTT.Broker != "" && c.MQTT.ClientID == "" {
		return errors.New("mqtt.client_id must not be empty when a broker is set")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "error", "warn", "warning", "info", "debug":
	default:
		return fmt.Errorf("logging.level: invalid level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// Poll returns the poll interval.
func (c Config) Poll() time.Duration { return ms(c.PollMs) }

// Heartbeat returns the heartbeat interval (0 disables).
func (c Config) Heartbeat() time.Duration { return ms(c.HeartbeatMs) }

// LockDuration returns the classifier lock window.
func (c Config) LockDuration() time.Duration { return ms(c.Classifier.LockMs) }

// Hysteresis returns the geofence hysteresis window.
func (c Config) Hysteresis() time.Duration { return ms(c.Geofence.HysteresisMs) }

// InitialTag returns the tag reported before any fence is matched.
// Call after Validate.
func (c Config) InitialTag() logic.GeoTag {
	tag, _ := logic.ParseGeoTag(c.Geofence.InitialTag)
	return tag
}

// Fences converts the fence list. Call after Validate.
func (c Config) Fences() []geo.Fence {
	out := make([]geo.Fence, 0, len(c.Geofence.Fences))
	for _, f := range c.Geofence.Fences {
		tag, _ := logic.ParseGeoTag(f.Tag)
		out = append(out, geo.Fence{
			Tag:          tag,
			Latitude:     f.Latitude,
			Longitude:    f.Longitude,
			RadiusMeters: f.RadiusMeters,
		})
	}
	return out
}

// Presets converts the preset table. Call after Validate.
func (c Config) Presets() []score.Preset {
	out := make([]score.Preset, 0, len(c.Planner.Presets))
	for _, p := range c.Planner.Presets {
		scene, _ := logic.ParseScene(p.Scene)
		out = append(out, score.Preset{Scene: scene, Plan: p.Plan})
	}
	return out
}

// MotionMeter returns the step meter tuning.
func (c Config) MotionMeter() motion.Config {
	return motion.Config{
		Window:       ms(c.Motion.WindowMs),
		IdleBelowSPM: c.Motion.IdleBelowSPM,
		RunFromSPM:   c.Motion.RunFromSPM,
	}
}

// NewMatcher builds a geofence matcher from the configuration.
func (c Config) NewMatcher() *geo.Matcher {
	return geo.NewMatcher(c.Fences(), c.Hysteresis(), c.InitialTag())
}

// NewClassifier builds a scene classifier from the configuration.
func (c Config) NewClassifier() *logic.Classifier {
	return logic.NewClassifier(c.LockDuration())
}

// NewPlanner builds a score planner from the configuration.
func (c Config) NewPlanner() *score.Planner {
	return score.NewPlanner(c.Presets(), c.Planner.WalkBoost, c.Planner.RunBoost)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
