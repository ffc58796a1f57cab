// Package mqtt publishes scene, plan and system events and collects the
// location, weather and motion inputs the daemon subscribes to.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/score"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "soundscape"

// EventSceneConfirmed is the event name carried by scene payloads.
const EventSceneConfirmed = "SCENE_CONFIRMED"

// Topics holds every topic derived from one prefix.
type Topics struct {
	SceneEvents   string
	Plan          string
	System        string
	InputLocation string
	InputWeather  string
	InputMotion   string
}

// NewTopics derives the topic set for prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		SceneEvents:   prefix + "/scene/events",
		Plan:          prefix + "/score/plan",
		System:        prefix + "/system",
		InputLocation: prefix + "/input/location",
		InputWeather:  prefix + "/input/weather",
		InputMotion:   prefix + "/input/motion",
	}
}

// Inputs returns the subscribed input topics.
func (t Topics) Inputs() []string {
	return []string{t.InputLocation, t.InputWeather, t.InputMotion}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishScene sends a scene confirmation.
	// Returns error if publishing fails (should not crash the process).
	PublishScene(event logic.SceneEvent) error

	// PublishPlan sends the current score plan. Plans are retained.
	PublishPlan(event PlanEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// PlanEvent is a score plan chosen for a scene at a point in time.
type PlanEvent struct {
	Timestamp time.Time
	Scene     logic.SceneID
	Plan      score.Plan
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ScenePayload is the MQTT message for a scene confirmation.
type ScenePayload struct {
	Scene SceneInner `json:"scene"`
}

// SceneInner contains the scene event details.
type SceneInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Scene     string `json:"scene"`
	Previous  string `json:"previous,omitempty"`
}

// FormatScenePayload creates the JSON payload for a scene confirmation.
func FormatScenePayload(event logic.SceneEvent) ([]byte, error) {
	payload := ScenePayload{
		Scene: SceneInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     EventSceneConfirmed,
			Scene:     string(event.Scene),
			Previous:  string(event.Previous),
		},
	}
	return json.Marshal(payload)
}

// PlanPayload is the MQTT message for a score plan.
type PlanPayload struct {
	Plan PlanInner `json:"plan"`
}

// PlanInner flattens the plan fields next to the scene and timestamp.
type PlanInner struct {
	Timestamp string `json:"timestamp"`
	Scene     string `json:"scene"`
	score.Plan
}

// FormatPlanPayload creates the JSON payload for a score plan.
func FormatPlanPayload(event PlanEvent) ([]byte, error) {
	payload := PlanPayload{
		Plan: PlanInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Scene:     string(event.Scene),
			Plan:      event.Plan,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
