package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/score"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	SessionID     string         `json:"session_id"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Context       *ContextJSON   `json:"context,omitempty"`
	Scene         SceneJSON      `json:"scene"`
	Plan          *PlanJSON      `json:"plan,omitempty"`
	Counts        map[string]int `json:"scene_counts"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ContextJSON is the JSON representation of the latest context snapshot.
type ContextJSON struct {
	GeoTag   string `json:"geo_tag"`
	TimeBand string `json:"time_band"`
	Weather  string `json:"weather"`
	Motion   string `json:"motion"`
	Cadence  *int   `json:"cadence"`
	At       string `json:"at"`
}

// SceneJSON is the JSON representation of the classifier state.
type SceneJSON struct {
	Current         string `json:"current"`
	Candidate       string `json:"candidate"`
	Locked          bool   `json:"locked"`
	LockRemainingMs *int64 `json:"lock_remaining_ms"`
}

// PlanJSON is the plan with its scene.
type PlanJSON struct {
	Scene string `json:"scene"`
	score.Plan
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	LockMs       int64  `json:"lock_ms"`
	HysteresisMs int64  `json:"hysteresis_ms"`
	Fences       int    `json:"fences"`
	Motion       bool   `json:"motion_sensor"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
}

// Build converts a snapshot to its JSON form.
func Build(snap Snapshot) StatusInner {
	inner := StatusInner{
		SessionID:     snap.SessionID,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Scene:         buildScene(snap.Classification),
		Counts:        make(map[string]int, len(logic.Scenes)),
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			LockMs:       snap.Config.LockMs,
			HysteresisMs: snap.Config.HysteresisMs,
			Fences:       snap.Config.Fences,
			Motion:       snap.Config.Motion,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}
	for _, s := range logic.Scenes {
		inner.Counts[string(s)] = snap.Counts[s]
	}

	if snap.HasContext {
		c := snap.Context
		inner.Context = &ContextJSON{
			GeoTag:   string(c.GeoTag),
			TimeBand: string(c.TimeBand),
			Weather:  string(c.Weather),
			Motion:   string(c.Motion),
			At:       c.Timestamp.UTC().Format(time.RFC3339),
		}
		if c.Cadence.Valid {
			spm := c.Cadence.SPM
			inner.Context.Cadence = &spm
		}
	}
	if snap.HasPlan {
		inner.Plan = &PlanJSON{Scene: string(snap.Classification.Current), Plan: snap.Plan}
	}
	return inner
}

func buildScene(c logic.Classification) SceneJSON {
	s := SceneJSON{
		Current:   string(c.Current),
		Candidate: string(c.Candidate),
		Locked:    c.Locked,
	}
	if c.Locked {
		ms := c.LockRemaining.Milliseconds()
		s.LockRemainingMs = &ms
	}
	return s
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: Build(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := Build(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
