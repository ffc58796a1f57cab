package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/score"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleContext() logic.Snapshot {
	return logic.NewSnapshot(logic.GeoPark, logic.TimeDaytime, logic.WeatherClear,
		logic.MotionWalking, logic.CadenceOf(118), start.Add(10*time.Minute))
}

func samplePlan() score.Plan {
	return score.Plan{Pad: 0.5, Arp: 0.36, Beat: 0.52, FX: 0.2, FieldNoise: 0.2,
		BaseBPM: 98.5, TempoFollowRate: 0.5, Filter: 0.5, Reverb: 0.42}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 10000, LockMs: 60000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.LockMs != 60000 {
		t.Errorf("Config.LockMs: got %d, want 60000", snap.Config.LockMs)
	}
	if _, err := uuid.Parse(snap.SessionID); err != nil {
		t.Errorf("SessionID %q is not a uuid: %v", snap.SessionID, err)
	}
	if snap.HasContext || snap.HasPlan {
		t.Error("expected no context or plan initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSessionIDsDiffer(t *testing.T) {
	a := NewTracker(start, Config{}).Snapshot().SessionID
	b := NewTracker(start, Config{}).Snapshot().SessionID
	if a == b {
		t.Error("each tracker should get its own session ID")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	cls := logic.Classification{Current: logic.SceneSunnyWalk, Locked: true, LockRemaining: 42 * time.Second}
	tr.Update(sampleContext(), cls, samplePlan(), true, map[logic.SceneID]int{logic.SceneSunnyWalk: 2})

	snap := tr.Snapshot()
	if !snap.HasContext || snap.Context != sampleContext() {
		t.Errorf("context not recorded: %+v", snap.Context)
	}
	if snap.Classification != cls {
		t.Errorf("classification: got %+v", snap.Classification)
	}
	if !snap.HasPlan || snap.Plan != samplePlan() {
		t.Errorf("plan not recorded: %+v", snap.Plan)
	}
	if snap.Counts[logic.SceneSunnyWalk] != 2 {
		t.Errorf("counts: got %v", snap.Counts)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	counts := map[logic.SceneID]int{logic.SceneCafeStay: 1}
	tr.Update(sampleContext(), logic.Classification{}, score.Plan{}, false, counts)

	// Caller mutations must not leak in.
	counts[logic.SceneCafeStay] = 99

	snap1 := tr.Snapshot()
	snap1.Counts[logic.SceneNightWalk] = 5

	snap2 := tr.Snapshot()
	if snap2.Counts[logic.SceneCafeStay] != 1 {
		t.Errorf("tracker counts changed through caller map: %v", snap2.Counts)
	}
	if _, ok := snap2.Counts[logic.SceneNightWalk]; ok {
		t.Error("snapshot counts should be a copy")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUsesClock(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetClock(func() time.Time { return start.Add(15 * time.Minute) })

	snap := tr.Snapshot()
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		SessionID:      "abc",
		Context:        sampleContext(),
		HasContext:     true,
		Classification: logic.Classification{Current: logic.SceneSunnyWalk, Locked: true, LockRemaining: 42500 * time.Millisecond},
		Plan:           samplePlan(),
		HasPlan:        true,
		Counts:         map[logic.SceneID]int{logic.SceneSunnyWalk: 3},
		StartTime:      start,
		Now:            start.Add(15 * time.Minute),
		MQTTConnected:  true,
		Config:         Config{PollMs: 10000, LockMs: 60000, Fences: 4, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.SessionID != "abc" {
		t.Errorf("SessionID: got %q", s.SessionID)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Context == nil || s.Context.GeoTag != "park" || s.Context.Motion != "walking" {
		t.Fatalf("Context: got %+v", s.Context)
	}
	if s.Context.Cadence == nil || *s.Context.Cadence != 118 {
		t.Errorf("Cadence: got %v", s.Context.Cadence)
	}
	if s.Scene.Current != "sunny_walk" || !s.Scene.Locked {
		t.Errorf("Scene: got %+v", s.Scene)
	}
	if s.Scene.LockRemainingMs == nil || *s.Scene.LockRemainingMs != 42500 {
		t.Errorf("LockRemainingMs: got %v", s.Scene.LockRemainingMs)
	}
	if s.Plan == nil || s.Plan.Scene != "sunny_walk" || s.Plan.BaseBPM != 98.5 {
		t.Errorf("Plan: got %+v", s.Plan)
	}
	if len(s.Counts) != len(logic.Scenes) {
		t.Errorf("every scene should have a count, got %v", s.Counts)
	}
	if s.Counts["sunny_walk"] != 3 || s.Counts["cafe_stay"] != 0 {
		t.Errorf("Counts: got %v", s.Counts)
	}
	if s.Config.Fences != 4 || s.Config.LockMs != 60000 {
		t.Errorf("Config: got %+v", s.Config)
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("web format should omit event/reason, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONBeforeFirstTick(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"]
	if _, ok := status["context"]; ok {
		t.Error("context should be omitted before the first tick")
	}
	if _, ok := status["plan"]; ok {
		t.Error("plan should be omitted before the first confirmation")
	}
	scene := status["scene"].(map[string]interface{})
	if scene["current"] != "" {
		t.Errorf("current: got %v, want empty", scene["current"])
	}
	if scene["lock_remaining_ms"] != nil {
		t.Errorf("lock_remaining_ms should be null when unlocked, got %v", scene["lock_remaining_ms"])
	}
}

func TestFormatJSONAbsentCadenceIsNull(t *testing.T) {
	ctx := sampleContext()
	ctx.Cadence = logic.NoCadence
	snap := Snapshot{Context: ctx, HasContext: true, StartTime: start, Now: start}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)
	if parsed.Status.Context.Cadence != nil {
		t.Errorf("expected null cadence, got %d", *parsed.Status.Context.Cadence)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]interface{}
	json.Unmarshal(FormatStatusEvent(snap, "STARTUP", ""), &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(sampleContext(), logic.Classification{}, samplePlan(), true,
				map[logic.SceneID]int{logic.SceneCafeStay: i})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
