// Package status provides a thread-safe view of the soundscape daemon's
// latest context, scene and plan. It is read by HTTP handlers, the live
// websocket feed and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/score"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	HeartbeatMs  int64
	LockMs       int64
	HysteresisMs int64
	Fences       int
	Motion       bool
	Broker       string
	HTTPAddr     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	SessionID      string
	Context        logic.Snapshot
	HasContext     bool
	Classification logic.Classification
	Plan           score.Plan
	HasPlan        bool
	Counts         map[logic.SceneID]int
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with a fresh session ID.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			SessionID: uuid.NewString(),
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update records one tick's context, classification, plan and counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(ctx logic.Snapshot, cls logic.Classification, plan score.Plan, hasPlan bool, counts map[logic.SceneID]int) {
	c := make(map[logic.SceneID]int, len(counts))
	for k, v := range counts {
		c[k] = v
	}

	t.mu.Lock()
	t.snap.Context = ctx
	t.snap.HasContext = true
	t.snap.Classification = cls
	t.snap.Plan = plan
	t.snap.HasPlan = hasPlan
	t.snap.Counts = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set from the tracker's clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	counts := make(map[logic.SceneID]int, len(s.Counts))
	for k, v := range s.Counts {
		counts[k] = v
	}
	t.mu.RUnlock()
	s.Counts = counts
	s.Now = now()
	return s
}
