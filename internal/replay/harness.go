package replay

import (
	"fmt"
	"time"

	"github.com/sweeney/soundscape/internal/geo"
	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/score"
)

// StepResult is what happened on one step.
type StepResult struct {
	Index          int
	At             time.Time
	Snapshot       logic.Snapshot
	Classification logic.Classification
	// Plan is set once a scene has been confirmed.
	Plan       *score.Plan
	Mismatches []string
}

// Report summarizes a run.
type Report struct {
	Name          string
	Steps         []StepResult
	Confirmations []logic.SceneEvent
	Counts        map[logic.SceneID]int
	Failures      int
}

// Passed reports whether every expectation held.
func (r Report) Passed() bool {
	return r.Failures == 0
}

// Run replays the fixture through a fresh matcher and classifier, planning
// with planner. Runs are deterministic: the same fixture gives the same report.
func Run(f *Fixture, planner *score.Planner) (Report, error) {
	if err := f.Validate(); err != nil {
		return Report{}, err
	}
	if planner == nil {
		planner = score.NewPlanner(score.DefaultPresets(), score.DefaultWalkBoost, score.DefaultRunBoost)
	}

	matcher := geo.NewMatcher(f.fences(), f.Hysteresis(), f.initialTag())
	classifier := logic.NewClassifier(f.LockDuration())
	tag := f.initialTag()

	report := Report{Name: f.Name, Steps: make([]StepResult, 0, len(f.Steps))}
	previous := logic.SceneID("")

	for i, step := range f.Steps {
		in, err := step.inputs()
		if err != nil {
			return Report{}, fmt.Errorf("steps[%d]: %w", i, err)
		}
		at := f.Start.Add(time.Duration(step.OffsetMs) * time.Millisecond)

		switch {
		case step.Lat != nil:
			tag = matcher.Match(*step.Lat, *step.Lon, at)
		case in.geo != "":
			tag = in.geo
		}
		band := in.band
		if band == "" {
			band = logic.TimeBandAt(at)
		}

		snap := logic.NewSnapshot(tag, band, in.weather, in.motion, in.cadence, at)
		cls := classifier.Classify(snap, at)

		res := StepResult{Index: i, At: at, Snapshot: snap, Classification: cls}
		if cls.Current != "" {
			p := planner.Plan(cls.Current, in.motion, in.cadence)
			res.Plan = &p
		}
		if cls.Confirmed {
			report.Confirmations = append(report.Confirmations, logic.SceneEvent{Timestamp: at, Scene: cls.Current, Previous: previous})
			previous = cls.Current
		}
		if step.Expect != nil {
			res.Mismatches = step.Expect.check(snap, cls)
			if len(res.Mismatches) > 0 {
				report.Failures++
			}
		}
		report.Steps = append(report.Steps, res)
	}

	report.Counts = classifier.Counts()
	return report, nil
}

func (e *Expect) check(snap logic.Snapshot, cls logic.Classification) []string {
	var out []string
	if e.GeoTag != nil && string(snap.GeoTag) != *e.GeoTag {
		out = append(out, fmt.Sprintf("geo: got %q, want %q", snap.GeoTag, *e.GeoTag))
	}
	if e.Current != nil && string(cls.Current) != *e.Current {
		out = append(out, fmt.Sprintf("current: got %q, want %q", cls.Current, *e.Current))
	}
	if e.Candidate != nil && string(cls.Candidate) != *e.Candidate {
		out = append(out, fmt.Sprintf("candidate: got %q, want %q", cls.Candidate, *e.Candidate))
	}
	if e.Locked != nil && cls.Locked != *e.Locked {
		out = append(out, fmt.Sprintf("locked: got %v, want %v", cls.Locked, *e.Locked))
	}
	if e.LockRemainingMs != nil {
		got := cls.LockRemaining.Milliseconds()
		if !cls.Locked || got != *e.LockRemainingMs {
			out = append(out, fmt.Sprintf("lock_remaining_ms: got %d (locked=%v), want %d", got, cls.Locked, *e.LockRemainingMs))
		}
	}
	if e.Confirmed != nil && cls.Confirmed != *e.Confirmed {
		out = append(out, fmt.Sprintf("confirmed: got %v, want %v", cls.Confirmed, *e.Confirmed))
	}
	return out
}
