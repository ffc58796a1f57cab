// Package score maps a confirmed scene and the listener's motion onto a
// bounded audio-mix plan. Planning is a pure function of its inputs.
package score

import (
	"math"

	"github.com/sweeney/soundscape/internal/logic"
)

// Default motion boosts.
const (
	DefaultWalkBoost = 0.12
	DefaultRunBoost  = 0.25
)

// Plan is a declarative audio-mix description. After planning every field
// except BaseBPM lies in [0,1].
type Plan struct {
	Pad             float64 `json:"pad" yaml:"pad" toml:"pad"`
	Arp             float64 `json:"arp" yaml:"arp" toml:"arp"`
	Beat            float64 `json:"beat" yaml:"beat" toml:"beat"`
	FX              float64 `json:"fx" yaml:"fx" toml:"fx"`
	FieldNoise      float64 `json:"field_noise" yaml:"field_noise" toml:"field_noise"`
	BaseBPM         float64 `json:"base_bpm" yaml:"base_bpm" toml:"base_bpm"`
	TempoFollowRate float64 `json:"tempo_follow_rate" yaml:"tempo_follow_rate" toml:"tempo_follow_rate"`
	Filter          float64 `json:"filter" yaml:"filter" toml:"filter"`
	Reverb          float64 `json:"reverb" yaml:"reverb" toml:"reverb"`
}

// ZeroPlan is used when no preset is configured at all.
func ZeroPlan() Plan {
	return Plan{
		BaseBPM:         90,
		TempoFollowRate: 0.1,
		Filter:          0.5,
		Reverb:          0.5,
	}
}

// Preset binds a base plan to a scene.
type Preset struct {
	Scene logic.SceneID
	Plan  Plan
}

// Planner turns (scene, motion, cadence) into a Plan.
// It holds only its preset table and is safe for concurrent use.
type Planner struct {
	presets   map[logic.SceneID]Plan
	fallback  Plan
	walkBoost float64
	runBoost  float64
}

// NewPlanner builds a planner. A later preset for the same scene replaces an
// earlier one. Scenes without a preset use the first-inserted scene's plan.
func NewPlanner(presets []Preset, walkBoost, runBoost float64) *Planner {
	p := &Planner{
		presets:   make(map[logic.SceneID]Plan, len(presets)),
		fallback:  ZeroPlan(),
		walkBoost: walkBoost,
		runBoost:  runBoost,
	}
	for _, pr := range presets {
		p.presets[pr.Scene] = pr.Plan
	}
	if len(presets) > 0 {
		p.fallback = p.presets[presets[0].Scene]
	}
	return p
}

// boost is the per-motion adjustment applied to a base plan.
type boost struct {
	pad, arp, beat, bpm, reverbCut float64
}

// Plan returns the mix plan for scene given the listener's motion and cadence.
func (p *Planner) Plan(scene logic.SceneID, motion logic.Motion, cadence logic.Cadence) Plan {
	base := p.Base(scene)
	b := p.boostFor(motion, cadence)

	return Plan{
		Pad:             clamp01(base.Pad + b.pad),
		Arp:             clamp01(base.Arp + b.arp),
		Beat:            clamp01(base.Beat + b.beat),
		FX:              clamp01(base.FX),
		FieldNoise:      clamp01(base.FieldNoise),
		BaseBPM:         base.BaseBPM + b.bpm,
		TempoFollowRate: clamp01(base.TempoFollowRate),
		Filter:          clamp01(base.Filter),
		Reverb:          clamp01(base.Reverb - b.reverbCut),
	}
}

// Base returns the unadjusted preset for scene, or the fallback.
func (p *Planner) Base(scene logic.SceneID) Plan {
	if plan, ok := p.presets[scene]; ok {
		return plan
	}
	return p.fallback
}

func (p *Planner) boostFor(motion logic.Motion, cadence logic.Cadence) boost {
	switch motion {
	case logic.MotionIdle:
		return boost{pad: 0.05, arp: -0.05, beat: -0.18, bpm: -4, reverbCut: -0.05}
	case logic.MotionWalking:
		return boost{arp: p.walkBoost * 0.5, beat: p.walkBoost, bpm: CadenceBoost(cadence), reverbCut: 0.08}
	case logic.MotionRunning:
		return boost{pad: -0.05, arp: p.runBoost * 0.6, beat: p.runBoost, bpm: CadenceBoost(cadence) + 6, reverbCut: 0.10}
	}
	return boost{}
}

// CadenceBoost maps cadence onto a tempo nudge of at most ±6 BPM, centred on
// 130 spm and spanning 90–170 spm. An absent cadence gives 0.
func CadenceBoost(c logic.Cadence) float64 {
	if !c.Valid {
		return 0
	}
	spm := math.Max(0, math.Min(200, float64(c.SPM)))
	normalized := (spm - 130) / 40
	return math.Max(-6, math.Min(6, normalized*6))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
