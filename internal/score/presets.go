package score

import "github.com/sweeney/soundscape/internal/logic"

// DefaultPresets returns the built-in preset table, one entry per scene.
// nature_ambient is first so it is the fallback for unknown scenes.
func DefaultPresets() []Preset {
	return []Preset{
		{logic.SceneNatureAmbient, Plan{Pad: 0.60, Arp: 0.10, Beat: 0.05, FX: 0.25, FieldNoise: 0.55, BaseBPM: 76, TempoFollowRate: 0.10, Filter: 0.40, Reverb: 0.70}},
		{logic.SceneMorningIntro, Plan{Pad: 0.55, Arp: 0.35, Beat: 0.20, FX: 0.20, FieldNoise: 0.25, BaseBPM: 92, TempoFollowRate: 0.30, Filter: 0.55, Reverb: 0.55}},
		{logic.SceneCommuteHurry, Plan{Pad: 0.35, Arp: 0.50, Beat: 0.65, FX: 0.30, FieldNoise: 0.15, BaseBPM: 124, TempoFollowRate: 0.70, Filter: 0.70, Reverb: 0.30}},
		{logic.SceneRainyWalk, Plan{Pad: 0.60, Arp: 0.25, Beat: 0.30, FX: 0.35, FieldNoise: 0.50, BaseBPM: 96, TempoFollowRate: 0.40, Filter: 0.35, Reverb: 0.65}},
		{logic.SceneCafeStay, Plan{Pad: 0.50, Arp: 0.20, Beat: 0.25, FX: 0.15, FieldNoise: 0.40, BaseBPM: 84, TempoFollowRate: 0.10, Filter: 0.45, Reverb: 0.45}},
		{logic.SceneNightWalk, Plan{Pad: 0.65, Arp: 0.30, Beat: 0.25, FX: 0.40, FieldNoise: 0.20, BaseBPM: 88, TempoFollowRate: 0.35, Filter: 0.30, Reverb: 0.75}},
		{logic.SceneSunnyWalk, Plan{Pad: 0.50, Arp: 0.30, Beat: 0.40, FX: 0.20, FieldNoise: 0.20, BaseBPM: 100, TempoFollowRate: 0.50, Filter: 0.50, Reverb: 0.50}},
	}
}
