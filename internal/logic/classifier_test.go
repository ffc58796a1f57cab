package logic

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

func morningWalk(at time.Time) Snapshot {
	return NewSnapshot(GeoUrban, TimeMorning, WeatherClear, MotionWalking, CadenceOf(100), at)
}

func rainyWalk(at time.Time) Snapshot {
	return NewSnapshot(GeoCafe, TimeDaytime, WeatherRainy, MotionWalking, CadenceOf(90), at)
}

// confirmed returns a classifier that has just confirmed the scene for s at t0+1s.
func confirmed(t *testing.T, lock time.Duration, s Snapshot) *Classifier {
	t.Helper()
	c := NewClassifier(lock)
	c.Classify(s, t0)
	got := c.Classify(s, t0.Add(time.Second))
	if !got.Confirmed {
		t.Fatalf("setup: expected confirmation, got %+v", got)
	}
	return c
}

func TestNewClassifier(t *testing.T) {
	c := NewClassifier(45 * time.Second)
	if c == nil {
		t.Fatal("NewClassifier returned nil")
	}
	if c.LockDuration() != 45*time.Second {
		t.Errorf("expected lock 45s, got %v", c.LockDuration())
	}
	if c.Current() != "" {
		t.Errorf("new classifier should have no current scene, got %q", c.Current())
	}
	if len(c.Counts()) != 0 {
		t.Errorf("expected no counts, got %v", c.Counts())
	}
}

func TestDoubleHitThenLock(t *testing.T) {
	c := NewClassifier(60 * time.Second)

	first := c.Classify(morningWalk(t0), t0)
	if first.Current != "" {
		t.Errorf("first: expected no current, got %q", first.Current)
	}
	if first.Candidate != SceneMorningIntro {
		t.Errorf("first: expected candidate morning_intro, got %q", first.Candidate)
	}
	if first.Locked {
		t.Error("first: should not report a lock")
	}

	second := c.Classify(morningWalk(t0.Add(time.Second)), t0.Add(time.Second))
	if second.Current != SceneMorningIntro {
		t.Errorf("second: expected current morning_intro, got %q", second.Current)
	}
	if second.Candidate != "" {
		t.Errorf("second: expected no candidate, got %q", second.Candidate)
	}
	if !second.Locked || second.LockRemaining != 60*time.Second {
		t.Errorf("second: expected full 60s lock, got locked=%v remaining=%v", second.Locked, second.LockRemaining)
	}
	if !second.Confirmed {
		t.Error("second: expected Confirmed")
	}

	third := c.Classify(rainyWalk(t0.Add(10*time.Second)), t0.Add(10*time.Second))
	if third.Current != SceneMorningIntro {
		t.Errorf("third: expected current to stay morning_intro, got %q", third.Current)
	}
	if third.Candidate != SceneRainyWalk {
		t.Errorf("third: expected candidate rainy_walk, got %q", third.Candidate)
	}
	if third.Confirmed {
		t.Error("third: no confirmation expected while locked")
	}
}

func TestSingleProposalDoesNotConfirm(t *testing.T) {
	c := NewClassifier(60 * time.Second)

	got := c.Classify(rainyWalk(t0), t0)
	if got.Current != "" || got.Confirmed {
		t.Errorf("expected unconfirmed, got %+v", got)
	}
}

func TestAlternatingProposalsNeverConfirm(t *testing.T) {
	c := NewClassifier(60 * time.Second)

	for i := 0; i < 10; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		s := rainyWalk(now)
		if i%2 == 1 {
			s = morningWalk(now)
		}
		got := c.Classify(s, now)
		if got.Current != "" {
			t.Fatalf("iteration %d: expected no confirmation, got %q", i, got.Current)
		}
	}
}

func TestLockRemainingDecreases(t *testing.T) {
	c := confirmed(t, 60*time.Second, morningWalk(t0))
	confirmedAt := t0.Add(time.Second)

	prev := 60 * time.Second
	for i := 1; i <= 5; i++ {
		now := confirmedAt.Add(time.Duration(i) * 5 * time.Second)
		got := c.Classify(rainyWalk(now), now)
		if !got.Locked {
			t.Fatalf("step %d: expected lock", i)
		}
		if got.LockRemaining >= prev {
			t.Errorf("step %d: remaining %v did not decrease from %v", i, got.LockRemaining, prev)
		}
		want := 60*time.Second - time.Duration(i)*5*time.Second
		if got.LockRemaining != want {
			t.Errorf("step %d: expected remaining %v, got %v", i, want, got.LockRemaining)
		}
		prev = got.LockRemaining
	}
}

func TestLockRenewsWhenProposalMatches(t *testing.T) {
	c := confirmed(t, 60*time.Second, morningWalk(t0))
	confirmedAt := t0.Add(time.Second)

	// Same scene 50s later: remaining reported from the old start, lock renewed.
	now := confirmedAt.Add(50 * time.Second)
	got := c.Classify(morningWalk(now), now)
	if got.LockRemaining != 10*time.Second {
		t.Errorf("expected remaining 10s, got %v", got.LockRemaining)
	}
	if got.Candidate != SceneMorningIntro {
		t.Errorf("expected candidate to equal current, got %q", got.Candidate)
	}

	// 20s after renewal the old lock would have expired; the renewed one has not.
	now = now.Add(20 * time.Second)
	got = c.Classify(rainyWalk(now), now)
	if !got.Locked {
		t.Fatal("expected renewed lock to still hold")
	}
	if got.LockRemaining != 40*time.Second {
		t.Errorf("expected remaining 40s, got %v", got.LockRemaining)
	}
	if got.Current != SceneMorningIntro {
		t.Errorf("expected current morning_intro, got %q", got.Current)
	}
}

func TestPersistentSceneKeepsLockIndefinitely(t *testing.T) {
	c := confirmed(t, 60*time.Second, morningWalk(t0))

	now := t0.Add(time.Second)
	for i := 0; i < 20; i++ {
		now = now.Add(30 * time.Second)
		got := c.Classify(morningWalk(now), now)
		if !got.Locked {
			t.Fatalf("iteration %d: lock expired despite persistent scene", i)
		}
		if got.Confirmed {
			t.Fatalf("iteration %d: unexpected re-confirmation", i)
		}
	}
}

func TestSwitchAfterLockExpiry(t *testing.T) {
	c := confirmed(t, 60*time.Second, morningWalk(t0))
	confirmedAt := t0.Add(time.Second)

	// Exactly at expiry the lock no longer holds; one hit is not enough.
	now := confirmedAt.Add(60 * time.Second)
	got := c.Classify(rainyWalk(now), now)
	if got.Locked {
		t.Error("expected lock to have expired at exactly lockDuration")
	}
	if got.Current != SceneMorningIntro {
		t.Errorf("expected current to remain morning_intro, got %q", got.Current)
	}
	if got.Candidate != SceneRainyWalk {
		t.Errorf("expected candidate rainy_walk, got %q", got.Candidate)
	}

	now = now.Add(time.Second)
	got = c.Classify(rainyWalk(now), now)
	if !got.Confirmed || got.Current != SceneRainyWalk {
		t.Errorf("expected rainy_walk confirmed, got %+v", got)
	}
	if c.Current() != SceneRainyWalk {
		t.Errorf("Current(): expected rainy_walk, got %q", c.Current())
	}
}

func TestHitsDoNotCarryAcrossLock(t *testing.T) {
	c := NewClassifier(10 * time.Second)

	// One rainy hit, then two morning hits confirm morning.
	c.Classify(rainyWalk(t0), t0)
	c.Classify(morningWalk(t0), t0.Add(time.Second))
	got := c.Classify(morningWalk(t0), t0.Add(2*time.Second))
	if !got.Confirmed {
		t.Fatalf("expected morning confirmation, got %+v", got)
	}

	// After expiry a single rainy proposal must not confirm.
	got = c.Classify(rainyWalk(t0), t0.Add(20*time.Second))
	if got.Confirmed {
		t.Error("single proposal after expiry must not confirm")
	}
}

func TestCounts(t *testing.T) {
	c := confirmed(t, time.Second, morningWalk(t0))

	now := t0.Add(10 * time.Second)
	c.Classify(rainyWalk(now), now)
	c.Classify(rainyWalk(now), now.Add(time.Second))

	counts := c.Counts()
	if counts[SceneMorningIntro] != 1 {
		t.Errorf("morning_intro: expected 1, got %d", counts[SceneMorningIntro])
	}
	if counts[SceneRainyWalk] != 1 {
		t.Errorf("rainy_walk: expected 1, got %d", counts[SceneRainyWalk])
	}

	// Returned map is a copy.
	counts[SceneCafeStay] = 99
	if c.Counts()[SceneCafeStay] != 0 {
		t.Error("Counts() should return a copy")
	}
}

func TestProposeSceneMorningShadowsEverything(t *testing.T) {
	for _, geo := range GeoTags {
		for _, w := range Weathers {
			for _, m := range Motions {
				for _, cad := range []Cadence{NoCadence, CadenceOf(0), CadenceOf(120), CadenceOf(500)} {
					s := NewSnapshot(geo, TimeMorning, w, m, cad, t0)
					if got := ProposeScene(s); got != SceneMorningIntro {
						t.Errorf("%+v: expected morning_intro, got %q", s, got)
					}
				}
			}
		}
	}
}

func TestProposeScene(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
		want SceneID
	}{
		{"station morning is still morning intro", Snapshot{GeoTag: GeoStation, TimeBand: TimeMorning, Weather: WeatherClear, Motion: MotionRunning, Cadence: CadenceOf(150)}, SceneMorningIntro},
		{"rain walking", Snapshot{GeoTag: GeoUrban, TimeBand: TimeDaytime, Weather: WeatherRainy, Motion: MotionWalking}, SceneRainyWalk},
		{"rain beats cafe", Snapshot{GeoTag: GeoCafe, TimeBand: TimeEvening, Weather: WeatherRainy, Motion: MotionWalking, Cadence: CadenceOf(0)}, SceneRainyWalk},
		{"cafe idle", Snapshot{GeoTag: GeoCafe, TimeBand: TimeDaytime, Weather: WeatherClear, Motion: MotionIdle}, SceneCafeStay},
		{"cafe absent cadence counts as zero", Snapshot{GeoTag: GeoCafe, TimeBand: TimeDaytime, Weather: WeatherClear, Motion: MotionRunning}, SceneCafeStay},
		{"cafe running with cadence", Snapshot{GeoTag: GeoCafe, TimeBand: TimeDaytime, Weather: WeatherSnowy, Motion: MotionRunning, Cadence: CadenceOf(160)}, SceneNatureAmbient},
		{"night park slow walk", Snapshot{GeoTag: GeoPark, TimeBand: TimeNight, Weather: WeatherClear, Motion: MotionWalking, Cadence: CadenceOf(90)}, SceneNightWalk},
		{"night urban absent cadence", Snapshot{GeoTag: GeoUrban, TimeBand: TimeNight, Weather: WeatherClear, Motion: MotionWalking}, SceneNightWalk},
		{"night fast walk is sunny", Snapshot{GeoTag: GeoUrban, TimeBand: TimeNight, Weather: WeatherClear, Motion: MotionWalking, Cadence: CadenceOf(100)}, SceneSunnyWalk},
		{"night forest walk", Snapshot{GeoTag: GeoForest, TimeBand: TimeNight, Weather: WeatherCloudy, Motion: MotionWalking, Cadence: CadenceOf(80)}, SceneSunnyWalk},
		{"cloudy walk", Snapshot{GeoTag: GeoStation, TimeBand: TimeEvening, Weather: WeatherCloudy, Motion: MotionWalking}, SceneSunnyWalk},
		{"snowy walk in park", Snapshot{GeoTag: GeoPark, TimeBand: TimeDaytime, Weather: WeatherSnowy, Motion: MotionWalking}, SceneNatureAmbient},
		{"idle anywhere", Snapshot{GeoTag: GeoStation, TimeBand: TimeEvening, Weather: WeatherUnknown, Motion: MotionIdle}, SceneNatureAmbient},
		{"fallback", Snapshot{GeoTag: GeoUrban, TimeBand: TimeEvening, Weather: WeatherUnknown, Motion: MotionRunning, Cadence: CadenceOf(170)}, SceneNatureAmbient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProposeScene(tt.s); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCommuteHurryUnreachable(t *testing.T) {
	for _, band := range TimeBands {
		for _, geo := range GeoTags {
			for _, m := range Motions {
				s := NewSnapshot(geo, band, WeatherClear, m, CadenceOf(150), t0)
				if ProposeScene(s) == SceneCommuteHurry {
					t.Errorf("%+v: commute_hurry should be shadowed by the morning rule", s)
				}
			}
		}
	}
}
