package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweeney/soundscape/internal/replay"
	"github.com/sweeney/soundscape/internal/status"
)

type replayStepJSON struct {
	Index      int              `json:"index"`
	At         string           `json:"at"`
	GeoTag     string           `json:"geo_tag"`
	TimeBand   string           `json:"time_band"`
	Weather    string           `json:"weather"`
	Motion     string           `json:"motion"`
	Cadence    *int             `json:"cadence"`
	Scene      status.SceneJSON `json:"scene"`
	Confirmed  bool             `json:"confirmed"`
	Plan       *status.PlanJSON `json:"plan,omitempty"`
	Mismatches []string         `json:"mismatches,omitempty"`
}

type replayJSON struct {
	Name     string           `json:"name"`
	Passed   bool             `json:"passed"`
	Failures int              `json:"failures"`
	Counts   map[string]int   `json:"scene_counts"`
	Steps    []replayStepJSON `json:"steps"`
}

var errReplayFailed = errors.New("replay expectations failed")

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "replay [FILE]",
		Short: "Replay a scenario through the classifier and planner",
		Long: "Replays a YAML fixture, or a built-in scenario with --scenario, and\n" +
			"checks any expectations it carries. Plans use the configured presets.\n" +
			"Exits non-zero when an expectation fails.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var f *replay.Fixture
			switch {
			case scenario != "" && len(args) > 0:
				return fmt.Errorf("--scenario and FILE are mutually exclusive")
			case scenario != "":
				f, err = replay.Builtin(scenario)
			case len(args) == 1:
				f, err = replay.LoadFile(args[0])
			default:
				return fmt.Errorf("need FILE or --scenario (one of: %s)", strings.Join(replay.Builtins(), ", "))
			}
			if err != nil {
				return err
			}

			report, err := replay.Run(f, cfg.NewPlanner())
			if err != nil {
				return fmt.Errorf("replay %s: %w", f.Name, err)
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, buildReplayJSON(report)); err != nil {
					return err
				}
			} else if err := writeReplayTable(cmd, report); err != nil {
				return err
			}

			if !report.Passed() {
				return fmt.Errorf("%s: %w (%d failing steps)", report.Name, errReplayFailed, report.Failures)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "Built-in scenario name")
	return cmd
}

func buildReplayJSON(report replay.Report) replayJSON {
	out := replayJSON{
		Name:     report.Name,
		Passed:   report.Passed(),
		Failures: report.Failures,
		Counts:   make(map[string]int, len(report.Counts)),
		Steps:    make([]replayStepJSON, 0, len(report.Steps)),
	}
	for scene, n := range report.Counts {
		out.Counts[string(scene)] = n
	}

	for _, s := range report.Steps {
		step := replayStepJSON{
			Index:      s.Index,
			At:         s.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			GeoTag:     string(s.Snapshot.GeoTag),
			TimeBand:   string(s.Snapshot.TimeBand),
			Weather:    string(s.Snapshot.Weather),
			Motion:     string(s.Snapshot.Motion),
			Scene:      status.SceneJSON{Current: string(s.Classification.Current), Candidate: string(s.Classification.Candidate), Locked: s.Classification.Locked},
			Confirmed:  s.Classification.Confirmed,
			Mismatches: s.Mismatches,
		}
		if s.Snapshot.Cadence.Valid {
			spm := s.Snapshot.Cadence.SPM
			step.Cadence = &spm
		}
		if s.Classification.Locked {
			ms := s.Classification.LockRemaining.Milliseconds()
			step.Scene.LockRemainingMs = &ms
		}
		if s.Plan != nil {
			step.Plan = &status.PlanJSON{Scene: string(s.Classification.Current), Plan: *s.Plan}
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}

func writeReplayTable(cmd *cobra.Command, report replay.Report) error {
	rows := make([][]string, 0, len(report.Steps))
	var start int64
	if len(report.Steps) > 0 {
		start = report.Steps[0].At.UnixMilli()
	}
	for _, s := range report.Steps {
		lock := "-"
		if s.Classification.Locked {
			lock = fmt.Sprintf("%.1fs", s.Classification.LockRemaining.Seconds())
		}
		current := string(s.Classification.Current)
		if s.Classification.Confirmed {
			current += " *"
		}
		bpm := "-"
		if s.Plan != nil {
			bpm = fmt.Sprintf("%.1f", s.Plan.BaseBPM)
		}
		check := "ok"
		if len(s.Mismatches) > 0 {
			check = strings.Join(s.Mismatches, "; ")
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			fmt.Sprintf("+%.1fs", float64(s.At.UnixMilli()-start)/1000),
			string(s.Snapshot.GeoTag),
			string(s.Snapshot.TimeBand),
			string(s.Snapshot.Weather),
			string(s.Snapshot.Motion),
			s.Snapshot.Cadence.String(),
			string(s.Classification.Candidate),
			current,
			lock,
			bpm,
			check,
		})
	}

	headers := []string{"#", "Offset", "Geo", "Time", "Weather", "Motion", "Cadence", "Candidate", "Current", "Lock", "BPM", "Check"}
	aligns := []columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
	if err := writeTable(cmd, headers, rows, aligns); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	result := "PASS"
	if !report.Passed() {
		result = "FAIL"
	}
	_, err := fmt.Fprintf(w, "%s: %s (%d steps, %d confirmations, %d failures)\n",
		report.Name, result, len(report.Steps), len(report.Confirmations), report.Failures)
	return err
}
