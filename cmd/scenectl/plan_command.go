package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/status"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags contextFlags

	cmd := &cobra.Command{
		Use:   "plan [SCENE]",
		Short: "Show the score plan for a scene",
		Long: "Prints the plan the configured presets give for SCENE under the\n" +
			"--motion and --cadence flags. Without SCENE, every scene is listed.\n" +
			"With --propose, the scene is proposed from the context flags instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := flags.snapshot(cmd, time.Now())
			if err != nil {
				return err
			}

			scenes := logic.Scenes
			propose, _ := cmd.Flags().GetBool("propose")
			switch {
			case propose && len(args) > 0:
				return fmt.Errorf("--propose and SCENE are mutually exclusive")
			case propose:
				scenes = []logic.SceneID{logic.ProposeScene(snap)}
			case len(args) == 1:
				scene, err := logic.ParseScene(args[0])
				if err != nil {
					return err
				}
				scenes = []logic.SceneID{scene}
			}

			planner := cfg.NewPlanner()
			plans := make([]status.PlanJSON, 0, len(scenes))
			for _, s := range scenes {
				plans = append(plans, status.PlanJSON{Scene: string(s), Plan: planner.Plan(s, snap.Motion, snap.Cadence)})
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, plans)
			}

			rows := make([][]string, 0, len(plans))
			for _, p := range plans {
				rows = append(rows, []string{
					p.Scene,
					level(p.Pad), level(p.Arp), level(p.Beat), level(p.FX), level(p.FieldNoise),
					fmt.Sprintf("%.1f", p.BaseBPM),
					level(p.TempoFollowRate), level(p.Filter), level(p.Reverb),
				})
			}
			headers := []string{"Scene", "Pad", "Arp", "Beat", "FX", "Noise", "BPM", "Follow", "Filter", "Reverb"}
			aligns := []columnAlignment{alignLeft}
			for range headers[1:] {
				aligns = append(aligns, alignRight)
			}
			return writeTable(cmd, headers, rows, aligns)
		},
	}
	flags.register(cmd)
	cmd.Flags().Bool("propose", false, "Plan the scene proposed from the context flags")
	return cmd
}

func level(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
