package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/soundscape/internal/logic"
)

// contextFlags are the snapshot fields shared by propose and plan.
type contextFlags struct {
	geo     string
	band    string
	weather string
	motion  string
	cadence int
	at      string
}

func (f *contextFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.geo, "geo", string(logic.GeoUrban), "Geo tag: "+join(logic.GeoTags))
	cmd.Flags().StringVar(&f.band, "time", "", "Time band: "+join(logic.TimeBands)+" (default: from --at)")
	cmd.Flags().StringVar(&f.weather, "weather", string(logic.WeatherClear), "Weather: "+join(logic.Weathers))
	cmd.Flags().StringVar(&f.motion, "motion", string(logic.MotionIdle), "Motion: "+join(logic.Motions))
	cmd.Flags().IntVar(&f.cadence, "cadence", 0, "Cadence in steps per minute (absent unless set)")
	cmd.Flags().StringVar(&f.at, "at", "", "Snapshot time, RFC 3339 (default: now)")
}

// snapshot builds the snapshot described by the flags. now is used when
// --at is not given.
func (f *contextFlags) snapshot(cmd *cobra.Command, now time.Time) (logic.Snapshot, error) {
	at := now
	if strings.TrimSpace(f.at) != "" {
		parsed, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return logic.Snapshot{}, fmt.Errorf("--at: %w", err)
		}
		at = parsed
	}

	geoTag, err := logic.ParseGeoTag(f.geo)
	if err != nil {
		return logic.Snapshot{}, err
	}
	band := logic.TimeBandAt(at)
	if f.band != "" {
		if band, err = logic.ParseTimeBand(f.band); err != nil {
			return logic.Snapshot{}, err
		}
	}
	weather, err := logic.ParseWeather(f.weather)
	if err != nil {
		return logic.Snapshot{}, err
	}
	m, err := logic.ParseMotion(f.motion)
	if err != nil {
		return logic.Snapshot{}, err
	}
	cadence := logic.NoCadence
	if cmd.Flags().Changed("cadence") {
		cadence = logic.CadenceOf(f.cadence)
	}

	return logic.NewSnapshot(geoTag, band, weather, m, cadence, at), nil
}

type proposalJSON struct {
	GeoTag   string `json:"geo_tag"`
	TimeBand string `json:"time_band"`
	Weather  string `json:"weather"`
	Motion   string `json:"motion"`
	Cadence  *int   `json:"cadence"`
	Scene    string `json:"scene"`
}

func newProposeCommand(ctx *commandContext) *cobra.Command {
	var flags contextFlags

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Show the scene proposed for a context snapshot",
		Long: "Runs the scene rules on one snapshot. The lock window and double-hit\n" +
			"confirmation are not applied; use replay for those.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := flags.snapshot(cmd, time.Now())
			if err != nil {
				return err
			}
			scene := logic.ProposeScene(snap)

			if ctx.jsonOutput() {
				out := proposalJSON{
					GeoTag:   string(snap.GeoTag),
					TimeBand: string(snap.TimeBand),
					Weather:  string(snap.Weather),
					Motion:   string(snap.Motion),
					Scene:    string(scene),
				}
				if snap.Cadence.Valid {
					spm := snap.Cadence.SPM
					out.Cadence = &spm
				}
				return writeJSON(cmd, out)
			}

			rows := [][]string{
				{"geo", string(snap.GeoTag)},
				{"time", string(snap.TimeBand)},
				{"weather", string(snap.Weather)},
				{"motion", string(snap.Motion)},
				{"cadence", snap.Cadence.String()},
				{"scene", string(scene)},
			}
			return writeTable(cmd, []string{"Field", "Value"}, rows, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func join[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
