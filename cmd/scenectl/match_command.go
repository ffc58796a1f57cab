package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/soundscape/internal/geo"
)

type fenceDistanceJSON struct {
	Tag            string  `json:"tag"`
	DistanceMeters float64 `json:"distance_m"`
	RadiusMeters   float64 `json:"radius_m"`
	Inside         bool    `json:"inside"`
}

type matchJSON struct {
	Latitude  float64             `json:"lat"`
	Longitude float64             `json:"lon"`
	Tag       string              `json:"tag"`
	Fences    []fenceDistanceJSON `json:"fences"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match LAT LON",
		Short: "Match a position against the configured geofences",
		Long: "Reports the tag a fresh matcher gives for the position and the\n" +
			"distance to every configured fence, in match order.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil || lat < -90 || lat > 90 {
				return fmt.Errorf("invalid latitude %q", args[0])
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil || lon < -180 || lon > 180 {
				return fmt.Errorf("invalid longitude %q", args[1])
			}

			matcher := cfg.NewMatcher()
			out := matchJSON{
				Latitude:  lat,
				Longitude: lon,
				Tag:       string(matcher.Match(lat, lon, time.Now())),
			}
			for _, f := range matcher.Fences() {
				out.Fences = append(out.Fences, fenceDistanceJSON{
					Tag:            string(f.Tag),
					DistanceMeters: geo.Distance(lat, lon, f.Latitude, f.Longitude),
					RadiusMeters:   f.RadiusMeters,
					Inside:         f.Contains(lat, lon),
				})
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(out.Fences))
			for i, f := range out.Fences {
				inside := ""
				if f.Inside {
					inside = "yes"
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					f.Tag,
					fmt.Sprintf("%.0f", f.DistanceMeters),
					fmt.Sprintf("%.0f", f.RadiusMeters),
					inside,
				})
			}
			w := cmd.OutOrStdout()
			if len(rows) > 0 {
				if err := writeTable(cmd, []string{"#", "Tag", "Distance (m)", "Radius (m)", "Inside"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(w, "No geofences configured")
			}
			_, err = fmt.Fprintf(w, "Tag: %s\n", out.Tag)
			return err
		},
	}
}
