package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sweeney/soundscape/internal/replay"
)

type scenarioJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       int    `json:"steps"`
}

func newScenariosCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "scenarios",
		Short:       "List the built-in replay scenarios",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []scenarioJSON
			for _, name := range replay.Builtins() {
				f, err := replay.Builtin(name)
				if err != nil {
					return err
				}
				list = append(list, scenarioJSON{Name: f.Name, Description: f.Description, Steps: len(f.Steps)})
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, list)
			}

			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{s.Name, strconv.Itoa(s.Steps), s.Description})
			}
			return writeTable(cmd, []string{"Name", "Steps", "Description"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft})
		},
	}
}
