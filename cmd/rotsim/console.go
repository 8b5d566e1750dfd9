package main

import (
	"github.com/spf13/cobra"

	"github.com/Versifine/rotation/internal/debug"
	"github.com/Versifine/rotation/internal/sim"
)

// sandboxScenario is steered when the console is started without a file.
const sandboxScenario = `
name: sandbox
ticks: 100000000
actor:
  position: [0, 0, 0]
entities:
  - name: beacon
    position: [8, 0, 8]
  - name: drifter
    position: [-6, 0, 4]
    velocity: [0, 0, 1.5]
`

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console [scenario.yaml]",
		Short: "Steer a scenario interactively from the terminal",
		Long: `console runs a scenario in real time and reads keys from the terminal.

W/S/A/D push the input direction, the arrow keys turn the look direction and
change the turn speed, and ":" opens a command line (":help" lists commands).
Without a scenario file a sandbox with two entities is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				sc  *sim.Scenario
				err error
			)
			if len(args) == 1 {
				sc, err = sim.LoadScenario(args[0], a.cfg.Rotation)
			} else {
				sc, err = sim.ParseScenario([]byte(sandboxScenario), a.cfg.Rotation)
			}
			if err != nil {
				return err
			}

			run, out, err := a.build(ctx, sc)
			if err != nil {
				return err
			}
			err = debug.NewConsole(run).Start(ctx)
			if cerr := out.close(false); cerr != nil && err == nil {
				err = cerr
			}
			return err
		},
	}
}
