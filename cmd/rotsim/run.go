package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Versifine/rotation/internal/sim"
)

type runFlags struct {
	realtime bool
	json     bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print the final facing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScenario(cmd, args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.realtime, "realtime", false, "Pace ticks at the tick rate instead of running headless")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the result as JSON")
	return cmd
}

type runSummary struct {
	Scenario string          `json:"scenario"`
	Ticks    uint64          `json:"ticks"`
	Mode     string          `json:"mode"`
	Yaw      float64         `json:"yaw"`
	Target   float64         `json:"target_yaw"`
	Frozen   bool            `json:"frozen"`
	Entities []entitySummary `json:"entities"`
}

type entitySummary struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Yaw      float64    `json:"yaw"`
	Camera   bool       `json:"camera,omitempty"`
}

func (a *app) runScenario(cmd *cobra.Command, path string, f runFlags) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	run, out, err := a.buildRun(ctx, path)
	if err != nil {
		return err
	}
	slog.Info("Running scenario",
		"scenario", run.Scenario.Name,
		"ticks", run.Scenario.Ticks,
		"tick_rate", int(1/run.Loop.DeltaTime()+0.5),
		"realtime", f.realtime,
	)

	var res sim.Result
	if f.realtime {
		err = run.Loop.Start(ctx)
		res = run.Result()
	} else {
		res, err = run.Execute()
	}
	cancel()
	if cerr := out.close(true); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return printResult(cmd, run.Scenario.Name, res, f.json)
}

func printResult(cmd *cobra.Command, name string, res sim.Result, asJSON bool) error {
	w := cmd.OutOrStdout()
	if !asJSON {
		fmt.Fprintf(w, "%s: %d ticks, mode %s, yaw %.2f\n", name, res.Ticks, res.Mode, res.Yaw)
		fmt.Fprintln(w, res.Snapshot)
		return nil
	}

	summary := runSummary{
		Scenario: name,
		Ticks:    res.Ticks,
		Mode:     res.Mode.String(),
		Yaw:      res.Yaw,
		Target:   res.Last.TargetYaw,
		Frozen:   res.Last.Frozen,
		Entities: make([]entitySummary, 0, len(res.Snapshot.Entities)),
	}
	for _, e := range res.Snapshot.Entities {
		summary.Entities = append(summary.Entities, entitySummary{
			Name:     e.Name,
			Position: [3]float64(e.Position),
			Yaw:      e.Yaw,
			Camera:   e.Camera,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
