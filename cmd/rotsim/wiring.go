package main

import (
	"context"
	"log/slog"

	"github.com/Versifine/rotation/internal/rotation"
	"github.com/Versifine/rotation/internal/sim"
	"github.com/Versifine/rotation/internal/telemetry"
	"github.com/Versifine/rotation/internal/trace"
)

// sinks holds the optional trace and telemetry outputs of a run.
type sinks struct {
	trace  *trace.Writer
	detach func()
	hub    *telemetry.Hub
	done   chan struct{}
}

// buildRun loads the scenario at path and builds it with the configured
// recorders installed.
func (a *app) buildRun(ctx context.Context, path string) (*sim.Run, *sinks, error) {
	sc, err := sim.LoadScenario(path, a.cfg.Rotation)
	if err != nil {
		return nil, nil, err
	}
	return a.build(ctx, sc)
}

func (a *app) build(ctx context.Context, sc *sim.Scenario) (*sim.Run, *sinks, error) {
	log := slog.Default().With("scenario", sc.Name)
	run, err := sc.Build(a.cfg.Simulation.TickRate, rotation.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	s := &sinks{}
	var recorders rotation.Recorders
	if a.cfg.Trace.Enabled {
		w, manifest, err := trace.NewWriter(a.cfg.Trace.Dir, run.Actor.Name, nil)
		if err != nil {
			return nil, nil, err
		}
		w.SetLogger(log)
		s.trace = w
		s.detach = w.Attach(run.System.Bus())
		recorders = append(recorders, w)
		log.Info("Recording trace", "dir", w.Directory(), "created_at", manifest.CreatedAt)
	}
	if a.cfg.Telemetry.Enabled {
		hub := telemetry.NewHub(a.cfg.Telemetry.Listen)
		hub.SetLogger(log)
		s.hub = hub
		s.done = make(chan struct{})
		go func() {
			defer close(s.done)
			if err := hub.Start(ctx); err != nil {
				log.Error("Telemetry server failed", "error", err)
			}
		}()
		recorders = append(recorders, hub)
	}
	if len(recorders) > 0 {
		run.System.SetRecorder(recorders)
	}
	return run, s, nil
}

// close flushes the trace bundle. The telemetry server stops with the
// context passed to build; close waits for it when wait is set.
func (s *sinks) close(wait bool) error {
	if s == nil {
		return nil
	}
	if s.detach != nil {
		s.detach()
	}
	var err error
	if s.trace != nil {
		err = s.trace.Close()
		slog.Info("Trace saved", "dir", s.trace.Directory(), "frames", s.trace.Frames())
	}
	if wait && s.done != nil {
		<-s.done
	}
	return err
}
