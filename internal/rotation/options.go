package rotation

import (
	"log/slog"

	"github.com/Versifine/rotation/internal/config"
	"github.com/Versifine/rotation/internal/event"
)

// Option configures a System at construction.
type Option func(*System)

// WithMode sets both the initial and the default mode.
func WithMode(m Mode) Option {
	return func(s *System) {
		if !m.Valid() {
			return
		}
		s.mode = m
		s.defaultMode = m
	}
}

func WithTurnSpeed(speed float64) Option {
	return func(s *System) {
		s.turnSpeed = clampNonNegative(speed)
	}
}

func WithAutoTransition(auto bool) Option {
	return func(s *System) {
		s.autoTransition = auto
	}
}

func WithEnabled(enabled bool) Option {
	return func(s *System) {
		s.enabled = enabled
	}
}

func WithCamera(cam CameraProvider) Option {
	return func(s *System) {
		s.camera = cam
	}
}

func WithCustomSource(src CustomSource) Option {
	return func(s *System) {
		s.custom = src
	}
}

// WithBus publishes change notifications on bus instead of a private one.
func WithBus(bus *event.Bus) Option {
	return func(s *System) {
		if bus != nil {
			s.bus = bus
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *System) {
		s.recorder = r
	}
}

// WithConfig applies the rotation section of a loaded configuration. An
// unparsable mode keeps the default and is logged.
func WithConfig(cfg config.RotationConfig) Option {
	return func(s *System) {
		if cfg.Mode != "" {
			m, err := ParseMode(cfg.Mode)
			if err != nil {
				s.log.Warn("Ignoring rotation mode from config", "error", err)
			} else {
				s.mode = m
				s.defaultMode = m
			}
		}
		s.turnSpeed = clampNonNegative(cfg.TurnSpeed)
		s.autoTransition = cfg.AutoTransition
		s.enabled = cfg.Enabled
	}
}
