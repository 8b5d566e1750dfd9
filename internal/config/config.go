package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Rotation   RotationConfig   `yaml:"rotation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Simulation SimulationConfig `yaml:"simulation"`
	Trace      TraceConfig      `yaml:"trace"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type RotationConfig struct {
	Mode           string  `yaml:"mode" validate:"oneof=direction position target camera custom"`
	TurnSpeed      float64 `yaml:"turn_speed" validate:"gte=0"`
	AutoTransition bool    `yaml:"auto_transition"`
	Enabled        bool    `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json text"`
	File   string `yaml:"file"`
}

type SimulationConfig struct {
	// TickRate is the number of UpdateRotation calls per second.
	TickRate int `yaml:"tick_rate" validate:"gt=0,lte=1000"`
}

type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used for any key a file leaves out.
func Default() *Config {
	return &Config{
		Rotation: RotationConfig{
			Mode:      "direction",
			TurnSpeed: 720,
			Enabled:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Simulation: SimulationConfig{
			TickRate: 60,
		},
		Trace: TraceConfig{
			Dir: "traces",
		},
		Telemetry: TelemetryConfig{
			Listen: "127.0.0.1:8765",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = NewValidator()

// NewValidator returns a validator that names fields by their yaml keys.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks struct tags and cross-field rules, listing every problem.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	var problems []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validation error: %w", err)
		}
		for _, e := range verrs {
			problems = append(problems, FieldError(e))
		}
	}
	if cfg.Trace.Enabled && strings.TrimSpace(cfg.Trace.Dir) == "" {
		problems = append(problems, "trace.dir is required when trace is enabled")
	}
	if cfg.Telemetry.Enabled && strings.TrimSpace(cfg.Telemetry.Listen) == "" {
		problems = append(problems, "telemetry.listen is required when telemetry is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// FieldError renders e against the yaml path of the offending key.
func FieldError(e validator.FieldError) string {
	path := fieldPath(e.Namespace())
	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", path, e.Param(), e.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s (got: %v)", path, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", path, e.Param(), e.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s (got: %v)", path, e.Param(), e.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be a host:port address (got: %v)", path, e.Value())
	case "len":
		return fmt.Sprintf("%s must have exactly %s elements (got: %v)", path, e.Param(), e.Value())
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "ne":
		return fmt.Sprintf("%s must not be %q", path, e.Param())
	default:
		return fmt.Sprintf("%s failed %q validation (got: %v)", path, e.Tag(), e.Value())
	}
}

// fieldPath turns "Config.rotation.turn_speed" into "rotation.turn_speed".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
