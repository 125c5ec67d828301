package config

import (
	"fmt"
	"os"
	"time"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Settings are the harness knobs that are not part of the rig itself.
// Fields map to RIGSIM_* environment variables.
type Settings struct {
	Port          int     `config:"RIGSIM_PORT"`
	Host          string  `config:"RIGSIM_HOST"`
	Dt            float64 `config:"RIGSIM_DT"`
	Integrator    string  `config:"RIGSIM_INTEGRATOR"`
	Realtime      bool    `config:"RIGSIM_REALTIME"`
	DataDir       string  `config:"RIGSIM_DATA_DIR"`
	TelemetryAddr string  `config:"RIGSIM_TELEMETRY_ADDR"`
	TimeoutMillis int     `config:"RIGSIM_TIMEOUT_MS"`
	ByteOrder     string  `config:"RIGSIM_BYTE_ORDER"`
	LogLevel      string  `config:"RIGSIM_LOG_LEVEL"`
}

func DefaultSettings() Settings {
	return Settings{
		Port:       50009,
		Dt:         0.001,
		Integrator: "rk4",
		DataDir:    ".rigsim",
		ByteOrder:  "little",
		LogLevel:   "info",
	}
}

// LoadSettings starts from the defaults, applies an optional KEY=VALUE env
// file and then the process environment.
func LoadSettings(envFile string) (Settings, error) {
	s := DefaultSettings()
	b := jlconfig.FromEnv()
	if envFile != "" {
		if _, err := os.Stat(envFile); err != nil {
			return s, eris.Wrapf(ErrConfig, "settings file %s: %v", envFile, err)
		}
		b = jlconfig.From(envFile).FromEnv()
	}
	if err := b.To(&s); err != nil {
		return s, eris.Wrapf(ErrConfig, "settings: %v", err)
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return eris.Wrapf(ErrConfig, "port %d out of range", s.Port)
	}
	if s.Dt <= 0 {
		return eris.Wrapf(ErrConfig, "dt must be positive, got %g", s.Dt)
	}
	if s.TimeoutMillis < 0 {
		return eris.Wrapf(ErrConfig, "timeout must not be negative, got %d", s.TimeoutMillis)
	}
	switch s.ByteOrder {
	case "little", "big":
	default:
		return eris.Wrapf(ErrConfig, "byte order must be little or big, got %q", s.ByteOrder)
	}
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return eris.Wrapf(ErrConfig, "log level %q", s.LogLevel)
	}
	return nil
}

// Addr is the listen address of the co-simulation server.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMillis) * time.Millisecond
}

func (s Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
