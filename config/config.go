// Package config loads focuser settings from defaults, a YAML file, and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/nasa-jpl/atomfocus/comm"
	"github.com/nasa-jpl/atomfocus/focuser"
	"github.com/nasa-jpl/atomfocus/jog"
	"github.com/nasa-jpl/atomfocus/lastport"
	"github.com/nasa-jpl/atomfocus/logger"
)

const (
	// FileName is the default configuration file
	FileName = "atomfocus.yml"

	// EnvPrefix prefixes environment overrides, e.g. ATOMFOCUS_PORT=COM5
	// or ATOMFOCUS_STEPS__FINE=5
	EnvPrefix = "ATOMFOCUS_"
)

// Config holds every setting of the focuser binaries.  Durations may be
// written as strings such as "3s" in YAML.
type Config struct {
	// Addr is the address the HTTP server listens at
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Port is the serial device or host:port to use when no saved port is
	// available, e.g. COM5, /dev/ttyUSB0, or 192.168.100.123:2006
	Port string `koanf:"Port" yaml:"Port"`

	// AutoConnect makes the server connect at startup
	AutoConnect bool `koanf:"AutoConnect" yaml:"AutoConnect"`

	// Baud is the serial symbol rate
	Baud int `koanf:"Baud" yaml:"Baud"`

	// ReadTimeout bounds one serial read, zero waits for the acknowledgement
	// indefinitely
	ReadTimeout time.Duration `koanf:"ReadTimeout" yaml:"ReadTimeout"`

	// OpenTimeout is how long a failed open is retried
	OpenTimeout time.Duration `koanf:"OpenTimeout" yaml:"OpenTimeout"`

	// AutoPowerOffMinutes is the idle time after which the motor is disabled
	AutoPowerOffMinutes float64 `koanf:"AutoPowerOffMinutes" yaml:"AutoPowerOffMinutes"`

	// LastPortFile is where the last connected port is remembered
	LastPortFile string `koanf:"LastPortFile" yaml:"LastPortFile"`

	// Steps are the jog step sizes
	Steps jog.Steps `koanf:"Steps" yaml:"Steps"`

	// JogRate is the sustained number of jog gestures per second, zero is unlimited
	JogRate float64 `koanf:"JogRate" yaml:"JogRate"`

	// JogBurst is how many jog gestures may arrive back to back
	JogBurst int `koanf:"JogBurst" yaml:"JogBurst"`

	// Mock replaces the serial port with an in-memory focuser
	Mock bool `koanf:"Mock" yaml:"Mock"`

	// LogLevel is debug, info, warn, or error
	LogLevel string `koanf:"LogLevel" yaml:"LogLevel"`

	// LogFormat is console or json
	LogFormat string `koanf:"LogFormat" yaml:"LogFormat"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Addr:                ":8000",
		Baud:                comm.DefaultBaud,
		OpenTimeout:         3 * time.Second,
		AutoPowerOffMinutes: 5,
		LastPortFile:        lastport.DefaultFile,
		Steps:               jog.DefaultSteps,
		JogRate:             20,
		JogBurst:            4,
		LogLevel:            "info",
		LogFormat:           logger.FormatConsole,
	}
}

// Load fills k from the defaults, the YAML file at path, and the environment,
// then unmarshals and validates it.  A missing file is not an error.
func Load(k *koanf.Koanf, path string) (Config, error) {
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) && !strings.Contains(err.Error(), "no such") {
			return Config{}, fmt.Errorf("error loading config %s: %w", path, err)
		}
	}
	keys := canonicalKeys(k)
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", ".")
		if canon, ok := keys[strings.ToLower(key)]; ok {
			return canon
		}
		return key
	}), nil)
	if err != nil {
		return Config{}, err
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// canonicalKeys maps lowercased keys to the spelling used by the defaults,
// so ATOMFOCUS_AUTOPOWEROFFMINUTES lands on AutoPowerOffMinutes
func canonicalKeys(k *koanf.Koanf) map[string]string {
	out := make(map[string]string)
	for _, key := range k.Keys() {
		out[strings.ToLower(key)] = key
	}
	return out
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs []error
	if c.Baud <= 0 {
		errs = append(errs, fmt.Errorf("Baud must be positive, got %d", c.Baud))
	}
	if c.AutoPowerOffMinutes <= 0 {
		errs = append(errs, fmt.Errorf("AutoPowerOffMinutes must be positive, got %g", c.AutoPowerOffMinutes))
	}
	if c.ReadTimeout < 0 || c.OpenTimeout < 0 {
		errs = append(errs, errors.New("ReadTimeout and OpenTimeout may not be negative"))
	}
	if c.Steps.Fine <= 0 || c.Steps.Medium <= 0 || c.Steps.Coarse <= 0 {
		errs = append(errs, fmt.Errorf("Steps must all be positive, got %+v", c.Steps))
	}
	if c.JogRate < 0 {
		errs = append(errs, fmt.Errorf("JogRate may not be negative, got %g", c.JogRate))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("LogFormat must be %s or %s, got %q", logger.FormatConsole, logger.FormatJSON, c.LogFormat))
	}
	return errors.Join(errs...)
}

// IdleTimeout is AutoPowerOffMinutes as a duration
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.AutoPowerOffMinutes * float64(time.Minute))
}

// Dialer returns the serial/TCP dialer described by c
func (c Config) Dialer() comm.Dialer {
	return comm.Dialer{
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
		OpenTimeout: c.OpenTimeout,
	}
}

// Backend returns what the controller opens ports with and how the ports
// on offer are listed.  In mock mode both are in-memory.
func (c Config) Backend() (focuser.Opener, func() ([]string, error)) {
	if c.Mock {
		name := c.Port
		if name == "" {
			name = "MOCK"
		}
		d := &comm.MockDialer{Available: []string{name}}
		return d, d.Ports
	}
	return c.Dialer(), comm.ListPorts
}

// Logger builds the logger described by LogLevel and LogFormat, writing to w.
// The returned LevelVar changes the level of the running logger.
func (c Config) Logger(w io.Writer) (*slog.Logger, *slog.LevelVar, error) {
	lvl, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	lv := &slog.LevelVar{}
	lv.Set(lvl)
	l, err := logger.New(logger.Options{Level: lv, Format: c.LogFormat, Output: w})
	return l, lv, err
}

// Watch calls fn with a freshly loaded Config each time the file at path
// changes.  Reload errors are passed to fn with a zero Config.
func Watch(path string, fn func(Config, error)) error {
	f := file.Provider(path)
	return f.Watch(func(event interface{}, err error) {
		if err != nil {
			fn(Config{}, err)
			return
		}
		fn(Load(koanf.New("."), path))
	})
}
