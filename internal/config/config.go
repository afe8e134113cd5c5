package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/loykin/browserboot/internal/logger"
	"github.com/spf13/viper"
)

// Mode selects the deployment profile the orchestrator runs under.
type Mode string

const (
	// ModeDesktop targets an interactive workstation: loopback binding, headed
	// browser, readiness timeout is advisory.
	ModeDesktop Mode = "desktop"
	// ModeContainer targets unattended deployments: all-interfaces binding,
	// headless browser, readiness timeout is fatal.
	ModeContainer Mode = "container"
)

// Defaults shared by both modes.
const (
	DefaultAPIPort     = 8199
	DefaultBrowserPort = 9222

	DefaultGateAttempts = 20
	DefaultGateInterval = 500 * time.Millisecond
	DefaultProbeTimeout = time.Second
	DefaultStopWait     = 5 * time.Second
)

// Override keys recognized in the env-style override file.
const (
	KeyHost        = "APP_HOST"
	KeyAPIPort     = "APP_PORT"
	KeyBrowserPort = "BROWSER_PORT"
	KeyChromeBin   = "CHROME_BIN"
	KeyLogLevel    = "UVICORN_LOG_LEVEL"
)

// Config is the fully resolved, immutable configuration for one orchestration
// run. It is built once by Resolve and passed by value to every component;
// the process environment is never mutated to distribute it.
type Config struct {
	Mode        Mode
	Host        string
	APIPort     int
	BrowserPort int
	ProfileDir  string
	BrowserBin  string // container mode: binary name resolved via PATH; desktop: optional explicit path
	LogLevel    string

	GateAttempts int
	GateInterval time.Duration
	ProbeTimeout time.Duration
	StopWait     time.Duration

	KeepBrowser bool // desktop: leave an owned browser running on exit for later adoption
	TrustProxy  bool // container: service runs behind a reverse proxy

	HistoryDSN string
	BrowserLog logger.FileConfig
}

// DebugAddr returns the loopback address of the browser debug endpoint. Probes
// always dial loopback even when the debug port is bound to all interfaces.
func (c Config) DebugAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.BrowserPort)
}

// APIAddr returns the listen address for the API server.
func (c Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.APIPort)
}

// Options controls resolution inputs.
type Options struct {
	Mode       Mode
	EnvFile    string // optional KEY=VALUE override file; missing file is not an error
	ConfigFile string // optional TOML tuning file
}

// tuning mirrors the optional TOML file structure.
type tuning struct {
	Gate struct {
		Attempts     int           `toml:"attempts" mapstructure:"attempts"`
		Interval     time.Duration `toml:"interval" mapstructure:"interval"`
		ProbeTimeout time.Duration `toml:"probe_timeout" mapstructure:"probe_timeout"`
	} `toml:"gate" mapstructure:"gate"`
	Browser struct {
		ProfileDir string            `toml:"profile_dir" mapstructure:"profile_dir"`
		StopWait   time.Duration     `toml:"stop_wait" mapstructure:"stop_wait"`
		Log        logger.FileConfig `toml:"log" mapstructure:"log"`
	} `toml:"browser" mapstructure:"browser"`
	History struct {
		DSN string `toml:"dsn" mapstructure:"dsn"`
	} `toml:"history" mapstructure:"history"`
}

// Resolve layers, in order: built-in defaults for the mode, the optional TOML
// tuning file, then the env-style override file. The result is deterministic
// for a given pair of inputs. A missing override file only produces a warning.
func Resolve(opts Options) (Config, error) {
	cfg := defaults(opts.Mode)

	if opts.ConfigFile != "" {
		if err := applyTuning(&cfg, opts.ConfigFile); err != nil {
			return Config{}, err
		}
	}

	if opts.EnvFile != "" {
		over, err := LoadEnvFile(opts.EnvFile)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("override file not found, using defaults", "path", opts.EnvFile)
			} else {
				return Config{}, fmt.Errorf("load override file %s: %w", opts.EnvFile, err)
			}
		}
		applyOverrides(&cfg, over)
	}
	return cfg, nil
}

func defaults(mode Mode) Config {
	cfg := Config{
		Mode:         mode,
		APIPort:      DefaultAPIPort,
		BrowserPort:  DefaultBrowserPort,
		LogLevel:     "info",
		GateAttempts: DefaultGateAttempts,
		GateInterval: DefaultGateInterval,
		ProbeTimeout: DefaultProbeTimeout,
		StopWait:     DefaultStopWait,
	}
	switch mode {
	case ModeContainer:
		cfg.Host = "0.0.0.0"
		cfg.ProfileDir = "/data/chrome-profile"
		cfg.BrowserBin = "chromium"
		cfg.TrustProxy = true
	default:
		cfg.Mode = ModeDesktop
		cfg.Host = "127.0.0.1"
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.ProfileDir = filepath.Join(home, ".browserboot", "profile")
	}
	return cfg
}

func applyTuning(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var t tuning
	if err := v.Unmarshal(&t); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if t.Gate.Attempts > 0 {
		cfg.GateAttempts = t.Gate.Attempts
	}
	if t.Gate.Interval > 0 {
		cfg.GateInterval = t.Gate.Interval
	}
	if t.Gate.ProbeTimeout > 0 {
		cfg.ProbeTimeout = t.Gate.ProbeTimeout
	}
	if t.Browser.ProfileDir != "" {
		cfg.ProfileDir = t.Browser.ProfileDir
	}
	if t.Browser.StopWait > 0 {
		cfg.StopWait = t.Browser.StopWait
	}
	cfg.BrowserLog = t.Browser.Log
	cfg.HistoryDSN = t.History.DSN
	return nil
}

// applyOverrides maps recognized env-file keys onto the config. Unrecognized
// keys are ignored; present-but-empty values do not override defaults.
func applyOverrides(cfg *Config, over map[string]string) {
	if v := over[KeyHost]; v != "" {
		cfg.Host = v
	}
	if v := over[KeyAPIPort]; v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.APIPort = p
		} else {
			slog.Warn("ignoring invalid override", "key", KeyAPIPort, "value", v)
		}
	}
	if v := over[KeyBrowserPort]; v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.BrowserPort = p
		} else {
			slog.Warn("ignoring invalid override", "key", KeyBrowserPort, "value", v)
		}
	}
	if v := over[KeyChromeBin]; v != "" {
		cfg.BrowserBin = v
	}
	if v := over[KeyLogLevel]; v != "" {
		cfg.LogLevel = v
	}
}
