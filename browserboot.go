package browserboot

import (
	"context"
	"net/http"

	"github.com/loykin/browserboot/internal/browser"
	"github.com/loykin/browserboot/internal/config"
	"github.com/loykin/browserboot/internal/gate"
	"github.com/loykin/browserboot/internal/history"
	"github.com/loykin/browserboot/internal/metrics"
	"github.com/loykin/browserboot/internal/orchestrator"
	"github.com/loykin/browserboot/internal/probe"
	"github.com/loykin/browserboot/internal/reqmgr"
	"github.com/loykin/browserboot/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type Mode = config.Mode

const (
	ModeDesktop   = config.ModeDesktop
	ModeContainer = config.ModeContainer
)

type Probe = probe.Probe

type GateResult = gate.Result

const (
	Ready        = gate.Ready
	TimedOutSoft = gate.TimedOutSoft
	TimedOutHard = gate.TimedOutHard
)

type BrowserHandle = browser.Handle

type Runner = server.Runner

type RequestManager = reqmgr.Manager

type HistorySink = history.Sink

// ResolveConfig builds the immutable run configuration from defaults, an
// optional TOML tuning file, and an optional KEY=VALUE override file.
func ResolveConfig(mode Mode, envFile, configFile string) (Config, error) {
	return config.Resolve(config.Options{Mode: mode, EnvFile: envFile, ConfigFile: configFile})
}

// Orchestrator is a thin facade over the internal bootstrap sequence, for
// embedding the bootstrapper with a custom automation Runner.
type Orchestrator struct{ inner *orchestrator.Orchestrator }

func New(cfg Config) *Orchestrator {
	return &Orchestrator{inner: orchestrator.New(cfg)}
}

// SetRunner installs the per-request automation work executed by the API.
func (o *Orchestrator) SetRunner(r Runner) { o.inner.Runner = r }

// Run blocks until the API exits or a termination signal is handled.
func (o *Orchestrator) Run(ctx context.Context) error { return o.inner.Run(ctx) }

// NewRequestManager returns a standalone request manager with default limits.
func NewRequestManager() *RequestManager { return reqmgr.NewManager() }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// MetricsHandler serves Prometheus metrics for the default registry.
func MetricsHandler() http.Handler { return metrics.Handler() }
