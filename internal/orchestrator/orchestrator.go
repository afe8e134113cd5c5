// Package orchestrator sequences one bootstrap run: resolve config, acquire
// the browser, gate on debug-endpoint readiness, then hand off to the API
// server. The lifecycle coupler is armed for the whole run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/loykin/browserboot/internal/browser"
	"github.com/loykin/browserboot/internal/config"
	"github.com/loykin/browserboot/internal/gate"
	"github.com/loykin/browserboot/internal/history"
	"github.com/loykin/browserboot/internal/lifecycle"
	"github.com/loykin/browserboot/internal/metrics"
	"github.com/loykin/browserboot/internal/probe"
	"github.com/loykin/browserboot/internal/reqmgr"
	"github.com/loykin/browserboot/internal/server"
)

// ErrBrowserNotReady aborts container startup when the gate exhausts its
// budget: unattended deployments must not serve against an unconfirmed
// browser backend.
var ErrBrowserNotReady = errors.New("browser debug endpoint never became ready")

// Orchestrator runs the bootstrap sequence. Acquire and Sleep are injectable
// for tests; both default to the real implementations.
type Orchestrator struct {
	Cfg    config.Config
	Runner server.Runner

	Acquire func() (*browser.Handle, error)
	Sleep   func(time.Duration)
}

func New(cfg config.Config) *Orchestrator {
	return &Orchestrator{Cfg: cfg}
}

// DebugProbe returns the readiness probe for the configured mode: a bare TCP
// connect on the desktop, an HTTP check of /json/version in containers, where
// an open port alone does not prove DevTools is serving.
func DebugProbe(cfg config.Config) probe.Probe {
	if cfg.Mode == config.ModeContainer {
		return probe.VersionProbe("127.0.0.1", cfg.BrowserPort, cfg.ProbeTimeout)
	}
	return probe.TCPProbe{Host: "127.0.0.1", Port: cfg.BrowserPort, Timeout: cfg.ProbeTimeout}
}

// Run executes the full sequence and blocks until the API server exits or a
// termination signal arrives. The browser teardown is guaranteed to have run
// (or been deliberately skipped for adopted/kept browsers) before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.Cfg
	started := time.Now()

	// Signal handling is armed before anything can be spawned, so there is no
	// window where a browser exists without a registered cleanup.
	coupler := lifecycle.NewCoupler(cfg.StopWait)
	coupler.WatchSignals()

	p := DebugProbe(cfg)

	acquire := o.Acquire
	if acquire == nil {
		acquire = browser.Launcher{Cfg: cfg, Probe: p}.Acquire
	}
	handle, err := acquire()
	if err != nil {
		return fmt.Errorf("acquire browser: %w", err)
	}
	coupler.Attach(handle)
	launchedByUs := handle.LaunchedByUs
	if launchedByUs {
		metrics.IncLaunch(string(cfg.Mode))
	} else {
		metrics.IncAdoption(string(cfg.Mode))
	}
	if cfg.KeepBrowser {
		coupler.Release()
	}

	gateStart := time.Now()
	res, attempts := gate.Gate{
		Probe:       p,
		MaxAttempts: cfg.GateAttempts,
		Interval:    cfg.GateInterval,
		HardFail:    cfg.Mode == config.ModeContainer,
		Sleep:       o.Sleep,
	}.Wait()
	metrics.IncGateOutcome(res.String())
	metrics.ObserveGateWait(time.Since(gateStart).Seconds())

	switch res {
	case gate.Ready:
		slog.Info("browser debug endpoint ready", "attempts", attempts, "probe", p.Describe())
	case gate.TimedOutSoft:
		slog.Warn("browser not confirmed ready, starting API anyway",
			"attempts", attempts, "probe", p.Describe())
	case gate.TimedOutHard:
		coupler.Cleanup()
		return fmt.Errorf("%w after %d attempts", ErrBrowserNotReady, attempts)
	}

	var hist *history.SQLiteSink
	if cfg.HistoryDSN != "" {
		hist, err = history.NewSQLite(cfg.HistoryDSN)
		if err != nil {
			slog.Warn("history sink unavailable", "dsn", cfg.HistoryDSN, "err", err)
		}
	}
	run := history.Run{
		Mode:         string(cfg.Mode),
		BrowserPID:   handle.PID,
		LaunchedByUs: launchedByUs,
		GateResult:   res.String(),
		GateAttempts: attempts,
		StartedAt:    started,
	}
	if hist != nil {
		if err := hist.Send(ctx, history.Event{Type: history.EventStart, OccurredAt: time.Now(), Run: run}); err != nil {
			slog.Warn("record run start", "err", err)
		}
	}

	err = o.serve(ctx, coupler, p, run, hist)

	// The coupler owns browser teardown on every exit path.
	coupler.Cleanup()

	if hist != nil {
		run.StoppedAt = time.Now()
		run.Duration = time.Since(started)
		if serr := hist.Send(context.Background(), history.Event{Type: history.EventStop, OccurredAt: time.Now(), Run: run}); serr != nil {
			slog.Warn("record run stop", "err", serr)
		}
		_ = hist.Close()
	}
	return err
}

// serve blocks until the API server stops, the coupler handles a signal, or
// ctx is cancelled.
func (o *Orchestrator) serve(ctx context.Context, coupler *lifecycle.Coupler, p probe.Probe,
	run history.Run, hist *history.SQLiteSink) error {
	router := &server.Router{
		Cfg:   o.Cfg,
		Mgr:   reqmgr.NewManager(),
		Probe: p,
		Browser: server.BrowserInfo{
			PID:          run.BrowserPID,
			LaunchedByUs: run.LaunchedByUs,
			DebugPort:    o.Cfg.BrowserPort,
			GateResult:   run.GateResult,
			GateAttempts: run.GateAttempts,
		},
		Run:  o.Runner,
		Hist: hist,
	}
	srv := server.NewServer(o.Cfg.APIAddr(), router)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", o.Cfg.APIAddr(),
			"mode", string(o.Cfg.Mode), "log_level", o.Cfg.LogLevel)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-coupler.Signaled():
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("api server shutdown", "err", err)
	}
	<-errCh
	return nil
}
