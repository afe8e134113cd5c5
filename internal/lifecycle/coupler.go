// Package lifecycle couples the browser subprocess's life to the orchestrator:
// it registers shutdown hooks and guarantees an owned browser does not outlive
// the parent process.
package lifecycle

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/loykin/browserboot/internal/browser"
)

const killGrace = 200 * time.Millisecond

// Coupler runs the browser teardown exactly once, whether triggered by a
// termination signal or by the normal exit path. It must be watching signals
// before anything is spawned so no window exists where a browser process has
// no registered cleanup.
type Coupler struct {
	// StopWait bounds the graceful-termination wait before escalating.
	StopWait time.Duration

	mu       sync.Mutex
	handle   *browser.Handle
	once     sync.Once
	sigCh    chan os.Signal
	signaled chan struct{}
}

func NewCoupler(stopWait time.Duration) *Coupler {
	if stopWait <= 0 {
		stopWait = 5 * time.Second
	}
	return &Coupler{
		StopWait: stopWait,
		signaled: make(chan struct{}),
	}
}

// WatchSignals installs interrupt/terminate handlers. On the first signal it
// runs Cleanup and then closes the Signaled channel.
func (c *Coupler) WatchSignals() {
	c.mu.Lock()
	if c.sigCh != nil {
		c.mu.Unlock()
		return
	}
	ch := make(chan os.Signal, 1)
	c.sigCh = ch
	c.mu.Unlock()

	signal.Notify(ch, shutdownSignals()...)
	go func() {
		sig, ok := <-ch
		if !ok {
			return
		}
		slog.Info("termination signal received", "signal", sig.String())
		c.Cleanup()
		close(c.signaled)
	}()
}

// Signaled is closed after a termination signal has been handled.
func (c *Coupler) Signaled() <-chan struct{} { return c.signaled }

// Attach records the handle to clean up. At most one handle is active per run.
func (c *Coupler) Attach(h *browser.Handle) {
	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()
}

// Release demotes ownership so Cleanup leaves the browser running. Used by the
// desktop keep-browser flow; the next invocation re-adopts it via the probe.
func (c *Coupler) Release() {
	c.mu.Lock()
	if c.handle != nil {
		c.handle.LaunchedByUs = false
	}
	c.mu.Unlock()
}

// Cleanup terminates the owned browser, gracefully first and forcibly after
// StopWait. It is idempotent: a second invocation finds nothing to do. Adopted
// browsers are never signalled. Termination errors are swallowed: if the
// process is already gone the desired end-state holds.
func (c *Coupler) Cleanup() {
	c.once.Do(func() {
		c.mu.Lock()
		h := c.handle
		c.mu.Unlock()
		if h == nil || !h.LaunchedByUs || h.PID <= 0 {
			return
		}
		if h.Exited() {
			slog.Debug("browser already exited", "pid", h.PID)
			return
		}
		slog.Info("terminating browser", "pid", h.PID)
		if err := terminate(h.PID, false); err != nil {
			slog.Debug("graceful terminate failed", "pid", h.PID, "err", err)
		}
		if h.WaitExit(c.StopWait) {
			return
		}
		slog.Warn("browser did not exit in time, killing", "pid", h.PID, "waited", c.StopWait)
		if err := terminate(h.PID, true); err != nil {
			slog.Debug("kill failed", "pid", h.PID, "err", err)
		}
		if !h.WaitExit(killGrace) {
			slog.Warn("browser still not reaped after kill", "pid", h.PID)
		}
	})
}
