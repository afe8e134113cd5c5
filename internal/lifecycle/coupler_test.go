//go:build !windows

package lifecycle

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/loykin/browserboot/internal/browser"
	"github.com/loykin/browserboot/internal/config"
)

type neverReady struct{}

func (neverReady) Ready() bool      { return false }
func (neverReady) Describe() string { return "never" }

func spawnOwned(t *testing.T) *browser.Handle {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake-chrome")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 30\n"), 0o700); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	cfg, _ := config.Resolve(config.Options{Mode: config.ModeDesktop})
	cfg.BrowserBin = script
	cfg.ProfileDir = filepath.Join(t.TempDir(), "profile")
	h, err := browser.Launcher{Cfg: cfg, Probe: neverReady{}}.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() {
		_ = syscall.Kill(-h.PID, syscall.SIGKILL)
		h.WaitExit(2 * time.Second)
	})
	return h
}

func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func TestCleanupTerminatesOwnedBrowser(t *testing.T) {
	h := spawnOwned(t)
	c := NewCoupler(3 * time.Second)
	c.Attach(h)

	c.Cleanup()

	if !h.WaitExit(2 * time.Second) {
		t.Fatalf("owned browser not reaped after cleanup")
	}
	if alive(h.PID) {
		t.Fatalf("owned browser pid %d still alive after cleanup", h.PID)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	h := spawnOwned(t)
	c := NewCoupler(3 * time.Second)
	c.Attach(h)

	c.Cleanup()
	// Second invocation finds nothing to do and must not error or block.
	done := make(chan struct{})
	go func() {
		c.Cleanup()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("second cleanup blocked")
	}
}

func TestCleanupLeavesAdoptedBrowserAlone(t *testing.T) {
	// An independent process stands in for a browser someone else started.
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	h := browser.Adopted()
	c := NewCoupler(time.Second)
	c.Attach(h)
	c.Cleanup()

	if !alive(cmd.Process.Pid) {
		t.Fatalf("adopted process was terminated by cleanup")
	}
}

func TestCleanupNoHandleIsNoOp(t *testing.T) {
	c := NewCoupler(time.Second)
	c.Cleanup() // nothing attached
}

func TestReleaseKeepsBrowserRunning(t *testing.T) {
	h := spawnOwned(t)
	c := NewCoupler(time.Second)
	c.Attach(h)
	c.Release()

	c.Cleanup()

	if !alive(h.PID) {
		t.Fatalf("released browser must survive cleanup")
	}
}

func TestCleanupSwallowsAlreadyExited(t *testing.T) {
	h := spawnOwned(t)
	_ = syscall.Kill(-h.PID, syscall.SIGKILL)
	if !h.WaitExit(2 * time.Second) {
		t.Fatalf("stub did not exit")
	}
	c := NewCoupler(time.Second)
	c.Attach(h)
	c.Cleanup() // must not error or panic
}
