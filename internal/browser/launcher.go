// Package browser acquires the Chrome/Chromium process that backs the API:
// it adopts an instance already listening on the debug port, or spawns a new
// one against the persistent automation profile.
package browser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/loykin/browserboot/internal/config"
	"github.com/loykin/browserboot/internal/probe"
)

// ErrNoBrowser is returned when no usable browser binary can be located.
var ErrNoBrowser = errors.New("no usable browser binary found")

// Launcher implements the acquire-or-adopt decision for the debug endpoint.
type Launcher struct {
	Cfg   config.Config
	Probe probe.Probe
}

// Acquire returns a handle to a browser listening on the configured debug
// port. If a listener already exists it is adopted, never doubled: a second
// instance against the same profile directory would fight over the profile
// lock. Otherwise a new process is spawned and owned.
func (l Launcher) Acquire() (*Handle, error) {
	if l.Probe.Ready() {
		slog.Info("debug port already listening, adopting browser",
			"probe", l.Probe.Describe())
		return Adopted(), nil
	}

	bin, err := l.resolveBinary()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(l.Cfg.ProfileDir, 0o750); err != nil {
		return nil, fmt.Errorf("create profile dir %s: %w", l.Cfg.ProfileDir, err)
	}

	args := Args(l.Cfg)
	// #nosec G204 -- binary path comes from a fixed candidate list or operator config
	cmd := exec.Command(bin, args...)
	setSysProcAttr(cmd)

	closers, err := l.wireStdio(cmd)
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, fmt.Errorf("spawn browser %s: %w", bin, err)
	}
	slog.Info("browser spawned", "bin", bin, "pid", cmd.Process.Pid,
		"debug_port", l.Cfg.BrowserPort, "profile_dir", l.Cfg.ProfileDir)
	return newOwned(cmd, closers), nil
}

// Args builds the exact flag set for the configured mode. The trailing
// about:blank keeps the browser from loading any start page.
func Args(cfg config.Config) []string {
	bind := "127.0.0.1"
	if cfg.Mode == config.ModeContainer {
		bind = "0.0.0.0"
	}
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", cfg.BrowserPort),
		"--remote-debugging-address=" + bind,
		"--user-data-dir=" + cfg.ProfileDir,
		"--no-first-run",
		"--no-default-browser-check",
	}
	if cfg.Mode == config.ModeContainer {
		args = append(args,
			"--headless=new",
			"--disable-gpu",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--hide-scrollbars",
			"--mute-audio",
		)
	}
	return append(args, "about:blank")
}

// resolveBinary picks the browser executable. An explicit configured binary
// (CHROME_BIN) wins in both modes; desktop mode otherwise walks a fixed list
// of well-known install locations and takes the first existing file.
func (l Launcher) resolveBinary() (string, error) {
	if b := strings.TrimSpace(l.Cfg.BrowserBin); b != "" {
		path, err := exec.LookPath(b)
		if err != nil {
			return "", fmt.Errorf("%w: %q not in PATH", ErrNoBrowser, b)
		}
		return path, nil
	}
	for _, c := range chromeCandidates() {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: checked %d well-known locations", ErrNoBrowser, len(chromeCandidates()))
}

// wireStdio routes the child's output. The orchestrator never reads it; it is
// either discarded or captured into rotating files for debugging.
func (l Launcher) wireStdio(cmd *exec.Cmd) ([]io.Closer, error) {
	if !l.Cfg.BrowserLog.Enabled() {
		null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			return nil, err
		}
		cmd.Stdout = null
		cmd.Stderr = null
		return []io.Closer{null}, nil
	}
	if l.Cfg.BrowserLog.Dir != "" {
		if err := os.MkdirAll(l.Cfg.BrowserLog.Dir, 0o750); err != nil {
			return nil, err
		}
	}
	outW, errW, err := l.Cfg.BrowserLog.Writers("browser")
	if err != nil {
		return nil, err
	}
	var closers []io.Closer
	if outW != nil {
		cmd.Stdout = outW
		closers = append(closers, outW)
	}
	if errW != nil {
		cmd.Stderr = errW
		closers = append(closers, errW)
	}
	return closers, nil
}
