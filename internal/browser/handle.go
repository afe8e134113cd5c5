package browser

import (
	"io"
	"os/exec"
	"time"
)

// Handle identifies the browser process backing one orchestration run.
// LaunchedByUs distinguishes ownership from adoption: an adopted browser (a
// listener that was already on the debug port) must never be terminated by us.
type Handle struct {
	PID          int
	LaunchedByUs bool

	cmd     *exec.Cmd
	waitErr chan error // closed by the reaper after cmd.Wait returns
	closers []io.Closer
}

// Adopted returns a handle for a browser we detected but did not spawn.
func Adopted() *Handle {
	return &Handle{LaunchedByUs: false}
}

func newOwned(cmd *exec.Cmd, closers []io.Closer) *Handle {
	h := &Handle{
		PID:          cmd.Process.Pid,
		LaunchedByUs: true,
		cmd:          cmd,
		waitErr:      make(chan error, 1),
		closers:      closers,
	}
	// Single reaper: cmd.Wait must only ever be called here.
	go func() {
		err := cmd.Wait()
		for _, c := range h.closers {
			_ = c.Close()
		}
		h.waitErr <- err
		close(h.waitErr)
	}()
	return h
}

// WaitExit blocks until the owned process has been reaped or the timeout
// expires. It returns true when the process exited. Adopted handles report
// true immediately since there is nothing to reap.
func (h *Handle) WaitExit(timeout time.Duration) bool {
	if h.cmd == nil {
		return true
	}
	select {
	case <-h.waitErr:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Exited reports whether the owned process has already been reaped.
func (h *Handle) Exited() bool {
	if h.cmd == nil {
		return true
	}
	select {
	case <-h.waitErr:
		return true
	default:
		return false
	}
}
