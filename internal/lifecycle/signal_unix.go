//go:build !windows

package lifecycle

import (
	"os"
	"syscall"
)

func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// terminate signals the whole process group; the browser forks renderers that
// must go down with it. force selects SIGKILL over SIGTERM.
func terminate(pid int, force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(-pid, sig); err != nil {
		// Fall back to the single process when no group exists.
		return syscall.Kill(pid, sig)
	}
	return nil
}
