//go:build windows

package lifecycle

import "os"

func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// terminate kills the process; Windows has no graceful POSIX signal to offer.
func terminate(pid int, force bool) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
