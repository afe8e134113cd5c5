//go:build !windows

package browser

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child in its own process group so termination
// signals reach the whole browser process tree.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
