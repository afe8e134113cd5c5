//go:build windows

package browser

import "os/exec"

func setSysProcAttr(cmd *exec.Cmd) {}
