//go:build !windows

package launch

import (
	"os/exec"
	"syscall"
)

// detach puts cmd in its own session so it outlives us.
func detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}
