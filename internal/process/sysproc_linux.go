//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr makes the child receive SIGTERM when the server dies,
// so a killed server does not leave simulators running.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
	}
}
