//go:build unix

package lintdaemon

import (
	"errors"
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcess signals the daemon's whole process group, falling back to the process itself.
func killProcess(cmd *exec.Cmd) error {
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err == nil || !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return cmd.Process.Kill()
}
