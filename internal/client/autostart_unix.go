//go:build !windows

package client

import (
	"os/exec"
	"syscall"
)

// detachFromSession gives the spawned daemon its own session so it
// survives the terminal that launched it and ignores its signals.
func detachFromSession(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
