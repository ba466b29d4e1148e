//go:build !windows

package hooks

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in a new session, detached from the controlling
// terminal and process group, so it keeps running after worktrunk exits.
// Grounded on the teacher corpus's procattr package, inverted: that one
// pins Pdeathsig so a child dies with its parent; a background hook must
// do the opposite and outlive it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
