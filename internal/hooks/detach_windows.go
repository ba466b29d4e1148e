//go:build windows

package hooks

import "os/exec"

// detach is a no-op on Windows: there is no POSIX session/process-group
// concept to detach into, and CREATE_NEW_PROCESS_GROUP without a console
// parent is not needed for the log-redirected case hooks run in.
func detach(cmd *exec.Cmd) {}
