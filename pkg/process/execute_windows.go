//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes configures Windows-specific process attributes.
// CREATE_NEW_PROCESS_GROUP makes the child addressable by CTRL_BREAK_EVENT
// without delivering the event to the probe itself.
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
