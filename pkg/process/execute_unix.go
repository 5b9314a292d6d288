//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes configures Unix-specific process attributes
func setupProcessAttributes(cmd *exec.Cmd) {
	// A dedicated process group lets teardown signal the launcher script and
	// everything it spawned (e.g. gradlew and its JVM) as a whole. It also keeps
	// a terminal Ctrl+C aimed at the probe from reaching the child directly.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
