//go:build !windows

package process

import (
	"errors"
	"os"
	"syscall"

	"go.uber.org/multierr"
)

// sendInterruptSignal sends SIGINT to the process group of proc
func sendInterruptSignal(proc *os.Process) error {
	// Negative PID addresses the whole group created by Setpgid
	return syscall.Kill(-proc.Pid, syscall.SIGINT)
}

// killProcessGroup sends SIGKILL to every process left in the group led by
// pid. An already empty group is not an error.
func killProcessGroup(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

// forceKill kills the process group, then the leader in case it has left the group.
func forceKill(proc *os.Process) error {
	err := killProcessGroup(proc.Pid)
	if leaderErr := proc.Kill(); leaderErr != nil && !errors.Is(leaderErr, os.ErrProcessDone) {
		err = multierr.Append(err, leaderErr)
	}
	return err
}
