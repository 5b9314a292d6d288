//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

var (
	kernel32                     = syscall.NewLazyDLL("kernel32.dll")
	procGenerateConsoleCtrlEvent = kernel32.NewProc("GenerateConsoleCtrlEvent")
)

// sendInterruptSignal sends Ctrl+Break to the process group of proc. Windows
// has no SIGINT delivery to other processes; CTRL_BREAK_EVENT is the closest
// cooperative stop for console programs.
func sendInterruptSignal(proc *os.Process) error {
	if err := procGenerateConsoleCtrlEvent.Find(); err != nil {
		return fmt.Errorf("GenerateConsoleCtrlEvent unavailable: %v", err)
	}
	result, _, err := procGenerateConsoleCtrlEvent.Call(
		uintptr(syscall.CTRL_BREAK_EVENT),
		uintptr(proc.Pid),
	)
	if result == 0 {
		return fmt.Errorf("failed to send Ctrl+Break to PID %d: %v", proc.Pid, err)
	}
	return nil
}

// killProcessGroup is a no-op: Windows has no group-wide kill without a job object.
func killProcessGroup(pid int) error {
	return nil
}

// forceKill calls TerminateProcess on the child
func forceKill(proc *os.Process) error {
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
