package process

import (
	"os/exec"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/logging"
)

// DefaultGracePeriod is used by Teardown when no positive grace period is given.
const DefaultGracePeriod = 5 * time.Second

// killDrainTimeout bounds the wait for exit after the forced kill.
const killDrainTimeout = 5 * time.Second

// ManagedProcess is a spawned child owned by a single caller. Its exit status
// is collected by exactly one goroutine started in Start.
type ManagedProcess struct {
	id     string
	cmd    *exec.Cmd
	output *OutputBuffer
	logger logging.Logger

	done     chan struct{} // closed once cmd.Wait has returned
	mutex    sync.Mutex
	waitErr  error
	exitCode int

	teardownOnce sync.Once
}

func (p *ManagedProcess) wait() {
	err := p.cmd.Wait()

	p.mutex.Lock()
	p.waitErr = err
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}
	p.mutex.Unlock()

	p.logger.Debugf("Process exited, id: %s, PID: %d, error: %v", p.id, p.cmd.Process.Pid, err)
	close(p.done)
}

func (p *ManagedProcess) ID() string {
	return p.id
}

func (p *ManagedProcess) Pid() int {
	return p.cmd.Process.Pid
}

// Exited is closed when the process has exited and its output is fully copied.
func (p *ManagedProcess) Exited() <-chan struct{} {
	return p.done
}

// ExitCode returns the exit code, or -1 while running or when killed by a signal.
func (p *ManagedProcess) ExitCode() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.exitCode
}

// WaitError returns the cmd.Wait result once the process has exited.
func (p *ManagedProcess) WaitError() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.waitErr
}

// DrainOutput returns the output accumulated since the previous call. Before
// exit the result may be partial; after Teardown it is complete.
func (p *ManagedProcess) DrainOutput() []byte {
	return p.output.Drain()
}

// Teardown stops the process: interrupt, wait up to grace, then kill. Only
// the first call does any work; later calls return nil immediately. The
// returned error is always a teardown warning and must not replace an
// earlier failure of the caller.
func (p *ManagedProcess) Teardown(grace time.Duration) error {
	var err error
	p.teardownOnce.Do(func() {
		err = p.teardown(grace)
	})
	return err
}

func (p *ManagedProcess) teardown(grace time.Duration) error {
	pid := p.Pid()

	select {
	case <-p.done:
		p.logger.Debugf("Process already exited, nothing to tear down, id: %s, PID: %d, exit code: %d",
			p.id, pid, p.ExitCode())
		return nil
	default:
	}

	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	p.logger.Infof("Sending interrupt signal to PID %d, grace period: %v", pid, grace)

	// The wait below runs even if signalling failed: the usual cause is a
	// process that exited in the meantime, which done will report.
	signalErr := sendInterruptSignal(p.cmd.Process)
	if signalErr != nil {
		p.logger.Warnf("Failed to send interrupt signal to PID %d: %v", pid, signalErr)
	}

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()

	select {
	case <-p.done:
		p.logger.Infof("Process PID %d stopped gracefully", pid)
		// Children that ignored the interrupt would otherwise outlive the probe.
		if err := killProcessGroup(pid); err != nil {
			p.logger.Warnf("Failed to kill remaining processes in group %d: %v", pid, err)
		}
		return nil
	case <-graceTimer.C:
		p.logger.Warnf("Process PID %d did not stop within %v, forcing termination", pid, grace)
	}

	killErr := forceKill(p.cmd.Process)
	if killErr != nil {
		p.logger.Warnf("Failed to kill process PID %d: %v", pid, killErr)
	}

	drainTimer := time.NewTimer(killDrainTimeout)
	defer drainTimer.Stop()

	select {
	case <-p.done:
		p.logger.Warnf("Process PID %d force terminated", pid)
		return errors.NewTeardownWarning("process ignored interrupt and was killed", multierr.Append(signalErr, killErr)).
			WithContext("pid", pid).
			WithContext("grace_period", grace)
	case <-drainTimer.C:
		return errors.NewTeardownWarning("process did not exit even after forced kill", multierr.Append(signalErr, killErr)).
			WithContext("pid", pid)
	}
}
