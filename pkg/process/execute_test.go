//go:build !windows

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/core-tools/hsu-probe/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Simple test logger that implements logging.Logger interface
type TestLogger struct{}

func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}

func startShell(t *testing.T, script string) *ManagedProcess {
	t.Helper()
	proc, err := Start(ExecutionConfig{
		ExecutablePath: "/bin/sh",
		Args:           []string{"-c", script},
	}, "test", &TestLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = proc.Teardown(time.Second) })
	return proc
}

func waitExited(t *testing.T, proc *ManagedProcess, timeout time.Duration) {
	t.Helper()
	select {
	case <-proc.Exited():
	case <-time.After(timeout):
		t.Fatalf("process %d did not exit within %v", proc.Pid(), timeout)
	}
}

// waitForOutput polls the buffer length (without draining it) until the
// child has written something.
func waitForOutput(t *testing.T, proc *ManagedProcess) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for proc.output.size() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for process output")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// processGone treats zombies as gone: an orphan may wait a while for its
// reaper inside containers.
func processGone(pid int) bool {
	if err := syscall.Kill(pid, 0); err == syscall.ESRCH {
		return true
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) > 0 && fields[0] == "Z"
}

func TestStart_CapturesCombinedOutput(t *testing.T) {
	proc := startShell(t, "echo to-stdout; echo to-stderr 1>&2; exit 3")

	waitExited(t, proc, 5*time.Second)

	assert.Equal(t, "test", proc.ID())
	output := string(proc.DrainOutput())
	assert.Contains(t, output, "to-stdout")
	assert.Contains(t, output, "to-stderr")
	assert.Equal(t, 3, proc.ExitCode())
	assert.Error(t, proc.WaitError())

	// Drained output is not returned twice.
	assert.Empty(t, proc.DrainOutput())
}

func TestStart_ReturnsBeforeProcessExits(t *testing.T) {
	start := time.Now()
	proc := startShell(t, "sleep 30")

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, -1, proc.ExitCode())
	select {
	case <-proc.Exited():
		t.Fatal("process should still be running")
	default:
	}
}

func TestStart_RelativePathAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	script := "#!/bin/sh\necho \"value=$PROBE_TEST_VALUE\"\npwd\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755))

	proc, err := Start(ExecutionConfig{
		ExecutablePath:   "./run.sh",
		WorkingDirectory: dir,
		Environment:      []string{"PROBE_TEST_VALUE=forwarded"},
	}, "script", &TestLogger{})
	require.NoError(t, err)

	waitExited(t, proc, 5*time.Second)
	require.NoError(t, proc.Teardown(time.Second))

	output := string(proc.DrainOutput())
	assert.Contains(t, output, "value=forwarded")

	assert.Contains(t, output, filepath.Base(dir))
	assert.Equal(t, 0, proc.ExitCode())
}

func TestStart_LaunchErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ExecutionConfig
	}{
		{
			name:   "empty_executable",
			config: ExecutionConfig{},
		},
		{
			name:   "missing_relative_executable",
			config: ExecutionConfig{ExecutablePath: "./gradlew", WorkingDirectory: t.TempDir()},
		},
		{
			name:   "missing_path_lookup",
			config: ExecutionConfig{ExecutablePath: "hsu-probe-no-such-binary"},
		},
		{
			name:   "executable_is_directory",
			config: ExecutionConfig{ExecutablePath: t.TempDir()},
		},
		{
			name:   "relative_working_directory",
			config: ExecutionConfig{ExecutablePath: "/bin/sh", WorkingDirectory: "relative/dir"},
		},
		{
			name:   "invalid_environment",
			config: ExecutionConfig{ExecutablePath: "/bin/sh", Environment: []string{"NOEQUALS"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := Start(tt.config, "bad", &TestLogger{})
			assert.Nil(t, proc)
			require.Error(t, err)
			assert.True(t, errors.IsLaunchError(err), "expected launch error, got %v", err)
		})
	}
}

func TestTeardown_GracefulInterrupt(t *testing.T) {
	proc := startShell(t, "echo started; sleep 30")
	waitForOutput(t, proc)

	start := time.Now()
	err := proc.Teardown(5 * time.Second)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, elapsed, 5*time.Second)
	waitExited(t, proc, time.Second)
	assert.Contains(t, string(proc.DrainOutput()), "started")
}

func TestTeardown_ForcedKillAfterGracePeriod(t *testing.T) {
	proc := startShell(t, `trap "" INT; echo ready; sleep 30`)
	waitForOutput(t, proc)

	grace := 200 * time.Millisecond
	start := time.Now()
	err := proc.Teardown(grace)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsTeardownWarning(err), "expected teardown warning, got %v", err)
	assert.GreaterOrEqual(t, elapsed, grace)
	assert.Less(t, elapsed, grace+killDrainTimeout)
	waitExited(t, proc, time.Second)
	assert.Contains(t, string(proc.DrainOutput()), "ready")
}

func TestTeardown_Idempotent(t *testing.T) {
	proc := startShell(t, `trap "" INT; echo ready; sleep 30`)
	waitForOutput(t, proc)

	first := proc.Teardown(100 * time.Millisecond)
	assert.True(t, errors.IsTeardownWarning(first))

	start := time.Now()
	assert.NoError(t, proc.Teardown(100*time.Millisecond))
	assert.NoError(t, proc.Teardown(0))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTeardown_AlreadyExitedIsNoop(t *testing.T) {
	proc := startShell(t, "echo bye")
	waitExited(t, proc, 5*time.Second)

	start := time.Now()
	assert.NoError(t, proc.Teardown(5*time.Second))
	assert.NoError(t, proc.Teardown(5*time.Second))
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, string(proc.DrainOutput()), "bye")
}

func TestTeardown_KillsWholeProcessGroup(t *testing.T) {
	// Background jobs of a non-interactive shell ignore SIGINT, so the sleep
	// survives the interrupt and must be swept with the group.
	proc := startShell(t, "sleep 30 & echo $!; wait")
	waitForOutput(t, proc)

	childPid, err := strconv.Atoi(strings.TrimSpace(string(proc.DrainOutput())))
	require.NoError(t, err)
	require.False(t, processGone(childPid))

	_ = proc.Teardown(5 * time.Second)

	assert.Eventually(t, func() bool { return processGone(childPid) }, 5*time.Second, 20*time.Millisecond)
}
