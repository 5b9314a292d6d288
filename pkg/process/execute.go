package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/logging"
)

// DefaultWaitDelay bounds how long output copying may outlive the child when
// a grandchild keeps the inherited stdout/stderr open.
const DefaultWaitDelay = 2 * time.Second

type ExecutionConfig struct {
	ExecutablePath   string        `yaml:"executable_path"`
	Args             []string      `yaml:"args,omitempty"`
	Environment      []string      `yaml:"environment,omitempty"`
	WorkingDirectory string        `yaml:"working_directory,omitempty"`
	WaitDelay        time.Duration `yaml:"wait_delay,omitempty"`
}

// Start spawns the configured command and returns without waiting for it.
// Standard output and standard error are merged into one OutputBuffer. The
// caller owns the returned process and must call Teardown on every path.
func Start(execution ExecutionConfig, id string, logger logging.Logger) (*ManagedProcess, error) {
	if err := ValidateExecutionConfig(execution); err != nil {
		logger.Errorf("Execution configuration validation failed, id: %s, error: %v", id, err)
		return nil, errors.NewLaunchError("invalid execution configuration", err).WithContext("id", id)
	}

	workDir := execution.WorkingDirectory
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.NewLaunchError("failed to get working directory", err).WithContext("id", id)
		}
		workDir = wd
	}

	executablePath, err := resolveExecutable(execution.ExecutablePath, workDir)
	if err != nil {
		return nil, errors.NewLaunchError("executable not found", err).
			WithContext("id", id).
			WithContext("executable_path", execution.ExecutablePath).
			WithContext("working_directory", workDir)
	}

	logger.Debugf("Executing process: id: %s, executable path: '%s', args: %v, working directory: '%s'",
		id, executablePath, execution.Args, workDir)

	env := os.Environ()
	env = append(env, execution.Environment...)

	cmd := exec.Command(executablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = env

	setupProcessAttributes(cmd)

	output := NewOutputBuffer()
	cmd.Stdout = output
	cmd.Stderr = output

	cmd.WaitDelay = execution.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.NewLaunchError("failed to start the process", err).
			WithContext("id", id).
			WithContext("executable_path", executablePath)
	}

	logger.Infof("Successfully started process, id: %s, PID: %d", id, cmd.Process.Pid)

	p := &ManagedProcess{
		id:       id,
		cmd:      cmd,
		output:   output,
		done:     make(chan struct{}),
		exitCode: -1,
		logger:   logger,
	}
	go p.wait()

	return p, nil
}

// resolveExecutable turns the configured path into something exec can start:
// bare names go through PATH, relative paths are anchored at workDir.
func resolveExecutable(path, workDir string) (string, error) {
	if !strings.ContainsRune(path, filepath.Separator) && !strings.ContainsRune(path, '/') {
		return exec.LookPath(path)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.NewValidationError("executable path is a directory: "+path, nil)
	}
	return path, nil
}
