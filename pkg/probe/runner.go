package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/logging"
	"github.com/core-tools/hsu-probe/pkg/monitoring"
	"github.com/core-tools/hsu-probe/pkg/process"
)

const serverProcessID = "server"

type RunOptions struct {
	// Stdout receives the per-check success lines. Defaults to os.Stdout.
	Stdout io.Writer
	Logger logging.Logger
}

// Run launches the server, waits for the health endpoint, verifies the stream
// endpoint and tears the server down. Once the launch succeeded, teardown and
// output collection happen on every path out of Run, including panics.
func Run(ctx context.Context, config *ProbeConfig, options RunOptions) (result *Result) {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	stdout := options.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	start := time.Now()
	result = &Result{ExitCode: -1}
	defer func() {
		result.Duration = time.Since(start)
	}()

	logger.Infof("Launching server: %s %v", config.Server.ExecutablePath, config.Server.Args)

	proc, err := process.Start(config.Server, serverProcessID, logging.Child(logger, serverProcessID+": "))
	if err != nil {
		logger.Errorf("Failed to launch server: %v", err)
		result.Err = err
		return result
	}
	result.Pid = proc.Pid()

	defer func() {
		if err := proc.Teardown(config.Teardown.GracePeriod); err != nil {
			logger.Warnf("Teardown warning: %v", err)
			result.TeardownErr = err
		}
		result.Output = proc.DrainOutput()
		result.ExitCode = proc.ExitCode()
		logger.Debugf("Process %s (PID %d) torn down, exit code: %d, output bytes: %d",
			proc.ID(), result.Pid, result.ExitCode, len(result.Output))
	}()

	result.Err = runChecks(ctx, config, proc, stdout, logger, result)
	if result.Err != nil {
		logger.Errorf("Probe failed: %v", result.Err)
	}
	return result
}

func runChecks(ctx context.Context, config *ProbeConfig, proc *process.ManagedProcess, stdout io.Writer, logger logging.Logger, result *Result) error {
	baseURL := config.BaseURL()

	var exited <-chan struct{}
	if config.Readiness.FailFastOnExit {
		exited = proc.Exited()
	}

	checkStart := time.Now()
	body, err := monitoring.WaitUntilReady(ctx, baseURL, config.Readiness, exited, logger)
	if err == nil {
		err = checkHealthBody(body, config.Readiness.ExpectedBody)
	}
	result.record(CheckReadiness, err, time.Since(checkStart))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Health endpoint OK")

	checkStart = time.Now()
	err = monitoring.VerifyStream(ctx, baseURL, config.Stream, logger)
	result.record(CheckHandshake, err, time.Since(checkStart))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "SSE endpoint OK")

	return nil
}

// checkHealthBody is a substring match; an empty expectation accepts any body.
func checkHealthBody(body, expected string) error {
	if expected == "" || strings.Contains(body, expected) {
		return nil
	}
	return errors.NewUnexpectedHealthBodyError(fmt.Sprintf("health body does not contain %q", expected), nil).
		WithContext("body", body)
}
