package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/logging"
	"github.com/core-tools/hsu-probe/pkg/probe"

	flags "github.com/jessevdk/go-flags"
)

const (
	exitOK          = 0
	exitProbeFailed = 1
	exitBadConfig   = 2
)

type flagOptions struct {
	Config           string        `long:"config" description:"Path to a YAML probe configuration file"`
	Host             string        `long:"host" description:"Host the server listens on"`
	Port             int           `long:"port" description:"Port the server listens on (overrides MCP_PORT)"`
	WorkDir          string        `long:"workdir" description:"Working directory of the server command"`
	ReadinessTimeout time.Duration `long:"readiness-timeout" description:"Overall deadline for the health endpoint"`
	FailFast         bool          `long:"fail-fast" description:"Give up as soon as the server process exits"`
	GracePeriod      time.Duration `long:"grace-period" description:"Time between interrupt and kill on teardown"`
	ShowOutput       bool          `long:"show-output" description:"Print server output even when the probe passes"`
	LogLevel         string        `long:"log-level" description:"debug, info, warn or error"`
	LogFormat        string        `long:"log-format" choice:"text" choice:"console" choice:"json" description:"Log format"`
	LogFile          string        `long:"log-file" description:"Also write logs to this rolling file"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opts, command, err := parseArgs(argv)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "Command line flags parsing failed: %v\n", err)
		return exitBadConfig
	}

	config, err := buildConfig(opts, command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return exitBadConfig
	}

	logger, closeLogger, err := newLogger(opts, config.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return exitBadConfig
	}
	defer closeLogger()

	logger.Debugf("opts: %+v", opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Enable signal handling
	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig, os.Interrupt)
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}
	defer signal.Stop(sig)
	go func() {
		select {
		case receivedSignal := <-sig:
			logger.Warnf("Received signal %v, stopping probe", receivedSignal)
			cancel()
		case <-ctx.Done():
		}
	}()

	result := probe.Run(ctx, config, probe.RunOptions{Stdout: os.Stdout, Logger: logger})

	probe.WriteReport(os.Stdout, result, config.Report.AlwaysShowOutput)

	if !result.Passed() {
		logger.Errorf("Probe failed after %v: %v", result.Duration, result.Err)
		return exitProbeFailed
	}
	logger.Infof("Probe passed in %v", result.Duration)
	return exitOK
}

// parseArgs returns the parsed flags and the server command given after "--".
func parseArgs(argv []string) (flagOptions, []string, error) {
	var opts flagOptions
	var parser = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] [-- command [args...]]"
	command, err := parser.ParseArgs(argv)
	return opts, command, err
}

// buildConfig layers defaults, the config file, the environment and flags.
func buildConfig(opts flagOptions, command []string) (*probe.ProbeConfig, error) {
	config := probe.DefaultConfig()
	if opts.Config != "" {
		loaded, err := probe.LoadConfigFromFile(opts.Config)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := config.ApplyEnvironment(os.LookupEnv); err != nil {
		return nil, err
	}

	if len(command) > 0 {
		config.Server.ExecutablePath = command[0]
		config.Server.Args = command[1:]
	}
	if opts.WorkDir != "" {
		config.Server.WorkingDirectory = opts.WorkDir
	}
	if opts.Host != "" {
		config.Target.Host = opts.Host
	}
	if opts.Port != 0 {
		config.Target.Port = opts.Port
	}
	if opts.ReadinessTimeout != 0 {
		config.Readiness.Timeout = opts.ReadinessTimeout
	}
	if opts.FailFast {
		config.Readiness.FailFastOnExit = true
	}
	if opts.GracePeriod != 0 {
		config.Teardown.GracePeriod = opts.GracePeriod
	}
	if opts.ShowOutput {
		config.Report.AlwaysShowOutput = true
	}
	if opts.LogLevel != "" {
		config.Log.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		config.Log.File = opts.LogFile
	}
	if opts.LogFormat != "" && opts.LogFormat != "text" {
		config.Log.Format = opts.LogFormat
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.NewIOError("failed to get working directory", err)
	}
	config.ResolveWorkingDirectory(wd)
	if config.Log.File != "" && !filepath.IsAbs(config.Log.File) {
		config.Log.File = filepath.Join(wd, config.Log.File)
	}

	if err := probe.ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func newLogger(opts flagOptions, config logging.ZapConfig) (logging.Logger, func() error, error) {
	if opts.LogFormat == "text" {
		logger := sprintfLogging.NewStdSprintfLogger()
		return logging.NewLogger(logPrefix("hsu-probe"), logging.LogFuncs{
			Debugf: logger.Debugf,
			Infof:  logger.Infof,
			Warnf:  logger.Warnf,
			Errorf: logger.Errorf,
		}), func() error { return nil }, nil
	}
	return logging.NewZapLogger(logPrefix("hsu-probe"), config)
}
