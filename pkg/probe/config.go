package probe

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/logging"
	"github.com/core-tools/hsu-probe/pkg/monitoring"
	"github.com/core-tools/hsu-probe/pkg/process"

	"gopkg.in/yaml.v3"
)

// PortEnvVar overrides the target port when set.
const PortEnvVar = "MCP_PORT"

// ProbeConfig represents the top-level configuration file structure
type ProbeConfig struct {
	Server    process.ExecutionConfig     `yaml:"server"`
	Target    TargetConfig                `yaml:"target"`
	Readiness monitoring.ReadinessOptions `yaml:"readiness"`
	Stream    monitoring.HandshakeOptions `yaml:"stream"`
	Teardown  TeardownConfig              `yaml:"teardown"`
	Report    ReportConfig                `yaml:"report,omitempty"`
	Log       logging.ZapConfig           `yaml:"log,omitempty"`
}

type TargetConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TeardownConfig struct {
	GracePeriod time.Duration `yaml:"grace_period"`
}

type ReportConfig struct {
	// Print the server output block even when every check passed.
	AlwaysShowOutput bool `yaml:"always_show_output,omitempty"`
}

// DefaultConfig probes the MCP server started by the repository's gradle wrapper.
func DefaultConfig() *ProbeConfig {
	return &ProbeConfig{
		Server: process.ExecutionConfig{
			ExecutablePath: "./gradlew",
			Args:           []string{"--no-daemon", ":mcp:run"},
			WaitDelay:      process.DefaultWaitDelay,
		},
		Target: TargetConfig{
			Host: "127.0.0.1",
			Port: 3001,
		},
		Readiness: monitoring.ReadinessOptions{
			Path:           "/",
			Timeout:        20 * time.Second,
			Interval:       250 * time.Millisecond,
			AttemptTimeout: 2 * time.Second,
			ExpectedBody:   "MCP server running",
		},
		Stream: monitoring.HandshakeOptions{
			Path:      "/sse",
			MediaType: monitoring.MediaTypeEventStream,
			Timeout:   3 * time.Second,
		},
		Teardown: TeardownConfig{
			GracePeriod: process.DefaultGracePeriod,
		},
		Log: logging.DefaultZapConfig(),
	}
}

// LoadConfigFromFile overlays a YAML file on top of DefaultConfig. A relative
// server working directory is resolved against the file's directory.
func LoadConfigFromFile(filename string) (*ProbeConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	absFile, err := filepath.Abs(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to get absolute path", err).WithContext("filename", filename)
	}
	config.ResolveWorkingDirectory(filepath.Dir(absFile))

	return config, nil
}

// ResolveWorkingDirectory anchors a relative server working directory at baseDir.
func (c *ProbeConfig) ResolveWorkingDirectory(baseDir string) {
	if c.Server.WorkingDirectory != "" && !filepath.IsAbs(c.Server.WorkingDirectory) {
		c.Server.WorkingDirectory = filepath.Join(baseDir, c.Server.WorkingDirectory)
	}
}

// ApplyEnvironment applies environment overrides; lookup is usually os.LookupEnv.
func (c *ProbeConfig) ApplyEnvironment(lookup func(string) (string, bool)) error {
	if value, ok := lookup(PortEnvVar); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return errors.NewValidationError("invalid "+PortEnvVar+" value: "+value, err)
		}
		c.Target.Port = port
	}
	return nil
}

// BaseURL is the scheme and authority shared by both checks.
func (c *ProbeConfig) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Target.Host, strconv.Itoa(c.Target.Port))
}
