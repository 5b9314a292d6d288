package probe

import (
	"bytes"
	"testing"

	"github.com/core-tools/hsu-probe/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestWriteReport(t *testing.T) {
	readinessErr := errors.NewReadinessTimeoutError("server did not respond 200 on /", nil).
		WithContext("attempts", 80)

	tests := []struct {
		name             string
		result           *Result
		alwaysShowOutput bool
		expected         string
	}{
		{
			name:     "success_is_quiet",
			result:   &Result{Output: []byte("started\n")},
			expected: "",
		},
		{
			name:             "success_with_output_requested",
			result:           &Result{Pid: 100, Output: []byte("started\n")},
			alwaysShowOutput: true,
			expected:         "\n--- server output ---\nstarted\n---------------------\n",
		},
		{
			name:             "success_without_output",
			result:           &Result{},
			alwaysShowOutput: true,
			expected:         "",
		},
		{
			name:   "failure_with_output",
			result: &Result{Err: readinessErr, Pid: 100, Output: []byte("booting")},
			expected: "FAILED: readiness_timeout: server did not respond 200 on /\n  attempts=80\n" +
				"\n--- server output ---\nbooting\n---------------------\n",
		},
		{
			name:   "failure_without_output",
			result: &Result{Err: errors.NewHandshakeError("/sse status 404", nil), Pid: 100},
			expected: "FAILED: handshake: /sse status 404\n" +
				"\n--- server output ---\n---------------------\n",
		},
		{
			name: "failure_with_teardown_warning",
			result: &Result{
				Err:         errors.NewHandshakeError("/sse status 500", nil),
				Pid:         100,
				TeardownErr: errors.NewTeardownWarning("process ignored interrupt and was killed", nil),
			},
			expected: "FAILED: handshake: /sse status 500\n" +
				"teardown warning: teardown: process ignored interrupt and was killed\n" +
				"\n--- server output ---\n---------------------\n",
		},
		{
			name:     "launch_failure_has_no_output_block",
			result:   &Result{Err: errors.NewLaunchError("executable not found", nil)},
			expected: "FAILED: launch: executable not found\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WriteReport(&buf, tt.result, tt.alwaysShowOutput)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestResult_Checks(t *testing.T) {
	result := &Result{}
	result.record(CheckReadiness, nil, 0)
	result.record(CheckHandshake, errors.NewHandshakeError("bad", nil), 0)

	readiness, ok := result.Check(CheckReadiness)
	assert.True(t, ok)
	assert.True(t, readiness.Passed)
	assert.Equal(t, "OK", readiness.Message)

	handshake, ok := result.Check(CheckHandshake)
	assert.True(t, ok)
	assert.False(t, handshake.Passed)
	assert.Equal(t, "handshake: bad", handshake.Message)

	assert.True(t, result.Passed())
	result.Err = errors.NewHandshakeError("bad", nil)
	assert.False(t, result.Passed())
	assert.Equal(t, errors.ErrorTypeHandshake, result.FailureType())
}
