package probe

import (
	"time"

	"github.com/core-tools/hsu-probe/pkg/errors"
)

type CheckName string

const (
	CheckReadiness CheckName = "readiness"
	CheckHandshake CheckName = "handshake"
)

// CheckResult records one probe step that actually ran.
type CheckResult struct {
	Name     CheckName
	Passed   bool
	Message  string
	Duration time.Duration
}

// Result is the outcome of one probe run. Err holds the first fatal failure;
// TeardownErr is informational and never affects Passed.
type Result struct {
	Checks      []CheckResult
	Err         error
	TeardownErr error

	Pid      int
	ExitCode int
	Output   []byte
	Duration time.Duration
}

func (r *Result) Passed() bool {
	return r.Err == nil
}

// Check returns the named check if it ran.
func (r *Result) Check(name CheckName) (CheckResult, bool) {
	for _, check := range r.Checks {
		if check.Name == name {
			return check, true
		}
	}
	return CheckResult{}, false
}

// FailureType is the error type of Err, or "" on success.
func (r *Result) FailureType() errors.ErrorType {
	return errors.TypeOf(r.Err)
}

func (r *Result) record(name CheckName, err error, duration time.Duration) {
	check := CheckResult{
		Name:     name,
		Passed:   err == nil,
		Message:  "OK",
		Duration: duration,
	}
	if err != nil {
		check.Message = err.Error()
	}
	r.Checks = append(r.Checks, check)
}
