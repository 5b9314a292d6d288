package probe

import (
	"fmt"
	"io"

	"github.com/core-tools/hsu-probe/pkg/errors"
)

const (
	outputHeader = "--- server output ---"
	outputFooter = "---------------------"
)

// WriteReport prints the failure diagnostic and the captured server output.
// On success nothing is written unless alwaysShowOutput is set and the server
// produced output. The output block is omitted when the server never started.
func WriteReport(w io.Writer, result *Result, alwaysShowOutput bool) {
	if !result.Passed() {
		fmt.Fprintf(w, "FAILED: %s\n", diagnostic(result.Err))
	} else if !alwaysShowOutput || len(result.Output) == 0 {
		return
	}
	if result.Pid == 0 {
		return
	}

	if result.TeardownErr != nil {
		fmt.Fprintf(w, "teardown warning: %v\n", result.TeardownErr)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, outputHeader)
	if len(result.Output) > 0 {
		_, _ = w.Write(result.Output)
		if result.Output[len(result.Output)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w, outputFooter)
}

func diagnostic(err error) string {
	if domainErr, ok := err.(*errors.DomainError); ok {
		return domainErr.Diagnostic()
	}
	return err.Error()
}
