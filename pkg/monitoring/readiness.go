package monitoring

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/logging"
)

// maxBodyBytes caps how much of a readiness response body is kept.
const maxBodyBytes = 1 << 20

type ReadinessOptions struct {
	Path           string        `yaml:"path"`
	Timeout        time.Duration `yaml:"timeout"`
	Interval       time.Duration `yaml:"interval"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// Substring the body of the first 200 response must contain; empty disables the check.
	ExpectedBody string `yaml:"expected_body,omitempty"`
	// Stop polling as soon as the server process exits instead of waiting out Timeout.
	FailFastOnExit bool `yaml:"fail_fast_on_exit,omitempty"`
}

// WaitUntilReady polls baseURL+options.Path until it answers 200 and returns
// the response body decoded as UTF-8. Transport errors and non-200 statuses
// are retried every options.Interval until options.Timeout has elapsed, then
// a readiness timeout carrying the last transport error is returned.
//
// If exited is non-nil and gets closed while polling, WaitUntilReady gives up
// with a process-exited error.
func WaitUntilReady(ctx context.Context, baseURL string, options ReadinessOptions, exited <-chan struct{}, logger logging.Logger) (string, error) {
	if err := ValidateReadinessOptions(options); err != nil {
		return "", errors.NewValidationError("invalid readiness options", err)
	}

	url := baseURL + options.Path
	client := newAttemptClient(options.AttemptTimeout)
	defer client.CloseIdleConnections()

	logger.Infof("Waiting for server readiness, url: %s, timeout: %v, interval: %v", url, options.Timeout, options.Interval)

	deadline := time.Now().Add(options.Timeout)
	var lastErr error
	lastStatus := 0
	attempt := 0

	for time.Now().Before(deadline) {
		select {
		case <-exited:
			return "", processExitedError(url, attempt, lastErr)
		default:
		}

		attempt++
		body, status, err := getOnce(ctx, client, url)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", errors.NewCancelledError("readiness polling cancelled", ctx.Err()).WithContext("url", url)
			}
			lastErr = err
			logger.Debugf("Readiness attempt %d failed, url: %s, error: %v", attempt, url, err)
		case status == http.StatusOK:
			logger.Infof("Server ready, url: %s, attempts: %d", url, attempt)
			return body, nil
		default:
			lastStatus = status
			logger.Debugf("Readiness attempt %d not ready yet, url: %s, status: %d", attempt, url, status)
		}

		wait := options.Interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", errors.NewCancelledError("readiness polling cancelled", ctx.Err()).WithContext("url", url)
		case <-exited:
			timer.Stop()
			return "", processExitedError(url, attempt, lastErr)
		}
	}

	logger.Warnf("Server did not become ready, url: %s, attempts: %d, last status: %d, last error: %v",
		url, attempt, lastStatus, lastErr)

	return "", errors.NewReadinessTimeoutError(
		fmt.Sprintf("server did not respond 200 on %s within %v", options.Path, options.Timeout), lastErr).
		WithContext("url", url).
		WithContext("attempts", attempt).
		WithContext("last_status", lastStatus)
}

func processExitedError(url string, attempt int, lastErr error) error {
	return errors.NewProcessExitedError("server process exited before becoming ready", lastErr).
		WithContext("url", url).
		WithContext("attempts", attempt)
}

// newAttemptClient returns a client that opens a fresh connection per request.
func newAttemptClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DisableKeepAlives: true,
			DialContext:       (&net.Dialer{Timeout: timeout}).DialContext,
		},
	}
}

func getOnce(ctx context.Context, client *http.Client, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", 0, err
	}
	return strings.ToValidUTF8(string(data), ""), resp.StatusCode, nil
}
