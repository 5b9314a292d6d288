package monitoring

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/logging"
)

const MediaTypeEventStream = "text/event-stream"

type HandshakeOptions struct {
	Path      string        `yaml:"path"`
	MediaType string        `yaml:"media_type,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// VerifyStream sends a single GET to baseURL+options.Path accepting
// options.MediaType and checks the status line and Content-Type header. The
// response body is never read: a streaming server may keep it open forever.
// Options.Timeout bounds connecting and receiving the headers only.
func VerifyStream(ctx context.Context, baseURL string, options HandshakeOptions, logger logging.Logger) error {
	if err := ValidateHandshakeOptions(options); err != nil {
		return errors.NewValidationError("invalid handshake options", err)
	}

	url := baseURL + options.Path
	transport := &http.Transport{
		DisableKeepAlives:     true,
		DialContext:           (&net.Dialer{Timeout: options.Timeout}).DialContext,
		ResponseHeaderTimeout: options.Timeout,
	}
	client := &http.Client{Transport: transport}
	defer transport.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewHandshakeError("failed to create request", err).WithContext("url", url)
	}
	req.Header.Set("Accept", options.MediaType)

	logger.Infof("Verifying stream handshake, url: %s, accept: %s", url, options.MediaType)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelledError("stream handshake cancelled", ctx.Err()).WithContext("url", url)
		}
		return errors.NewHandshakeError("stream request failed", err).WithContext("url", url)
	}
	// Closing an unread body drops the connection instead of draining it.
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	logger.Debugf("Stream handshake response, url: %s, status: %d, content type: %q", url, resp.StatusCode, contentType)

	if resp.StatusCode != http.StatusOK {
		return errors.NewHandshakeError(fmt.Sprintf("%s status %d", options.Path, resp.StatusCode), nil).
			WithContext("url", url).
			WithContext("status", resp.StatusCode).
			WithContext("content_type", contentType)
	}

	if !strings.Contains(strings.ToLower(contentType), strings.ToLower(options.MediaType)) {
		return errors.NewHandshakeError(fmt.Sprintf("unexpected Content-Type: %q", contentType), nil).
			WithContext("url", url).
			WithContext("status", resp.StatusCode).
			WithContext("content_type", contentType).
			WithContext("expected_media_type", options.MediaType)
	}

	logger.Infof("Stream handshake verified, url: %s, content type: %s", url, contentType)
	return nil
}
