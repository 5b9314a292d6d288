// Package stubserver is a stand-in for the real server under probe: a plain
// health endpoint plus a streaming endpoint that sends headers and then holds
// the connection open.
package stubserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	ModeServe = "serve"
	ModeExit  = "exit"

	DefaultHealthBody = "MCP server running"
)

type Options struct {
	Host              string
	Port              int
	StartupDelay      time.Duration
	HealthBody        string
	StreamContentType string
	// ModeExit returns from Run immediately without listening.
	Mode   string
	Stdout io.Writer
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = "127.0.0.1"
	}
	if o.HealthBody == "" {
		o.HealthBody = DefaultHealthBody
	}
	if o.StreamContentType == "" {
		o.StreamContentType = "text/event-stream"
	}
	if o.Mode == "" {
		o.Mode = ModeServe
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// NewHandler serves GET / with the health body and GET /sse as a stream.
func NewHandler(options Options) http.Handler {
	options = options.withDefaults()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, options.HealthBody)
	})
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", options.StreamContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		<-r.Context().Done()
	})
	return mux
}

// Run waits StartupDelay, then serves NewHandler on Host:Port until ctx is done.
func Run(ctx context.Context, options Options) error {
	options = options.withDefaults()

	if options.Mode == ModeExit {
		fmt.Fprintln(options.Stdout, "stub server exiting without listening")
		return nil
	}
	if options.Mode != ModeServe {
		return fmt.Errorf("unknown stub server mode: %s", options.Mode)
	}

	if options.StartupDelay > 0 {
		timer := time.NewTimer(options.StartupDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}

	address := net.JoinHostPort(options.Host, strconv.Itoa(options.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler:           NewHandler(options),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(options.Stdout, "%s on http://%s\n", options.HealthBody, listener.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(options.Stdout, "stub server stopping")
	// Close instead of Shutdown: open streams never become idle.
	if err := server.Close(); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
