package stubserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler_Routes(t *testing.T) {
	handler := NewHandler(Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultHealthBody, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewHandler_StreamHoldsConnection(t *testing.T) {
	server := httptest.NewServer(NewHandler(Options{StreamContentType: "text/event-stream; charset=utf-8"}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream; charset=utf-8", resp.Header.Get("Content-Type"))

	readDone := make(chan struct{})
	go func() {
		_, _ = io.ReadAll(resp.Body)
		close(readDone)
	}()

	select {
	case <-readDone:
		t.Fatal("stream body ended while the client was still connected")
	case <-time.After(200 * time.Millisecond):
	}
	cancel()
	<-readDone
}

func TestRun_ServesAfterStartupDelayUntilCancelled(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	var stdout bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	start := time.Now()
	go func() {
		runDone <- Run(ctx, Options{Port: port, StartupDelay: 200 * time.Millisecond, Stdout: &stdout})
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	cancel()
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_ExitMode(t *testing.T) {
	var stdout bytes.Buffer
	err := Run(context.Background(), Options{Mode: ModeExit, Stdout: &stdout})
	assert.NoError(t, err)
	assert.Contains(t, stdout.String(), "exiting")

	assert.Error(t, Run(context.Background(), Options{Mode: "bogus", Stdout: &stdout}))
}
