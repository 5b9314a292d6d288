package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/core-tools/hsu-probe/pkg/stubserver"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Port         int           `long:"port" env:"MCP_PORT" default:"3001" description:"Port to listen on"`
	StartupDelay time.Duration `long:"startup-delay" description:"Wait this long before listening (debug feature)"`
	HealthBody   string        `long:"health-body" description:"Body served on /"`
	ContentType  string        `long:"content-type" description:"Content-Type served on /sse"`
	Mode         string        `long:"mode" choice:"serve" choice:"exit" default:"serve" description:"exit quits without listening"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running stub server, opts: %+v...\n", opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Enable signal handling
	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}
	go func() {
		receivedSignal := <-sig
		fmt.Printf("Stub server received signal: %v\n", receivedSignal)
		cancel()
	}()

	err = stubserver.Run(ctx, stubserver.Options{
		Port:              opts.Port,
		StartupDelay:      opts.StartupDelay,
		HealthBody:        opts.HealthBody,
		StreamContentType: opts.ContentType,
		Mode:              opts.Mode,
	})
	if err != nil {
		fmt.Printf("Stub server failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stub server done\n")
}
