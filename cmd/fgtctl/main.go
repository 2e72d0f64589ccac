package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fortitools/fgtctl/pkg/fgtctl/client"
	fgtcmd "github.com/fortitools/fgtctl/pkg/fgtctl/cmd"
)

const (
	exitOK         = 0
	exitValidation = 1
	exitRemote     = 2
	exitInterrupt  = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := fgtcmd.NewRootCommand(fgtcmd.DefaultConfig())
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintln(os.Stderr, "Operation cancelled by user")
		return exitInterrupt
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps the error taxonomy to process exit codes: remote or
// transport failures are 2, everything else (validation, bad flags) is 1.
func exitCode(err error) int {
	var httpErr *client.HTTPError
	var authErr *client.AuthError
	var transportErr *client.TransportError
	if errors.As(err, &httpErr) || errors.As(err, &authErr) || errors.As(err, &transportErr) {
		return exitRemote
	}
	return exitValidation
}
