// Command xsr sends one cross-origin script request and prints the
// transformed result as JSON.
//
//	xsr --url https://api.example.test/search --data q=gopher --transform json
//
// Settings not given as flags come from the config file and XSR_*
// environment variables. The exit status is non-zero when the request
// fails, times out or is interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, ferr.Message)
			return
		}
		slog.Error("xsr failed", "error", err)
		os.Exit(1)
	}
}
