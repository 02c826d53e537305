// Package serve implements the "serve" action of the fastcgi-run command
// (main.go): it
// starts the FastCGI engine (fastcgi.Server) listening on a TCP port or
// Unix domain socket and dispatches every request to the echo Responder,
// per SPEC_FULL.md §C.1/§C.5.
package serve

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/go-logr/stdr"
	"github.com/spf13/pflag"

	"fastcgi/examples/echo"
	"fastcgi/fastcgi"
)

const Action = "serve"

func Run(args []string) error {
	cwd, _ := os.Getwd()
	network := "tcp"
	address := "127.0.0.1:9000"
	documentRoot := cwd
	maxConns := 100
	maxReqs := 100
	verbose := false

	fs := pflag.NewFlagSet(Action, pflag.ContinueOnError)
	fs.StringVar(&network, "network", network, `listener network, "tcp" or "unix"`)
	fs.StringVar(&address, "address", address, "TCP address or Unix socket path to listen on")
	fs.StringVar(&documentRoot, "document-root", documentRoot, "directory the echo Responder serves static files from")
	fs.IntVar(&maxConns, "max-conns", maxConns, "maximum simultaneously accepted connections")
	fs.IntVar(&maxReqs, "max-reqs", maxReqs, "advisory FCGI_MAX_REQS reported over GET_VALUES")
	fs.BoolVar(&verbose, "verbose", verbose, "enable verbose (V(1)) logging")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("cannot parse argument: %w", err)
	}

	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	if verbose {
		stdr.SetVerbosity(1)
	}

	srv := fastcgi.New(fastcgi.Options{
		MaxConns: maxConns,
		MaxReqs:  maxReqs,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(network, address, echo.Handler(documentRoot))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}
