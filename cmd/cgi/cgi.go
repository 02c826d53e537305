// Package cgi implements the "cgi" action of the fastcgi-run command
// (main.go): one
// invocation of the CGI One-Shot Driver against the real process
// environment and standard streams, dispatching to the same echo
// Responder used by the "serve" action.
package cgi

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	fcgidriver "fastcgi/cgi"
	"fastcgi/examples/echo"
)

const Action = "cgi"

func Run(args []string) error {
	cwd, _ := os.Getwd()
	documentRoot := cwd

	fs := pflag.NewFlagSet(Action, pflag.ContinueOnError)
	fs.StringVar(&documentRoot, "document-root", documentRoot, "directory the echo Responder serves static files from")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("cannot parse argument: %w", err)
	}

	return fcgidriver.New().Run(context.Background(), echo.Handler(documentRoot))
}
