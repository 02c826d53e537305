// Package cgi implements the CGI One-Shot Driver of spec.md §4.8: it
// reads the process environment and standard input, builds a request via
// the CGI Environment Decoder, invokes the application callback under the
// Handler Invocation Glue, and flushes the Response Encoder to standard
// output before returning. One process handles exactly one request.
package cgi

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/go-logr/logr"

	"fastcgi/cgienv"
	"fastcgi/handlerglue"
	"fastcgi/httpresponse"
)

// Driver runs one CGI invocation against the ambient process environment
// and standard streams. Environ, Stdin, and Stdout default to the real
// process environment and streams; tests override them to drive the
// driver without touching the actual process.
type Driver struct {
	Environ func() []string
	Stdin   io.Reader
	Stdout  io.Writer
	Log     logr.Logger
}

// New returns a Driver wired to the real process environment and standard
// streams, per spec.md §4.8.
func New() *Driver {
	return &Driver{
		Environ: os.Environ,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
	}
}

// Run reads the request, invokes handler exactly once under the Handler
// Invocation Glue, and flushes the response before returning.
func (d *Driver) Run(ctx context.Context, handler handlerglue.Func) error {
	params := environToParams(d.Environ())

	body, err := d.readBody(params)
	if err != nil {
		return err
	}

	req := cgienv.Decode(params, body)
	if req.RemoteAddr == "" {
		req.RemoteAddr = params["REMOTE_ADDR"]
	}

	res := httpresponse.New(httpresponse.WriterSink{W: d.Stdout})
	handlerglue.Invoke(ctx, handler, req, res, d.Log)
	return nil
}

// readBody reads up to CONTENT_LENGTH bytes from stdin, per spec.md §4.8;
// a missing or non-numeric CONTENT_LENGTH means no body is read. If stdin
// ends early, it returns what was read rather than a zero-padded buffer.
func (d *Driver) readBody(params map[string]string) ([]byte, error) {
	want, err := strconv.Atoi(params["CONTENT_LENGTH"])
	if err != nil || want <= 0 {
		return nil, nil
	}
	body := make([]byte, want)
	got, err := io.ReadFull(d.Stdin, body)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return body[:got], nil
}

// environToParams flattens the process environment into the same flat
// name/value map a FastCGI PARAMS stream carries, so cgienv.Decode never
// needs to know which transport produced it.
func environToParams(environ []string) map[string]string {
	params := make(map[string]string, len(environ))
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				params[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return params
}
