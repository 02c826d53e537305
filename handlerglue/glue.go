// Package handlerglue implements the Handler Invocation Glue of
// spec.md §4.9: it wraps the application callback with a single
// uncaught-failure guard and an "ensure response ended" post-condition,
// so a panicking or forgetful handler can never leave a connection
// hanging or crash the process, per spec.md §7's HANDLER_FAILURE.
package handlerglue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"fastcgi/cgienv"
	"fastcgi/httpresponse"
)

// Func is the application callback shape shared by the FastCGI engine
// and the CGI One-Shot Driver.
type Func func(ctx context.Context, req *cgienv.Request, res *httpresponse.Response)

// Invoke runs fn under the Handler Invocation Glue's two post-conditions,
// per spec.md §4.9:
//
//   - if fn panics (or would otherwise leave an uncaught failure) and
//     headers have not been sent, the response becomes a 500 with
//     Content-Type text and a body naming the failure; the failure is
//     logged to the diagnostic stream.
//   - if fn returns without ending the response, End is called on it.
func Invoke(ctx context.Context, fn Func, req *cgienv.Request, res *httpresponse.Response, log logr.Logger) {
	startedAt := time.Now()
	defer func() {
		if r := recover(); r != nil {
			handleFailure(res, log, fmt.Errorf("panic: %v", r))
		} else {
			ensureEnded(res)
		}
		logAccess(log, req, res, time.Since(startedAt))
	}()
	fn(ctx, req, res)
}

// logAccess emits one structured line per completed request, the way
// the teacher's HandleWithLogAndError does for its PHP-FPM proxy — but
// to the diagnostic logger rather than stdout, since stdout is the
// response channel for both transports here.
func logAccess(log logr.Logger, req *cgienv.Request, res *httpresponse.Response, elapsed time.Duration) {
	log.Info("request completed",
		"method", req.Method,
		"path", req.Path,
		"status", res.StatusCode(),
		"bytes", res.BytesWritten(),
		"elapsed", elapsed.String(),
	)
}

func handleFailure(res *httpresponse.Response, log logr.Logger, err error) {
	log.Error(err, "handler failed")
	if !res.HeadersSent() {
		res.Status(500)
		res.ContentType("text")
		res.End([]byte("Internal Server Error: " + err.Error()))
		return
	}
	ensureEnded(res)
}

func ensureEnded(res *httpresponse.Response) {
	if !res.Finished() {
		res.End()
	}
}
