// Package fastcgi implements the FastCGI protocol engine of spec.md §2:
// the Connection Handler (record dispatch and multiplexing) and the
// Server Core (listening, accepting, enforcing limits, shutdown) that
// sit on top of the Frame Codec (internal/wire), the Request Assembler
// (internal/assembler), the CGI Environment Decoder (cgienv), and the
// Response Encoder (httpresponse).
package fastcgi

import "fastcgi/handlerglue"

// Handler is the application callback invoked once per dispatched
// request, per spec.md §2/§9. It receives the decoded Request and a
// Response it must eventually End (directly or via Send/Json/Redirect).
// ctx is canceled if the underlying connection goes away while the
// handler is still running. Handler is the same shape the CGI One-Shot
// Driver uses, per spec.md §9's "both variants implement the same
// capability set".
type Handler = handlerglue.Func
