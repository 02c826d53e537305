package httpresponse

import "io"

// WriterSink adapts a plain io.Writer into a Sink that does nothing on
// Close, used by the CGI One-Shot Driver where the response bytes go
// straight to standard output and there is no record framing or
// END_REQUEST to emit.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(p []byte) (int, error) { return s.W.Write(p) }

func (s WriterSink) Close() error { return nil }
