// Package httpresponse implements the Response Encoder shared by both
// transports, per spec.md §4.5: a mutable response accumulator whose
// serialized byte stream (status line, headers, Set-Cookie lines, blank
// separator, body) is produced the same way whether it ends up on
// standard output (CGI) or framed into FastCGI records. The difference
// between the two transports is confined to the Sink each Response
// writes through.
package httpresponse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrHeadersSent is returned by Status/Header/ContentType/Cookie once the
// header block has already been serialized, per spec.md §4.5/§7.
var ErrHeadersSent = errors.New("httpresponse: headers already sent")

// ErrAlreadyFinished is returned by Write/End once the response has been
// finished, per spec.md §4.5/§7.
var ErrAlreadyFinished = errors.New("httpresponse: response already finished")

// Sink is the transport-specific byte destination for a Response. The
// CGI driver's sink writes straight to standard output; the FastCGI
// engine's sink frames every write into STDOUT records and, on Close,
// emits the empty terminator record plus END_REQUEST (spec.md §4.5's
// "FastCGI envelope").
type Sink interface {
	io.Writer
	Close() error
}

// Response is the application-facing response accumulator described in
// spec.md §3.
type Response struct {
	status       int
	headers      *headers
	cookies      []cookie
	sink         Sink
	headersSent  bool
	finished     bool
	bytesWritten int
}

// New returns a Response with status 200 and no headers, writing through
// sink once headers are flushed.
func New(sink Sink) *Response {
	return &Response{status: 200, headers: newHeaders(), sink: sink}
}

// Status sets the response status code. Fails with ErrHeadersSent once
// headers have been serialized.
func (r *Response) Status(code int) error {
	if r.headersSent {
		return ErrHeadersSent
	}
	r.status = code
	return nil
}

// Header sets a single header, overwriting any prior value under the
// same (canonicalized) name.
func (r *Response) Header(name, value string) error {
	if r.headersSent {
		return ErrHeadersSent
	}
	r.headers.Set(name, value)
	return nil
}

// AddHeader appends an additional value under name without clearing
// existing ones, used for genuinely multi-valued headers.
func (r *Response) AddHeader(name, value string) error {
	if r.headersSent {
		return ErrHeadersSent
	}
	r.headers.Add(name, value)
	return nil
}

// HeaderMap sets every entry of m as a header, per spec.md §4.5's
// "header(map) — sets... many".
func (r *Response) HeaderMap(m map[string]string) error {
	if r.headersSent {
		return ErrHeadersSent
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.headers.Set(name, m[name])
	}
	return nil
}

// ContentType sets the Content-Type header, resolving the shorthand keys
// (html, text, json, xml, css, js) from spec.md §4.5, or using key
// verbatim if it isn't one of them.
func (r *Response) ContentType(key string) error {
	return r.Header("Content-Type", resolveContentType(key))
}

// Cookie appends a Set-Cookie line, per spec.md §4.5.
func (r *Response) Cookie(name, value string, opts CookieOptions) error {
	if r.headersSent {
		return ErrHeadersSent
	}
	r.cookies = append(r.cookies, cookie{name: name, value: value, opts: opts})
	return nil
}

// ClearCookie appends a Set-Cookie line that expires name immediately,
// per spec.md §4.5.
func (r *Response) ClearCookie(name string, opts CookieOptions) error {
	opts = opts.WithExpires(epoch)
	return r.Cookie(name, "", opts)
}

// Write appends body bytes, flushing the header block on the first call.
// Fails with ErrAlreadyFinished once End has been called.
func (r *Response) Write(chunk []byte) (int, error) {
	if r.finished {
		return 0, ErrAlreadyFinished
	}
	if err := r.flushHeaders(); err != nil {
		return 0, err
	}
	n, err := r.sink.Write(chunk)
	r.bytesWritten += n
	return n, err
}

// WriteString is a convenience wrapper around Write for string chunks.
func (r *Response) WriteString(chunk string) (int, error) {
	return r.Write([]byte(chunk))
}

// End ensures headers have been serialized, writes any trailing chunks,
// and marks the response finished. End is idempotent: once finished,
// further calls are no-ops that return nil, matching spec.md §3/§8.
func (r *Response) End(chunks ...[]byte) error {
	if r.finished {
		return nil
	}
	if err := r.flushHeaders(); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		n, err := r.sink.Write(chunk)
		r.bytesWritten += n
		if err != nil {
			return err
		}
	}
	r.finished = true
	return r.sink.Close()
}

// Finished reports whether End has completed.
func (r *Response) Finished() bool {
	return r.finished
}

// HeadersSent reports whether the header block has been serialized.
func (r *Response) HeadersSent() bool {
	return r.headersSent
}

// StatusCode reports the status that was or will be sent, useful for
// access logging once the response is finished.
func (r *Response) StatusCode() int {
	return r.status
}

// BytesWritten reports the number of body bytes written through the
// sink so far (excluding the header block), useful for access logging.
func (r *Response) BytesWritten() int {
	return r.bytesWritten
}

// Send dispatches on the dynamic type of body per spec.md §4.5: nil ends
// the response with no body; a string defaults Content-Type to html and
// ends; a []byte defaults Content-Type to application/octet-stream and
// ends; anything else is serialized as JSON via Json.
func (r *Response) Send(body interface{}) error {
	switch v := body.(type) {
	case nil:
		return r.End()
	case string:
		if _, ok := r.headers.Get("Content-Type"); !ok {
			if err := r.ContentType("html"); err != nil {
				return err
			}
		}
		return r.End([]byte(v))
	case []byte:
		if _, ok := r.headers.Get("Content-Type"); !ok {
			if err := r.Header("Content-Type", "application/octet-stream"); err != nil {
				return err
			}
		}
		return r.End(v)
	default:
		return r.Json(v)
	}
}

// Json serializes value, sets Content-Type to json and Content-Length to
// the body's byte length, and ends the response, per spec.md §4.5.
func (r *Response) Json(value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.ContentType("json"); err != nil {
		return err
	}
	if err := r.Header("Content-Length", fmt.Sprintf("%d", len(body))); err != nil {
		return err
	}
	return r.End(body)
}

// Redirect sets status (default 302), sets Location, and ends the
// response with no body, per spec.md §4.5.
func (r *Response) Redirect(url string, code ...int) error {
	status := 302
	if len(code) > 0 {
		status = code[0]
	}
	if err := r.Status(status); err != nil {
		return err
	}
	if err := r.Header("Location", url); err != nil {
		return err
	}
	return r.End()
}

func (r *Response) flushHeaders() error {
	if r.headersSent {
		return nil
	}
	r.headersSent = true
	_, err := r.sink.Write(r.headerBlock())
	return err
}

// headerBlock serializes the status line, headers, and Set-Cookie lines
// followed by the blank separator, per spec.md §4.5/§6.
func (r *Response) headerBlock() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Status: %d %s\r\n", r.status, ReasonPhrase(r.status))
	r.headers.each(func(name, value string) {
		fmt.Fprintf(&b, "%s: %s\r\n", name, value)
	})
	for _, c := range r.cookies {
		fmt.Fprintf(&b, "Set-Cookie: %s\r\n", c.encode())
	}
	b.WriteString("\r\n")
	return b.Bytes()
}
