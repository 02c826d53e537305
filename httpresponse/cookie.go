package httpresponse

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CookieOptions holds the recognized Set-Cookie attributes from
// spec.md §4.5.
type CookieOptions struct {
	MaxAge   int // seconds; zero means unset
	Expires  time.Time
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite string

	hasMaxAge  bool
	hasExpires bool
}

// WithMaxAge sets Max-Age in seconds.
func (o CookieOptions) WithMaxAge(seconds int) CookieOptions {
	o.MaxAge = seconds
	o.hasMaxAge = true
	return o
}

// WithExpires sets the Expires attribute.
func (o CookieOptions) WithExpires(t time.Time) CookieOptions {
	o.Expires = t
	o.hasExpires = true
	return o
}

type cookie struct {
	name  string
	value string
	opts  CookieOptions
}

// encode builds the Set-Cookie value: "<percent-encoded name>=<percent-encoded
// value>" plus any of {Max-Age, Expires, Path, Domain, Secure, HttpOnly,
// SameSite} attributes present in opts, per spec.md §4.5.
func (c cookie) encode() string {
	var b strings.Builder
	b.WriteString(url.QueryEscape(c.name))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(c.value))

	if c.opts.hasMaxAge || c.opts.MaxAge != 0 {
		fmt.Fprintf(&b, "; Max-Age=%d", c.opts.MaxAge)
	}
	if c.opts.hasExpires {
		fmt.Fprintf(&b, "; Expires=%s", c.opts.Expires.UTC().Format(http1123))
	}
	if c.opts.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", c.opts.Path)
	}
	if c.opts.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", c.opts.Domain)
	}
	if c.opts.Secure {
		b.WriteString("; Secure")
	}
	if c.opts.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if c.opts.SameSite != "" {
		fmt.Fprintf(&b, "; SameSite=%s", c.opts.SameSite)
	}
	return b.String()
}

// http1123 matches the HTTP-date format used by Set-Cookie's Expires
// attribute (RFC 7231 §7.1.1.1).
const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// epoch is used by ClearCookie to force immediate expiry.
var epoch = time.Unix(0, 0)
