// Package cgienv implements the CGI Environment Decoder: it turns a flat
// parameter map (as carried by CGI process environment variables or by a
// FastCGI PARAMS stream) plus a body byte stream into a structured
// Request, per spec.md §4.4. It is shared by both transports.
package cgienv

import (
	"strings"
)

// Request is the application-facing request, derived from a parameter
// map and body bytes per spec.md §3.
type Request struct {
	Method      string
	URI         string
	Path        string
	Query       Query
	Headers     map[string]string
	Cookies     map[string]string
	Body        interface{}
	RawBody     []byte
	ContentType string
	RemoteAddr  string
	URL         string
}

// bodyMethods are the methods for which the decoder reads and parses a
// body, per spec.md §4.4.
var bodyMethods = map[string]bool{
	"POST":  true,
	"PUT":   true,
	"PATCH": true,
}

// Decode builds a Request from params and an already-read body. The
// caller is responsible for limiting the read to CONTENT_LENGTH bytes
// (or less, if the stream ended early) per spec.md §4.4 — FastCGI
// already hands over the full accumulated STDIN stream, and the CGI
// One-Shot Driver reads exactly CONTENT_LENGTH bytes from stdin before
// calling Decode.
func Decode(params map[string]string, body []byte) *Request {
	req := &Request{
		Headers: map[string]string{},
	}

	req.Method = params["REQUEST_METHOD"]
	if req.Method == "" {
		req.Method = "GET"
	}
	req.Method = strings.ToUpper(req.Method)

	req.URI = firstNonEmpty(params["REQUEST_URI"], params["SCRIPT_NAME"], "/")
	req.Path = stripQuery(req.URI)
	req.Query = DecodeQuery(params["QUERY_STRING"])

	for key, value := range params {
		switch {
		case strings.HasPrefix(key, "HTTP_"):
			req.Headers[headerName(key)] = value
		case key == "CONTENT_TYPE":
			req.Headers["content-type"] = value
		case key == "CONTENT_LENGTH":
			req.Headers["content-length"] = value
		}
	}
	req.ContentType = req.Headers["content-type"]
	req.Cookies = DecodeCookies(req.Headers["cookie"])
	req.RemoteAddr = params["REMOTE_ADDR"]
	req.URL = synthesizeURL(params, req.URI)

	if bodyMethods[req.Method] {
		req.RawBody = body
		req.Body = decodeBody(req.ContentType, body)
	} else {
		req.RawBody = []byte{}
		req.Body = nil
	}

	return req
}

// headerName converts an HTTP_FOO_BAR parameter name to the canonical
// header form "foo-bar", per spec.md §3.
func headerName(paramName string) string {
	suffix := paramName[len("HTTP_"):]
	return strings.ToLower(strings.ReplaceAll(suffix, "_", "-"))
}

func stripQuery(uri string) string {
	path, _ := splitOnce(uri, '?')
	return path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// synthesizeURL builds the request URL per spec.md §4.4: scheme is https
// iff HTTPS == "on" (case-insensitive); host is the Host header, else
// SERVER_NAME, else "localhost"; path is uri, else SCRIPT_NAME, else "/".
func synthesizeURL(params map[string]string, uri string) string {
	scheme := "http"
	if strings.EqualFold(params["HTTPS"], "on") {
		scheme = "https"
	}
	host := firstNonEmpty(hostHeaderValue(params), params["SERVER_NAME"], "localhost")
	path := firstNonEmpty(uri, params["SCRIPT_NAME"], "/")
	return scheme + "://" + host + path
}

func hostHeaderValue(params map[string]string) string {
	return params["HTTP_HOST"]
}
