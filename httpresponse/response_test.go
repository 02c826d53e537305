package httpresponse

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestResponseSimpleJSON(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})

	if err := r.Json(map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("Json: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Status: 200 OK\r\n") {
		t.Fatalf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, "Content-Type: application/json; charset=utf-8\r\n") {
		t.Fatalf("missing content type:\n%s", out)
	}
	if !strings.Contains(out, "Content-Length: 16\r\n") {
		t.Fatalf("missing content length:\n%s", out)
	}
	if !strings.HasSuffix(out, `{"message":"hi"}`) {
		t.Fatalf("unexpected body tail:\n%s", out)
	}
}

func TestResponseRedirectDefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.Redirect("/new"); err != nil {
		t.Fatalf("Redirect: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Status: 302 Found\r\n") {
		t.Fatalf("unexpected status:\n%s", out)
	}
	if !strings.Contains(out, "Location: /new\r\n") {
		t.Fatalf("missing Location:\n%s", out)
	}
}

func TestResponseRedirectOverrideStatus(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.Redirect("/new", 301); err != nil {
		t.Fatalf("Redirect: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Status: 301 Moved Permanently\r\n") {
		t.Fatalf("unexpected status:\n%s", out)
	}
}

func TestResponseHeadersSentAfterMutationFails(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if _, err := r.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := r.Status(500); !errors.Is(err, ErrHeadersSent) {
		t.Fatalf("Status after write = %v, want ErrHeadersSent", err)
	}
	if err := r.Header("X-Foo", "bar"); !errors.Is(err, ErrHeadersSent) {
		t.Fatalf("Header after write = %v, want ErrHeadersSent", err)
	}
}

func TestResponseEndIdempotent(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.End([]byte("body")); err != nil {
		t.Fatalf("End: %v", err)
	}
	n := buf.Len()
	if err := r.End([]byte("more")); err != nil {
		t.Fatalf("second End: %v", err)
	}
	if buf.Len() != n {
		t.Fatalf("second End wrote extra bytes: before=%d after=%d", n, buf.Len())
	}
}

func TestResponseWriteAfterFinishFails(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := r.Write([]byte("x")); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("Write after End = %v, want ErrAlreadyFinished", err)
	}
}

func TestResponseCookieEncoding(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.Cookie("session", "abc=def=ghi", CookieOptions{}); err != nil {
		t.Fatalf("Cookie: %v", err)
	}
	if err := r.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if !strings.Contains(buf.String(), "Set-Cookie: session=abc%3Ddef%3Dghi\r\n") {
		t.Fatalf("missing cookie line:\n%s", buf.String())
	}
}

func TestResponseClearCookie(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.ClearCookie("session", CookieOptions{}); err != nil {
		t.Fatalf("ClearCookie: %v", err)
	}
	if err := r.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if !strings.Contains(buf.String(), "Set-Cookie: session=; Expires=Thu, 01 Jan 1970 00:00:00 GMT\r\n") {
		t.Fatalf("unexpected clear-cookie line:\n%s", buf.String())
	}
}

func TestResponseSendString(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Content-Type: text/html; charset=utf-8\r\n") {
		t.Fatalf("missing default content type:\n%s", out)
	}
	if !strings.HasSuffix(out, "hello") {
		t.Fatalf("missing body:\n%s", out)
	}
}

func TestResponseSendBytesDefaultsOctetStream(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.Send([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "Content-Type: application/octet-stream\r\n") {
		t.Fatalf("missing default content type:\n%s", buf.String())
	}
}

func TestResponseSendNilEndsEmpty(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	if err := r.Send(nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !r.Finished() {
		t.Fatalf("expected response finished")
	}
}

func TestResponseDeterministicSerialization(t *testing.T) {
	build := func() string {
		var buf bytes.Buffer
		r := New(WriterSink{W: &buf})
		r.Header("X-A", "1")
		r.Header("X-B", "2")
		r.Cookie("c", "v", CookieOptions{})
		r.End([]byte("body"))
		return buf.String()
	}
	a := build()
	b := build()
	if a != b {
		t.Fatalf("serialization not deterministic:\n%q\nvs\n%q", a, b)
	}
}

func TestResponseUnknownStatusReason(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	r.Status(418)
	r.End()
	if !strings.Contains(buf.String(), "Status: 418 Unknown\r\n") {
		t.Fatalf("expected Unknown reason:\n%s", buf.String())
	}
}

func TestResponseHeaderMapDeterministicOrder(t *testing.T) {
	m := map[string]string{
		"X-Zeta":  "1",
		"X-Alpha": "2",
		"X-Mu":    "3",
		"X-Beta":  "4",
	}
	build := func() string {
		var buf bytes.Buffer
		r := New(WriterSink{W: &buf})
		if err := r.HeaderMap(m); err != nil {
			t.Fatalf("HeaderMap: %v", err)
		}
		r.End()
		return buf.String()
	}
	want := build()
	for i := 0; i < 10; i++ {
		if got := build(); got != want {
			t.Fatalf("HeaderMap serialization not deterministic:\n%q\nvs\n%q", got, want)
		}
	}
	if !strings.Contains(want, "X-Alpha: 2\r\nX-Beta: 4\r\nX-Mu: 3\r\nX-Zeta: 1\r\n") {
		t.Fatalf("expected sorted header order:\n%s", want)
	}
}

func TestResponseHeaderMapFailsAfterHeadersSent(t *testing.T) {
	var buf bytes.Buffer
	r := New(WriterSink{W: &buf})
	r.Write([]byte("x"))
	if err := r.HeaderMap(map[string]string{"X-A": "1"}); !errors.Is(err, ErrHeadersSent) {
		t.Fatalf("HeaderMap err = %v, want ErrHeadersSent", err)
	}
}
