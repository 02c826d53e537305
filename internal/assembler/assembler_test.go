package assembler

import (
	"testing"

	"fastcgi/internal/wire"
)

func TestReadyOnlyAfterBothStreamsComplete(t *testing.T) {
	p := New(wire.RoleResponder, false)
	if p.Ready() {
		t.Fatalf("should not be ready before any records")
	}

	if err := p.FeedParams(wire.EncodePairs(map[string]string{"A": "1"})); err != nil {
		t.Fatalf("FeedParams: %v", err)
	}
	if p.Ready() {
		t.Fatalf("should not be ready with params incomplete")
	}

	if err := p.FeedParams(nil); err != nil {
		t.Fatalf("FeedParams(empty): %v", err)
	}
	if p.Ready() {
		t.Fatalf("should not be ready before stdin terminates")
	}

	if err := p.FeedStdin([]byte("body")); err != nil {
		t.Fatalf("FeedStdin: %v", err)
	}
	if p.Ready() {
		t.Fatalf("should not be ready before stdin terminates")
	}

	if err := p.FeedStdin(nil); err != nil {
		t.Fatalf("FeedStdin(empty): %v", err)
	}
	if !p.Ready() {
		t.Fatalf("expected ready once both streams terminated")
	}
	if p.Params["A"] != "1" {
		t.Fatalf("Params[A] = %q, want 1", p.Params["A"])
	}
	if string(p.Stdin) != "body" {
		t.Fatalf("Stdin = %q, want body", p.Stdin)
	}
}

func TestStdinBeforeParamsCompleteIsPermitted(t *testing.T) {
	// spec.md §4.3: a well-behaved client sends PARAMS before STDIN, but
	// the assembler does not require that ordering.
	p := New(wire.RoleResponder, false)
	if err := p.FeedStdin([]byte("early")); err != nil {
		t.Fatalf("FeedStdin: %v", err)
	}
	if err := p.FeedStdin(nil); err != nil {
		t.Fatalf("FeedStdin(empty): %v", err)
	}
	if err := p.FeedParams(nil); err != nil {
		t.Fatalf("FeedParams(empty): %v", err)
	}
	if !p.Ready() {
		t.Fatalf("expected ready despite out-of-order streams")
	}
}

func TestDispatchOnce(t *testing.T) {
	p := New(wire.RoleResponder, false)
	p.FeedParams(nil)
	p.FeedStdin(nil)
	if !p.Ready() {
		t.Fatalf("expected ready")
	}
	p.MarkDispatched()
	if p.Ready() {
		t.Fatalf("expected not ready after dispatch")
	}
	if !p.Dispatched() {
		t.Fatalf("expected Dispatched() true")
	}
}

func TestAbortDropsReadiness(t *testing.T) {
	p := New(wire.RoleResponder, false)
	p.FeedParams(nil)
	p.Abort()
	p.FeedStdin(nil)
	if p.Ready() {
		t.Fatalf("aborted request must never become ready")
	}
}

func TestFeedParamsMalformed(t *testing.T) {
	p := New(wire.RoleResponder, false)
	if err := p.FeedParams([]byte{0x80, 0x00}); err == nil {
		t.Fatalf("expected malformed params error")
	}
}
