// Package assembler implements the Request Assembler state machine of
// spec.md §4.3: per (connection, request id) state that accumulates
// PARAMS and STDIN records until both streams are terminated by their
// zero-length record, at which point the request is ready for dispatch
// exactly once.
package assembler

import (
	"fastcgi/internal/wire"
)

// PendingRequest is the state accumulated for one request id on one
// connection, per spec.md §3.
type PendingRequest struct {
	Role     uint16
	KeepConn bool

	Params         map[string]string
	ParamsComplete bool

	Stdin         []byte
	StdinComplete bool

	dispatched bool
	aborted    bool
}

// New creates a PendingRequest from a BEGIN_REQUEST record's role and
// keep-connection flag.
func New(role uint16, keepConn bool) *PendingRequest {
	return &PendingRequest{
		Role:     role,
		KeepConn: keepConn,
		Params:   map[string]string{},
	}
}

// FeedParams merges a PARAMS record's content. An empty content marks
// the PARAMS stream complete, per spec.md §4.3.
func (p *PendingRequest) FeedParams(content []byte) error {
	if len(content) == 0 {
		p.ParamsComplete = true
		return nil
	}
	return wire.DecodePairsInto(p.Params, content)
}

// FeedStdin appends a STDIN record's content. An empty content marks the
// STDIN stream complete, per spec.md §4.3. Feeding STDIN after dispatch
// is a protocol error the caller must surface as UNEXPECTED_RECORD.
func (p *PendingRequest) FeedStdin(content []byte) error {
	if len(content) == 0 {
		p.StdinComplete = true
		return nil
	}
	p.Stdin = append(p.Stdin, content...)
	return nil
}

// Ready reports whether both streams are complete and the request has
// not already been dispatched, per spec.md §3's "handed to the
// application at most once" invariant.
func (p *PendingRequest) Ready() bool {
	return p.ParamsComplete && p.StdinComplete && !p.dispatched && !p.aborted
}

// Dispatched reports whether MarkDispatched has been called.
func (p *PendingRequest) Dispatched() bool {
	return p.dispatched
}

// MarkDispatched records that this request has been handed to the
// application, enforcing the at-most-once dispatch invariant.
func (p *PendingRequest) MarkDispatched() {
	p.dispatched = true
}

// Abort marks the request aborted in response to an ABORT_REQUEST
// record, per spec.md §4.3/§4.6, so it never becomes Ready. The
// accumulated Params and Stdin are left in place; dropping the request
// from its table is the caller's job.
func (p *PendingRequest) Abort() {
	p.aborted = true
}

// Aborted reports whether Abort has been called.
func (p *PendingRequest) Aborted() bool {
	return p.aborted
}
