package fastcgi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"fastcgi/cgienv"
	"fastcgi/handlerglue"
	"fastcgi/httpresponse"
	"fastcgi/internal/assembler"
	"fastcgi/internal/wire"
)

// ErrUnexpectedRecord is returned when a record arrives for a request id
// that isn't in a state that can accept it, per spec.md §4.3/§7 — the
// Connection Handler responds by dropping the whole connection.
var ErrUnexpectedRecord = errors.New("fastcgi: unexpected record")

// ErrUnknownRole is logged (not returned to the wire) when BEGIN_REQUEST
// names a role other than Responder, per spec.md §4.6/§7.
var ErrUnknownRole = errors.New("fastcgi: unknown role")

// Conn owns one accepted transport connection: it drives the Frame Codec
// over inbound bytes, dispatches records to the right Request Assembler,
// handles management records, and serializes outbound writes so that a
// single request's response bytes are never interleaved with themselves,
// per spec.md §4.6/§5.
type Conn struct {
	id      string
	nc      net.Conn
	server  *Server
	handler Handler
	log     logr.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[uint16]*assembler.PendingRequest
	cancel   map[uint16]context.CancelFunc
	inFlight int
	closing  bool

	inbound []byte
}

func newConn(nc net.Conn, srv *Server, handler Handler, seq uint64) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:      id,
		nc:      nc,
		server:  srv,
		handler: handler,
		log:     srv.logger().WithValues("conn", id, "seq", seq, "remote", nc.RemoteAddr().String()),
		pending: map[uint16]*assembler.PendingRequest{},
		cancel:  map[uint16]context.CancelFunc{},
	}
}

// serve drives the connection's read loop until EOF, a protocol error, or
// the server shuts it down. It always closes the underlying socket
// before returning.
func (c *Conn) serve(ctx context.Context) {
	ctx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()
	defer c.close()
	c.log.V(1).Info("connection accepted")

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := c.nc.Read(buf)
		if n > 0 {
			c.inbound = append(c.inbound, buf[:n]...)
			if err := c.drainRecords(ctx); err != nil {
				c.log.Error(err, "protocol error, dropping connection")
				return
			}
		}
		if err != nil {
			c.log.V(1).Info("connection closed", "reason", err.Error())
			return
		}
	}
}

// drainRecords repeatedly extracts complete records from c.inbound and
// dispatches them, per spec.md §4.6 ("on each inbound chunk... repeatedly
// extract full records via the Frame Codec until the buffer is short").
func (c *Conn) drainRecords(ctx context.Context) error {
	for {
		rec, n, ok, err := wire.Decode(c.inbound)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c.inbound = c.inbound[n:]
		if err := c.dispatch(ctx, rec); err != nil {
			return err
		}
	}
}

func (c *Conn) dispatch(ctx context.Context, rec wire.Record) error {
	if rec.Header.RequestID == wire.NullRequestID {
		return c.handleManagement(rec)
	}

	switch rec.Header.Type {
	case wire.TypeBeginRequest:
		return c.handleBeginRequest(rec)
	case wire.TypeParams:
		return c.feedAssembler(ctx, rec.Header.RequestID, rec.Content, false)
	case wire.TypeStdin:
		return c.feedAssembler(ctx, rec.Header.RequestID, rec.Content, true)
	case wire.TypeAbortRequest:
		return c.handleAbort(rec.Header.RequestID)
	default:
		c.log.V(2).Info("dropping unrecognized record type", "type", rec.Header.Type)
		return nil
	}
}

func (c *Conn) handleBeginRequest(rec wire.Record) error {
	if len(rec.Content) < 3 {
		return fmt.Errorf("%w: short BEGIN_REQUEST body", wire.ErrMalformedRecord)
	}
	role := uint16(rec.Content[0])<<8 | uint16(rec.Content[1])
	keepConn := rec.Content[2]&wire.KeepConnFlag != 0

	if role != wire.RoleResponder {
		c.log.Error(ErrUnknownRole, "rejecting BEGIN_REQUEST", "role", role, "reqID", rec.Header.RequestID)
		end := wire.Encode(wire.TypeEndRequest, rec.Header.RequestID, wire.EncodeEndRequest(0, wire.StatusUnknownRole))
		return c.writeRecord(end)
	}

	c.mu.Lock()
	c.pending[rec.Header.RequestID] = assembler.New(role, keepConn)
	c.mu.Unlock()
	return nil
}

func (c *Conn) feedAssembler(ctx context.Context, reqID uint16, content []byte, isStdin bool) error {
	c.mu.Lock()
	p, ok := c.pending[reqID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: record for unknown request id %d", ErrUnexpectedRecord, reqID)
	}
	if p.Dispatched() {
		return fmt.Errorf("%w: record for already-dispatched request id %d", ErrUnexpectedRecord, reqID)
	}

	var err error
	if isStdin {
		err = p.FeedStdin(content)
	} else {
		err = p.FeedParams(content)
	}
	if err != nil {
		return c.failRequest(reqID, err)
	}

	if p.Ready() {
		c.dispatchRequest(ctx, reqID, p)
	}
	return nil
}

// failRequest handles a malformed PARAMS stream, per spec.md §7: drop
// the Pending Request and reply END_REQUEST with app-status 1, without
// tearing down the whole connection.
func (c *Conn) failRequest(reqID uint16, cause error) error {
	c.log.Error(cause, "malformed params, failing request", "reqID", reqID)
	c.mu.Lock()
	delete(c.pending, reqID)
	c.mu.Unlock()
	end := wire.Encode(wire.TypeEndRequest, reqID, wire.EncodeEndRequest(1, wire.StatusRequestComplete))
	return c.writeRecord(end)
}

func (c *Conn) handleAbort(reqID uint16) error {
	c.mu.Lock()
	p, ok := c.pending[reqID]
	if ok {
		p.Abort()
		delete(c.pending, reqID)
	}
	if cancel, ok := c.cancel[reqID]; ok {
		cancel()
		delete(c.cancel, reqID)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	c.log.V(1).Info("request aborted", "reqID", reqID)
	end := wire.Encode(wire.TypeEndRequest, reqID, wire.EncodeEndRequest(0, wire.StatusRequestComplete))
	return c.writeRecord(end)
}

func (c *Conn) dispatchRequest(ctx context.Context, reqID uint16, p *assembler.PendingRequest) {
	p.MarkDispatched()

	reqCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel[reqID] = cancel
	c.inFlight++
	keepConn := p.KeepConn
	c.mu.Unlock()

	req := cgienv.Decode(p.Params, p.Stdin)
	if req.RemoteAddr == "" {
		req.RemoteAddr = c.nc.RemoteAddr().String()
	}
	sink := &responseSink{conn: c, requestID: reqID}
	res := httpresponse.New(sink)

	c.log.Info("dispatching request", "reqID", reqID, "method", req.Method, "path", req.Path)

	go func() {
		defer cancel()
		handlerglue.Invoke(reqCtx, c.handler, req, res, c.log)
		if !keepConn {
			c.markClosing()
		}
	}()
}

func (c *Conn) requestFinished(reqID uint16) {
	c.mu.Lock()
	delete(c.pending, reqID)
	delete(c.cancel, reqID)
	c.inFlight--
	shouldClose := c.closing && c.inFlight == 0
	c.mu.Unlock()

	if shouldClose {
		c.nc.Close()
	}
}

func (c *Conn) markClosing() {
	c.mu.Lock()
	c.closing = true
	shouldClose := c.inFlight == 0
	c.mu.Unlock()
	if shouldClose {
		c.nc.Close()
	}
}

func (c *Conn) handleManagement(rec wire.Record) error {
	if rec.Header.Type != wire.TypeGetValues {
		c.log.V(2).Info("dropping unrecognized management record", "type", rec.Header.Type)
		return nil
	}
	queried, err := wire.DecodePairs(rec.Content)
	if err != nil {
		return fmt.Errorf("%w: malformed GET_VALUES", wire.ErrMalformedParams)
	}

	// Reply in a fixed canonical order rather than map iteration order,
	// so GET_VALUES_RESULT is byte-for-byte deterministic across calls.
	var reply []wire.Pair
	for _, key := range []string{wire.VarMaxConns, wire.VarMaxReqs, wire.VarMpxsConns} {
		if _, ok := queried[key]; !ok {
			continue
		}
		switch key {
		case wire.VarMaxConns:
			reply = append(reply, wire.Pair{Name: key, Value: fmt.Sprintf("%d", c.server.opts.MaxConns)})
		case wire.VarMaxReqs:
			reply = append(reply, wire.Pair{Name: key, Value: fmt.Sprintf("%d", c.server.opts.MaxReqs)})
		case wire.VarMpxsConns:
			reply = append(reply, wire.Pair{Name: key, Value: "1"})
		}
	}
	payload := wire.EncodePairsOrdered(reply)
	return c.writeRecord(wire.Encode(wire.TypeGetValuesResult, wire.NullRequestID, payload))
}

func (c *Conn) writeRecord(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeRecordLocked(data)
}

func (c *Conn) writeRecordLocked(data []byte) error {
	_, err := c.nc.Write(data)
	return err
}

func (c *Conn) close() {
	c.nc.Close()
	c.log.V(1).Info("connection closed")
}
