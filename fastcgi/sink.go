package fastcgi

import "fastcgi/internal/wire"

// responseSink is the httpresponse.Sink used for FastCGI requests: every
// write is framed into one or more STDOUT records (chunked by
// wire.Encode at MaxContentLength), and Close emits the zero-length
// STDOUT terminator followed by END_REQUEST, per spec.md §4.5's
// "FastCGI envelope".
type responseSink struct {
	conn      *Conn
	requestID uint16
}

func (s *responseSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.conn.writeRecord(wire.Encode(wire.TypeStdout, s.requestID, p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *responseSink) Close() error {
	if err := s.conn.writeRecord(wire.EncodeStreamEnd(wire.TypeStdout, s.requestID)); err != nil {
		return err
	}
	end := wire.Encode(wire.TypeEndRequest, s.requestID, wire.EncodeEndRequest(0, wire.StatusRequestComplete))
	if err := s.conn.writeRecord(end); err != nil {
		return err
	}
	s.conn.requestFinished(s.requestID)
	return nil
}
