// Package wire implements the binary FastCGI record format: the fixed
// 8-byte header, content framing with zero padding, and the variable
// length name/value pair encoding carried inside PARAMS and management
// records.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Version1          uint8 = 1
	NullRequestID     uint16 = 0
	KeepConnFlag      uint8  = 1
	HeaderLen         int    = 8
	MaxContentLength  int    = 65535
	MaxPad            int    = 255
)

// Record types, spec.md §3.
const (
	TypeBeginRequest    uint8 = 1
	TypeAbortRequest    uint8 = 2
	TypeEndRequest      uint8 = 3
	TypeParams          uint8 = 4
	TypeStdin           uint8 = 5
	TypeStdout          uint8 = 6
	TypeStderr          uint8 = 7
	TypeData            uint8 = 8
	TypeGetValues       uint8 = 9
	TypeGetValuesResult uint8 = 10
	TypeUnknown         uint8 = 11
)

// Roles, spec.md §3.
const (
	RoleResponder  uint16 = 1
	RoleAuthorizer uint16 = 2
	RoleFilter     uint16 = 3
)

// Protocol statuses carried by END_REQUEST, spec.md §4.6/§7.
const (
	StatusRequestComplete uint8 = 0
	StatusCantMpxConn     uint8 = 1
	StatusOverloaded      uint8 = 2
	StatusUnknownRole     uint8 = 3
)

// Management variable names understood by GET_VALUES, spec.md §4.6.
const (
	VarMaxConns  = "FCGI_MAX_CONNS"
	VarMaxReqs   = "FCGI_MAX_REQS"
	VarMpxsConns = "FCGI_MPXS_CONNS"
)

// ErrMalformedRecord is returned when a header carries an unsupported
// version or an impossible length, per spec.md §7.
var ErrMalformedRecord = errors.New("fastcgi: malformed record")

// Header is the fixed 8-byte prefix of every record.
type Header struct {
	Version       uint8
	Type          uint8
	RequestID     uint16
	ContentLength uint16
	PaddingLength uint8
	Reserved      uint8
}

// NewHeader fills in a header for a record carrying contentLength bytes,
// choosing the padding length that rounds the record up to a multiple of
// 8 bytes.
func NewHeader(recType uint8, requestID uint16, contentLength int) Header {
	return Header{
		Version:       Version1,
		Type:          recType,
		RequestID:     requestID,
		ContentLength: uint16(contentLength),
		PaddingLength: uint8((8 - contentLength%8) % 8),
	}
}

// Record is a fully decoded record: header plus content, padding already
// stripped.
type Record struct {
	Header  Header
	Content []byte
}

// Decode extracts one record from buf. It returns the record, the number
// of bytes consumed from buf, and ok=false if buf does not yet hold a
// complete record ("need more" per spec.md §4.1). A malformed header
// (bad version) is reported as ErrMalformedRecord.
func Decode(buf []byte) (rec Record, consumed int, ok bool, err error) {
	if len(buf) < HeaderLen {
		return Record{}, 0, false, nil
	}
	h := Header{
		Version:       buf[0],
		Type:          buf[1],
		RequestID:     binary.BigEndian.Uint16(buf[2:4]),
		ContentLength: binary.BigEndian.Uint16(buf[4:6]),
		PaddingLength: buf[6],
		Reserved:      buf[7],
	}
	if h.Version != Version1 {
		return Record{}, 0, false, fmt.Errorf("%w: version %d", ErrMalformedRecord, h.Version)
	}
	total := HeaderLen + int(h.ContentLength) + int(h.PaddingLength)
	if len(buf) < total {
		return Record{}, 0, false, nil
	}
	content := make([]byte, h.ContentLength)
	copy(content, buf[HeaderLen:HeaderLen+int(h.ContentLength)])
	return Record{Header: h, Content: content}, total, true, nil
}

// Encode emits one or more records of recType carrying payload, chunked
// so that no single record's content exceeds MaxContentLength. Each
// record is zero-padded to a multiple of 8 bytes.
func Encode(recType uint8, requestID uint16, payload []byte) []byte {
	if len(payload) == 0 {
		return encodeOne(recType, requestID, nil)
	}
	out := make([]byte, 0, len(payload)+HeaderLen+MaxPad)
	for len(payload) > 0 {
		n := len(payload)
		if n > MaxContentLength {
			n = MaxContentLength
		}
		out = append(out, encodeOne(recType, requestID, payload[:n])...)
		payload = payload[n:]
	}
	return out
}

// EncodeStreamEnd emits the zero-length record that terminates a stream
// record type (STDOUT or PARAMS), per spec.md §4.1.
func EncodeStreamEnd(recType uint8, requestID uint16) []byte {
	return encodeOne(recType, requestID, nil)
}

func encodeOne(recType uint8, requestID uint16, content []byte) []byte {
	h := NewHeader(recType, requestID, len(content))
	buf := make([]byte, HeaderLen+len(content)+int(h.PaddingLength))
	buf[0] = h.Version
	buf[1] = h.Type
	binary.BigEndian.PutUint16(buf[2:4], h.RequestID)
	binary.BigEndian.PutUint16(buf[4:6], h.ContentLength)
	buf[6] = h.PaddingLength
	buf[7] = h.Reserved
	copy(buf[HeaderLen:], content)
	return buf
}

// EncodeBeginRequest builds the content of a BEGIN_REQUEST record (role +
// flags byte, 5 reserved bytes), mainly useful for tests that need to
// drive the engine as a client would.
func EncodeBeginRequest(role uint16, keepConn bool) []byte {
	var flags uint8
	if keepConn {
		flags = KeepConnFlag
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint16(b[0:2], role)
	b[2] = flags
	return b
}

// EncodeEndRequest builds the content of an END_REQUEST record.
func EncodeEndRequest(appStatus uint32, protocolStatus uint8) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], appStatus)
	b[4] = protocolStatus
	return b
}

// ReadAll reads r to EOF and decodes every record in it; a trailing
// partial record is reported as ErrMalformedRecord. The Connection
// Handler does not use it: it decodes incrementally from a growing
// buffer instead, so it never waits for EOF on multi-record input.
func ReadAll(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var recs []Record
	for len(data) > 0 {
		rec, n, ok, err := Decode(data)
		if err != nil {
			return recs, err
		}
		if !ok {
			return recs, fmt.Errorf("%w: truncated stream", ErrMalformedRecord)
		}
		recs = append(recs, rec)
		data = data[n:]
	}
	return recs, nil
}
