package wire

import (
	"encoding/binary"
	"fmt"
)

// ErrMalformedParams is returned when a name/value pair stream is
// truncated mid-pair, per spec.md §4.2/§7.
var ErrMalformedParams = fmt.Errorf("fastcgi: malformed params")

// EncodePairs serializes a name/value map using the FastCGI short/long
// length encoding: lengths below 128 are a single byte, lengths at or
// above 128 are four big-endian bytes with the top bit set.
func EncodePairs(pairs map[string]string) []byte {
	size := 0
	for k, v := range pairs {
		size += lenSize(len(k)) + lenSize(len(v)) + len(k) + len(v)
	}
	buf := make([]byte, 0, size)
	for k, v := range pairs {
		buf = appendLen(buf, len(k))
		buf = appendLen(buf, len(v))
		buf = append(buf, k...)
		buf = append(buf, v...)
	}
	return buf
}

// EncodePairsOrdered serializes pairs in the given order, preserving
// repeated keys as distinct pairs on the wire (used for GET_VALUES_RESULT
// replies, whose pair order is fixed).
func EncodePairsOrdered(pairs []Pair) []byte {
	size := 0
	for _, p := range pairs {
		size += lenSize(len(p.Name)) + lenSize(len(p.Value)) + len(p.Name) + len(p.Value)
	}
	buf := make([]byte, 0, size)
	for _, p := range pairs {
		buf = appendLen(buf, len(p.Name))
		buf = appendLen(buf, len(p.Value))
		buf = append(buf, p.Name...)
		buf = append(buf, p.Value...)
	}
	return buf
}

// Pair is a single name/value entry, used where encoding order or
// duplicate names matter.
type Pair struct {
	Name  string
	Value string
}

func lenSize(n int) int {
	if n >= 128 {
		return 4
	}
	return 1
}

func appendLen(buf []byte, n int) []byte {
	if n >= 128 {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n)|0x80000000)
		return append(buf, b[:]...)
	}
	return append(buf, byte(n))
}

// DecodePairs parses a full name/value pair stream into a map, merging
// repeated keys by overwrite (last write wins) as PARAMS records do.
// Truncated input yields ErrMalformedParams.
func DecodePairs(data []byte) (map[string]string, error) {
	pairs := make(map[string]string)
	for len(data) > 0 {
		name, value, rest, err := decodeOnePair(data)
		if err != nil {
			return nil, err
		}
		pairs[name] = value
		data = rest
	}
	return pairs, nil
}

// DecodePairsInto merges a pair stream into an existing map, used by the
// Request Assembler to accumulate PARAMS across multiple records.
func DecodePairsInto(dst map[string]string, data []byte) error {
	for len(data) > 0 {
		name, value, rest, err := decodeOnePair(data)
		if err != nil {
			return err
		}
		dst[name] = value
		data = rest
	}
	return nil
}

func decodeOnePair(data []byte) (name, value string, rest []byte, err error) {
	nameLen, data, err := readLen(data)
	if err != nil {
		return "", "", nil, err
	}
	valueLen, data, err := readLen(data)
	if err != nil {
		return "", "", nil, err
	}
	if len(data) < nameLen+valueLen {
		return "", "", nil, fmt.Errorf("%w: truncated pair", ErrMalformedParams)
	}
	name = string(data[:nameLen])
	value = string(data[nameLen : nameLen+valueLen])
	return name, value, data[nameLen+valueLen:], nil
}

func readLen(data []byte) (int, []byte, error) {
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("%w: truncated length", ErrMalformedParams)
	}
	if data[0]&0x80 == 0 {
		return int(data[0]), data[1:], nil
	}
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("%w: truncated long length", ErrMalformedParams)
	}
	n := binary.BigEndian.Uint32(data[:4]) &^ 0x80000000
	return int(n), data[4:], nil
}
