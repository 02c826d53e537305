package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordRoundTrip(t *testing.T) {
	tests := map[string]struct {
		recType uint8
		reqID   uint16
		payload []byte
		pad     uint8
	}{
		"empty":               {TypeStdin, 1, nil, 0},
		"one byte":            {TypeStdin, 1, []byte{0x42}, 7},
		"eight bytes":         {TypeParams, 2, bytes.Repeat([]byte{1}, 8), 0},
		"max content length":  {TypeStdout, 3, bytes.Repeat([]byte{9}, MaxContentLength), 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			encoded := Encode(tt.recType, tt.reqID, tt.payload)
			rec, n, ok, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !ok {
				t.Fatalf("Decode: expected ok=true")
			}
			if n != len(encoded) {
				t.Fatalf("Decode consumed %d, want %d", n, len(encoded))
			}
			if rec.Header.PaddingLength != tt.pad {
				t.Fatalf("padding = %d, want %d", rec.Header.PaddingLength, tt.pad)
			}
			if diff := cmp.Diff(tt.payload, rec.Content, cmp.Comparer(func(a, b []byte) bool {
				return bytes.Equal(a, b)
			})); diff != "" && !(len(tt.payload) == 0 && len(rec.Content) == 0) {
				t.Fatalf("content mismatch:\n%s", diff)
			}
			if rec.Header.RequestID != tt.reqID || rec.Header.Type != tt.recType {
				t.Fatalf("header mismatch: %+v", rec.Header)
			}
		})
	}
}

func TestDecodeNeedsMore(t *testing.T) {
	full := Encode(TypeStdin, 1, []byte("hello"))
	for n := 0; n < len(full); n++ {
		_, _, ok, err := Decode(full[:n])
		if err != nil {
			t.Fatalf("Decode(%d bytes): unexpected error %v", n, err)
		}
		if ok {
			t.Fatalf("Decode(%d bytes): expected ok=false (need more)", n)
		}
	}
}

func TestDecodeMalformedVersion(t *testing.T) {
	buf := Encode(TypeStdin, 1, []byte("hi"))
	buf[0] = 2
	_, _, _, err := Decode(buf)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestDecodeMultipleRecordsBackToBack(t *testing.T) {
	a := Encode(TypeParams, 1, []byte("abc"))
	b := Encode(TypeStdin, 1, []byte("defgh"))
	buf := append(append([]byte{}, a...), b...)

	rec1, n1, ok, err := Decode(buf)
	if err != nil || !ok {
		t.Fatalf("first decode: ok=%v err=%v", ok, err)
	}
	rec2, n2, ok, err := Decode(buf[n1:])
	if err != nil || !ok {
		t.Fatalf("second decode: ok=%v err=%v", ok, err)
	}
	if n1+n2 != len(buf) {
		t.Fatalf("consumed %d+%d, want %d", n1, n2, len(buf))
	}
	if string(rec1.Content) != "abc" || string(rec2.Content) != "defgh" {
		t.Fatalf("unexpected content: %q %q", rec1.Content, rec2.Content)
	}
}

func TestEncodeStreamEnd(t *testing.T) {
	end := EncodeStreamEnd(TypeStdout, 7)
	rec, n, ok, err := Decode(end)
	if err != nil || !ok {
		t.Fatalf("decode stream end: ok=%v err=%v", ok, err)
	}
	if n != HeaderLen || rec.Header.ContentLength != 0 || rec.Header.RequestID != 7 {
		t.Fatalf("unexpected stream end record: %+v (consumed %d)", rec.Header, n)
	}
}

func TestEncodeChunksLargePayload(t *testing.T) {
	payload := bytes.Repeat([]byte{7}, MaxContentLength+10)
	encoded := Encode(TypeStdout, 1, payload)

	var got []byte
	data := encoded
	for len(data) > 0 {
		rec, n, ok, err := Decode(data)
		if err != nil || !ok {
			t.Fatalf("decode chunk: ok=%v err=%v", ok, err)
		}
		if int(rec.Header.ContentLength) > MaxContentLength {
			t.Fatalf("chunk content length %d exceeds max", rec.Header.ContentLength)
		}
		got = append(got, rec.Content...)
		data = data[n:]
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled payload mismatch, got %d bytes want %d", len(got), len(payload))
	}
}
