package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendLen(t *testing.T) {
	tests := map[string]struct {
		In       int
		Expected []byte
	}{
		"base case small size":          {In: 127, Expected: []byte{127}},
		"boundary 128 uses long form":    {In: 128, Expected: []byte{0x80, 0x00, 0x00, 0x80}},
		"overflow case large size 256":   {In: 256, Expected: []byte{0x80, 0x00, 0x01, 0x00}},
		"base case small size 0":         {In: 0, Expected: []byte{0}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := appendLen(nil, tt.In)
			if diff := cmp.Diff(tt.Expected, got); diff != "" {
				t.Fatalf("appendLen(%d) mismatch:\n%s", tt.In, diff)
			}
		})
	}
}

func TestPairsRoundTrip(t *testing.T) {
	tests := map[string]map[string]string{
		"empty":        {},
		"single short": {"REQUEST_METHOD": "GET"},
		"long value at boundary": {
			"KEY": string(make([]byte, 128)),
		},
		"multiple": {
			"REQUEST_METHOD": "GET",
			"REQUEST_URI":    "/test?name=world",
			"QUERY_STRING":   "name=world",
		},
	}

	for name, pairs := range tests {
		t.Run(name, func(t *testing.T) {
			encoded := EncodePairs(pairs)
			decoded, err := DecodePairs(encoded)
			if err != nil {
				t.Fatalf("DecodePairs: %v", err)
			}
			if diff := cmp.Diff(pairs, decoded); diff != "" {
				t.Fatalf("round-trip mismatch:\n%s", diff)
			}
		})
	}
}

func TestDecodePairsTruncated(t *testing.T) {
	tests := map[string][]byte{
		"truncated name length": {0x80, 0x00},
		"truncated value":       {3, 10, 'k', 'e', 'y'},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodePairs(data); err == nil {
				t.Fatalf("expected error for %q", name)
			}
		})
	}
}

func TestDecodePairsIntoMerges(t *testing.T) {
	dst := map[string]string{"A": "1"}
	if err := DecodePairsInto(dst, EncodePairs(map[string]string{"B": "2"})); err != nil {
		t.Fatalf("DecodePairsInto: %v", err)
	}
	want := map[string]string{"A": "1", "B": "2"}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Fatalf("merge mismatch:\n%s", diff)
	}
}

func TestEncodePairsOrderedPreservesDuplicates(t *testing.T) {
	pairs := []Pair{{Name: "tag", Value: "a"}, {Name: "tag", Value: "b"}}
	encoded := EncodePairsOrdered(pairs)
	// decoding into a map would collapse duplicates; verify the wire form
	// instead carries both pairs back to back.
	var got []Pair
	data := encoded
	for len(data) > 0 {
		name, value, rest, err := decodeOnePair(data)
		if err != nil {
			t.Fatalf("decodeOnePair: %v", err)
		}
		got = append(got, Pair{Name: name, Value: value})
		data = rest
	}
	if diff := cmp.Diff(pairs, got); diff != "" {
		t.Fatalf("ordered pairs mismatch:\n%s", diff)
	}
}
