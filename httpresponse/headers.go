package httpresponse

import "net/textproto"

// headers is an insertion-ordered, multi-valued header collection keyed
// by canonical-cased name, per spec.md §3 ("headers (insertion-ordered
// mapping from canonical-cased name to value)").
type headers struct {
	order  []string
	values map[string][]string
}

func newHeaders() *headers {
	return &headers{values: map[string][]string{}}
}

// canonical matches the casing convention net/http itself uses
// ("Content-Type", "X-Custom-Header"); there is no domain-specific
// canonicalization rule here, so this borrows the standard library's
// textproto helper rather than reimplementing title-casing.
func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// Set overwrites any existing values for name with a single value.
func (h *headers) Set(name, value string) {
	name = canonical(name)
	if _, exists := h.values[name]; !exists {
		h.order = append(h.order, name)
	}
	h.values[name] = []string{value}
}

// Add appends value to name's existing values, preserving order.
func (h *headers) Add(name, value string) {
	name = canonical(name)
	if _, exists := h.values[name]; !exists {
		h.order = append(h.order, name)
	}
	h.values[name] = append(h.values[name], value)
}

// Get returns the first value for name, if any.
func (h *headers) Get(name string) (string, bool) {
	vs, ok := h.values[canonical(name)]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// each calls fn once per (name, value) pair in insertion order, emitting
// one call per value for multi-valued headers.
func (h *headers) each(fn func(name, value string)) {
	for _, name := range h.order {
		for _, value := range h.values[name] {
			fn(name, value)
		}
	}
}
