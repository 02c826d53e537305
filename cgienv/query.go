package cgienv

import "net/url"

// Query is an ordered mapping from a query-string key to either a single
// string or an ordered list of strings, per spec.md §3/§4.4. Keys records
// first-seen order; Values holds a string or a []string per key.
type Query struct {
	Keys   []string
	Values map[string]interface{}
}

// NewQuery returns an empty, non-nil Query.
func NewQuery() Query {
	return Query{Values: map[string]interface{}{}}
}

// Get returns the single string value for key, or the first element of a
// multi-valued key, and false if the key is absent.
func (q Query) Get(key string) (string, bool) {
	v, ok := q.Values[key]
	if !ok {
		return "", false
	}
	switch vv := v.(type) {
	case string:
		return vv, true
	case []string:
		if len(vv) == 0 {
			return "", true
		}
		return vv[0], true
	}
	return "", false
}

// List returns the values for key as a slice, wrapping a single string in
// a one-element slice, and false if the key is absent.
func (q Query) List(key string) ([]string, bool) {
	v, ok := q.Values[key]
	if !ok {
		return nil, false
	}
	switch vv := v.(type) {
	case string:
		return []string{vv}, true
	case []string:
		return vv, true
	}
	return nil, false
}

func (q *Query) add(key, value string, forceList bool) {
	if _, seen := q.Values[key]; !seen {
		q.Keys = append(q.Keys, key)
	}
	if forceList {
		if existing, ok := q.Values[key].([]string); ok {
			q.Values[key] = append(existing, value)
		} else {
			q.Values[key] = []string{value}
		}
		return
	}
	switch existing := q.Values[key].(type) {
	case nil:
		q.Values[key] = value
	case string:
		q.Values[key] = []string{existing, value}
	case []string:
		q.Values[key] = append(existing, value)
	}
}

// DecodeQuery parses a percent-decoded key/value query string, applying
// the aggregation rules of spec.md §4.4: a trailing literal "[]" on the
// key always produces a list; otherwise a repeated key is promoted from a
// single value to a two-element list.
func DecodeQuery(raw string) Query {
	q := NewQuery()
	if raw == "" {
		return q
	}
	for _, part := range splitAmp(raw) {
		if part == "" {
			continue
		}
		key, value := splitOnce(part, '=')
		key = mustUnescape(key)
		value = mustUnescape(value)

		forceList := false
		if len(key) >= 2 && key[len(key)-2:] == "[]" {
			key = key[:len(key)-2]
			forceList = true
		}
		q.add(key, value, forceList)
	}
	return q
}

func splitAmp(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '&' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func splitOnce(s string, sep byte) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func mustUnescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
