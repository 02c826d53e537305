package cgienv

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeBody dispatches on the lowercased, semicolon-trimmed content type
// to produce the parsed body form, per spec.md §4.4. It never returns an
// error: a JSON parse failure falls back to the raw text, matching the
// spec's "on parse failure return the raw text... without raising".
func decodeBody(contentType string, raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	media := mediaType(contentType)
	switch {
	case media == "application/json":
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw)
		}
		return v
	case media == "application/x-www-form-urlencoded":
		return DecodeQuery(string(raw))
	case media == "" :
		return string(raw)
	case strings.HasPrefix(media, "text/"), media == "application/xml":
		return string(raw)
	default:
		return nil
	}
}

// mediaType lowercases contentType and strips any ";charset=..." suffix
// and surrounding whitespace, per spec.md §4.4 ("lowercased,
// semicolon-trimmed content-type").
func mediaType(contentType string) string {
	media, _ := splitOnce(contentType, ';')
	return strings.ToLower(strings.TrimSpace(media))
}
