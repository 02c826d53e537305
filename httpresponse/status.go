package httpresponse

// reasonPhrases is the built-in status/reason table shared by both
// transports, per spec.md §4.5.
var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
}

// ReasonPhrase returns the canned reason for code, or "Unknown" if code
// isn't in the table.
func ReasonPhrase(code int) string {
	if phrase, ok := reasonPhrases[code]; ok {
		return phrase
	}
	return "Unknown"
}

// contentTypes is the shorthand table for ContentType, per spec.md §4.5.
var contentTypes = map[string]string{
	"html": "text/html; charset=utf-8",
	"text": "text/plain; charset=utf-8",
	"json": "application/json; charset=utf-8",
	"xml":  "application/xml; charset=utf-8",
	"css":  "text/css; charset=utf-8",
	"js":   "application/javascript; charset=utf-8",
}

// resolveContentType maps a shorthand key to its full MIME value,
// returning the input unchanged if it isn't a recognized shorthand.
func resolveContentType(key string) string {
	if v, ok := contentTypes[key]; ok {
		return v
	}
	return key
}
