package cgienv

import "strings"

// DecodeCookies splits a Cookie header value on ";", trims each token,
// splits on the first "=", and percent-decodes the value. Tokens with an
// empty name are ignored, per spec.md §4.4.
func DecodeCookies(header string) map[string]string {
	cookies := map[string]string{}
	if header == "" {
		return cookies
	}
	for _, token := range strings.Split(header, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		name, value := splitOnce(token, '=')
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = mustUnescape(strings.TrimSpace(value))
	}
	return cookies
}
