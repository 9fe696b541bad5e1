package http

import (
	"strings"
	"unicode/utf8"
)

// ParseForm decodes an application/x-www-form-urlencoded body. Requests with
// another content type or a body that is not UTF-8 yield an empty map.
func ParseForm(req *Request) map[string]string {
	if req.ContentType() != ContentTypeURLEncodedForm || !utf8.Valid(req.Body) {
		return make(map[string]string)
	}
	return ParseURLEncodedForm(string(req.Body))
}

// ParseURLEncodedForm decodes "k=v&k2=v2". Pairs without exactly one '='
// are skipped, later keys overwrite earlier ones.
func ParseURLEncodedForm(body string) map[string]string {
	form := make(map[string]string)

	for _, field := range strings.Split(body, "&") {
		kv := strings.Split(field, "=")
		if len(kv) != 2 {
			continue
		}
		form[decodeFormComponent(kv[0])] = decodeFormComponent(kv[1])
	}

	return form
}

// decodeFormComponent turns '+' into a space and percent-decodes the rest.
// Escapes that are not two hex digits are kept as they are, and decoded
// bytes that are not UTF-8 become U+FFFD.
func decodeFormComponent(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			out = append(out, ' ')
		case c == '%' && i+2 < len(s):
			hi, lo := hexToByte(s[i+1]), hexToByte(s[i+2])
			if hi == 255 || lo == 255 {
				out = append(out, c)
				continue
			}
			out = append(out, hi<<4|lo)
			i += 2
		default:
			out = append(out, c)
		}
	}

	return strings.ToValidUTF8(string(out), "�")
}
