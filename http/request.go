package http

import "strings"

type Method uint8

const (
	MethodGet Method = iota + 1
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodOptions
)

var methodNames = [...]string{
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodOptions: "OPTIONS",
}

func (m Method) String() string {
	if m == 0 || int(m) >= len(methodNames) {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// ParseMethod maps a request-line token onto a known method.
// Matching is exact, method names are case-sensitive.
func ParseMethod(token string) (Method, bool) {
	for m := MethodGet; int(m) < len(methodNames); m++ {
		if methodNames[m] == token {
			return m, true
		}
	}
	return 0, false
}

type ContentType int

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeURLEncodedForm
)

const (
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
	HeaderConnection    = "Connection"

	mimeURLEncodedForm = "application/x-www-form-urlencoded"
)

type Request struct {
	Method  Method
	Version string
	URL     string
	Headers map[string]string
	Body    []byte
}

func newRequest() *Request {
	return &Request{
		Method:  MethodGet,
		Headers: make(map[string]string),
	}
}

func (req *Request) Header(name string) (string, bool) {
	v, found := req.Headers[name]
	return v, found
}

// ContentLength reports the Content-Length header when it holds a valid
// non-negative decimal integer.
func (req *Request) ContentLength() (int, bool) {
	v, found := req.Headers[HeaderContentLength]
	if !found || v == "" {
		return 0, false
	}

	n, err := atoi([]byte(v))
	if err != nil {
		return 0, false
	}

	return n, true
}

func (req *Request) ContentType() ContentType {
	v, found := req.Headers[HeaderContentType]
	if found && strings.HasPrefix(v, mimeURLEncodedForm) {
		return ContentTypeURLEncodedForm
	}
	return ContentTypeUnknown
}

// hasBody reports whether the method may carry a body at all.
func (m Method) hasBody() bool {
	return m != MethodGet && m != MethodHead
}
