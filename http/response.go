package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
)

const DefaultVersion = "1.1"

type Response struct {
	Code    int
	Status  string
	Version string
	Headers map[string]string
	Body    []byte
}

func NewResponse(code int) *Response {
	return &Response{
		Code:    code,
		Status:  StatusText(code),
		Version: DefaultVersion,
		Headers: make(map[string]string),
	}
}

func HTML(body string) *Response {
	return NewResponse(StatusOK).WithBody("text/html; charset=UTF-8", []byte(body))
}

func Text(body string) *Response {
	return NewResponse(StatusOK).WithBody("text/plain; charset=UTF-8", []byte(body))
}

func JSON(payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("response: encoding json: %w", err)
	}
	return NewResponse(StatusOK).WithBody("application/json", body), nil
}

// Error builds a plain text response carrying the status text as body.
func Error(code int) *Response {
	return NewResponse(code).WithBody("text/plain; charset=UTF-8", []byte(StatusText(code)))
}

func (res *Response) WithStatus(code int) *Response {
	res.Code = code
	res.Status = StatusText(code)
	return res
}

func (res *Response) WithHeader(name, value string) *Response {
	if res.Headers == nil {
		res.Headers = make(map[string]string)
	}
	res.Headers[name] = value
	return res
}

// WithBody sets the body along with matching Content-Type and Content-Length headers.
func (res *Response) WithBody(contentType string, body []byte) *Response {
	res.Body = body
	res.WithHeader(HeaderContentType, contentType)
	res.WithHeader(HeaderContentLength, strconv.Itoa(len(body)))
	return res
}

// WriteTo serializes the response as
//
//	HTTP/<version> <code> <status>\r\n
//	<Name>: <Value>\r\n   (ascending by name)
//	\r\n
//	<body>
func (res *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	version := res.Version
	if version == "" {
		version = DefaultVersion
	}

	bw.WriteString("HTTP/")
	bw.WriteString(version)
	bw.WriteByte(' ')
	bw.WriteString(strconv.Itoa(res.Code))
	bw.WriteByte(' ')
	bw.WriteString(res.Status)
	bw.Write(crlf)

	for _, name := range slices.Sorted(maps.Keys(res.Headers)) {
		bw.WriteString(name)
		bw.WriteString(": ")
		bw.WriteString(res.Headers[name])
		bw.Write(crlf)
	}
	bw.Write(crlf)
	bw.Write(res.Body)

	err := bw.Flush()
	return cw.n, err
}

// Bytes returns the serialized response.
func (res *Response) Bytes() []byte {
	var buf bytes.Buffer
	res.WriteTo(&buf)
	return buf.Bytes()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
