package http

import "errors"

var (
	ErrInvalidEncoding      = errors.New("http: line is not valid utf-8")
	ErrMalformedRequestLine = errors.New("http: malformed request line")
	ErrMalformedHeaderLine  = errors.New("http: malformed header line")
	ErrUnsupportedMethod    = errors.New("http: unsupported method")
	ErrRequestTooLarge      = errors.New("http: request too large")

	ErrNoRouteFound    = errors.New("http: no route found")
	ErrProcessing      = errors.New("http: request processing failed")
	ErrInvalidTemplate = errors.New("http: invalid url template")

	ErrServerClosed = errors.New("http: server closed")
)

// parseErrorKind names the parse failure for logs and metrics.
func parseErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEncoding):
		return "invalid_encoding"
	case errors.Is(err, ErrMalformedRequestLine):
		return "malformed_request_line"
	case errors.Is(err, ErrMalformedHeaderLine):
		return "malformed_header_line"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrRequestTooLarge):
		return "request_too_large"
	}
	return "io"
}
