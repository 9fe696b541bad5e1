package http

const (
	StatusContinue = 100 // RFC 7231, 6.2.1

	StatusOK        = 200 // RFC 7231, 6.3.1
	StatusCreated   = 201 // RFC 7231, 6.3.2
	StatusAccepted  = 202 // RFC 7231, 6.3.3
	StatusNoContent = 204 // RFC 7231, 6.3.5

	StatusMovedPermanently  = 301 // RFC 7231, 6.4.2
	StatusFound             = 302 // RFC 7231, 6.4.3
	StatusSeeOther          = 303 // RFC 7231, 6.4.4
	StatusNotModified       = 304 // RFC 7232, 4.1
	StatusTemporaryRedirect = 307 // RFC 7231, 6.4.7
	StatusPermanentRedirect = 308 // RFC 7538, 3

	StatusBadRequest            = 400 // RFC 7231, 6.5.1
	StatusUnauthorized          = 401 // RFC 7235, 3.1
	StatusForbidden             = 403 // RFC 7231, 6.5.3
	StatusNotFound              = 404 // RFC 7231, 6.5.4
	StatusMethodNotAllowed      = 405 // RFC 7231, 6.5.5
	StatusRequestTimeout        = 408 // RFC 7231, 6.5.7
	StatusLengthRequired        = 411 // RFC 7231, 6.5.10
	StatusRequestEntityTooLarge = 413 // RFC 7231, 6.5.11
	StatusUnsupportedMediaType  = 415 // RFC 7231, 6.5.13
	StatusTeapot                = 418 // RFC 7168, 2.3.3

	StatusInternalServerError     = 500 // RFC 7231, 6.6.1
	StatusNotImplemented          = 501 // RFC 7231, 6.6.2
	StatusServiceUnavailable      = 503 // RFC 7231, 6.6.4
	StatusHTTPVersionNotSupported = 505 // RFC 7231, 6.6.6
)

var statusText = map[int]string{
	StatusContinue: "Continue",

	StatusOK:        "OK",
	StatusCreated:   "Created",
	StatusAccepted:  "Accepted",
	StatusNoContent: "No Content",

	StatusMovedPermanently:  "Moved Permanently",
	StatusFound:             "Found",
	StatusSeeOther:          "See Other",
	StatusNotModified:       "Not Modified",
	StatusTemporaryRedirect: "Temporary Redirect",
	StatusPermanentRedirect: "Permanent Redirect",

	StatusBadRequest:            "Bad Request",
	StatusUnauthorized:          "Unauthorized",
	StatusForbidden:             "Forbidden",
	StatusNotFound:              "Not Found",
	StatusMethodNotAllowed:      "Method Not Allowed",
	StatusRequestTimeout:        "Request Timeout",
	StatusLengthRequired:        "Length Required",
	StatusRequestEntityTooLarge: "Request Entity Too Large",
	StatusUnsupportedMediaType:  "Unsupported Media Type",
	StatusTeapot:                "I'm a teapot",

	StatusInternalServerError:     "Internal Server Error",
	StatusNotImplemented:          "Not Implemented",
	StatusServiceUnavailable:      "Service Unavailable",
	StatusHTTPVersionNotSupported: "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for code, or "" if unknown.
func StatusText(code int) string {
	return statusText[code]
}
