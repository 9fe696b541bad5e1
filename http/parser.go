package http

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type State uint8

const (
	StateRequestLine State = iota
	StateHeaders
	StateBody
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequestLine:
		return "request-line"
	case StateHeaders:
		return "headers"
	case StateBody:
		return "body"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is what a successful Feed reports back to the connection loop.
type Outcome uint8

const (
	MoreDataRequired Outcome = iota
	Complete
)

func (o Outcome) String() string {
	if o == Complete {
		return "complete"
	}
	return "more-data-required"
}

var crlf = []byte("\r\n")

// Parser turns an arbitrarily fragmented byte stream into a single Request.
// It never performs I/O; the caller pushes every chunk it reads into Feed.
// A parser frames exactly one request and is not reusable.
type Parser struct {
	buf  []byte
	pos  int // start of the current, unterminated line
	scan int // offset from which to look for the next CRLF

	state    State
	expected int
	err      error

	req *Request
}

func NewParser() *Parser {
	return &Parser{
		req: newRequest(),
	}
}

// Feed appends data to the request being framed. Once a parse error has
// been returned, every later call returns that same error.
func (p *Parser) Feed(data []byte) (Outcome, error) {
	if p.state == StateFailed {
		return MoreDataRequired, p.err
	}

	// A framed request is final, trailing bytes are not part of it.
	if len(data) == 0 || p.state == StateComplete {
		return p.outcome(), nil
	}

	if p.state >= StateBody {
		p.req.Body = append(p.req.Body, data...)
		p.checkComplete()
		return p.outcome(), nil
	}

	p.buf = append(p.buf, data...)
	if err := p.scanLines(); err != nil {
		p.state = StateFailed
		p.err = err
		p.buf = nil
		return MoreDataRequired, err
	}

	if p.state < StateBody {
		return MoreDataRequired, nil
	}

	// Whatever followed the blank line belongs to the body.
	if p.pos < len(p.buf) {
		p.req.Body = append(p.req.Body, p.buf[p.pos:]...)
	}
	p.buf = nil
	p.pos, p.scan = 0, 0

	p.checkComplete()
	return p.outcome(), nil
}

func (p *Parser) scanLines() error {
	for p.state < StateBody {
		i := bytes.Index(p.buf[p.scan:], crlf)
		if i < 0 {
			// A trailing '\r' may still be completed by the next chunk.
			p.scan = max(p.pos, len(p.buf)-1)
			return nil
		}

		end := p.scan + i
		line := p.buf[p.pos:end]
		p.pos = end + len(crlf)
		p.scan = p.pos

		if len(line) == 0 {
			if p.state == StateRequestLine {
				return fmt.Errorf("%w: empty request line", ErrMalformedRequestLine)
			}
			p.state = StateBody
			p.expected = p.expectedBodyLength()
			return nil
		}

		if !utf8.Valid(line) {
			return fmt.Errorf("%w: %q", ErrInvalidEncoding, line)
		}

		if p.state == StateRequestLine {
			if err := parseRequestLine(p.req, string(line)); err != nil {
				return err
			}
			p.state = StateHeaders
			continue
		}

		if err := parseHeaderLine(p.req, string(line)); err != nil {
			return err
		}
	}
	return nil
}

func parseRequestLine(req *Request, line string) error {
	token, rest, found := strings.Cut(line, " ")

	method, ok := ParseMethod(token)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, token)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}

	sep := strings.LastIndexByte(rest, ' ')
	if sep < 0 {
		return fmt.Errorf("%w: missing protocol version: %q", ErrMalformedRequestLine, line)
	}

	protocol := rest[sep+1:]
	if !strings.HasPrefix(protocol, "HTTP/1") {
		return fmt.Errorf("%w: unsupported protocol %q", ErrMalformedRequestLine, protocol)
	}

	url := rest[:sep]
	if url == "" {
		return fmt.Errorf("%w: empty url: %q", ErrMalformedRequestLine, line)
	}

	req.Method = method
	req.URL = url
	req.Version = strings.TrimPrefix(protocol, "HTTP/")
	return nil
}

func parseHeaderLine(req *Request, line string) error {
	name, value, found := strings.Cut(line, ": ")
	if !found {
		return fmt.Errorf("%w: %q", ErrMalformedHeaderLine, line)
	}

	req.Headers[name] = value
	return nil
}

func (p *Parser) expectedBodyLength() int {
	if !p.req.Method.hasBody() {
		return 0
	}

	n, ok := p.req.ContentLength()
	if !ok {
		return 0
	}
	return n
}

func (p *Parser) checkComplete() {
	if p.state == StateBody && len(p.req.Body) >= p.expected {
		p.state = StateComplete
	}
}

func (p *Parser) outcome() Outcome {
	if p.state == StateComplete {
		return Complete
	}
	return MoreDataRequired
}

func (p *Parser) State() State {
	return p.state
}

func (p *Parser) Err() error {
	return p.err
}

func (p *Parser) RequestLineParsed() bool {
	return p.state > StateRequestLine && p.state != StateFailed
}

func (p *Parser) HeadersParsed() bool {
	return p.state == StateBody || p.state == StateComplete
}

// BytesStillNeeded reports how many more body bytes must arrive before the
// request is framed. Until the headers are parsed it asks for at least one
// more byte.
func (p *Parser) BytesStillNeeded() int {
	if !p.HeadersParsed() {
		return 1
	}
	return max(0, p.expected-len(p.req.Body))
}

// Request returns the request being built. It is only safe to hand it to a
// router once Feed has reported Complete.
func (p *Parser) Request() *Request {
	return p.req
}

// ParseRequest frames a request that is already fully buffered.
func ParseRequest(raw []byte) (*Request, error) {
	p := NewParser()

	outcome, err := p.Feed(raw)
	if err != nil {
		return nil, err
	}
	if outcome != Complete {
		return nil, io.ErrUnexpectedEOF
	}

	return p.Request(), nil
}
