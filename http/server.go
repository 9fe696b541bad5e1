package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/freekieb7/corehttp/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MaxRequestSize        = 2 * 1024 * 1024 // 2MB
	DefaultReadBufferSize = 4096            // 4kB
)

// Server accepts connections and serves one request per connection, each on
// its own goroutine. The route list is fixed at construction.
type Server struct {
	Name string

	routes         []Route
	logger         *slog.Logger
	metrics        *telemetry.ServerMetrics
	tracer         trace.Tracer
	readBufferSize int
	maxRequestSize int
	reusePort      bool

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
	conns    sync.WaitGroup
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(metrics *telemetry.ServerMetrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithReadBufferSize sets how many bytes are read from the socket per call.
// A size of 1 feeds the parser byte by byte.
func WithReadBufferSize(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.readBufferSize = size
		}
	}
}

// WithMaxRequestSize caps the bytes read for a single request. Zero disables the cap.
func WithMaxRequestSize(size int) Option {
	return func(s *Server) {
		s.maxRequestSize = size
	}
}

// WithReusePort sets SO_REUSEPORT on listeners created by ListenAndServe.
func WithReusePort(enabled bool) Option {
	return func(s *Server) {
		s.reusePort = enabled
	}
}

func NewServer(name string, routes []Route, opts ...Option) *Server {
	s := &Server{
		Name:           name,
		routes:         slices.Clip(routes),
		readBufferSize: DefaultReadBufferSize,
		maxRequestSize: MaxRequestSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = telemetry.Logger()
	}
	if s.tracer == nil {
		s.tracer = telemetry.Tracer()
	}
	if s.metrics == nil {
		metrics, err := telemetry.DefaultServerMetrics()
		if err != nil {
			s.logger.Error("registering server metrics failed", "error", err)
		}
		s.metrics = metrics
	}

	return s
}

// ListenAndServe listens on addr and serves until ctx is done or Shutdown is
// called. It returns ErrServerClosed in both cases.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{Control: listenControl(s.reusePort)}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		s.closeListener()
	})
	defer stop()

	return s.Serve(listener)
}

func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	if s.closed.Load() {
		listener.Close()
		return ErrServerClosed
	}

	s.logger.Info("listening", "server", s.Name, "addr", listener.Addr().String())

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 5 * time.Millisecond
	retry.MaxInterval = time.Second
	retry.MaxElapsedTime = 0

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			delay := retry.NextBackOff()
			s.logger.Error("accepting connection failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		retry.Reset()

		// Shutdown flips closed under mu, so no Add can follow its Wait.
		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.conns.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.conns.Done()
			s.ServeConn(conn)
		}()
	}
}

// ServeConn reads, routes and answers a single request, then closes conn.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()

	ctx := context.Background()
	s.metrics.ConnectionOpened(ctx)
	defer s.metrics.ConnectionClosed(ctx)

	logger := s.logger.With("conn", uuid.NewString())
	if addr := conn.RemoteAddr(); addr != nil {
		logger = logger.With("remote", addr.String())
	}

	start := time.Now()
	req, err := s.readRequest(conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return // closed before sending anything
		}

		s.metrics.ParseFailed(ctx, parseErrorKind(err))
		logger.InfoContext(ctx, "request rejected", "error", err)

		if res := rejectResponse(err); res != nil {
			s.write(ctx, logger, conn, res)
		}
		return
	}

	ctx, span := s.tracer.Start(ctx, req.Method.String()+" "+req.URL,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method.String()),
			attribute.String("url.path", req.URL),
			attribute.String("network.protocol.version", req.Version),
		),
	)
	defer span.End()

	res := s.handle(ctx, logger, span, req)
	span.SetAttributes(attribute.Int("http.response.status_code", res.Code))
	if res.Code >= StatusInternalServerError {
		span.SetStatus(codes.Error, res.Status)
	}

	if req.Method == MethodHead {
		// Headers, Content-Length included, describe the GET response.
		res.Body = nil
	}

	s.write(ctx, logger, conn, res)
	s.metrics.RequestHandled(ctx, req.Method.String(), res.Code, time.Since(start))
}

// readRequest feeds the parser chunk by chunk until the request is framed.
func (s *Server) readRequest(r io.Reader) (*Request, error) {
	parser := NewParser()
	buf := make([]byte, s.readBufferSize)
	total := 0

	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += n
			if s.maxRequestSize > 0 && total > s.maxRequestSize {
				return nil, ErrRequestTooLarge
			}

			if _, perr := parser.Feed(buf[:n]); perr != nil {
				return nil, perr
			}
			if parser.HeadersParsed() && parser.BytesStillNeeded() == 0 {
				return parser.Request(), nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) && total > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}

func (s *Server) handle(ctx context.Context, logger *slog.Logger, span trace.Span, req *Request) *Response {
	route, err := Match(s.routes, req)
	if err != nil {
		logger.InfoContext(ctx, "no route found", "method", req.Method.String(), "url", req.URL)
		return Error(StatusNotFound)
	}

	res, err := Execute(route, req)
	if err != nil {
		span.RecordError(err)
		logger.ErrorContext(ctx, "request processing failed", "method", req.Method.String(), "url", req.URL, "error", err)
		return Error(StatusInternalServerError)
	}

	return res
}

func (s *Server) write(ctx context.Context, logger *slog.Logger, conn net.Conn, res *Response) {
	res.WithHeader(HeaderConnection, "close")

	if _, err := res.WriteTo(conn); err != nil {
		logger.InfoContext(ctx, "writing response failed", "error", err)
	}
}

// rejectResponse picks the answer for a request that failed to parse, or nil
// when the connection should just be dropped.
func rejectResponse(err error) *Response {
	switch {
	case errors.Is(err, ErrUnsupportedMethod):
		return Error(StatusNotImplemented)
	case errors.Is(err, ErrRequestTooLarge):
		return Error(StatusRequestEntityTooLarge)
	case errors.Is(err, ErrInvalidEncoding),
		errors.Is(err, ErrMalformedRequestLine),
		errors.Is(err, ErrMalformedHeaderLine):
		return Error(StatusBadRequest)
	}
	return nil
}

func (s *Server) closeListener() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed.Store(true)

	if s.listener == nil {
		return nil
	}
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for the ones in flight.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.closeListener()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}
