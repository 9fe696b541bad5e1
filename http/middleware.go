package http

import (
	"fmt"
	"log/slog"
	"time"
)

func RecoverMiddleware(logger *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *Request) (res *Response, err error) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("handler panicked", "method", req.Method.String(), "url", req.URL, "panic", recovered)

					res = nil
					err = fmt.Errorf("%w: panic: %v", ErrProcessing, recovered)
				}
			}()

			return next(req)
		}
	}
}

func LogMiddleware(logger *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *Request) (*Response, error) {
			start := time.Now()
			res, err := next(req)

			attrs := []any{
				"method", req.Method.String(),
				"url", req.URL,
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Error("request failed", append(attrs, "error", err)...)
				return res, err
			}
			if res != nil {
				attrs = append(attrs, "status", res.Code)
			}
			logger.Info("request handled", attrs...)
			return res, nil
		}
	}
}
