package main

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/freekieb7/corehttp/http"
	"github.com/freekieb7/corehttp/test"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	test.AssertNoError(t, err)

	test.AssertEqual(t, "0.0.0.0:8088", cfg.addr)
	test.AssertEqual(t, http.DefaultReadBufferSize, cfg.readBuffer)
	test.AssertEqual(t, http.MaxRequestSize, cfg.maxRequestSize)
	test.AssertTrue(t, !cfg.otel, "otel disabled by default")
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("COREHTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("COREHTTP_READ_BUFFER", "1")
	t.Setenv("COREHTTP_OTEL", "true")
	t.Setenv("COREHTTP_MAX_REQUEST_SIZE", "not a number")

	cfg, err := parseConfig([]string{"-read-buffer", "64", "-service-name", "demo"})
	test.AssertNoError(t, err)

	test.AssertEqual(t, "127.0.0.1:9000", cfg.addr)
	test.AssertEqual(t, 64, cfg.readBuffer)
	test.AssertEqual(t, http.MaxRequestSize, cfg.maxRequestSize)
	test.AssertEqual(t, "demo", cfg.serviceName)
	test.AssertTrue(t, cfg.otel, "otel enabled from env")

	_, err = parseConfig([]string{"-unknown"})
	test.AssertTrue(t, err != nil, "unknown flag is rejected")
}

func TestRoutes(t *testing.T) {
	routes := routes(slog.New(slog.DiscardHandler))

	cases := []struct {
		raw  string
		body string
	}{
		{"GET / HTTP/1.1\r\n\r\n", "<h1>Hello World!</h1>"},
		{"HEAD /index.html HTTP/1.1\r\n\r\n", "<h1>Hello World!</h1>"},
		{"GET /hello/world HTTP/1.1\r\n\r\n", "Hello world!"},
		{"POST /form HTTP/1.1\r\n" +
			"Content-Type: application/x-www-form-urlencoded\r\n" +
			"Content-Length: 24\r\n\r\n" +
			"ssid=test&submit=Connect", `{"ssid":"test","submit":"Connect"}`},
	}

	for _, tc := range cases {
		req, err := http.ParseRequest([]byte(tc.raw))
		if !test.AssertNoError(t, err) {
			continue
		}

		route, err := http.Match(routes, req)
		if !test.AssertNoError(t, err) {
			continue
		}

		res, err := http.Execute(route, req)
		if !test.AssertNoError(t, err) {
			continue
		}
		test.AssertTrue(t, strings.Contains(string(res.Body), tc.body), tc.raw)
	}
}
