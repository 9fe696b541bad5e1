package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/freekieb7/corehttp/http"
	"github.com/freekieb7/corehttp/telemetry"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>corehttp</title></head>
<body>
<h1>Hello World!</h1>
<form method="POST" action="/form">
<input type="text" name="ssid" placeholder="SSID">
<input type="password" name="password" placeholder="Password">
<input type="submit" name="submit" value="Connect">
</form>
</body>
</html>
`

type config struct {
	addr           string
	readBuffer     int
	maxRequestSize int
	reusePort      bool
	otel           bool
	otelEndpoint   string
	serviceName    string
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if cfg.otel {
		shutdown, err := telemetry.Setup(ctx, telemetry.Config{
			ServiceName: cfg.serviceName,
			Endpoint:    cfg.otelEndpoint,
			Insecure:    true,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Println(err)
			}
		}()

		logger = telemetry.Logger()
	}

	server := http.NewServer(cfg.serviceName, routes(logger),
		http.WithLogger(logger),
		http.WithReadBufferSize(cfg.readBuffer),
		http.WithMaxRequestSize(cfg.maxRequestSize),
		http.WithReusePort(cfg.reusePort),
	)

	err = server.ListenAndServe(ctx, cfg.addr)
	if errors.Is(err, http.ErrServerClosed) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
	return err
}

func routes(logger *slog.Logger) []http.Route {
	router := http.NewRouter()
	router.Middleware = append(router.Middleware,
		http.LogMiddleware(logger),
		http.RecoverMiddleware(logger),
	)

	router.Static([]http.Method{http.MethodGet, http.MethodHead}, []string{"/", "/index.html"}, func(req *http.Request) (*http.Response, error) {
		return http.HTML(indexPage), nil
	})

	router.POST("/form", func(req *http.Request) (*http.Response, error) {
		return http.JSON(http.ParseForm(req))
	})

	router.MustDynamic([]http.Method{http.MethodGet}, "/hello/:name", func(req *http.Request, vars http.Vars) (*http.Response, error) {
		return http.Text("Hello " + vars.Get("name") + "!"), nil
	})

	return router.Routes()
}

func parseConfig(args []string) (config, error) {
	var cfg config

	fs := flag.NewFlagSet("corehttp", flag.ContinueOnError)
	fs.StringVar(&cfg.addr, "addr", envString("COREHTTP_ADDR", "0.0.0.0:8088"), "address to listen on")
	fs.IntVar(&cfg.readBuffer, "read-buffer", envInt("COREHTTP_READ_BUFFER", http.DefaultReadBufferSize), "bytes read from a connection per call")
	fs.IntVar(&cfg.maxRequestSize, "max-request-size", envInt("COREHTTP_MAX_REQUEST_SIZE", http.MaxRequestSize), "maximum request size in bytes, 0 disables the limit")
	fs.BoolVar(&cfg.reusePort, "reuse-port", envBool("COREHTTP_REUSE_PORT", false), "set SO_REUSEPORT on the listener")
	fs.BoolVar(&cfg.otel, "otel", envBool("COREHTTP_OTEL", false), "export traces, metrics and logs over OTLP/gRPC")
	fs.StringVar(&cfg.otelEndpoint, "otel-endpoint", envString("COREHTTP_OTEL_ENDPOINT", ""), "OTLP collector host:port")
	fs.StringVar(&cfg.serviceName, "service-name", envString("COREHTTP_SERVICE_NAME", "corehttp"), "service name reported to telemetry")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
