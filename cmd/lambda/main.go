package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/yourusername/eventsub-receiver/internal/config"
	"github.com/yourusername/eventsub-receiver/internal/db"
	"github.com/yourusername/eventsub-receiver/internal/handlers"
	"github.com/yourusername/eventsub-receiver/internal/middleware"
	"github.com/yourusername/eventsub-receiver/internal/services/discord"
	"github.com/yourusername/eventsub-receiver/internal/services/eventsub"
	"github.com/yourusername/eventsub-receiver/internal/services/logging"
	"github.com/yourusername/eventsub-receiver/internal/services/monitoring"
	"github.com/yourusername/eventsub-receiver/internal/services/notifications"
)

// Router maps HTTP routes to handlers with path parameter extraction
type Router struct {
	routes []route
}

type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{}
}

// Handle registers a handler for a method and path pattern
func (router *Router) Handle(method, pattern string, handler http.HandlerFunc) {
	router.routes = append(router.routes, route{
		method:  method,
		pattern: pattern,
		handler: handler,
	})
}

// ServeHTTP handles incoming HTTP requests
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range router.routes {
		if rt.method != r.Method {
			continue
		}
		params, ok := matchPath(rt.pattern, r.URL.Path)
		if ok {
			ctx := r.Context()
			for k, v := range params {
				ctx = context.WithValue(ctx, pathParamKey(k), v)
			}
			rt.handler(w, r.WithContext(ctx))
			return
		}
	}
	http.Error(w, "Not found", http.StatusNotFound)
}

type pathParamKey string

// getPathParam extracts a path parameter from the request context
func getPathParam(r *http.Request, name string) string {
	v, _ := r.Context().Value(pathParamKey(name)).(string)
	return v
}

// matchPath checks if a route pattern matches a path and extracts parameters
func matchPath(pattern, path string) (map[string]string, bool) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	params := make(map[string]string)
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return nil, false
			}
			params[part[1:]] = pathParts[i]
		} else if part != pathParts[i] {
			return nil, false
		}
	}
	return params, true
}

// appServices holds all initialized services for the application.
type appServices struct {
	cfg               *config.Config
	securityLogger    *logging.SecurityLogger
	monitor           *monitoring.CloudWatchMonitor
	webhookProtection *middleware.WebhookProtection
	healthRL          *middleware.GlobalRateLimiter
	dispatcher        *eventsub.Dispatcher
}

// initServices builds the webhook pipeline from cfg.
func initServices(ctx context.Context, cfg *config.Config) (*appServices, error) {
	secret, err := eventsub.NewSecret(cfg.WebhookSecret)
	if err != nil {
		return nil, err
	}

	securityLogger := logging.NewSecurityLogger(os.Stdout, cfg.LogLevel)

	monitor, err := monitoring.NewCloudWatchMonitor(ctx, cfg.IsProduction(), cfg.MetricsNamespace)
	if err != nil {
		log.Printf("[MONITORING_WARN] CloudWatch unavailable, logging metrics instead: %v", err)
		monitor, _ = monitoring.NewCloudWatchMonitor(ctx, false, cfg.MetricsNamespace)
	}

	// Event sinks: Postgres when configured, Discord relay when configured, stdout otherwise
	var sinks []notifications.Sink
	if db.Pool != nil {
		sinks = append(sinks, notifications.NewStoreSink(db.NewEventStore(db.Pool)))
	}
	if cfg.DiscordWebhookURL != "" {
		sinks = append(sinks, notifications.NewDiscordSink(discord.NewWebhookClient(cfg.DiscordWebhookURL)))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, notifications.NewLogSink(os.Stdout))
	}
	fanout := notifications.NewFanoutService(sinks...)

	verifier := eventsub.NewVerifier(secret, eventsub.WithMaxMessageAge(cfg.MaxMessageAge))
	dispatcher := eventsub.NewDispatcher(
		verifier,
		fanout,
		logging.NewWebhookObserver(securityLogger, monitor),
		eventsub.WithRevocationRecorder(fanout),
		eventsub.WithForwardTimeout(cfg.ForwardTimeout),
	)

	onLimited := func(endpoint string) func(r *http.Request) {
		return func(r *http.Request) {
			securityLogger.LogRateLimitExceeded(r.Context(), r.RemoteAddr, r.URL.Path)
			monitor.PublishRateLimitMetric(r.Context(), endpoint)
		}
	}

	return &appServices{
		cfg:               cfg,
		securityLogger:    securityLogger,
		monitor:           monitor,
		webhookProtection: middleware.NewWebhookProtection(cfg.RateLimit, cfg.RateBurst, onLimited("webhook")),
		healthRL:          middleware.NewGlobalRateLimiter(10, 20, onLimited("health")),
		dispatcher:        dispatcher,
	}, nil
}

// setupRoutes configures all API routes
func setupRoutes(router *Router, svc *appServices) {
	webhookHandler := handlers.NewWebhookHandler(svc.dispatcher, svc.cfg.MaxBodyBytes)

	router.Handle("GET", "/health", svc.healthRL.Middleware(handlers.HealthHandler))

	// Authenticated by HMAC signature, not by session
	router.Handle("POST", "/webhook/:provider/:event_type", svc.webhookProtection.Middleware(func(w http.ResponseWriter, r *http.Request) {
		webhookHandler.HandleWebhook(w, r, getPathParam(r, "provider"), getPathParam(r, "event_type"))
	}))
}

// newHTTPHandler builds the full middleware chain around the router.
func newHTTPHandler(svc *appServices) http.HandlerFunc {
	router := NewRouter()
	setupRoutes(router, svc)
	return middleware.SecurityHeadersMiddleware(middleware.LoggingMiddleware(router.ServeHTTP))
}

// bootstrap loads configuration, connects the database and wires services.
func bootstrap(ctx context.Context) (*appServices, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		if err := db.Connect(ctx, cfg.DatabaseURL); err != nil {
			log.Printf("Warning: Failed to connect to database: %v", err)
			log.Println("Running without database connection - events will not be stored")
		} else if err := db.EnsureSchema(ctx, db.Pool); err != nil {
			log.Printf("Warning: %v", err)
		} else {
			log.Println("Connected to database")
		}
	}

	return initServices(ctx, cfg)
}

// metricsFlushTimeout bounds how long an invocation waits for queued metrics.
// Anything left is sent when the next invocation thaws the environment.
const metricsFlushTimeout = 200 * time.Millisecond

// lambdaHandler adapts API Gateway HTTP API v2 events to the HTTP handler.
type lambdaHandler struct {
	handler http.HandlerFunc
	monitor *monitoring.CloudWatchMonitor
}

// Handle is the Lambda function handler (API Gateway HTTP API v2 payload format)
func (h *lambdaHandler) Handle(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	httpReq, err := convertAPIGatewayV2Request(ctx, request)
	if err != nil {
		log.Printf("Failed to convert request: %v", err)
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error": "Internal server error"}`,
		}, nil
	}

	rw := newResponseWriter()
	h.handler(rw, httpReq)

	// Lambda freezes background goroutines once Handle returns.
	if h.monitor != nil {
		flushCtx, cancel := context.WithTimeout(ctx, metricsFlushTimeout)
		if err := h.monitor.Flush(flushCtx); err != nil {
			log.Printf("[MONITORING_WARN] Metrics not flushed: %v", err)
		}
		cancel()
	}

	respHeaders := make(map[string]string)
	for key, values := range rw.headers {
		if len(values) > 0 {
			respHeaders[key] = values[len(values)-1]
		}
	}

	return events.APIGatewayV2HTTPResponse{
		StatusCode: rw.statusCode,
		Headers:    respHeaders,
		Body:       rw.body.String(),
	}, nil
}

// convertAPIGatewayV2Request converts API Gateway v2 HTTP request to http.Request
func convertAPIGatewayV2Request(ctx context.Context, req events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	method := req.RequestContext.HTTP.Method
	path := req.RawPath
	if path == "" {
		path = req.RequestContext.HTTP.Path
	}

	// The signature covers the exact bytes Twitch sent; API Gateway base64-encodes
	// bodies it does not treat as text, so undo that before anything reads them.
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	// Copy headers (v2 sends single string per header, multi-values are comma-joined)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	q := httpReq.URL.Query()
	for key, value := range req.QueryStringParameters {
		q.Set(key, value)
	}
	httpReq.URL.RawQuery = q.Encode()
	httpReq.RemoteAddr = req.RequestContext.HTTP.SourceIP

	return httpReq, nil
}

// responseWriter implements http.ResponseWriter for Lambda
type responseWriter struct {
	statusCode  int
	headers     http.Header
	body        *bytes.Buffer
	wroteHeader bool
}

func newResponseWriter() *responseWriter {
	return &responseWriter{
		statusCode: http.StatusOK,
		headers:    make(http.Header),
		body:       &bytes.Buffer{},
	}
}

func (rw *responseWriter) Header() http.Header {
	return rw.headers
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	return rw.body.Write(b)
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
	}
}

func main() {
	ctx := context.Background()

	// Check if running in Lambda
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		svc, err := bootstrap(ctx)
		if err != nil {
			log.Fatalf("[CONFIG_ERROR] %v", err)
		}
		h := &lambdaHandler{handler: newHTTPHandler(svc), monitor: svc.monitor}
		lambda.Start(h.Handle)
		return
	}

	// Local development mode
	loadEnvFile()

	svc, err := bootstrap(ctx)
	if err != nil {
		log.Fatalf("[CONFIG_ERROR] %v", err)
	}
	defer db.Close()

	server := &http.Server{
		Addr:              ":" + svc.cfg.Port,
		Handler:           newHTTPHandler(svc),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Printf("Webhook receiver listening on http://localhost:%s", svc.cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// loadEnvFile loads environment variables from .env file for local development
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		log.Println("No .env file found - using system environment variables")
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			// Don't override existing env vars
			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	}
	log.Println("Loaded environment from .env")
}
