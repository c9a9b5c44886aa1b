package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/audit"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/hardening"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/httpx"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/metrics"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/orchestrator"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/ratelimit"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/statebus"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/store"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/stream"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/telemetry"
)

type Server struct {
	Core                *orchestrator.Core
	Cache               store.Cache
	Metrics             *metrics.Registry
	Events              *stream.Hub
	RateLimiter         ratelimit.Limiter
	RateLimitEnabled    bool
	RateLimitPerMinute  int
	RateLimitWindow     time.Duration
	AuthMode            string
	AuthToken           string
	MaxRequestBodyBytes int64
}

type gatewayDBCloser interface {
	store.DB
	Close()
}

type gatewayInitTelemetryFunc func(ctx context.Context, service string) (func(context.Context) error, error)
type gatewayOpenDBFunc func(ctx context.Context) (gatewayDBCloser, error)
type gatewayOpenRedisFunc func(ctx context.Context) (*redis.Client, error)
type gatewayOpenBusFunc func(brokers, topic string) (statebus.Publisher, error)
type gatewayListenFunc func(server *http.Server) error

// Testable variables for main()
var (
	logFatalf      = log.Fatalf
	initTelemetryG = telemetry.Init
	openDBFnG      = func(ctx context.Context) (gatewayDBCloser, error) { return store.NewPostgresPool(ctx) }
	openRedisFnG   = store.NewRedis
	openBusFnG     = func(brokers, topic string) (statebus.Publisher, error) {
		return statebus.NewKafkaPublisher(statebus.KafkaConfig{Brokers: strings.Split(brokers, ","), Topic: topic})
	}
	listenFnG = func(server *http.Server) error { return server.ListenAndServe() }
)

func main() {
	if err := runGateway(initTelemetryG, openDBFnG, openRedisFnG, openBusFnG, listenFnG); err != nil {
		logFatalf("gateway: %v", err)
	}
}

func runGateway(
	initTelemetry gatewayInitTelemetryFunc,
	openDB gatewayOpenDBFunc,
	openRedis gatewayOpenRedisFunc,
	openBus gatewayOpenBusFunc,
	listen gatewayListenFunc,
) error {
	ctx := context.Background()
	shutdown, err := initTelemetry(ctx, "gateway")
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	pool, err := openDB(ctx)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisClient, err := openRedis(ctx)
	if err != nil {
		log.Printf("redis unavailable, falling back to in-memory cache/limits: %v", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := store.NewCache(ctx, redisClient)

	core := orchestrator.New(store.NewPGRepository(pool))
	core.Hub = stream.NewHub()
	auditSalt := env("AUDIT_HASH_SALT", "")
	auditRedact := strings.EqualFold(strings.TrimSpace(env("AUDIT_REDACT", "false")), "true")
	core.Auditor = &audit.Writer{DB: pool, HashSalt: []byte(auditSalt), Redact: auditRedact}
	if brokers := strings.TrimSpace(env("KAFKA_BROKERS", "")); brokers != "" {
		bus, err := openBus(brokers, env("KAFKA_TOPIC", "ratereview.events"))
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer bus.Close()
		core.Bus = bus
	}
	if webhookURL := strings.TrimSpace(env("WEBHOOK_URL", "")); webhookURL != "" {
		go newWebhookForwarder(webhookURL, env("WEBHOOK_TOKEN", "")).run(ctx, core.Hub)
	}

	rateLimitWindow := time.Second * time.Duration(envInt("RATE_LIMIT_WINDOW_SEC", 60))
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	maxRequestBodyBytes := int64(envInt("MAX_REQUEST_BODY_BYTES", 1<<20))
	if maxRequestBodyBytes <= 0 {
		maxRequestBodyBytes = 1 << 20
	}

	s := &Server{
		Core:                core,
		Cache:               cache,
		Metrics:             metrics.NewRegistry(),
		Events:              core.Hub,
		RateLimitEnabled:    env("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitPerMinute:  envInt("RATE_LIMIT_PER_MINUTE", 240),
		RateLimitWindow:     rateLimitWindow,
		AuthMode:            env("AUTH_MODE", "token"),
		AuthToken:           env("AUTH_TOKEN", ""),
		MaxRequestBodyBytes: maxRequestBodyBytes,
	}

	runtimeEnv := env("ENVIRONMENT", env("APP_ENV", ""))
	if strings.EqualFold(s.AuthMode, "off") {
		if env("ALLOW_INSECURE_AUTH_OFF", "false") != "true" {
			return errors.New("AUTH_MODE=off is disabled unless ALLOW_INSECURE_AUTH_OFF=true")
		}
		if isProductionLikeEnv(runtimeEnv) {
			return errors.New("AUTH_MODE=off is forbidden in production-like environments")
		}
	}
	if strings.EqualFold(s.AuthMode, "token") && strings.TrimSpace(s.AuthToken) == "" && isProductionLikeEnv(runtimeEnv) {
		return errors.New("AUTH_TOKEN required in production-like environments")
	}
	if err := hardening.ValidateProduction(hardening.Options{
		Service:               "gateway",
		Environment:           runtimeEnv,
		StrictProdSecurity:    env("STRICT_PROD_SECURITY", "true"),
		DatabaseRequireTLS:    env("DATABASE_REQUIRE_TLS", ""),
		RedisAddr:             env("REDIS_ADDR", ""),
		RedisRequireTLS:       env("REDIS_REQUIRE_TLS", ""),
		RedisTLSInsecure:      env("REDIS_TLS_INSECURE", ""),
		RedisAllowInsecureTLS: env("REDIS_ALLOW_INSECURE_TLS", ""),
		CORSAllowedOrigins:    env("CORS_ALLOWED_ORIGINS", ""),
		RequiredServiceSecrets: []hardening.EnvRequirement{
			{Name: "AUTH_TOKEN", Value: s.AuthToken},
		},
	}); err != nil {
		return err
	}
	if s.RateLimitEnabled {
		if redisClient != nil {
			s.RateLimiter = ratelimit.NewRedis(redisClient, rateLimitWindow)
		} else {
			s.RateLimiter = ratelimit.NewInMemory(rateLimitWindow)
		}
	}

	r := s.router()

	addr := env("ADDR", ":8080")
	log.Printf("gateway listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: envDurationSec("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		ReadTimeout:       envDurationSec("HTTP_READ_TIMEOUT_SEC", 15),
		WriteTimeout:      envDurationSec("HTTP_WRITE_TIMEOUT_SEC", 30),
		IdleTimeout:       envDurationSec("HTTP_IDLE_TIMEOUT_SEC", 120),
	}
	if listen == nil {
		return errors.New("listen function required")
	}
	return listen(server)
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(httpx.CORSMiddleware(env("CORS_ALLOWED_ORIGINS", "")))
	r.Use(httpx.SecurityHeadersMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(telemetry.HTTPMiddleware("gateway"))
	r.Use(s.limitRequestBodyMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, 200, map[string]string{"status": "ok", "service": "gateway"})
	})

	authRouter := chi.NewRouter()
	authRouter.Use(s.authMiddleware)
	authRouter.Use(s.rateLimitMiddleware)
	authRouter.Get("/metrics", s.Metrics.Handler())
	authRouter.Get("/metrics/prometheus", s.Metrics.PrometheusHandler())
	authRouter.Post("/v1/rates/validate", s.validateRate)
	authRouter.Post("/v1/negotiations/{negotiation_id}/submit", s.submitRates)
	authRouter.Post("/v1/negotiations/{negotiation_id}/flush", s.flushBatch)
	authRouter.Post("/v1/rates/bulk", s.bulkAction)
	authRouter.Post("/v1/rates/{rate_id}/accept", s.acceptRate)
	authRouter.Post("/v1/rates/{rate_id}/counter", s.counterRate)
	authRouter.Post("/v1/ocg/documents/{ocg_id}/publish", s.publishOCGDocument)
	authRouter.Post("/v1/ocg/documents/{ocg_id}/sign", s.signOCGDocument)
	authRouter.Post("/v1/ocg/documents/{ocg_id}/negotiations", s.openOCGNegotiation)
	authRouter.Post("/v1/ocg/documents/{ocg_id}/sections", s.addOCGSection)
	authRouter.Patch("/v1/ocg/documents/{ocg_id}/sections/{section_id}", s.updateOCGSection)
	authRouter.Delete("/v1/ocg/documents/{ocg_id}/sections/{section_id}", s.removeOCGSection)
	authRouter.Post("/v1/ocg/documents/{ocg_id}/sections/{section_id}/alternatives", s.addOCGAlternative)
	authRouter.Patch("/v1/ocg/documents/{ocg_id}/sections/{section_id}/alternatives/{alternative_id}", s.updateOCGAlternative)
	authRouter.Delete("/v1/ocg/documents/{ocg_id}/sections/{section_id}/alternatives/{alternative_id}", s.removeOCGAlternative)
	authRouter.Post("/v1/ocg/negotiations/{ocg_negotiation_id}/select", s.selectOCGAlternative)
	authRouter.Post("/v1/ocg/negotiations/{ocg_negotiation_id}/submit", s.submitOCG)
	authRouter.Post("/v1/ocg/negotiations/{ocg_negotiation_id}/respond", s.respondOCG)
	authRouter.Post("/v1/ocg/negotiations/{ocg_negotiation_id}/reopen", s.reopenOCG)
	authRouter.Post("/v1/ocg/negotiations/{ocg_negotiation_id}/complete", s.completeOCG)
	authRouter.Post("/v1/analytics/impact", s.analyticsImpact)
	authRouter.Post("/v1/analytics/trends", s.analyticsTrends)
	authRouter.Post("/v1/analytics/peers", s.analyticsPeers)
	authRouter.Get("/v1/stream", s.streamEvents)
	r.Mount("/", authRouter)
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(statusCode int) {
	s.code = statusCode
	s.ResponseWriter.WriteHeader(statusCode)
}

func (srv *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: 200}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		path := r.Method + " " + r.URL.Path
		srv.Metrics.Observe(path, rec.code, elapsed)
		srv.Metrics.ObserveLatency(path, elapsed)
	})
}

func (s *Server) limitRequestBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(s.AuthMode, "off") {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" || s.AuthToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.AuthToken)) != 1 {
			httpx.Error(w, 401, "unauthenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.RateLimitEnabled || s.RateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		decision := s.RateLimiter.Allow(clientIP(r), s.RateLimitPerMinute)
		if !decision.Allowed {
			retry := int(time.Until(decision.ResetAt).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httpx.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		// websocket clients cannot always set headers
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isProductionLikeEnv(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production", "staging", "stage":
		return true
	default:
		return false
	}
}

func envDurationSec(k string, def int) time.Duration {
	return time.Second * time.Duration(envInt(k, def))
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
