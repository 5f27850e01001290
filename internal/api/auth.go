package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	permRead            = "read"
	permWrite           = "write"
	clientKeyUnknown    = "unknown"
)

var (
	errMissingAPIKey    = errors.New("missing api key header")
	errInvalidAPIKey    = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// keyring resolves API keys to configured clients.
type keyring struct {
	header  string
	clients []config.APIClientKey
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	header := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if header == "" {
		header = apiKeyHeaderDefault
	}
	return &keyring{header: header, clients: cfg.APIKeys}
}

func (k *keyring) authenticate(apiKey, required string) (config.APIClientKey, error) {
	if apiKey == "" {
		return config.APIClientKey{}, errMissingAPIKey
	}

	var (
		match config.APIClientKey
		found bool
	)
	for _, c := range k.clients {
		if subtle.ConstantTimeCompare([]byte(c.Key), []byte(apiKey)) == 1 {
			match, found = c, true
		}
	}
	if !found {
		return config.APIClientKey{}, errInvalidAPIKey
	}

	// An empty permission list allows everything.
	if required == "" || len(match.Permissions) == 0 {
		return match, nil
	}
	for _, p := range match.Permissions {
		if strings.TrimSpace(p) == required {
			return match, nil
		}
	}
	return match, errPermissionDenied
}

// rateBudget turns rps/burst into the limit-per-window form limiters take.
func rateBudget(cfg config.APIRateLimitConfig) (int, time.Duration, bool) {
	if cfg.RPS <= 0 {
		return 0, 0, false
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	window := time.Duration(float64(burst) / cfg.RPS * float64(time.Second))
	return burst, window, true
}

func requiredPermissionHTTP(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return permRead
	default:
		return permWrite
	}
}

// AuthInterceptor applies API-key auth and rate limiting to unary gRPC calls.
type AuthInterceptor struct {
	enabled bool
	keys    *keyring
	rate    config.APIRateLimitConfig
	limiter domain.RateLimiter
	logger  *zerolog.Logger
}

func NewAuthInterceptor(cfg *config.APIConfig, limiter domain.RateLimiter, logger *zerolog.Logger) *AuthInterceptor {
	return &AuthInterceptor{
		enabled: cfg.Auth.Enabled,
		keys:    newKeyring(cfg.Auth),
		rate:    cfg.RateLimit,
		limiter: limiter,
		logger:  logger,
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if a.enabled {
			md, _ := metadata.FromIncomingContext(ctx)
			_, err := a.keys.authenticate(first(md.Get(a.keys.header)), permRead)
			switch {
			case errors.Is(err, errPermissionDenied):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case err != nil:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}
		if err := a.checkRateLimit(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkRateLimit(ctx context.Context) error {
	limit, window, ok := rateBudget(a.rate)
	if !ok || a.limiter == nil {
		return nil
	}
	allowed, err := a.limiter.Allow(ctx, "grpc:"+a.clientKey(ctx), limit, window)
	if err != nil {
		a.logger.Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !allowed {
		return status.Error(codes.ResourceExhausted, errRateLimited.Error())
	}
	return nil
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.keys.header)); apiKey != "" {
		return apiKey
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
