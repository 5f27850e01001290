package api

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startBufServer(t *testing.T, cfg *config.APIConfig) (*GRPCServer, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	logger := zerolog.Nop()
	srv := newGRPCServer(cfg, lis, repository.NewMemoryRateLimiter(), &logger)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return srv, healthpb.NewHealthClient(conn)
}

func TestGRPCHealthFollowsPing(t *testing.T) {
	srv, client := startBufServer(t, &config.APIConfig{})

	var failing atomic.Bool
	ping := func(context.Context) error {
		if failing.Load() {
			return errors.New("db gone")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.WatchHealth(ctx, ping, 10*time.Millisecond)

	statusOf := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	assert.Eventually(t, func() bool { return statusOf() == healthpb.HealthCheckResponse_SERVING }, time.Second, 10*time.Millisecond)
	failing.Store(true)
	assert.Eventually(t, func() bool { return statusOf() == healthpb.HealthCheckResponse_NOT_SERVING }, time.Second, 10*time.Millisecond)
}

func TestGRPCAuth(t *testing.T) {
	cfg := &config.APIConfig{Auth: config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.APIClientKey{
			{Key: "reader", Permissions: []string{permRead}},
			{Key: "writer", Permissions: []string{permWrite}},
		},
	}}
	srv, client := startBufServer(t, cfg)
	srv.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	check := func(key string) codes.Code {
		ctx := context.Background()
		if key != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", key)
		}
		_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		return status.Code(err)
	}

	assert.Equal(t, codes.Unauthenticated, check(""))
	assert.Equal(t, codes.Unauthenticated, check("bogus"))
	assert.Equal(t, codes.PermissionDenied, check("writer"))
	assert.Equal(t, codes.OK, check("reader"))
}

func TestAuthInterceptorRateLimit(t *testing.T) {
	cfg := &config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.5, Burst: 1}}
	logger := zerolog.Nop()
	interceptor := NewAuthInterceptor(cfg, repository.NewMemoryRateLimiter(), &logger).Unary()

	handler := func(context.Context, any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := interceptor(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(context.Background(), nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestKeyring(t *testing.T) {
	k := newKeyring(config.APIAuthConfig{APIKeys: []config.APIClientKey{
		{Key: "all", Name: "root"},
		{Key: "ro", Name: "viewer", Permissions: []string{" read "}},
	}})
	assert.Equal(t, apiKeyHeaderDefault, k.header)

	_, err := k.authenticate("", permRead)
	assert.ErrorIs(t, err, errMissingAPIKey)

	_, err = k.authenticate("nope", permRead)
	assert.ErrorIs(t, err, errInvalidAPIKey)

	client, err := k.authenticate("all", permWrite)
	require.NoError(t, err)
	assert.Equal(t, "root", client.Name)

	_, err = k.authenticate("ro", permRead)
	assert.NoError(t, err)
	_, err = k.authenticate("ro", permWrite)
	assert.ErrorIs(t, err, errPermissionDenied)
}

func TestRateBudget(t *testing.T) {
	limit, window, ok := rateBudget(config.APIRateLimitConfig{RPS: 20, Burst: 40})
	require.True(t, ok)
	assert.Equal(t, 40, limit)
	assert.Equal(t, 2*time.Second, window)

	_, _, ok = rateBudget(config.APIRateLimitConfig{})
	assert.False(t, ok)

	limit, window, ok = rateBudget(config.APIRateLimitConfig{RPS: 4})
	require.True(t, ok)
	assert.Equal(t, 1, limit)
	assert.Equal(t, 250*time.Millisecond, window)
}

func TestRequestIDFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, " abc "))
	assert.Equal(t, "abc", requestIDFromMetadata(ctx))
	assert.NotEmpty(t, requestIDFromMetadata(context.Background()))
}
