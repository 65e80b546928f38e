package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"roombook/internal/config"
	"roombook/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	userIDHeaderDefault   = "x-user-id"
	clientKeyUnknown      = "unknown"

	permReadRooms      = "read:rooms"
	permWriteBookings  = "write:bookings"
	permReadAnalytics  = "read:analytics"
	permAdmin          = "admin"
	grpcMethodPrefix   = "/" + serviceName + "/"
	requestIDHeaderKey = "x-request-id"
)

var (
	errMissingAPIKey    = errors.New("missing api key headers")
	errInvalidAPIKey    = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// apiKeyAuth validates API key pairs and permissions for both transports.
type apiKeyAuth struct {
	cfg       config.APIConfig
	clients   map[string]config.APIClientKey
	keyHeader string
	extraKey  string
	userKey   string
	limiter   *rateLimiter
}

func newAPIKeyAuth(cfg config.APIConfig) *apiKeyAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &apiKeyAuth{
		cfg:       cfg,
		clients:   m,
		keyHeader: headerName(cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault),
		extraKey:  headerName(cfg.Auth.HeaderExtra, apiExtraHeaderDefault),
		userKey:   headerName(cfg.Auth.HeaderUserID, userIDHeaderDefault),
		limiter:   newRateLimiter(cfg.RateLimit),
	}
}

func headerName(configured, def string) string {
	if h := strings.ToLower(strings.TrimSpace(configured)); h != "" {
		return h
	}
	return def
}

func (a *apiKeyAuth) authenticate(apiKey, extra, required string) error {
	if apiKey == "" || extra == "" {
		return errMissingAPIKey
	}
	client, ok := a.clients[apiKey]
	if !ok {
		return errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}
	return checkPermissions(client, required)
}

// checkPermissions allows everything for clients without a permission list
// and for holders of the admin permission.
func checkPermissions(client config.APIClientKey, required string) error {
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		p = strings.TrimSpace(p)
		if p == required || p == permAdmin {
			return nil
		}
	}
	return errPermissionDenied
}

type AuthInterceptor struct {
	auth *apiKeyAuth
}

func NewAuthInterceptor(cfg config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{auth: newAPIKeyAuth(cfg)}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.auth.cfg.Enabled {
			return handler(ctx, req)
		}

		if a.auth.cfg.Auth.Enabled {
			if err := a.checkAuth(ctx, info.FullMethod); err != nil {
				return nil, err
			}
		}
		if !a.auth.limiter.allow(a.clientKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, errRateLimited.Error())
		}

		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkAuth(ctx context.Context, fullMethod string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	err := a.auth.authenticate(first(md.Get(a.auth.keyHeader)), first(md.Get(a.auth.extraKey)), requiredPermission(fullMethod))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

func requiredPermission(fullMethod string) string {
	switch strings.TrimPrefix(fullMethod, grpcMethodPrefix) {
	case "GetSlots":
		return permReadRooms
	case "CreateBooking", "CancelBooking", "CheckIn", "CheckOut":
		return permWriteBookings
	case "RunAutoRelease":
		return permAdmin
	default:
		return ""
	}
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.auth.keyHeader)); apiKey != "" {
		return apiKey
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

// userFromMetadata reads the caller identity header. It is not authenticated.
func userFromMetadata(ctx context.Context, header string) string {
	md, _ := metadata.FromIncomingContext(ctx)
	return first(md.Get(header))
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeaderKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		dur := time.Since(start)

		code := status.Code(err)
		metrics.IncGRPC(strings.TrimPrefix(info.FullMethod, grpcMethodPrefix), code.String())

		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		event := base.Info()
		if code == codes.Internal || code == codes.Unavailable {
			event = base.Error().Err(err)
		}
		event.
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", dur).
			Msg("grpc request")

		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if id := first(md.Get(requestIDHeaderKey)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
