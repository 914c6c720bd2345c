package interceptors

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/arklim/book-buyback/internal/infra/security"
)

const (
	authorizationKey = "authorization"
	bearerPrefix     = "bearer "
)

// TokenVerifier validates bearer tokens presented in call metadata.
type TokenVerifier interface {
	Verify(raw string) (security.Principal, error)
}

// AuthOptions fine-tunes interceptor behaviour.
type AuthOptions struct {
	// AllowMethods lists full method names served without a token.
	AllowMethods []string
	Logger       *zap.Logger
}

// AuthInterceptor rejects calls that do not carry a valid access token.
type AuthInterceptor struct {
	verifier TokenVerifier
	logger   *zap.Logger
	allow    map[string]struct{}
}

func NewAuthInterceptor(verifier TokenVerifier, opts AuthOptions) *AuthInterceptor {
	allow := make(map[string]struct{}, len(opts.AllowMethods))
	for _, method := range opts.AllowMethods {
		if method = strings.TrimSpace(method); method != "" {
			allow[method] = struct{}{}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthInterceptor{verifier: verifier, logger: logger, allow: allow}
}

// Unary returns the unary server interceptor.
func (ai *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := ai.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// Stream returns the stream server interceptor.
func (ai *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := ai.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &principalStream{ServerStream: ss, ctx: ctx})
	}
}

func (ai *AuthInterceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	if ai == nil || ai.verifier == nil {
		return ctx, nil
	}
	if _, ok := ai.allow[method]; ok {
		return ctx, nil
	}

	token, err := tokenFromMetadata(ctx)
	if err != nil {
		ai.logger.Warn("gRPC authentication failed", zap.String("method", method), zap.Error(err))
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}

	principal, err := ai.verifier.Verify(token)
	if err != nil {
		ai.logger.Warn("gRPC token validation failed", zap.String("method", method), zap.Error(err))
		if errors.Is(err, security.ErrExpiredToken) {
			return ctx, status.Error(codes.Unauthenticated, "access token expired")
		}
		return ctx, status.Error(codes.Unauthenticated, "invalid access token")
	}

	return WithPrincipal(ctx, principal), nil
}

type principalStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *principalStream) Context() context.Context {
	return s.ctx
}

type principalContextKey struct{}

// WithPrincipal returns a derived context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal security.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext extracts the authenticated principal when present.
func PrincipalFromContext(ctx context.Context) (security.Principal, bool) {
	if ctx == nil {
		return security.Principal{}, false
	}
	principal, ok := ctx.Value(principalContextKey{}).(security.Principal)
	return principal, ok && principal.ID != ""
}

func tokenFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("missing metadata")
	}

	values := md.Get(authorizationKey)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", errors.New("authorization token required")
	}

	value := strings.TrimSpace(values[0])
	if len(value) < len(bearerPrefix) || !strings.HasPrefix(strings.ToLower(value), bearerPrefix) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(value[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("authorization token required")
	}
	return token, nil
}
