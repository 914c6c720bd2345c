package interceptors

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/infra/security"
)

type stubVerifier struct {
	principal security.Principal
	err       error
}

func (s *stubVerifier) Verify(string) (security.Principal, error) {
	if s.err != nil {
		return security.Principal{}, s.err
	}
	return s.principal, nil
}

const privateMethod = "/books.v1.Inventory/Reserve"

func TestAuthInterceptorAllowsValidTokens(t *testing.T) {
	verifier := &stubVerifier{principal: security.Principal{ID: "staff-7", Kind: domain.PrincipalStaff}}
	interceptor := NewAuthInterceptor(verifier, AuthOptions{Logger: zaptest.NewLogger(t)}).Unary()

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		got, ok := PrincipalFromContext(ctx)
		if !ok || got.ID != "staff-7" || got.Kind != domain.PrincipalStaff {
			t.Fatalf("principal missing from context: %+v", got)
		}
		return "ok", nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer token-value"))
	if _, err := interceptor(ctx, struct{}{}, &grpc.UnaryServerInfo{FullMethod: privateMethod}, handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthInterceptorRejectsMissingToken(t *testing.T) {
	interceptor := NewAuthInterceptor(&stubVerifier{}, AuthOptions{}).Unary()

	if _, err := interceptor(context.Background(), struct{}{}, &grpc.UnaryServerInfo{FullMethod: privateMethod}, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatalf("handler should not be invoked")
		return nil, nil
	}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestAuthInterceptorRejectsMalformedHeader(t *testing.T) {
	interceptor := NewAuthInterceptor(&stubVerifier{}, AuthOptions{}).Unary()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc"))
	if _, err := interceptor(ctx, struct{}{}, &grpc.UnaryServerInfo{FullMethod: privateMethod}, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatalf("handler should not be invoked")
		return nil, nil
	}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestAuthInterceptorPassesThroughAllowedMethods(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("should not be called")}
	interceptor := NewAuthInterceptor(verifier, AuthOptions{AllowMethods: []string{"/grpc.health.v1.Health/Check"}}).Unary()

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	if _, err := interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "pong", nil
	}); err != nil {
		t.Fatalf("expected allowed method to succeed, got %v", err)
	}
}

func TestAuthInterceptorMapsExpiredTokens(t *testing.T) {
	interceptor := NewAuthInterceptor(&stubVerifier{err: security.ErrExpiredToken}, AuthOptions{}).Unary()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer token"))
	_, err := interceptor(ctx, struct{}{}, &grpc.UnaryServerInfo{FullMethod: privateMethod}, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatalf("handler should not be invoked")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated || status.Convert(err).Message() != "access token expired" {
		t.Fatalf("expected expired token status, got %v", err)
	}
}

func TestAuthInterceptorStreamCarriesPrincipal(t *testing.T) {
	verifier := &stubVerifier{principal: security.Principal{ID: "admin-1", Kind: domain.PrincipalAdmin}}
	interceptor := NewAuthInterceptor(verifier, AuthOptions{}).Stream()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer token"))
	stream := &mockServerStream{ctx: ctx}
	info := &grpc.StreamServerInfo{FullMethod: "/books.v1.Inventory/Watch", IsServerStream: true}

	err := interceptor(nil, stream, info, func(srv interface{}, ss grpc.ServerStream) error {
		if p, ok := PrincipalFromContext(ss.Context()); !ok || p.ID != "admin-1" {
			t.Fatalf("expected principal on stream context, got %+v", p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
}

type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context {
	return m.ctx
}
