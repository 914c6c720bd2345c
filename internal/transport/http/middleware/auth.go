package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/infra/logger"
	"github.com/arklim/book-buyback/internal/infra/security"
	"github.com/arklim/book-buyback/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// TokenVerifier resolves a bearer token to the calling principal.
type TokenVerifier interface {
	Verify(token string) (security.Principal, error)
}

// Authorizer answers permission checks for a principal.
type Authorizer interface {
	Authorize(ctx context.Context, principalID string, mode usecase.AuthorizationMode, required ...domain.Permission) (bool, error)
}

// RequireAuth validates the Authorization header and stores the principal on the context.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		if !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: must start with 'Bearer'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case errors.Is(err, security.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(PrincipalIDKey, principal.ID)
		c.Set(PrincipalKindKey, principal.Kind)
		c.Request = c.Request.WithContext(logger.ContextWithPrincipalID(c.Request.Context(), principal.ID))

		reqCtx := GetRequestContext(c)
		reqCtx.PrincipalID = principal.ID
		reqCtx.PrincipalKind = principal.Kind

		c.Next()
	}
}

// RequirePermissions rejects the request with 403 unless the authenticated
// principal holds the permissions under mode. It must run after RequireAuth.
func RequirePermissions(authz Authorizer, mode usecase.AuthorizationMode, required ...domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principalID, ok := GetPrincipalID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		allowed, err := authz.Authorize(c.Request.Context(), principalID, mode, required...)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authorization check failed"))
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, usecase.ErrPermissionDenied.Error()))
			return
		}

		c.Next()
	}
}

// GetPrincipalID retrieves the authenticated principal ID (helper for handlers)
func GetPrincipalID(c *gin.Context) (string, bool) {
	value, exists := c.Get(PrincipalIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

// GetPrincipalKind retrieves the authenticated principal kind.
func GetPrincipalKind(c *gin.Context) domain.PrincipalKind {
	if value, exists := c.Get(PrincipalKindKey); exists {
		if kind, ok := value.(domain.PrincipalKind); ok {
			return kind
		}
	}
	return ""
}
