package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/book-buyback/internal/infra/logger"
)

func TestRequestIDPropagatesOrReplaces(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = logger.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name     string
		header   string
		keepsOwn bool
	}{
		{name: "caller id kept", header: "req-123", keepsOwn: true},
		{name: "missing", header: ""},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLength+1)},
		{name: "control characters", header: "abc\tdef"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(requestIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got != seen {
				t.Fatalf("header %q and context %q differ", got, seen)
			}
			if tc.keepsOwn {
				if got != tc.header {
					t.Fatalf("expected %q, got %q", tc.header, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}
