package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsEngine(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins))
	r.GET("/api/v1/estimates", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSListedOrigin(t *testing.T) {
	r := corsEngine("https://shop.books.local/")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/estimates", nil)
	req.Header.Set("Origin", "https://shop.books.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.books.local" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials for listed origin")
	}
	if w.Header().Get("Access-Control-Expose-Headers") == "" {
		t.Fatal("expected expose headers")
	}
}

func TestCORSPreflight(t *testing.T) {
	r := corsEngine("https://shop.books.local")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/estimates", nil)
	req.Header.Set("Origin", "https://shop.books.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected allow methods on preflight")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/estimates", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unlisted preflight, got %d", w.Code)
	}
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	r := corsEngine("*")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/estimates", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard must not allow credentials")
	}
}

func TestCORSIgnoresSameOriginRequests(t *testing.T) {
	r := corsEngine("https://shop.books.local")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/estimates", nil))
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected untouched response, got %d %v", w.Code, w.Header())
	}
}
