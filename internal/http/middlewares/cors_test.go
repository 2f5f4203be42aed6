package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSRouter(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(CORSMiddleware(origins))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "pong"})
	})

	return r
}

func TestCORSAllowedOriginGetsHeaders(t *testing.T) {
	r := newCORSRouter([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("got allow-origin %q", got)
	}

	if w.Header().Get("Vary") != "Origin" {
		t.Error("missing Vary: Origin")
	}
}

func TestCORSUnlistedOriginGetsNoHeaders(t *testing.T) {
	r := newCORSRouter([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	r := newCORSRouter([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("got status %d, want %d", w.Code, http.StatusNoContent)
	}

	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight missing allow-methods")
	}
}
