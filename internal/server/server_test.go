package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"swapshelf/internal/config"
	"swapshelf/internal/handlers"
)

func TestServerRoutesUnderAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{Environment: "test"}
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 0

	srv := NewHTTPServer(cfg, zerolog.Nop(), handlers.NewHandlerSet(handlers.Deps{
		Log:         zerolog.Nop(),
		Environment: "test",
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id middleware to run")
	}

	missing := httptest.NewRecorder()
	srv.Handler().ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if missing.Code != http.StatusNotFound {
		t.Errorf("expected 404 outside /api, got %d", missing.Code)
	}
}
