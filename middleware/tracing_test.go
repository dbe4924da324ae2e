package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"viral-kid-platform/internal/telemetry"
)

func TestTracingAndMetricsMiddlewarePassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Without a configured provider the instruments are no-ops; the
	// middleware must still pass requests through untouched.
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		t.Fatalf("init metrics: %v", err)
	}

	router := gin.New()
	router.Use(TracingMiddleware())
	router.Use(MetricsMiddleware(metrics))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("got %d %q, want 200 pong", rec.Code, rec.Body.String())
	}
}

func TestMetricsMiddlewareRecordsErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		t.Fatalf("init metrics: %v", err)
	}

	router := gin.New()
	router.Use(MetricsMiddleware(metrics))
	router.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
}
