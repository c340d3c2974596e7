package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"weather_balance/internal/logger"
	"weather_balance/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LogsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	gin.SetMode(gin.TestMode)
	r := NewHandler(&service.Service{Results: newMockResults()}, log).InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/updates/abc", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/updates/:id" || fields["method"] != http.MethodGet {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if fields["status"] != int64(http.StatusNotFound) {
		t.Fatalf("status field = %v (%T)", fields["status"], fields["status"])
	}
}

func TestRequestLogger_NilLogger(t *testing.T) {
	r := newTestRouter(&service.Service{Results: newMockResults()})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/updates", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}
