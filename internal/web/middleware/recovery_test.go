package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"string panic", "test panic", "panic: test panic"},
		{"error panic", errors.New("capability holder is sealed"), "capability holder is sealed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observed(zapcore.DebugLevel)
			handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.value)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/types", nil))

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, rec.Code)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to parse JSON response: %v", err)
			}
			if body["code"] != "internal_error" {
				t.Errorf("Expected internal_error code, got %v", body["code"])
			}

			entries := logs.FilterMessage("panic recovered").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 panic entry, got %d", len(entries))
			}
			if got := entries[0].ContextMap()["error"]; got != tt.want {
				t.Errorf("Expected logged error %q, got %v", tt.want, got)
			}
		})
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	logger, logs := observed(zapcore.DebugLevel)
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no log entries, got %d", logs.Len())
	}
}

func TestRecoveryRepanicsAbortHandler(t *testing.T) {
	logger, _ := observed(zapcore.DebugLevel)
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
