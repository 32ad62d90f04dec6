package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var fromContext string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/types", nil))

	if fromContext == "" {
		t.Fatal("Expected request ID in context, got empty string")
	}
	if got := rec.Header().Get(RequestIDHeader); got != fromContext {
		t.Errorf("Context ID (%s) does not match header ID (%s)", fromContext, got)
	}
}

func TestRequestIDFromHeader(t *testing.T) {
	var fromContext string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/types", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if fromContext != "client-id-1" {
		t.Errorf("Expected client request ID, got %q", fromContext)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "client-id-1" {
		t.Errorf("Expected echoed request ID, got %q", got)
	}
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	var fromContext string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/types", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(fromContext) != 36 {
		t.Errorf("Expected a generated UUID, got %q", fromContext)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("Expected empty request ID, got %q", id)
	}
}
