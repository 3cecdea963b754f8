package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"state","trace_id":"abc123"}`))
	if !ok {
		t.Fatal("should find trace_id")
	}
	if tc.TraceID != "abc123" {
		t.Errorf("trace ID = %q, want abc123", tc.TraceID)
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(tc.SpanID))
	}
}

func TestExtractFromJSONMissing(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"advice"}`))
	if ok {
		t.Error("should report no trace_id")
	}
	if tc.TraceID == "" {
		t.Error("should fall back to a fresh trace")
	}
}

func TestExtractFromJSONMalformed(t *testing.T) {
	if _, ok := ExtractFromJSON([]byte(`{"trace_id":`)); ok {
		t.Error("should report no trace_id for malformed JSON")
	}
}

func TestMiddlewarePropagatesHeader(t *testing.T) {
	var got Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/state", nil)
	req.Header.Set(TraceIDKey, "deadbeef")
	req.Header.Set(SpanIDKey, "cafe")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "deadbeef" {
		t.Errorf("trace ID = %q, want deadbeef", got.TraceID)
	}
	if got.ParentSpanID != "cafe" {
		t.Errorf("parent span = %q, want cafe", got.ParentSpanID)
	}
}

func TestMiddlewareGeneratesTraceID(t *testing.T) {
	var got Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(got.TraceID) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(got.TraceID))
	}
}
