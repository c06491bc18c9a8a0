package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestTraceIDGeneratesWhenAbsent(t *testing.T) {
	var got string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("generated trace id %q is not a uuid: %v", got, err)
	}
	if rec.Header().Get("X-Trace-ID") != got {
		t.Errorf("response header %q does not echo the trace id %q", rec.Header().Get("X-Trace-ID"), got)
	}
}

func TestTraceIDHonorsClientHeader(t *testing.T) {
	var got string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "client-supplied-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got != "client-supplied-id" {
		t.Errorf("trace id = %q, want client-supplied-id", got)
	}
	if rec.Header().Get("X-Trace-ID") != "client-supplied-id" {
		t.Errorf("response header = %q", rec.Header().Get("X-Trace-ID"))
	}
}

func TestGetTraceIDOutsideMiddleware(t *testing.T) {
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("GetTraceID on a bare context = %q, want empty", got)
	}
}
