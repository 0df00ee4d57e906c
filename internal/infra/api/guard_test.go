//go:build !integration

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shorts-studio/internal/infra/logging"
)

func TestChainOrderAndTraceID(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	var trace string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace = logging.TraceIDFrom(r.Context())
	}), mark("a"), TraceID(), mark("b"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	h.ServeHTTP(rec, req)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
	if trace != "req-42" || rec.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("trace = %q", trace)
	}
}

func TestRecoverAndTimeout(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); !ok {
			t.Error("timeout middleware did not set a deadline")
		}
		panic("boom")
	}), RequestLog(nil), Recover(nil), Timeout(time.Second))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
}

func TestAuthenticator(t *testing.T) {
	a, err := NewAuthenticator("0123456789abcdef", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }

	tok, err := a.Mint("alice")
	if err != nil {
		t.Fatal(err)
	}
	if owner, err := a.Owner(tok); err != nil || owner != "alice" {
		t.Fatalf("owner=%q err=%v", owner, err)
	}

	var seen string
	h := a.Auth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.OwnerFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	req.Header.Set("Authorization", "bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "alice" {
		t.Fatalf("owner in context = %q (status %d)", seen, rec.Code)
	}

	a.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := a.Owner(tok); err == nil {
		t.Fatal("expired token accepted")
	}
	if _, err := a.Mint(" "); err == nil {
		t.Fatal("blank owner minted")
	}
}
