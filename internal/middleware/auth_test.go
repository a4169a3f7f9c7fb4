package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTerminalAuth_WithValidCookie(t *testing.T) {
	m := NewTerminalAuth("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := TerminalIDFromContext(r.Context())
		if !ok {
			t.Fatalf("terminal id not in context")
		}
		if id != "bar.till-1" {
			t.Fatalf("terminal id from context = %q, want bar.till-1", id)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/protected", nil)

	m.SetAuthCookie(w, "bar.till-1")
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestTerminalAuth_WithoutCookie(t *testing.T) {
	m := NewTerminalAuth("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestTerminalAuth_RejectsForeignSignature(t *testing.T) {
	issuer := NewTerminalAuth("other-secret")
	m := NewTerminalAuth("test-secret")

	w := httptest.NewRecorder()
	issuer.SetAuthCookie(w, "till-1")

	r := httptest.NewRequest(http.MethodPost, "/protected", nil)
	r.AddCookie(w.Result().Cookies()[0])

	rec := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestTerminalAuth_CheckSecret(t *testing.T) {
	m := NewTerminalAuth("test-secret")
	if !m.CheckSecret("test-secret") {
		t.Fatalf("valid secret rejected")
	}
	if m.CheckSecret("nope") {
		t.Fatalf("invalid secret accepted")
	}
	if NewTerminalAuth("").CheckSecret("") {
		t.Fatalf("empty secret must disable terminal login")
	}
}
