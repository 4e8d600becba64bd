package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/model"
)

func TestWithCSRF(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := WithCSRF(ok)

	cases := []struct {
		name   string
		method string
		header string
		cookie string
		claim  string
		want   int
	}{
		{"all match", http.MethodPost, "tok", "tok", "tok", http.StatusNoContent},
		{"safe method bypasses", http.MethodGet, "", "", "", http.StatusNoContent},
		{"head bypasses", http.MethodHead, "", "", "", http.StatusNoContent},
		{"missing header", http.MethodPut, "", "tok", "tok", http.StatusForbidden},
		{"missing cookie", http.MethodPut, "tok", "", "tok", http.StatusForbidden},
		{"missing claim", http.MethodDelete, "tok", "tok", "", http.StatusForbidden},
		{"header differs", http.MethodPatch, "bad", "tok", "tok", http.StatusForbidden},
		{"cookie differs", http.MethodPost, "tok", "bad", "tok", http.StatusForbidden},
		{"claim differs", http.MethodPost, "tok", "tok", "bad", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/", nil)
			if tc.header != "" {
				req.Header.Set(CSRFHeaderName, tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: tc.cookie})
			}
			if tc.claim != "" {
				p := &auth.Principal{Username: "Rakesh", Role: model.RoleUser, CSRFToken: tc.claim}
				req = req.WithContext(WithPrincipal(req.Context(), p))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("want %d, got %d", tc.want, rr.Code)
			}
			if tc.want == http.StatusForbidden && !strings.Contains(rr.Body.String(), "CSRF validation failed") {
				t.Fatalf("unexpected body: %s", rr.Body.String())
			}
		})
	}
}

func TestWithSessionCSRF(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := WithSessionCSRF(ok)

	// без сессии проверки нет
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("anonymous: want 204, got %d", rr.Code)
	}

	p := &auth.Principal{Username: "Rakesh", Role: model.RoleUser, CSRFToken: "tok"}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), p))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("session without token: want 403, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(CSRFHeaderName, "tok")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "tok"})
	req = req.WithContext(WithPrincipal(req.Context(), p))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("session with token: want 204, got %d", rr.Code)
	}
}
