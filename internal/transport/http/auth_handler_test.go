package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sajidhasan/schooldesk-backend/internal/service"
)

func TestMapVerifyErrorStatuses(t *testing.T) {
	handler := &AuthHandler{}
	e := echo.New()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "expired", err: service.ErrChallengeExpired, want: http.StatusGone},
		{name: "locked", err: service.ErrChallengeLocked, want: http.StatusTooManyRequests},
		{name: "used", err: service.ErrChallengeUsed, want: http.StatusBadRequest},
		{name: "wrong code", err: service.ErrCodeInvalid, want: http.StatusBadRequest},
		{name: "unknown challenge", err: service.ErrChallengeNotFound, want: http.StatusBadRequest},
		{name: "suspended institution", err: service.ErrInstitutionSuspended, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/verify", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.mapVerifyError(c, tc.err); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

// A guessed code and a guessed challenge id must be indistinguishable in the
// response body.
func TestMapVerifyErrorHidesChallengeExistence(t *testing.T) {
	handler := &AuthHandler{}
	e := echo.New()

	bodies := make(map[string]string)
	for name, target := range map[string]error{
		"wrong code":        service.ErrCodeInvalid,
		"unknown challenge": service.ErrChallengeNotFound,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/verify", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := handler.mapVerifyError(c, target); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		bodies[name] = rec.Body.String()
	}
	if bodies["wrong code"] != bodies["unknown challenge"] {
		t.Fatalf("responses differ: %q vs %q", bodies["wrong code"], bodies["unknown challenge"])
	}
}

func TestMapAuthErrorStatuses(t *testing.T) {
	handler := &AuthHandler{}
	e := echo.New()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "unknown institution", err: service.ErrInstitutionNotFound, want: http.StatusNotFound},
		{name: "suspended institution", err: service.ErrInstitutionSuspended, want: http.StatusForbidden},
		{name: "bad phone", err: service.ErrInvalidPhone, want: http.StatusBadRequest},
		{name: "pending account", err: service.ErrAccountPending, want: http.StatusForbidden},
		{name: "rejected account", err: service.ErrAccountRejected, want: http.StatusForbidden},
		{name: "disabled account", err: service.ErrAccountDisabled, want: http.StatusForbidden},
		{name: "delivery failure", err: service.ErrDeliveryFailed, want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/send", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.mapAuthError(c, tc.err); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestSendCodeValidatesRequest(t *testing.T) {
	handler := &AuthHandler{limiter: &fakeLimiter{allowed: true}}
	e := echo.New()

	cases := []struct {
		name string
		body string
	}{
		{name: "missing slug", body: `{"phone":"01712345678","scope":"TEACHER"}`},
		{name: "bad scope", body: `{"institution_slug":"greenfield","phone":"01712345678","scope":"WIZARD"}`},
		{name: "bad phone", body: `{"institution_slug":"greenfield","phone":"abc","scope":"TEACHER"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/send", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.sendCode(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSendCodeDeniedByRateLimit(t *testing.T) {
	handler := &AuthHandler{limiter: &fakeLimiter{allowed: false}}
	e := echo.New()

	body := `{"institution_slug":"greenfield","phone":"01712345678","scope":"TEACHER"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/send", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// auth is nil: reaching the service after the denial would panic.
	if err := handler.sendCode(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "retry_after_seconds") {
		t.Fatalf("expected a retry hint, got %s", rec.Body.String())
	}
}

func TestVerifyCodeDeniedByRateLimit(t *testing.T) {
	handler := &AuthHandler{limiter: &fakeLimiter{allowed: false}}
	e := echo.New()

	body := `{"institution_slug":"greenfield","phone":"01712345678","scope":"TEACHER",` +
		`"challenge_id":"` + uuid.NewString() + `","code":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/verify", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.verifyCode(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestSendCodeLimiterOutageStopsRequest(t *testing.T) {
	handler := &AuthHandler{limiter: &fakeLimiter{err: context.DeadlineExceeded}}
	e := echo.New()

	body := `{"institution_slug":"greenfield","phone":"01712345678","scope":"TEACHER"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/send", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// auth is nil: a fail-open limiter would panic here instead of returning 503.
	if err := handler.sendCode(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
