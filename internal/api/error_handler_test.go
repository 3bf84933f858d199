package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

func renderError(t *testing.T, err error) (int, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec.Code, body.Error
}

func TestErrorHandler_DomainMappings(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"subject not found", domain.ErrSubjectNotFound, http.StatusNotFound},
		{"not in group", domain.ErrNotInGroup, http.StatusNotFound},
		{"role not found", domain.ErrRoleNotFound, http.StatusNotFound},
		{"rank banned", fmt.Errorf("%w until 2026-03-01", domain.ErrRankBanned), http.StatusConflict},
		{"ineligible rank", domain.ErrIneligibleRank, http.StatusUnprocessableEntity},
		{"invalid duration", domain.ErrInvalidDuration, http.StatusBadRequest},
		{"auth failed", domain.ErrAuthFailed, http.StatusBadGateway},
		{"no session", domain.ErrNoSession, http.StatusServiceUnavailable},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"operator exists", domain.ErrOperatorExists, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg := renderError(t, tc.err)
			if code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, code)
			}
			if msg == "" {
				t.Fatalf("expected an error message")
			}
		})
	}
}

func TestErrorHandler_BannedMessageCarriesExpiry(t *testing.T) {
	_, msg := renderError(t, fmt.Errorf("%w until 2026-03-01T12:00:00Z", domain.ErrRankBanned))
	if msg != "subject is rank banned until 2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestErrorHandler_EchoErrorPassThrough(t *testing.T) {
	code, msg := renderError(t, echo.NewHTTPError(http.StatusTeapot, "short and stout"))
	if code != http.StatusTeapot || msg != "short and stout" {
		t.Fatalf("unexpected mapping: %d %q", code, msg)
	}
}

func TestErrorHandler_UnknownErrorIsOpaque(t *testing.T) {
	code, msg := renderError(t, errors.New("mongo: connection reset"))
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if msg != "internal server error" {
		t.Fatalf("internal detail leaked: %s", msg)
	}
}
