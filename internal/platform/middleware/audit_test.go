package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emrstack/emr/internal/platform/auth"
)

func TestAudit_RecordsEntry(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	patientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+patientID.String()+"/invoices", nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "user-42")
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"billing"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-123")

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	var got AuditEntry
	recorder := AuditRecorderFunc(func(entry AuditEntry) error {
		got = entry
		return nil
	})

	if err := Audit(logger, recorder)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "user-42" {
		t.Errorf("expected user-42, got %q", got.UserID)
	}
	if got.Resource != "patients" {
		t.Errorf("expected patients, got %q", got.Resource)
	}
	if got.PatientID != patientID.String() {
		t.Errorf("expected patient id %s, got %q", patientID, got.PatientID)
	}
	if got.Action != "read" {
		t.Errorf("expected read, got %q", got.Action)
	}
	if got.RequestID != "req-123" {
		t.Errorf("expected req-123, got %q", got.RequestID)
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	called := false
	recorder := AuditRecorderFunc(func(entry AuditEntry) error {
		called = true
		return nil
	})

	if err := Audit(logger, recorder)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected no audit entry for non-API path")
	}
}

func TestHTTPMethodToAction(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:    "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range cases {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("%s: expected %s, got %s", method, want, got)
		}
	}
}

func TestExtractResource(t *testing.T) {
	cases := map[string]string{
		"/api/v1/invoices":     "invoices",
		"/api/v1/invoices/123": "invoices",
		"/api/v1/claims":       "claims",
		"/api/v1/":             "unknown",
	}
	for path, want := range cases {
		if got := extractResource(path); got != want {
			t.Errorf("%s: expected %s, got %s", path, want, got)
		}
	}
}
