package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// New registers into the default registry, so it can only run once per
// process.
var testMetrics = New()

func TestMiddleware_CountsRequests(t *testing.T) {
	before := testutil.CollectAndCount(testMetrics.RequestsTotal)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/invoices")

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := testMetrics.Middleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := testutil.CollectAndCount(testMetrics.RequestsTotal)
	if after <= before {
		t.Errorf("expected request counter series to grow, before=%d after=%d", before, after)
	}
}

func TestDomainCounters(t *testing.T) {
	testMetrics.InvoicesCreated.Inc()
	if v := testutil.ToFloat64(testMetrics.InvoicesCreated); v < 1 {
		t.Errorf("expected invoices counter >= 1, got %f", v)
	}

	testMetrics.PaymentConflicts.Inc()
	if v := testutil.ToFloat64(testMetrics.PaymentConflicts); v < 1 {
		t.Errorf("expected conflict counter >= 1, got %f", v)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
