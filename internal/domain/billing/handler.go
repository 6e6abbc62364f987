package billing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emrstack/emr/internal/platform/auth"
	"github.com/emrstack/emr/internal/platform/metrics"
)

type Handler struct {
	svc     *Service
	metrics *metrics.Metrics
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// WithMetrics attaches domain counters. A nil-metrics handler skips counting.
func (h *Handler) WithMetrics(m *metrics.Metrics) *Handler {
	h.metrics = m
	return h
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "billing"))

	g.POST("/invoices", h.CreateInvoice)
	g.GET("/invoices/:id", h.GetInvoice)
	g.PUT("/invoices/:id", h.UpdateInvoice)
	g.POST("/invoices/:id/payments", h.RecordPayment)
	g.GET("/invoices/:id/payments", h.ListInvoicePayments)

	g.POST("/claims", h.SubmitClaim)
	g.PUT("/claims/:id", h.UpdateClaim)

	g.GET("/patients/:id/invoices", h.GetPatientInvoices)
	g.GET("/patients/:id/claims", h.GetPatientClaims)
	g.GET("/patients/:id/outstanding-balance", h.GetOutstandingBalance)
}

// httpError maps service error kinds onto HTTP status codes. Persistence
// errors stay opaque and map to 500.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Invoice handlers --

func (h *Handler) CreateInvoice(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		return httpError(err)
	}
	if h.metrics != nil {
		h.metrics.InvoicesCreated.Inc()
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if inv == nil {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) UpdateInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv.ID = id
	if err := h.svc.UpdateInvoice(c.Request().Context(), &inv); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) RecordPayment(c echo.Context) error {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Payment
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.InvoiceID = invoiceID
	if err := h.svc.RecordPayment(c.Request().Context(), &p); err != nil {
		if h.metrics != nil && errors.Is(err, ErrConflict) {
			h.metrics.PaymentConflicts.Inc()
		}
		return httpError(err)
	}
	if h.metrics != nil {
		h.metrics.PaymentsRecorded.Inc()
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListInvoicePayments(c echo.Context) error {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	payments, err := h.svc.ListInvoicePayments(c.Request().Context(), invoiceID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payments)
}

// -- Claim handlers --

func (h *Handler) SubmitClaim(c echo.Context) error {
	var claim InsuranceClaim
	if err := c.Bind(&claim); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SubmitInsuranceClaim(c.Request().Context(), &claim); err != nil {
		return httpError(err)
	}
	if h.metrics != nil {
		h.metrics.ClaimsSubmitted.Inc()
	}
	return c.JSON(http.StatusCreated, claim)
}

func (h *Handler) UpdateClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var claim InsuranceClaim
	if err := c.Bind(&claim); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	claim.ID = id
	if err := h.svc.UpdateInsuranceClaim(c.Request().Context(), &claim); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

// -- Patient-scoped handlers --

func (h *Handler) GetPatientInvoices(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	invoices, err := h.svc.GetPatientInvoices(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, invoices)
}

func (h *Handler) GetPatientClaims(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	claims, err := h.svc.GetPatientClaims(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, claims)
}

func (h *Handler) GetOutstandingBalance(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	balance, err := h.svc.CalculateOutstandingBalance(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id":          patientID,
		"outstanding_balance": balance,
	})
}
